package ir

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"p4mid/internal/source"
)

func codecProgram() *Program {
	prog := NewProgram()
	b := NewBuilder(prog)

	bit8 := &Type{Kind: TypeBits, Data: BitsData{Width: 8}}
	hdr := &Type{Kind: TypeHeader, Data: FieldsData{Fields: []StructField{
		{Name: "dst", Type: &Type{Kind: TypeBits, Data: BitsData{Width: 48}}},
		{Name: "kind", Type: &Type{Kind: TypeBits, Data: BitsData{Width: 16}}},
	}}}
	prog.Add(b.TypeDef("eth_t", hdr, source.Span{}))

	ctl := b.Control("ingress", source.Span{})
	SetAnnotations(ctl, Annotations{{Name: NameAnnotation, Value: ".pipe.ingress"}})
	ctl.ApplyParams = []*Param{
		b.Param("h", DirInOut, &Type{Kind: TypeName, Data: NameData{Path: NewPath("eth_t")}}, source.Span{}),
		b.Param("port", DirOut, &Type{Kind: TypeBits, Data: BitsData{Width: 9}}, source.Span{}),
	}
	act := b.Action("set_port", []*Param{b.Param("p", DirNone, bit8, source.Span{})}, NewBlock(source.Span{}, []*Stmt{
		NewAssign(source.Span{}, NewPathExpr("port", source.Span{}), NewPathExpr("p", source.Span{})),
	}), source.Span{})
	tbl := b.Table("fwd", []TableProperty{
		{Name: "actions", Value: &Expr{Kind: ExprList, Data: ListData{Items: []*Expr{NewPathExpr("set_port", source.Span{})}}}},
		{Name: "size", Value: &Expr{Kind: ExprConst, Data: ConstData{Value: 1024}}},
	}, source.Span{})
	ctl.Locals = []Decl{
		act,
		tbl,
		b.Variable("tmp", bit8, &Expr{Kind: ExprConst, Data: ConstData{Value: 7, Type: bit8}}, source.Span{}),
		b.Constant("max", bit8, &Expr{Kind: ExprConst, Data: ConstData{Value: 255}}, source.Span{}),
		b.Instance("ctr", &Type{Kind: TypeExtern, Data: ExternData{Name: "counter"}},
			[]*Expr{{Kind: ExprConst, Data: ConstData{Value: 16}}}, source.Span{}),
	}
	ctl.Body = NewBlock(source.Span{}, []*Stmt{
		{Kind: StmtIf, Data: IfData{
			Cond: &Expr{Kind: ExprBoolConst, Data: BoolConstData{Value: true}},
			Then: NewBlock(source.Span{}, []*Stmt{
				NewMethodCallStmt(source.Span{}, &Expr{Kind: ExprCall, Data: CallData{
					Callee: &Expr{Kind: ExprMember, Data: MemberData{
						Base:  NewPathExpr("fwd", source.Span{}),
						Field: "apply",
					}},
				}}),
			}),
		}},
	})
	prog.Add(ctl)

	prs := b.Parser("prs", source.Span{})
	prs.ApplyParams = []*Param{b.Param("h", DirOut, &Type{Kind: TypeName, Data: NameData{Path: NewPath("eth_t")}}, source.Span{})}
	start := b.State(StateStart, source.Span{})
	start.Transition = &Expr{Kind: ExprSelect, Data: SelectData{
		Select: []*Expr{{Kind: ExprMember, Data: MemberData{Base: NewPathExpr("h", source.Span{}), Field: "kind"}}},
		Cases: []SelectCase{
			{Keyset: &Expr{Kind: ExprConst, Data: ConstData{Value: 0x800}}, State: NewPath("next")},
			{Keyset: &Expr{Kind: ExprDefault}, State: NewPath(StateReject)},
		},
	}}
	next := b.State("next", source.Span{})
	next.Transition = NewPathExpr(StateAccept, source.Span{})
	prs.States = []*State{start, next}
	prog.Add(prs)

	return prog
}

func dumpString(prog *Program) string {
	var buf bytes.Buffer
	Dump(&buf, prog)
	return buf.String()
}

func TestCodecRoundTrip(t *testing.T) {
	prog := codecProgram()

	var buf bytes.Buffer
	if err := EncodeProgram(&buf, prog); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeProgram(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := dumpString(prog)
	if dump := dumpString(got); dump != want {
		t.Fatalf("round trip changed the program:\n--- want ---\n%s\n--- got ---\n%s", want, dump)
	}
}

func TestCodecPreservesIDGenerator(t *testing.T) {
	prog := codecProgram()
	before := prog.ids.next

	var buf bytes.Buffer
	if err := EncodeProgram(&buf, prog); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeProgram(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ids.next != before {
		t.Fatalf("generator state: got %d, want %d", got.ids.next, before)
	}

	d := NewBuilder(got).Variable("fresh", nil, nil, source.Span{})
	for _, obj := range got.Objects {
		if obj.DeclID() == d.DeclID() {
			t.Fatalf("fresh declaration reuses ID %d", d.DeclID())
		}
	}
}

func TestCodecDecodedSpansAreZero(t *testing.T) {
	prog := NewProgram()
	b := NewBuilder(prog)
	prog.Add(b.Control("c", source.Span{File: 3, Start: 10, End: 20}))

	var buf bytes.Buffer
	if err := EncodeProgram(&buf, prog); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeProgram(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sp := got.Objects[0].DeclSpan(); sp != (source.Span{}) {
		t.Fatalf("spans must not survive the wire, got %+v", sp)
	}
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	var buf bytes.Buffer
	wp := wireProgram{Version: CodecVersion + 1}
	if err := msgpack.NewEncoder(&buf).Encode(&wp); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeProgram(&buf); !errors.Is(err, ErrBadVersion) {
		t.Fatalf("want ErrBadVersion, got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeProgram(bytes.NewReader([]byte{0x00, 0xff, 0x13})); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("want ErrBadPayload, got %v", err)
	}
}

func TestDecodeRejectsUnknownKinds(t *testing.T) {
	var buf bytes.Buffer
	wp := wireProgram{
		Version: CodecVersion,
		Objects: []*wireDecl{{Kind: 99, Name: "x"}},
	}
	if err := msgpack.NewEncoder(&buf).Encode(&wp); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeProgram(&buf); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("want ErrBadPayload, got %v", err)
	}
}
