package ir

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// CodecVersion is bumped whenever the wire layout changes. Decoding a
// payload with a different version fails rather than guessing.
const CodecVersion uint16 = 1

// ErrBadVersion is returned when a payload carries an unknown version.
var ErrBadVersion = errors.New("ir: unsupported payload version")

// ErrBadPayload is returned when a payload is structurally invalid.
var ErrBadPayload = errors.New("ir: malformed payload")

// Spans are intentionally not serialized: file IDs are only meaningful
// within the process that built the FileSet. Decoded programs carry
// zero spans.

type wireProgram struct {
	Version uint16
	NextID  uint32
	Objects []*wireDecl
}

type wireAnnotation struct {
	Name  string
	Value string
}

type wireType struct {
	Kind     uint8
	Width    int
	Signed   bool
	Name     string
	Absolute bool
	Fields   []wireField
	Elem     *wireType
	Size     int
	Base     *wireType
	Args     []*wireType
}

type wireField struct {
	Name        string
	Annotations []wireAnnotation
	Type        *wireType
}

type wireExpr struct {
	Kind     uint8
	Name     string
	Absolute bool
	Field    string
	Base     *wireExpr
	Index    *wireExpr
	Value    int64
	Bool     bool
	Type     *wireType
	Callee   *wireExpr
	TypeArgs []*wireType
	Args     []*wireExpr
	Items    []*wireExpr
	Select   []*wireExpr
	Cases    []wireCase
}

type wireCase struct {
	Keyset   *wireExpr
	State    string
	Absolute bool
}

type wireStmt struct {
	Kind        uint8
	Annotations []wireAnnotation
	LHS         *wireExpr
	RHS         *wireExpr
	Call        *wireExpr
	Stmts       []*wireStmt
	Cond        *wireExpr
	Then        *wireStmt
	Else        *wireStmt
	Decl        *wireDecl
}

const (
	wireDeclParam uint8 = iota + 1
	wireDeclVariable
	wireDeclConstant
	wireDeclInstance
	wireDeclTable
	wireDeclAction
	wireDeclControl
	wireDeclParser
	wireDeclState
	wireDeclTypeDef
)

type wireProp struct {
	Name        string
	Annotations []wireAnnotation
	Value       *wireExpr
}

type wireDecl struct {
	Kind        uint8
	ID          uint32
	Name        string
	Annotations []wireAnnotation
	Direction   uint8
	Type        *wireType
	Expr        *wireExpr
	Args        []*wireExpr
	Props       []wireProp
	Params      []*wireDecl
	TypeParams  []string
	ApplyParams []*wireDecl
	CtorParams  []*wireDecl
	Locals      []*wireDecl
	States      []*wireDecl
	Components  []*wireStmt
	Body        *wireStmt
	Transition  *wireExpr
}

// EncodeProgram writes the program to w in msgpack form.
func EncodeProgram(w io.Writer, prog *Program) error {
	wp := wireProgram{
		Version: CodecVersion,
		NextID:  uint32(prog.ids.next),
	}
	for _, d := range prog.Objects {
		wp.Objects = append(wp.Objects, encodeDecl(d))
	}
	return msgpack.NewEncoder(w).Encode(&wp)
}

// DecodeProgram reads a program previously written by EncodeProgram.
func DecodeProgram(r io.Reader) (*Program, error) {
	var wp wireProgram
	if err := msgpack.NewDecoder(r).Decode(&wp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if wp.Version != CodecVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBadVersion, wp.Version, CodecVersion)
	}
	prog := NewProgram()
	prog.ids.next = DeclID(wp.NextID)
	for _, wd := range wp.Objects {
		d, err := decodeDecl(wd)
		if err != nil {
			return nil, err
		}
		prog.Add(d)
	}
	return prog, nil
}

func encodeAnnotations(as Annotations) []wireAnnotation {
	if len(as) == 0 {
		return nil
	}
	out := make([]wireAnnotation, len(as))
	for i, a := range as {
		out[i] = wireAnnotation{Name: a.Name, Value: a.Value}
	}
	return out
}

func decodeAnnotations(ws []wireAnnotation) Annotations {
	if len(ws) == 0 {
		return nil
	}
	out := make(Annotations, len(ws))
	for i, w := range ws {
		out[i] = Annotation{Name: w.Name, Value: w.Value}
	}
	return out
}

func encodeType(t *Type) *wireType {
	if t == nil {
		return nil
	}
	w := &wireType{Kind: uint8(t.Kind)}
	switch d := t.Data.(type) {
	case BitsData:
		w.Width = d.Width
		w.Signed = d.Signed
	case NameData:
		w.Name = d.Path.Name
		w.Absolute = d.Path.Absolute
	case FieldsData:
		for _, f := range d.Fields {
			w.Fields = append(w.Fields, wireField{
				Name:        f.Name,
				Annotations: encodeAnnotations(f.Annotations),
				Type:        encodeType(f.Type),
			})
		}
	case StackData:
		w.Elem = encodeType(d.Elem)
		w.Size = d.Size
	case SpecializedData:
		w.Base = encodeType(d.Base)
		for _, a := range d.Args {
			w.Args = append(w.Args, encodeType(a))
		}
	case VarData:
		w.Name = d.Name
	case ExternData:
		w.Name = d.Name
	}
	return w
}

func decodeType(w *wireType) (*Type, error) {
	if w == nil {
		return nil, nil
	}
	t := &Type{Kind: TypeKind(w.Kind)}
	switch t.Kind {
	case TypeVoid, TypeBool:
	case TypeBits:
		t.Data = BitsData{Width: w.Width, Signed: w.Signed}
	case TypeName:
		t.Data = NameData{Path: &Path{Name: w.Name, Absolute: w.Absolute}}
	case TypeHeader, TypeStruct:
		var fields []StructField
		for _, f := range w.Fields {
			ft, err := decodeType(f.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, StructField{
				Name:        f.Name,
				Annotations: decodeAnnotations(f.Annotations),
				Type:        ft,
			})
		}
		t.Data = FieldsData{Fields: fields}
	case TypeStack:
		elem, err := decodeType(w.Elem)
		if err != nil {
			return nil, err
		}
		t.Data = StackData{Elem: elem, Size: w.Size}
	case TypeSpecialized:
		base, err := decodeType(w.Base)
		if err != nil {
			return nil, err
		}
		var args []*Type
		for _, a := range w.Args {
			at, err := decodeType(a)
			if err != nil {
				return nil, err
			}
			args = append(args, at)
		}
		t.Data = SpecializedData{Base: base, Args: args}
	case TypeVar:
		t.Data = VarData{Name: w.Name}
	case TypeExtern:
		t.Data = ExternData{Name: w.Name}
	default:
		return nil, fmt.Errorf("%w: type kind %d", ErrBadPayload, w.Kind)
	}
	return t, nil
}

func encodeExpr(e *Expr) *wireExpr {
	if e == nil {
		return nil
	}
	w := &wireExpr{Kind: uint8(e.Kind)}
	switch d := e.Data.(type) {
	case PathData:
		w.Name = d.Path.Name
		w.Absolute = d.Path.Absolute
	case MemberData:
		w.Base = encodeExpr(d.Base)
		w.Field = d.Field
	case IndexData:
		w.Base = encodeExpr(d.Base)
		w.Index = encodeExpr(d.Index)
	case ConstData:
		w.Value = d.Value
		w.Type = encodeType(d.Type)
	case BoolConstData:
		w.Bool = d.Value
	case CallData:
		w.Callee = encodeExpr(d.Callee)
		for _, t := range d.TypeArgs {
			w.TypeArgs = append(w.TypeArgs, encodeType(t))
		}
		for _, a := range d.Args {
			w.Args = append(w.Args, encodeExpr(a))
		}
	case ListData:
		for _, it := range d.Items {
			w.Items = append(w.Items, encodeExpr(it))
		}
	case SelectData:
		for _, s := range d.Select {
			w.Select = append(w.Select, encodeExpr(s))
		}
		for _, c := range d.Cases {
			w.Cases = append(w.Cases, wireCase{
				Keyset:   encodeExpr(c.Keyset),
				State:    c.State.Name,
				Absolute: c.State.Absolute,
			})
		}
	}
	return w
}

func decodeExpr(w *wireExpr) (*Expr, error) {
	if w == nil {
		return nil, nil
	}
	e := &Expr{Kind: ExprKind(w.Kind)}
	var err error
	switch e.Kind {
	case ExprPath:
		e.Data = PathData{Path: &Path{Name: w.Name, Absolute: w.Absolute}}
	case ExprMember:
		var base *Expr
		if base, err = decodeExpr(w.Base); err != nil {
			return nil, err
		}
		e.Data = MemberData{Base: base, Field: w.Field}
	case ExprIndex:
		var base, idx *Expr
		if base, err = decodeExpr(w.Base); err != nil {
			return nil, err
		}
		if idx, err = decodeExpr(w.Index); err != nil {
			return nil, err
		}
		e.Data = IndexData{Base: base, Index: idx}
	case ExprConst:
		var t *Type
		if t, err = decodeType(w.Type); err != nil {
			return nil, err
		}
		e.Data = ConstData{Value: w.Value, Type: t}
	case ExprBoolConst:
		e.Data = BoolConstData{Value: w.Bool}
	case ExprCall:
		var callee *Expr
		if callee, err = decodeExpr(w.Callee); err != nil {
			return nil, err
		}
		var targs []*Type
		for _, t := range w.TypeArgs {
			tt, err := decodeType(t)
			if err != nil {
				return nil, err
			}
			targs = append(targs, tt)
		}
		var args []*Expr
		for _, a := range w.Args {
			ae, err := decodeExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, ae)
		}
		e.Data = CallData{Callee: callee, TypeArgs: targs, Args: args}
	case ExprList:
		var items []*Expr
		for _, it := range w.Items {
			ie, err := decodeExpr(it)
			if err != nil {
				return nil, err
			}
			items = append(items, ie)
		}
		e.Data = ListData{Items: items}
	case ExprSelect:
		var sel []*Expr
		for _, s := range w.Select {
			se, err := decodeExpr(s)
			if err != nil {
				return nil, err
			}
			sel = append(sel, se)
		}
		var cases []SelectCase
		for _, c := range w.Cases {
			ks, err := decodeExpr(c.Keyset)
			if err != nil {
				return nil, err
			}
			cases = append(cases, SelectCase{
				Keyset: ks,
				State:  &Path{Name: c.State, Absolute: c.Absolute},
			})
		}
		e.Data = SelectData{Select: sel, Cases: cases}
	case ExprDefault:
	default:
		return nil, fmt.Errorf("%w: expr kind %d", ErrBadPayload, w.Kind)
	}
	return e, nil
}

func encodeStmt(s *Stmt) *wireStmt {
	if s == nil {
		return nil
	}
	w := &wireStmt{Kind: uint8(s.Kind), Annotations: encodeAnnotations(s.Annotations)}
	switch d := s.Data.(type) {
	case AssignData:
		w.LHS = encodeExpr(d.LHS)
		w.RHS = encodeExpr(d.RHS)
	case MethodCallData:
		w.Call = encodeExpr(d.Call)
	case BlockData:
		for _, st := range d.Stmts {
			w.Stmts = append(w.Stmts, encodeStmt(st))
		}
	case IfData:
		w.Cond = encodeExpr(d.Cond)
		w.Then = encodeStmt(d.Then)
		w.Else = encodeStmt(d.Else)
	case VarDeclData:
		w.Decl = encodeDecl(d.Decl)
	case EmptyData:
	}
	return w
}

func decodeStmt(w *wireStmt) (*Stmt, error) {
	if w == nil {
		return nil, nil
	}
	s := &Stmt{Kind: StmtKind(w.Kind), Annotations: decodeAnnotations(w.Annotations)}
	var err error
	switch s.Kind {
	case StmtAssign:
		var lhs, rhs *Expr
		if lhs, err = decodeExpr(w.LHS); err != nil {
			return nil, err
		}
		if rhs, err = decodeExpr(w.RHS); err != nil {
			return nil, err
		}
		s.Data = AssignData{LHS: lhs, RHS: rhs}
	case StmtMethodCall:
		var call *Expr
		if call, err = decodeExpr(w.Call); err != nil {
			return nil, err
		}
		s.Data = MethodCallData{Call: call}
	case StmtBlock:
		var stmts []*Stmt
		for _, st := range w.Stmts {
			ds, err := decodeStmt(st)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, ds)
		}
		s.Data = BlockData{Stmts: stmts}
	case StmtIf:
		var cond *Expr
		if cond, err = decodeExpr(w.Cond); err != nil {
			return nil, err
		}
		var then, els *Stmt
		if then, err = decodeStmt(w.Then); err != nil {
			return nil, err
		}
		if els, err = decodeStmt(w.Else); err != nil {
			return nil, err
		}
		s.Data = IfData{Cond: cond, Then: then, Else: els}
	case StmtVarDecl:
		d, err := decodeDecl(w.Decl)
		if err != nil {
			return nil, err
		}
		v, ok := d.(*Variable)
		if !ok {
			return nil, fmt.Errorf("%w: vardecl wraps %T", ErrBadPayload, d)
		}
		s.Data = VarDeclData{Decl: v}
	case StmtEmpty:
		s.Data = EmptyData{}
	default:
		return nil, fmt.Errorf("%w: stmt kind %d", ErrBadPayload, w.Kind)
	}
	return s, nil
}

func encodeDecl(d Decl) *wireDecl {
	if d == nil {
		return nil
	}
	switch d := d.(type) {
	case *Param:
		return &wireDecl{
			Kind: wireDeclParam, ID: uint32(d.ID), Name: d.Name,
			Annotations: encodeAnnotations(d.Annotations),
			Direction:   uint8(d.Direction),
			Type:        encodeType(d.Type),
			Expr:        encodeExpr(d.Default),
		}
	case *Variable:
		return &wireDecl{
			Kind: wireDeclVariable, ID: uint32(d.ID), Name: d.Name,
			Annotations: encodeAnnotations(d.Annotations),
			Type:        encodeType(d.Type),
			Expr:        encodeExpr(d.Init),
		}
	case *Constant:
		return &wireDecl{
			Kind: wireDeclConstant, ID: uint32(d.ID), Name: d.Name,
			Annotations: encodeAnnotations(d.Annotations),
			Type:        encodeType(d.Type),
			Expr:        encodeExpr(d.Value),
		}
	case *Instance:
		w := &wireDecl{
			Kind: wireDeclInstance, ID: uint32(d.ID), Name: d.Name,
			Annotations: encodeAnnotations(d.Annotations),
			Type:        encodeType(d.Type),
		}
		for _, a := range d.Args {
			w.Args = append(w.Args, encodeExpr(a))
		}
		return w
	case *TypeDef:
		return &wireDecl{
			Kind: wireDeclTypeDef, ID: uint32(d.ID), Name: d.Name,
			Annotations: encodeAnnotations(d.Annotations),
			Type:        encodeType(d.Type),
		}
	case *Table:
		w := &wireDecl{
			Kind: wireDeclTable, ID: uint32(d.ID), Name: d.Name,
			Annotations: encodeAnnotations(d.Annotations),
		}
		for _, p := range d.Properties {
			w.Props = append(w.Props, wireProp{
				Name:        p.Name,
				Annotations: encodeAnnotations(p.Annotations),
				Value:       encodeExpr(p.Value),
			})
		}
		return w
	case *Action:
		w := &wireDecl{
			Kind: wireDeclAction, ID: uint32(d.ID), Name: d.Name,
			Annotations: encodeAnnotations(d.Annotations),
			Body:        encodeStmt(d.Body),
		}
		for _, p := range d.Params {
			w.Params = append(w.Params, encodeDecl(p))
		}
		return w
	case *Control:
		w := &wireDecl{
			Kind: wireDeclControl, ID: uint32(d.ID), Name: d.Name,
			Annotations: encodeAnnotations(d.Annotations),
			TypeParams:  d.TypeParams,
			Body:        encodeStmt(d.Body),
		}
		for _, p := range d.ApplyParams {
			w.ApplyParams = append(w.ApplyParams, encodeDecl(p))
		}
		for _, p := range d.ConstructorParams {
			w.CtorParams = append(w.CtorParams, encodeDecl(p))
		}
		for _, l := range d.Locals {
			w.Locals = append(w.Locals, encodeDecl(l))
		}
		return w
	case *Parser:
		w := &wireDecl{
			Kind: wireDeclParser, ID: uint32(d.ID), Name: d.Name,
			Annotations: encodeAnnotations(d.Annotations),
			TypeParams:  d.TypeParams,
		}
		for _, p := range d.ApplyParams {
			w.ApplyParams = append(w.ApplyParams, encodeDecl(p))
		}
		for _, p := range d.ConstructorParams {
			w.CtorParams = append(w.CtorParams, encodeDecl(p))
		}
		for _, l := range d.Locals {
			w.Locals = append(w.Locals, encodeDecl(l))
		}
		for _, s := range d.States {
			w.States = append(w.States, encodeDecl(s))
		}
		return w
	case *State:
		w := &wireDecl{
			Kind: wireDeclState, ID: uint32(d.ID), Name: d.Name,
			Annotations: encodeAnnotations(d.Annotations),
			Transition:  encodeExpr(d.Transition),
		}
		for _, c := range d.Components {
			w.Components = append(w.Components, encodeStmt(c))
		}
		return w
	default:
		return nil
	}
}

func decodeDecl(w *wireDecl) (Decl, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil declaration", ErrBadPayload)
	}
	base := declBase{
		ID:          DeclID(w.ID),
		Name:        w.Name,
		Annotations: decodeAnnotations(w.Annotations),
	}
	typ, err := decodeType(w.Type)
	if err != nil {
		return nil, err
	}
	expr, err := decodeExpr(w.Expr)
	if err != nil {
		return nil, err
	}
	switch w.Kind {
	case wireDeclParam:
		return &Param{declBase: base, Direction: Direction(w.Direction), Type: typ, Default: expr}, nil
	case wireDeclVariable:
		return &Variable{declBase: base, Type: typ, Init: expr}, nil
	case wireDeclConstant:
		return &Constant{declBase: base, Type: typ, Value: expr}, nil
	case wireDeclInstance:
		var args []*Expr
		for _, a := range w.Args {
			ae, err := decodeExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, ae)
		}
		return &Instance{declBase: base, Type: typ, Args: args}, nil
	case wireDeclTypeDef:
		return &TypeDef{declBase: base, Type: typ}, nil
	case wireDeclTable:
		var props []TableProperty
		for _, p := range w.Props {
			pv, err := decodeExpr(p.Value)
			if err != nil {
				return nil, err
			}
			props = append(props, TableProperty{
				Name:        p.Name,
				Annotations: decodeAnnotations(p.Annotations),
				Value:       pv,
			})
		}
		return &Table{declBase: base, Properties: props}, nil
	case wireDeclAction:
		params, err := decodeParams(w.Params)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmt(w.Body)
		if err != nil {
			return nil, err
		}
		return &Action{declBase: base, Params: params, Body: body}, nil
	case wireDeclControl:
		c := &Control{declBase: base, TypeParams: w.TypeParams}
		if c.ApplyParams, err = decodeParams(w.ApplyParams); err != nil {
			return nil, err
		}
		if c.ConstructorParams, err = decodeParams(w.CtorParams); err != nil {
			return nil, err
		}
		for _, l := range w.Locals {
			ld, err := decodeDecl(l)
			if err != nil {
				return nil, err
			}
			c.Locals = append(c.Locals, ld)
		}
		if c.Body, err = decodeStmt(w.Body); err != nil {
			return nil, err
		}
		return c, nil
	case wireDeclParser:
		p := &Parser{declBase: base, TypeParams: w.TypeParams}
		if p.ApplyParams, err = decodeParams(w.ApplyParams); err != nil {
			return nil, err
		}
		if p.ConstructorParams, err = decodeParams(w.CtorParams); err != nil {
			return nil, err
		}
		for _, l := range w.Locals {
			ld, err := decodeDecl(l)
			if err != nil {
				return nil, err
			}
			p.Locals = append(p.Locals, ld)
		}
		for _, sd := range w.States {
			d, err := decodeDecl(sd)
			if err != nil {
				return nil, err
			}
			st, ok := d.(*State)
			if !ok {
				return nil, fmt.Errorf("%w: parser state is %T", ErrBadPayload, d)
			}
			p.States = append(p.States, st)
		}
		return p, nil
	case wireDeclState:
		s := &State{declBase: base}
		for _, c := range w.Components {
			cs, err := decodeStmt(c)
			if err != nil {
				return nil, err
			}
			s.Components = append(s.Components, cs)
		}
		if s.Transition, err = decodeExpr(w.Transition); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: decl kind %d", ErrBadPayload, w.Kind)
	}
}

func decodeParams(ws []*wireDecl) ([]*Param, error) {
	var out []*Param
	for _, w := range ws {
		d, err := decodeDecl(w)
		if err != nil {
			return nil, err
		}
		p, ok := d.(*Param)
		if !ok {
			return nil, fmt.Errorf("%w: parameter is %T", ErrBadPayload, d)
		}
		out = append(out, p)
	}
	return out, nil
}
