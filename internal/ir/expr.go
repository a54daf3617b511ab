package ir

import (
	"fmt"
	"strings"

	"p4mid/internal/source"
)

// ExprKind discriminates Expr payloads.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprPath
	ExprMember
	ExprIndex
	ExprConst
	ExprBoolConst
	ExprCall
	ExprList
	ExprSelect
	ExprDefault
)

func (k ExprKind) String() string {
	switch k {
	case ExprInvalid:
		return "invalid"
	case ExprPath:
		return "path"
	case ExprMember:
		return "member"
	case ExprIndex:
		return "index"
	case ExprConst:
		return "const"
	case ExprBoolConst:
		return "boolconst"
	case ExprCall:
		return "call"
	case ExprList:
		return "list"
	case ExprSelect:
		return "select"
	case ExprDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Expr is a single expression node.
type Expr struct {
	Kind ExprKind
	Span source.Span
	Data ExprData
}

// ExprData is implemented by all expression payload structs.
type ExprData interface {
	exprData()
}

// PathData is the payload for ExprPath.
type PathData struct {
	Path *Path
}

// MemberData is the payload for ExprMember.
type MemberData struct {
	Base  *Expr
	Field string
}

// IndexData is the payload for ExprIndex.
type IndexData struct {
	Base  *Expr
	Index *Expr
}

// ConstData is the payload for ExprConst.
type ConstData struct {
	Value int64
	Type  *Type
}

// BoolConstData is the payload for ExprBoolConst.
type BoolConstData struct {
	Value bool
}

// CallData is the payload for ExprCall. Callee is typically an ExprPath
// or an ExprMember selecting apply on an instance.
type CallData struct {
	Callee   *Expr
	TypeArgs []*Type
	Args     []*Expr
}

// ListData is the payload for ExprList.
type ListData struct {
	Items []*Expr
}

// SelectCase is one arm of a select expression. State names a parser
// state; Keyset nil marks the default arm.
type SelectCase struct {
	Span   source.Span
	Keyset *Expr
	State  *Path
}

// SelectData is the payload for ExprSelect, a parser transition select.
type SelectData struct {
	Select []*Expr
	Cases  []SelectCase
}

func (PathData) exprData()      {}
func (MemberData) exprData()    {}
func (IndexData) exprData()     {}
func (ConstData) exprData()     {}
func (BoolConstData) exprData() {}
func (CallData) exprData()      {}
func (ListData) exprData()      {}
func (SelectData) exprData()    {}

// NewPathExpr returns an ExprPath node over a fresh path.
func NewPathExpr(name string, sp source.Span) *Expr {
	return &Expr{Kind: ExprPath, Span: sp, Data: PathData{Path: NewPath(name)}}
}

// Path returns the PathData payload. Panics if the kind does not match.
func (e *Expr) Path() PathData { return e.Data.(PathData) }

// Member returns the MemberData payload. Panics if the kind does not match.
func (e *Expr) Member() MemberData { return e.Data.(MemberData) }

// Index returns the IndexData payload. Panics if the kind does not match.
func (e *Expr) Index() IndexData { return e.Data.(IndexData) }

// Const returns the ConstData payload. Panics if the kind does not match.
func (e *Expr) Const() ConstData { return e.Data.(ConstData) }

// BoolConst returns the BoolConstData payload. Panics if the kind does
// not match.
func (e *Expr) BoolConst() BoolConstData { return e.Data.(BoolConstData) }

// Call returns the CallData payload. Panics if the kind does not match.
func (e *Expr) Call() CallData { return e.Data.(CallData) }

// List returns the ListData payload. Panics if the kind does not match.
func (e *Expr) List() ListData { return e.Data.(ListData) }

// Select returns the SelectData payload. Panics if the kind does not match.
func (e *Expr) Select() SelectData { return e.Data.(SelectData) }

func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ExprPath:
		return e.Path().Path.String()
	case ExprMember:
		d := e.Member()
		return d.Base.String() + "." + d.Field
	case ExprIndex:
		d := e.Index()
		return fmt.Sprintf("%s[%s]", d.Base, d.Index)
	case ExprConst:
		return fmt.Sprintf("%d", e.Const().Value)
	case ExprBoolConst:
		return fmt.Sprintf("%t", e.BoolConst().Value)
	case ExprCall:
		d := e.Call()
		args := make([]string, len(d.Args))
		for i, a := range d.Args {
			args[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", d.Callee, strings.Join(args, ", "))
	case ExprList:
		d := e.List()
		items := make([]string, len(d.Items))
		for i, it := range d.Items {
			items[i] = it.String()
		}
		return "{" + strings.Join(items, ", ") + "}"
	case ExprSelect:
		return "select(...)"
	case ExprDefault:
		return "default"
	default:
		return e.Kind.String()
	}
}

// Clone deep-copies the expression. Every contained Path is cloned, so
// the copy carries no bindings from the original in a reference map.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	out := &Expr{Kind: e.Kind, Span: e.Span}
	switch d := e.Data.(type) {
	case PathData:
		out.Data = PathData{Path: d.Path.Clone()}
	case MemberData:
		out.Data = MemberData{Base: d.Base.Clone(), Field: d.Field}
	case IndexData:
		out.Data = IndexData{Base: d.Base.Clone(), Index: d.Index.Clone()}
	case ConstData:
		out.Data = ConstData{Value: d.Value, Type: d.Type.Clone()}
	case BoolConstData:
		out.Data = d
	case CallData:
		targs := make([]*Type, len(d.TypeArgs))
		for i, t := range d.TypeArgs {
			targs[i] = t.Clone()
		}
		args := make([]*Expr, len(d.Args))
		for i, a := range d.Args {
			args[i] = a.Clone()
		}
		out.Data = CallData{Callee: d.Callee.Clone(), TypeArgs: targs, Args: args}
	case ListData:
		items := make([]*Expr, len(d.Items))
		for i, it := range d.Items {
			items[i] = it.Clone()
		}
		out.Data = ListData{Items: items}
	case SelectData:
		sel := make([]*Expr, len(d.Select))
		for i, s := range d.Select {
			sel[i] = s.Clone()
		}
		cases := make([]SelectCase, len(d.Cases))
		for i, c := range d.Cases {
			cases[i] = SelectCase{Span: c.Span, Keyset: c.Keyset.Clone(), State: c.State.Clone()}
		}
		out.Data = SelectData{Select: sel, Cases: cases}
	}
	return out
}
