package ir

import (
	"p4mid/internal/source"
)

// Direction is a parameter direction.
type Direction uint8

const (
	DirNone Direction = iota
	DirIn
	DirOut
	DirInOut
)

func (d Direction) String() string {
	switch d {
	case DirNone:
		return ""
	case DirIn:
		return "in"
	case DirOut:
		return "out"
	case DirInOut:
		return "inout"
	default:
		return "unknown"
	}
}

// HasOut reports whether values flow back out through the parameter.
func (d Direction) HasOut() bool { return d == DirOut || d == DirInOut }

// HasIn reports whether values flow in through the parameter.
func (d Direction) HasIn() bool { return d == DirIn || d == DirInOut }

// Decl is implemented by every declaration node.
type Decl interface {
	DeclID() DeclID
	DeclName() string
	// ExternalName is the control-plane visible name: the @name
	// annotation value when present, the declaration name otherwise.
	ExternalName() string
	DeclSpan() source.Span
	declNode()
}

// declBase carries the fields shared by all declarations.
type declBase struct {
	ID          DeclID
	Name        string
	Annotations Annotations
	Span        source.Span
}

func (b *declBase) DeclID() DeclID        { return b.ID }
func (b *declBase) DeclName() string      { return b.Name }
func (b *declBase) DeclSpan() source.Span { return b.Span }

func (b *declBase) ExternalName() string {
	if a := b.Annotations.Get(NameAnnotation); a != nil {
		return a.Value
	}
	return b.Name
}

func (b *declBase) cloneBase() declBase {
	cp := *b
	cp.Annotations = b.Annotations.Clone()
	return cp
}

// Param is a run-time or constructor parameter.
type Param struct {
	declBase
	Direction Direction
	Type      *Type
	Default   *Expr
}

// Variable is a local variable declaration.
type Variable struct {
	declBase
	Type *Type
	Init *Expr
}

// Constant is a local compile-time constant declaration.
type Constant struct {
	declBase
	Type  *Type
	Value *Expr
}

// Instance is a declaration instantiating a control, parser or extern.
type Instance struct {
	declBase
	Type *Type
	Args []*Expr
}

// TypeDef is a top-level named type definition, a header or struct
// declaration or an alias.
type TypeDef struct {
	declBase
	Type *Type
}

// TableProperty is a single property of a table declaration. The
// inliner treats property values opaquely apart from renaming.
type TableProperty struct {
	Name        string
	Annotations Annotations
	Value       *Expr
}

// Table is a match-action table declaration.
type Table struct {
	declBase
	Properties []TableProperty
}

// Action is an action declaration.
type Action struct {
	declBase
	Params []*Param
	Body   *Stmt
}

// Control is a control declaration.
type Control struct {
	declBase
	TypeParams        []string
	ApplyParams       []*Param
	ConstructorParams []*Param
	Locals            []Decl
	Body              *Stmt
}

// Parser is a parser declaration.
type Parser struct {
	declBase
	TypeParams        []string
	ApplyParams       []*Param
	ConstructorParams []*Param
	Locals            []Decl
	States            []*State
}

// Reserved parser state names.
const (
	StateStart  = "start"
	StateAccept = "accept"
	StateReject = "reject"
)

// State is a parser state. Transition is the trailing transition
// expression: an ExprPath for a direct transition, an ExprSelect for a
// select, or nil when the state falls off without one.
type State struct {
	declBase
	Components []*Stmt
	Transition *Expr
}

// IsBuiltin reports whether the state is one of accept or reject.
func (s *State) IsBuiltin() bool {
	return s.Name == StateAccept || s.Name == StateReject
}

func (*Param) declNode()    {}
func (*Variable) declNode() {}
func (*Constant) declNode() {}
func (*Instance) declNode() {}
func (*TypeDef) declNode()  {}
func (*Table) declNode()    {}
func (*Action) declNode()   {}
func (*Control) declNode()  {}
func (*Parser) declNode()   {}
func (*State) declNode()    {}

// Clone deep-copies the parameter, keeping its DeclID.
func (p *Param) Clone() *Param {
	if p == nil {
		return nil
	}
	return &Param{
		declBase:  p.cloneBase(),
		Direction: p.Direction,
		Type:      p.Type.Clone(),
		Default:   p.Default.Clone(),
	}
}

// Clone deep-copies the variable, keeping its DeclID.
func (v *Variable) Clone() *Variable {
	if v == nil {
		return nil
	}
	return &Variable{
		declBase: v.cloneBase(),
		Type:     v.Type.Clone(),
		Init:     v.Init.Clone(),
	}
}

// Clone deep-copies the constant, keeping its DeclID.
func (c *Constant) Clone() *Constant {
	if c == nil {
		return nil
	}
	return &Constant{
		declBase: c.cloneBase(),
		Type:     c.Type.Clone(),
		Value:    c.Value.Clone(),
	}
}

// Clone deep-copies the instance, keeping its DeclID.
func (d *Instance) Clone() *Instance {
	if d == nil {
		return nil
	}
	args := make([]*Expr, len(d.Args))
	for i, a := range d.Args {
		args[i] = a.Clone()
	}
	return &Instance{
		declBase: d.cloneBase(),
		Type:     d.Type.Clone(),
		Args:     args,
	}
}

// Clone deep-copies the type definition, keeping its DeclID.
func (d *TypeDef) Clone() *TypeDef {
	if d == nil {
		return nil
	}
	return &TypeDef{declBase: d.cloneBase(), Type: d.Type.Clone()}
}

// Clone deep-copies the table, keeping its DeclID.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	props := make([]TableProperty, len(t.Properties))
	for i, p := range t.Properties {
		props[i] = TableProperty{
			Name:        p.Name,
			Annotations: p.Annotations.Clone(),
			Value:       p.Value.Clone(),
		}
	}
	return &Table{declBase: t.cloneBase(), Properties: props}
}

// Clone deep-copies the action, keeping its DeclID.
func (a *Action) Clone() *Action {
	if a == nil {
		return nil
	}
	params := make([]*Param, len(a.Params))
	for i, p := range a.Params {
		params[i] = p.Clone()
	}
	return &Action{declBase: a.cloneBase(), Params: params, Body: a.Body.Clone()}
}

// Clone deep-copies the control, keeping every DeclID.
func (c *Control) Clone() *Control {
	if c == nil {
		return nil
	}
	out := &Control{
		declBase:          c.cloneBase(),
		TypeParams:        append([]string(nil), c.TypeParams...),
		ApplyParams:       cloneParams(c.ApplyParams),
		ConstructorParams: cloneParams(c.ConstructorParams),
		Locals:            cloneDecls(c.Locals),
		Body:              c.Body.Clone(),
	}
	return out
}

// Clone deep-copies the parser, keeping every DeclID.
func (p *Parser) Clone() *Parser {
	if p == nil {
		return nil
	}
	states := make([]*State, len(p.States))
	for i, s := range p.States {
		states[i] = s.Clone()
	}
	return &Parser{
		declBase:          p.cloneBase(),
		TypeParams:        append([]string(nil), p.TypeParams...),
		ApplyParams:       cloneParams(p.ApplyParams),
		ConstructorParams: cloneParams(p.ConstructorParams),
		Locals:            cloneDecls(p.Locals),
		States:            states,
	}
}

// Clone deep-copies the state, keeping its DeclID.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	comps := make([]*Stmt, len(s.Components))
	for i, c := range s.Components {
		comps[i] = c.Clone()
	}
	return &State{
		declBase:   s.cloneBase(),
		Components: comps,
		Transition: s.Transition.Clone(),
	}
}

func cloneParams(ps []*Param) []*Param {
	out := make([]*Param, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

func cloneDecls(ds []Decl) []Decl {
	out := make([]Decl, len(ds))
	for i, d := range ds {
		out[i] = CloneDecl(d)
	}
	return out
}

// CloneDecl deep-copies a declaration through the interface.
func CloneDecl(d Decl) Decl {
	switch d := d.(type) {
	case *Param:
		return d.Clone()
	case *Variable:
		return d.Clone()
	case *Constant:
		return d.Clone()
	case *Instance:
		return d.Clone()
	case *TypeDef:
		return d.Clone()
	case *Table:
		return d.Clone()
	case *Action:
		return d.Clone()
	case *Control:
		return d.Clone()
	case *Parser:
		return d.Clone()
	case *State:
		return d.Clone()
	default:
		return nil
	}
}
