package ir

import (
	"p4mid/internal/source"
)

// Program is a top-level IR container. Objects keeps source order, which
// every pass preserves so output stays deterministic.
type Program struct {
	Objects []Decl

	ids IDGen
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// NextID hands out a fresh DeclID for declarations built by transforms.
func (p *Program) NextID() DeclID {
	return p.ids.Next()
}

// Add appends a top-level declaration.
func (p *Program) Add(d Decl) {
	p.Objects = append(p.Objects, d)
}

// Replace swaps every top-level occurrence of old for repl. Passes use
// it to install rewritten controls and parsers without disturbing the
// declaration order.
func (p *Program) Replace(old, repl Decl) {
	for i, d := range p.Objects {
		if d == old {
			p.Objects[i] = repl
		}
	}
}

// Controls returns the top-level control declarations in order.
func (p *Program) Controls() []*Control {
	var out []*Control
	for _, d := range p.Objects {
		if c, ok := d.(*Control); ok {
			out = append(out, c)
		}
	}
	return out
}

// Parsers returns the top-level parser declarations in order.
func (p *Program) Parsers() []*Parser {
	var out []*Parser
	for _, d := range p.Objects {
		if ps, ok := d.(*Parser); ok {
			out = append(out, ps)
		}
	}
	return out
}

// Builder constructs declarations with IDs from a shared generator.
// Keeping construction behind a builder makes it hard to mint a
// declaration with a stale or zero ID.
type Builder struct {
	prog *Program
}

// NewBuilder returns a builder minting IDs from the program's generator.
func NewBuilder(prog *Program) *Builder {
	return &Builder{prog: prog}
}

// Program returns the underlying program.
func (b *Builder) Program() *Program { return b.prog }

func (b *Builder) base(name string, annotations Annotations, sp source.Span) declBase {
	return declBase{ID: b.prog.NextID(), Name: name, Annotations: annotations, Span: sp}
}

// Param builds a parameter declaration.
func (b *Builder) Param(name string, dir Direction, typ *Type, sp source.Span) *Param {
	return &Param{declBase: b.base(name, nil, sp), Direction: dir, Type: typ}
}

// Variable builds a local variable declaration.
func (b *Builder) Variable(name string, typ *Type, init *Expr, sp source.Span) *Variable {
	return &Variable{declBase: b.base(name, nil, sp), Type: typ, Init: init}
}

// Constant builds a local constant declaration.
func (b *Builder) Constant(name string, typ *Type, value *Expr, sp source.Span) *Constant {
	return &Constant{declBase: b.base(name, nil, sp), Type: typ, Value: value}
}

// Instance builds an instantiation declaration.
func (b *Builder) Instance(name string, typ *Type, args []*Expr, sp source.Span) *Instance {
	return &Instance{declBase: b.base(name, nil, sp), Type: typ, Args: args}
}

// TypeDef builds a named type definition.
func (b *Builder) TypeDef(name string, typ *Type, sp source.Span) *TypeDef {
	return &TypeDef{declBase: b.base(name, nil, sp), Type: typ}
}

// Table builds a table declaration.
func (b *Builder) Table(name string, props []TableProperty, sp source.Span) *Table {
	return &Table{declBase: b.base(name, nil, sp), Properties: props}
}

// Action builds an action declaration.
func (b *Builder) Action(name string, params []*Param, body *Stmt, sp source.Span) *Action {
	return &Action{declBase: b.base(name, nil, sp), Params: params, Body: body}
}

// Control builds a control declaration.
func (b *Builder) Control(name string, sp source.Span) *Control {
	return &Control{declBase: b.base(name, nil, sp)}
}

// Parser builds a parser declaration.
func (b *Builder) Parser(name string, sp source.Span) *Parser {
	return &Parser{declBase: b.base(name, nil, sp)}
}

// State builds a parser state.
func (b *Builder) State(name string, sp source.Span) *State {
	return &State{declBase: b.base(name, nil, sp)}
}

// SetAnnotations replaces a declaration's annotation list.
func SetAnnotations(d Decl, as Annotations) {
	switch d := d.(type) {
	case *Param:
		d.Annotations = as
	case *Variable:
		d.Annotations = as
	case *Constant:
		d.Annotations = as
	case *Instance:
		d.Annotations = as
	case *TypeDef:
		d.Annotations = as
	case *Table:
		d.Annotations = as
	case *Action:
		d.Annotations = as
	case *Control:
		d.Annotations = as
	case *Parser:
		d.Annotations = as
	case *State:
		d.Annotations = as
	}
}

// Rename sets a declaration's name, leaving annotations untouched.
func Rename(d Decl, name string) {
	switch d := d.(type) {
	case *Param:
		d.Name = name
	case *Variable:
		d.Name = name
	case *Constant:
		d.Name = name
	case *Instance:
		d.Name = name
	case *TypeDef:
		d.Name = name
	case *Table:
		d.Name = name
	case *Action:
		d.Name = name
	case *Control:
		d.Name = name
	case *Parser:
		d.Name = name
	case *State:
		d.Name = name
	}
}
