package ir

import (
	"fmt"
	"io"
	"strings"
)

// Printer dumps IR to a P4-flavoured text form. The output is meant for
// golden tests and debugging, not for feeding back into a frontend.
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a printer over the writer.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Dump writes the whole program to the writer.
func Dump(w io.Writer, prog *Program) {
	p := NewPrinter(w)
	p.PrintProgram(prog)
}

// PrintProgram prints every top-level declaration in order.
func (p *Printer) PrintProgram(prog *Program) {
	for i, d := range prog.Objects {
		if i > 0 {
			p.printf("\n")
		}
		p.printDecl(d)
	}
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) line(format string, args ...any) {
	p.printf("%s", strings.Repeat("  ", p.indent))
	p.printf(format, args...)
	p.printf("\n")
}

func (p *Printer) annotations(as Annotations) string {
	var sb strings.Builder
	for _, a := range as {
		if a.Value == "" {
			fmt.Fprintf(&sb, "@%s ", a.Name)
			continue
		}
		fmt.Fprintf(&sb, "@%s(%q) ", a.Name, a.Value)
	}
	return sb.String()
}

func (p *Printer) params(ps []*Param) string {
	parts := make([]string, len(ps))
	for i, pr := range ps {
		dir := pr.Direction.String()
		if dir != "" {
			dir += " "
		}
		parts[i] = fmt.Sprintf("%s%s%s %s", p.annotations(pr.Annotations), dir, pr.Type, pr.Name)
	}
	return strings.Join(parts, ", ")
}

func (p *Printer) printDecl(d Decl) {
	switch d := d.(type) {
	case *Variable:
		init := ""
		if d.Init != nil {
			init = " = " + d.Init.String()
		}
		p.line("%s%s %s%s;", p.annotations(d.Annotations), d.Type, d.Name, init)
	case *Constant:
		p.line("%sconst %s %s = %s;", p.annotations(d.Annotations), d.Type, d.Name, d.Value)
	case *Instance:
		args := make([]string, len(d.Args))
		for i, a := range d.Args {
			args[i] = a.String()
		}
		p.line("%s%s(%s) %s;", p.annotations(d.Annotations), d.Type, strings.Join(args, ", "), d.Name)
	case *Param:
		p.line("%s%s %s;", p.annotations(d.Annotations), d.Type, d.Name)
	case *TypeDef:
		p.printTypeDef(d)
	case *Table:
		p.line("%stable %s {", p.annotations(d.Annotations), d.Name)
		p.indent++
		for _, prop := range d.Properties {
			p.line("%s%s = %s;", p.annotations(prop.Annotations), prop.Name, prop.Value)
		}
		p.indent--
		p.line("}")
	case *Action:
		p.line("%saction %s(%s) {", p.annotations(d.Annotations), d.Name, p.params(d.Params))
		p.printBlockBody(d.Body)
		p.line("}")
	case *Control:
		p.line("%scontrol %s(%s) {", p.annotations(d.Annotations), d.Name, p.params(d.ApplyParams))
		p.indent++
		for _, l := range d.Locals {
			p.printDecl(l)
		}
		p.line("apply {")
		p.printBlockBody(d.Body)
		p.line("}")
		p.indent--
		p.line("}")
	case *Parser:
		p.line("%sparser %s(%s) {", p.annotations(d.Annotations), d.Name, p.params(d.ApplyParams))
		p.indent++
		for _, l := range d.Locals {
			p.printDecl(l)
		}
		for _, s := range d.States {
			p.printState(s)
		}
		p.indent--
		p.line("}")
	case *State:
		p.printState(d)
	}
}

func (p *Printer) printTypeDef(d *TypeDef) {
	kw := "typedef"
	switch d.Type.Kind {
	case TypeHeader:
		kw = "header"
	case TypeStruct:
		kw = "struct"
	}
	if kw == "typedef" {
		p.line("%stypedef %s %s;", p.annotations(d.Annotations), d.Type, d.Name)
		return
	}
	p.line("%s%s %s {", p.annotations(d.Annotations), kw, d.Name)
	p.indent++
	for _, f := range d.Type.Fields().Fields {
		p.line("%s%s %s;", p.annotations(f.Annotations), f.Type, f.Name)
	}
	p.indent--
	p.line("}")
}

func (p *Printer) printState(s *State) {
	p.line("%sstate %s {", p.annotations(s.Annotations), s.Name)
	p.indent++
	for _, c := range s.Components {
		p.printStmt(c)
	}
	if s.Transition != nil {
		if s.Transition.Kind == ExprSelect {
			p.printSelect(s.Transition)
		} else {
			p.line("transition %s;", s.Transition)
		}
	}
	p.indent--
	p.line("}")
}

func (p *Printer) printSelect(e *Expr) {
	d := e.Select()
	sel := make([]string, len(d.Select))
	for i, s := range d.Select {
		sel[i] = s.String()
	}
	p.line("transition select(%s) {", strings.Join(sel, ", "))
	p.indent++
	for _, c := range d.Cases {
		key := "default"
		if c.Keyset != nil && c.Keyset.Kind != ExprDefault {
			key = c.Keyset.String()
		}
		p.line("%s: %s;", key, c.State)
	}
	p.indent--
	p.line("}")
}

func (p *Printer) printBlockBody(body *Stmt) {
	if body == nil {
		return
	}
	p.indent++
	if body.Kind == StmtBlock {
		for _, s := range body.Block().Stmts {
			p.printStmt(s)
		}
	} else {
		p.printStmt(body)
	}
	p.indent--
}

func (p *Printer) printStmt(s *Stmt) {
	if s == nil {
		return
	}
	switch s.Kind {
	case StmtAssign:
		d := s.Assign()
		p.line("%s%s = %s;", p.annotations(s.Annotations), d.LHS, d.RHS)
	case StmtMethodCall:
		p.line("%s%s;", p.annotations(s.Annotations), s.MethodCall().Call)
	case StmtBlock:
		p.line("%s{", p.annotations(s.Annotations))
		p.printBlockBody(s)
		p.line("}")
	case StmtIf:
		d := s.If()
		p.line("if (%s) {", d.Cond)
		p.printBlockBody(d.Then)
		if d.Else != nil {
			p.line("} else {")
			p.printBlockBody(d.Else)
		}
		p.line("}")
	case StmtVarDecl:
		p.printDecl(s.VarDecl().Decl)
	case StmtEmpty:
		p.line(";")
	}
}
