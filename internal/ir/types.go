package ir

import (
	"fmt"
	"strings"

	"p4mid/internal/source"
)

// TypeKind discriminates Type payloads.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	TypeVoid
	TypeBool
	TypeBits
	TypeName
	TypeHeader
	TypeStruct
	TypeStack
	TypeSpecialized
	TypeVar
	TypeExtern
)

func (k TypeKind) String() string {
	switch k {
	case TypeInvalid:
		return "invalid"
	case TypeVoid:
		return "void"
	case TypeBool:
		return "bool"
	case TypeBits:
		return "bits"
	case TypeName:
		return "name"
	case TypeHeader:
		return "header"
	case TypeStruct:
		return "struct"
	case TypeStack:
		return "stack"
	case TypeSpecialized:
		return "specialized"
	case TypeVar:
		return "typevar"
	case TypeExtern:
		return "extern"
	default:
		return "unknown"
	}
}

// Type is a type expression node.
type Type struct {
	Kind TypeKind
	Span source.Span
	Data TypeData
}

// TypeData is implemented by all type payload structs.
type TypeData interface {
	typeData()
}

// BitsData is the payload for TypeBits.
type BitsData struct {
	Width  int
	Signed bool
}

// NameData is the payload for TypeName, a reference to a declared type.
type NameData struct {
	Path *Path
}

// StructField is one field of a header or struct type.
type StructField struct {
	Name        string
	Annotations Annotations
	Type        *Type
}

// FieldsData is the payload for TypeHeader and TypeStruct.
type FieldsData struct {
	Fields []StructField
}

// StackData is the payload for TypeStack.
type StackData struct {
	Elem *Type
	Size int
}

// SpecializedData is the payload for TypeSpecialized, a generic type
// applied to concrete arguments.
type SpecializedData struct {
	Base *Type
	Args []*Type
}

// VarData is the payload for TypeVar, a type parameter occurrence.
type VarData struct {
	Name string
}

// ExternData is the payload for TypeExtern.
type ExternData struct {
	Name string
}

func (BitsData) typeData()        {}
func (NameData) typeData()        {}
func (FieldsData) typeData()      {}
func (StackData) typeData()       {}
func (SpecializedData) typeData() {}
func (VarData) typeData()         {}
func (ExternData) typeData()      {}

// Bits returns the BitsData payload. Panics if the kind does not match.
func (t *Type) Bits() BitsData { return t.Data.(BitsData) }

// Name returns the NameData payload. Panics if the kind does not match.
func (t *Type) Name() NameData { return t.Data.(NameData) }

// Fields returns the FieldsData payload. Panics if the kind does not match.
func (t *Type) Fields() FieldsData { return t.Data.(FieldsData) }

// Stack returns the StackData payload. Panics if the kind does not match.
func (t *Type) Stack() StackData { return t.Data.(StackData) }

// Specialized returns the SpecializedData payload. Panics if the kind
// does not match.
func (t *Type) Specialized() SpecializedData { return t.Data.(SpecializedData) }

// Var returns the VarData payload. Panics if the kind does not match.
func (t *Type) Var() VarData { return t.Data.(VarData) }

// Extern returns the ExternData payload. Panics if the kind does not match.
func (t *Type) Extern() ExternData { return t.Data.(ExternData) }

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeVoid:
		return "void"
	case TypeBool:
		return "bool"
	case TypeBits:
		d := t.Bits()
		if d.Signed {
			return fmt.Sprintf("int<%d>", d.Width)
		}
		return fmt.Sprintf("bit<%d>", d.Width)
	case TypeName:
		return t.Name().Path.String()
	case TypeHeader:
		return "header"
	case TypeStruct:
		return "struct"
	case TypeStack:
		d := t.Stack()
		return fmt.Sprintf("%s[%d]", d.Elem, d.Size)
	case TypeSpecialized:
		d := t.Specialized()
		args := make([]string, len(d.Args))
		for i, a := range d.Args {
			args[i] = a.String()
		}
		return fmt.Sprintf("%s<%s>", d.Base, strings.Join(args, ", "))
	case TypeVar:
		return t.Var().Name
	case TypeExtern:
		return t.Extern().Name
	default:
		return t.Kind.String()
	}
}

// Clone deep-copies the type expression. Referenced paths are cloned as
// well so the copy can be rebound independently.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	out := &Type{Kind: t.Kind, Span: t.Span}
	switch d := t.Data.(type) {
	case BitsData:
		out.Data = d
	case NameData:
		out.Data = NameData{Path: d.Path.Clone()}
	case FieldsData:
		fields := make([]StructField, len(d.Fields))
		for i, f := range d.Fields {
			fields[i] = StructField{
				Name:        f.Name,
				Annotations: f.Annotations.Clone(),
				Type:        f.Type.Clone(),
			}
		}
		out.Data = FieldsData{Fields: fields}
	case StackData:
		out.Data = StackData{Elem: d.Elem.Clone(), Size: d.Size}
	case SpecializedData:
		args := make([]*Type, len(d.Args))
		for i, a := range d.Args {
			args[i] = a.Clone()
		}
		out.Data = SpecializedData{Base: d.Base.Clone(), Args: args}
	case VarData:
		out.Data = d
	case ExternData:
		out.Data = d
	}
	return out
}
