// Package datatype defines the value types known to lemonscript.
package datatype

// Class groups data types by how values of that type behave.
type Class uint8

const (
	ClassVoid Class = iota
	ClassInteger
	ClassBool
	ClassString
)

// Type describes one data type. Types are compared by pointer identity,
// only the predefined instances below exist.
type Type struct {
	Name   string
	Class  Class
	Bytes  int
	Signed bool
}

func (t *Type) String() string {
	if t == nil {
		return "<unknown>"
	}
	return t.Name
}

// Predefined data types.
var (
	Void   = &Type{Name: "void", Class: ClassVoid}
	Bool   = &Type{Name: "bool", Class: ClassBool, Bytes: 1}
	U8     = &Type{Name: "u8", Class: ClassInteger, Bytes: 1}
	U16    = &Type{Name: "u16", Class: ClassInteger, Bytes: 2}
	U32    = &Type{Name: "u32", Class: ClassInteger, Bytes: 4}
	U64    = &Type{Name: "u64", Class: ClassInteger, Bytes: 8}
	S8     = &Type{Name: "s8", Class: ClassInteger, Bytes: 1, Signed: true}
	S16    = &Type{Name: "s16", Class: ClassInteger, Bytes: 2, Signed: true}
	S32    = &Type{Name: "s32", Class: ClassInteger, Bytes: 4, Signed: true}
	S64    = &Type{Name: "s64", Class: ClassInteger, Bytes: 8, Signed: true}
	String = &Type{Name: "string", Class: ClassString, Bytes: 8}

	// ConstInt is the type of integer literals that did not get a type from context yet.
	ConstInt = &Type{Name: "const_int", Class: ClassInteger, Bytes: 8, Signed: true}
)

var byName = map[string]*Type{
	"void":   Void,
	"bool":   Bool,
	"u8":     U8,
	"u16":    U16,
	"u32":    U32,
	"u64":    U64,
	"s8":     S8,
	"s16":    S16,
	"s32":    S32,
	"s64":    S64,
	"string": String,
}

// ByName returns the data type with the given keyword.
func ByName(name string) (*Type, bool) {
	t, ok := byName[name]
	return t, ok
}

// IsInteger reports whether values of t take part in integer arithmetic.
// Bool counts as integer here.
func (t *Type) IsInteger() bool {
	return t != nil && (t.Class == ClassInteger || t.Class == ClassBool)
}

// IsVoid reports whether t is void.
func (t *Type) IsVoid() bool {
	return t == nil || t.Class == ClassVoid
}

// Compatible reports whether a value of type from may be used where type to is expected.
func Compatible(from, to *Type) bool {
	if from == nil || to == nil {
		return false
	}
	if from == to {
		return true
	}
	switch {
	case from.Class == ClassVoid || to.Class == ClassVoid:
		return false
	case from.Class == ClassString || to.Class == ClassString:
		return false
	default:
		return from.IsInteger() && to.IsInteger()
	}
}

// Common returns the result type of an arithmetic operation on a and b.
func Common(a, b *Type) *Type {
	switch {
	case a == ConstInt:
		return b
	case b == ConstInt:
		return a
	case a == Bool && b != Bool:
		return b
	case b == Bool:
		return a
	case a.Bytes > b.Bytes:
		return a
	case b.Bytes > a.Bytes:
		return b
	case !a.Signed:
		return a
	default:
		return b
	}
}

// Mask truncates value to the width of t.
func (t *Type) Mask(value uint64) uint64 {
	if t == nil || t.Bytes == 0 || t.Bytes >= 8 {
		return value
	}
	return value & (uint64(1)<<(uint(t.Bytes)*8) - 1)
}
