// Package program holds the symbol tables a compiled lemonscript module consists of.
package program

import (
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/opcode"
)

// Parameter is a function parameter.
type Parameter struct {
	Name string
	Type *datatype.Type
}

// LocalVariable is a parameter or a variable declared inside a function.
type LocalVariable struct {
	name     string
	dataType *datatype.Type
	ID       int
	Line     int
}

func (v *LocalVariable) Name() string             { return v.name }
func (v *LocalVariable) DataType() *datatype.Type { return v.dataType }
func (v *LocalVariable) Kind() token.VariableKind { return token.VariableLocal }

// GlobalVariable is a module level variable.
type GlobalVariable struct {
	name         string
	dataType     *datatype.Type
	InitialValue uint64
}

func (v *GlobalVariable) Name() string             { return v.name }
func (v *GlobalVariable) DataType() *datatype.Type { return v.dataType }
func (v *GlobalVariable) Kind() token.VariableKind { return token.VariableGlobal }

// ExternalVariable is a variable owned by the host, such as an emulated register.
type ExternalVariable struct {
	name     string
	dataType *datatype.Type
}

func (v *ExternalVariable) Name() string             { return v.name }
func (v *ExternalVariable) DataType() *datatype.Type { return v.dataType }
func (v *ExternalVariable) Kind() token.VariableKind { return token.VariableExternal }

// Define is a named token sequence substituted wherever its name is used.
type Define struct {
	Name     string
	DataType *datatype.Type
	Content  []token.Token
}

// StoredString is an interned string literal.
type StoredString struct {
	Hash  uint64
	Value string
}

type signature struct {
	name       string
	returnType *datatype.Type
	parameters []Parameter
}

func (s *signature) Name() string               { return s.name }
func (s *signature) ReturnType() *datatype.Type { return s.returnType }
func (s *signature) Parameters() []Parameter    { return s.parameters }
func (s *signature) ParameterTypes() []*datatype.Type {
	types := make([]*datatype.Type, len(s.parameters))
	for i, p := range s.parameters {
		types[i] = p.Type
	}
	return types
}

// NativeFunction is a function implemented by the host. Only its signature is known here.
type NativeFunction struct {
	signature
}

func (f *NativeFunction) IsNative() bool { return true }

// ScriptFunction is a function defined in lemonscript.
type ScriptFunction struct {
	signature

	// LocalVariables lists parameters first, then declared variables in declaration order.
	LocalVariables []*LocalVariable
	Pragmas        []string

	SourceFilename string
	// SourceBaseLineOffset is the flattened line number minus the 0-based line in SourceFilename.
	SourceBaseLineOffset int
	LineNumber           int

	Opcodes []opcode.OpCode
	Labels  map[string]int
}

func (f *ScriptFunction) IsNative() bool { return false }

// LocalVariableByName returns the first local variable with the given name.
func (f *ScriptFunction) LocalVariableByName(name string) *LocalVariable {
	for _, v := range f.LocalVariables {
		if v.name == name {
			return v
		}
	}
	return nil
}

// AddLocalVariable creates a new local variable. Shadowing is resolved by scopes, not here.
func (f *ScriptFunction) AddLocalVariable(name string, dt *datatype.Type, line int) *LocalVariable {
	v := &LocalVariable{name: name, dataType: dt, ID: len(f.LocalVariables), Line: line}
	f.LocalVariables = append(f.LocalVariables, v)
	return v
}

// SourceLine returns the 1-based line in SourceFilename of a flattened line number.
func (f *ScriptFunction) SourceLine(flattened int) int {
	return flattened - f.SourceBaseLineOffset + 1
}
