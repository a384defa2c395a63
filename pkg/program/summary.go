package program

import (
	"fmt"
	"strings"

	"github.com/zurustar/lemonscript/pkg/compiler/token"
)

// Summary is a serializable description of a module.
type Summary struct {
	Module          string            `yaml:"module"`
	Functions       []FunctionSummary `yaml:"functions"`
	NativeFunctions []string          `yaml:"native_functions,omitempty"`
	Globals         []VariableSummary `yaml:"globals,omitempty"`
	Externals       []VariableSummary `yaml:"externals,omitempty"`
	Defines         []DefineSummary   `yaml:"defines,omitempty"`
	StringLiterals  []StringSummary   `yaml:"string_literals,omitempty"`
}

// FunctionSummary describes a script function.
type FunctionSummary struct {
	Signature string         `yaml:"signature"`
	Source    string         `yaml:"source"`
	Pragmas   []string       `yaml:"pragmas,omitempty"`
	Locals    []string       `yaml:"locals,omitempty"`
	Labels    map[string]int `yaml:"labels,omitempty"`
	Opcodes   []string       `yaml:"opcodes,omitempty"`
}

// VariableSummary describes a global or external variable.
type VariableSummary struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Initial uint64 `yaml:"initial,omitempty"`
}

// DefineSummary describes a define.
type DefineSummary struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Content string `yaml:"content"`
}

// StringSummary describes a string literal.
type StringSummary struct {
	Hash  string `yaml:"hash"`
	Value string `yaml:"value"`
}

// Signature renders a function signature, e.g. "u32 f(u8 a, s16 b)".
func Signature(f token.Function) string {
	var params []string
	if sf, ok := f.(interface{ Parameters() []Parameter }); ok {
		for _, p := range sf.Parameters() {
			params = append(params, p.Type.String()+" "+p.Name)
		}
	} else {
		for _, t := range f.ParameterTypes() {
			params = append(params, t.String())
		}
	}
	return fmt.Sprintf("%s %s(%s)", f.ReturnType(), f.Name(), strings.Join(params, ", "))
}

// Summary describes the module's contents.
func (m *Module) Summary() Summary {
	s := Summary{Module: m.Name}

	for _, f := range m.scriptFunctions {
		fs := FunctionSummary{
			Signature: Signature(f),
			Source:    fmt.Sprintf("%s:%d", f.SourceFilename, f.SourceLine(f.LineNumber)),
			Pragmas:   f.Pragmas,
		}
		for _, v := range f.LocalVariables {
			fs.Locals = append(fs.Locals, v.DataType().String()+" "+v.Name())
		}
		if len(f.Labels) > 0 {
			fs.Labels = f.Labels
		}
		for i, op := range f.Opcodes {
			fs.Opcodes = append(fs.Opcodes, fmt.Sprintf("%4d: %s", i, op))
		}
		s.Functions = append(s.Functions, fs)
	}
	for _, f := range m.nativeFunctions {
		s.NativeFunctions = append(s.NativeFunctions, Signature(f))
	}
	for _, v := range m.globals {
		s.Globals = append(s.Globals, VariableSummary{Name: v.Name(), Type: v.DataType().String(), Initial: v.InitialValue})
	}
	for _, v := range m.externals {
		s.Externals = append(s.Externals, VariableSummary{Name: v.Name(), Type: v.DataType().String()})
	}
	for _, d := range m.defines {
		s.Defines = append(s.Defines, DefineSummary{Name: d.Name, Type: d.DataType.String(), Content: token.FormatList(d.Content)})
	}
	for _, str := range m.stringLiterals {
		s.StringLiterals = append(s.StringLiterals, StringSummary{Hash: fmt.Sprintf("%016x", str.Hash), Value: str.Value})
	}
	return s
}
