package program

import (
	"github.com/cespare/xxhash/v2"

	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/datatype"
)

// MaxStringLiterals is the capacity of a module's string literal table.
const MaxStringLiterals = 65536

// HashString returns the hash string literals are identified by.
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

type checkpoint struct {
	scriptFunctions int
	nativeFunctions int
	globals         int
	externals       int
	defines         int
	stringLiterals  int
	lookup          int
}

// Module collects everything a script defines.
type Module struct {
	Name string

	scriptFunctions []*ScriptFunction
	nativeFunctions []*NativeFunction
	globals         []*GlobalVariable
	externals       []*ExternalVariable
	defines         []*Define
	stringLiterals  []*StoredString
	stringsByHash   map[uint64]*StoredString

	lookup     *GlobalsLookup
	checkpoint checkpoint
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		Name:          name,
		stringsByHash: make(map[uint64]*StoredString),
	}
}

// StartCompiling remembers the current state of the module and lookup, so that
// Rollback can restore it if compilation fails. String literals added from now on are
// also registered in lookup.
func (m *Module) StartCompiling(lookup *GlobalsLookup) {
	m.lookup = lookup
	m.checkpoint = checkpoint{
		scriptFunctions: len(m.scriptFunctions),
		nativeFunctions: len(m.nativeFunctions),
		globals:         len(m.globals),
		externals:       len(m.externals),
		defines:         len(m.defines),
		stringLiterals:  len(m.stringLiterals),
	}
	if lookup != nil {
		m.checkpoint.lookup = lookup.checkpoint()
	}
}

// Rollback discards everything added since StartCompiling.
func (m *Module) Rollback() {
	cp := m.checkpoint
	for _, s := range m.stringLiterals[cp.stringLiterals:] {
		delete(m.stringsByHash, s.Hash)
	}
	m.scriptFunctions = m.scriptFunctions[:cp.scriptFunctions]
	m.nativeFunctions = m.nativeFunctions[:cp.nativeFunctions]
	m.globals = m.globals[:cp.globals]
	m.externals = m.externals[:cp.externals]
	m.defines = m.defines[:cp.defines]
	m.stringLiterals = m.stringLiterals[:cp.stringLiterals]
	if m.lookup != nil {
		m.lookup.rollback(cp.lookup)
	}
}

// AddScriptFunction creates a script function.
func (m *Module) AddScriptFunction(name string, returnType *datatype.Type, parameters []Parameter) *ScriptFunction {
	f := &ScriptFunction{
		signature: signature{name: name, returnType: returnType, parameters: parameters},
		Labels:    make(map[string]int),
	}
	m.scriptFunctions = append(m.scriptFunctions, f)
	return f
}

// AddNativeFunction declares a host function.
func (m *Module) AddNativeFunction(name string, returnType *datatype.Type, parameters []Parameter) *NativeFunction {
	f := &NativeFunction{signature: signature{name: name, returnType: returnType, parameters: parameters}}
	m.nativeFunctions = append(m.nativeFunctions, f)
	return f
}

// AddGlobalVariable creates a global variable.
func (m *Module) AddGlobalVariable(name string, dt *datatype.Type) *GlobalVariable {
	v := &GlobalVariable{name: name, dataType: dt}
	m.globals = append(m.globals, v)
	return v
}

// AddExternalVariable declares a host variable.
func (m *Module) AddExternalVariable(name string, dt *datatype.Type) *ExternalVariable {
	v := &ExternalVariable{name: name, dataType: dt}
	m.externals = append(m.externals, v)
	return v
}

// AddDefine creates an empty define; the caller fills in Content.
func (m *Module) AddDefine(name string, dt *datatype.Type) *Define {
	d := &Define{Name: name, DataType: dt}
	m.defines = append(m.defines, d)
	return d
}

// AddStringLiteral interns s. Adding the same content twice returns the existing entry.
func (m *Module) AddStringLiteral(s string) (*StoredString, error) {
	hash := HashString(s)
	if existing, ok := m.stringsByHash[hash]; ok {
		return existing, nil
	}
	if len(m.stringLiterals) >= MaxStringLiterals {
		return nil, diag.New(diag.CodeTooManyStringLiterals, 0,
			"Failed to create new string literal, there's possibly too many (more than %d)", MaxStringLiterals)
	}
	stored := &StoredString{Hash: hash, Value: s}
	m.stringLiterals = append(m.stringLiterals, stored)
	m.stringsByHash[hash] = stored
	if m.lookup != nil {
		m.lookup.RegisterStringLiteral(stored)
	}
	return stored, nil
}

// StringLiteralByHash returns an interned string, or nil.
func (m *Module) StringLiteralByHash(hash uint64) *StoredString {
	return m.stringsByHash[hash]
}

func (m *Module) ScriptFunctions() []*ScriptFunction { return m.scriptFunctions }
func (m *Module) NativeFunctions() []*NativeFunction { return m.nativeFunctions }
func (m *Module) Globals() []*GlobalVariable         { return m.globals }
func (m *Module) Externals() []*ExternalVariable     { return m.externals }
func (m *Module) Defines() []*Define                 { return m.defines }
func (m *Module) StringLiterals() []*StoredString    { return m.stringLiterals }
