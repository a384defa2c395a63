package program

import (
	"slices"

	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
)

type entryKind int

const (
	entryFunction entryKind = iota
	entryVariable
	entryDefine
	entryString
)

type entry struct {
	kind entryKind
	name string
	hash uint64
}

// GlobalsLookup resolves global names for the compiler. It may span several modules.
type GlobalsLookup struct {
	functions map[string][]token.Function
	variables map[string]token.Variable
	defines   map[string]*Define
	strings   map[uint64]*StoredString

	// registration order, for rollback
	log []entry
}

// NewGlobalsLookup creates an empty lookup.
func NewGlobalsLookup() *GlobalsLookup {
	return &GlobalsLookup{
		functions: make(map[string][]token.Function),
		variables: make(map[string]token.Variable),
		defines:   make(map[string]*Define),
		strings:   make(map[uint64]*StoredString),
	}
}

// RegisterFunction adds a function. Functions may share a name if their parameter types differ.
func (l *GlobalsLookup) RegisterFunction(f token.Function) error {
	for _, existing := range l.functions[f.Name()] {
		if slices.Equal(existing.ParameterTypes(), f.ParameterTypes()) {
			return diag.New(diag.CodeDuplicateSymbol, 0, "Function '%s' with the same parameter types is already defined", f.Name())
		}
	}
	l.functions[f.Name()] = append(l.functions[f.Name()], f)
	l.log = append(l.log, entry{kind: entryFunction, name: f.Name()})
	return nil
}

// RegisterVariable adds a global or external variable.
func (l *GlobalsLookup) RegisterVariable(v token.Variable) error {
	if err := l.checkNameFree(v.Name()); err != nil {
		return err
	}
	l.variables[v.Name()] = v
	l.log = append(l.log, entry{kind: entryVariable, name: v.Name()})
	return nil
}

// RegisterDefine adds a define.
func (l *GlobalsLookup) RegisterDefine(d *Define) error {
	if err := l.checkNameFree(d.Name); err != nil {
		return err
	}
	l.defines[d.Name] = d
	l.log = append(l.log, entry{kind: entryDefine, name: d.Name})
	return nil
}

// RegisterStringLiteral makes an interned string findable by hash.
func (l *GlobalsLookup) RegisterStringLiteral(s *StoredString) {
	if _, ok := l.strings[s.Hash]; ok {
		return
	}
	l.strings[s.Hash] = s
	l.log = append(l.log, entry{kind: entryString, hash: s.Hash})
}

func (l *GlobalsLookup) checkNameFree(name string) error {
	if _, ok := l.variables[name]; ok {
		return diag.New(diag.CodeDuplicateSymbol, 0, "Variable '%s' is already defined", name)
	}
	if _, ok := l.defines[name]; ok {
		return diag.New(diag.CodeDuplicateSymbol, 0, "Define '%s' is already defined", name)
	}
	return nil
}

// FunctionsByName returns all overloads of a function name.
func (l *GlobalsLookup) FunctionsByName(name string) []token.Function {
	return l.functions[name]
}

// VariableByName returns a global or external variable, or nil.
func (l *GlobalsLookup) VariableByName(name string) token.Variable {
	return l.variables[name]
}

// DefineByName returns a define, or nil.
func (l *GlobalsLookup) DefineByName(name string) *Define {
	return l.defines[name]
}

// StringLiteralByHash returns an interned string, or nil.
func (l *GlobalsLookup) StringLiteralByHash(hash uint64) *StoredString {
	return l.strings[hash]
}

func (l *GlobalsLookup) checkpoint() int {
	return len(l.log)
}

// rollback unregisters everything registered after the checkpoint, newest first.
func (l *GlobalsLookup) rollback(cp int) {
	for i := len(l.log) - 1; i >= cp; i-- {
		e := l.log[i]
		switch e.kind {
		case entryFunction:
			list := l.functions[e.name]
			if len(list) <= 1 {
				delete(l.functions, e.name)
			} else {
				l.functions[e.name] = list[:len(list)-1]
			}
		case entryVariable:
			delete(l.variables, e.name)
		case entryDefine:
			delete(l.defines, e.name)
		case entryString:
			delete(l.strings, e.hash)
		}
	}
	l.log = l.log[:cp]
}
