package compiler

import (
	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/program"
)

// scopeMarker opens a scope at a position in the visible variable list.
// A marker with a positive remaining count closes after that many completed
// statements instead of at the end of its block.
type scopeMarker struct {
	start     int
	remaining int
}

// ScopeContext tracks which local variables of a function are visible while its body
// is classified.
type ScopeContext struct {
	function *program.ScriptFunction
	visible  []*program.LocalVariable
	scopes   []scopeMarker
}

// NewScopeContext creates a context in which the function's parameters are visible.
func NewScopeContext(fn *program.ScriptFunction) *ScopeContext {
	return &ScopeContext{
		function: fn,
		visible:  append([]*program.LocalVariable(nil), fn.LocalVariables...),
	}
}

// BeginScope opens a scope that lasts until the matching EndScope.
func (s *ScopeContext) BeginScope() {
	s.scopes = append(s.scopes, scopeMarker{start: len(s.visible)})
}

// BeginScopeFor opens a scope that closes once n further statements are completed.
func (s *ScopeContext) BeginScopeFor(n int) {
	s.scopes = append(s.scopes, scopeMarker{start: len(s.visible), remaining: n})
}

// EndScope closes the innermost block scope together with any counted scopes still
// open inside it.
func (s *ScopeContext) EndScope() {
	for len(s.scopes) > 0 {
		top := s.pop()
		if top.remaining == 0 {
			return
		}
	}
}

// StatementCompleted counts one completed statement towards the innermost counted
// scope, closing it when its count reaches zero. Block scopes are not affected.
func (s *ScopeContext) StatementCompleted() {
	if len(s.scopes) == 0 {
		return
	}
	top := &s.scopes[len(s.scopes)-1]
	if top.remaining == 0 {
		return
	}
	top.remaining--
	if top.remaining == 0 {
		s.pop()
	}
}

func (s *ScopeContext) pop() scopeMarker {
	top := s.scopes[len(s.scopes)-1]
	s.scopes = s.scopes[:len(s.scopes)-1]
	clear(s.visible[top.start:])
	s.visible = s.visible[:top.start]
	return top
}

// Depth returns the number of open scopes.
func (s *ScopeContext) Depth() int {
	return len(s.scopes)
}

// LookupLocal returns the innermost visible local variable with the given name.
func (s *ScopeContext) LookupLocal(name string) *program.LocalVariable {
	for i := len(s.visible) - 1; i >= 0; i-- {
		if s.visible[i].Name() == name {
			return s.visible[i]
		}
	}
	return nil
}

// DeclareLocal adds a local variable to the function and makes it visible in the
// innermost scope. Shadowing a variable of an outer scope is allowed.
func (s *ScopeContext) DeclareLocal(name string, dt *datatype.Type, line int) (*program.LocalVariable, error) {
	start := 0
	if len(s.scopes) > 0 {
		start = s.scopes[len(s.scopes)-1].start
	}
	for _, v := range s.visible[start:] {
		if v.Name() == name {
			return nil, diag.New(diag.CodeDuplicateSymbol, line, "Variable '%s' is already defined in this scope", name)
		}
	}
	v := s.function.AddLocalVariable(name, dt, line)
	s.visible = append(s.visible, v)
	return v, nil
}
