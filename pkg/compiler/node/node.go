// Package node defines the tree a lemonscript program is parsed into.
// Lines first become Undefined nodes inside nested Blocks; the compiler then
// replaces them with typed statement nodes.
package node

import (
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/program"
)

// Node is an element of the tree. The set of implementations is closed.
type Node interface {
	Line() int
	node()
}

// Pos holds the flattened line number of a node.
type Pos struct {
	LineNumber int
}

// At returns the position of a flattened line.
func At(line int) Pos { return Pos{LineNumber: line} }

func (p Pos) Line() int { return p.LineNumber }

// Block is a { } delimited sequence of nodes. The root of the tree is a Block too.
type Block struct {
	Pos
	Nodes []Node
}

// Pragma is a //# line. Its content is attached to the next function.
type Pragma struct {
	Pos
	Content string
}

// Undefined is a line whose statement kind has not been determined yet.
type Undefined struct {
	Pos
	Tokens []token.Token
}

// Function is a function header together with its body.
type Function struct {
	Pos
	Function *program.ScriptFunction
	Content  *Block
}

// If is a conditional. Then and Else are attached by the merge pass; Else may stay nil.
type If struct {
	Pos
	Condition token.Statement
	Then      Node
	Else      Node
}

// Else marks an else line until the merge pass attaches it to its If.
type Else struct {
	Pos
}

// While is a loop with a condition checked before each iteration.
type While struct {
	Pos
	Condition token.Statement
	Content   Node
}

// For is a loop with optional initial, condition and iteration statements.
type For struct {
	Pos
	Initial   token.Statement
	Condition token.Statement
	Iteration token.Statement
	Content   Node
}

// Return leaves the function, optionally with a value.
type Return struct {
	Pos
	Value token.Statement
}

// ExternalKind tells whether an External node calls or jumps.
type ExternalKind int

const (
	ExternalCall ExternalKind = iota
	ExternalJump
)

// External transfers control to a host address computed by Target.
type External struct {
	Pos
	Kind   ExternalKind
	Target token.Statement
}

// Jump continues at a label inside the same function.
type Jump struct {
	Pos
	Label string
}

// Break leaves the innermost loop.
type Break struct {
	Pos
}

// Continue starts the next iteration of the innermost loop.
type Continue struct {
	Pos
}

// Label marks a jump target.
type Label struct {
	Pos
	Name string
}

// Statement is an expression evaluated for its side effects.
type Statement struct {
	Pos
	Statement token.Statement
}

func (*Block) node()     {}
func (*Pragma) node()    {}
func (*Undefined) node() {}
func (*Function) node()  {}
func (*If) node()        {}
func (*Else) node()      {}
func (*While) node()     {}
func (*For) node()       {}
func (*Return) node()    {}
func (*External) node()  {}
func (*Jump) node()      {}
func (*Break) node()     {}
func (*Continue) node()  {}
func (*Label) node()     {}
func (*Statement) node() {}
