// Package opcode defines the instruction set that compiled lemonscript functions are lowered to.
// The compiler generates OpCode sequences, and the runtime executes them.
// Execution is stack based: operands are pushed, operations pop their inputs and push their result.
package opcode

import (
	"fmt"
	"strings"

	"github.com/zurustar/lemonscript/pkg/datatype"
)

// Cmd represents an OpCode command type.
type Cmd string

// OpCode command types for all supported operations.
const (
	// PushConstant pushes a constant value.
	// Args: [value uint64]
	PushConstant Cmd = "PushConstant"

	// ReadVariable pushes the value of a variable.
	// Args: [Variable, local int] where local is the index into the function's
	// local variables, or -1 for globals and externals.
	ReadVariable Cmd = "ReadVariable"

	// WriteVariable stores the top of the stack into a variable. The value stays on the stack.
	// Args: [Variable, local int]
	WriteVariable Cmd = "WriteVariable"

	// ReadMemory pops an address and pushes the DataType-sized value stored there.
	// Args: []
	ReadMemory Cmd = "ReadMemory"

	// WriteMemory pops a value and an address, stores the value and pushes it again.
	// Args: []
	WriteMemory Cmd = "WriteMemory"

	// UnaryOp applies a unary operator to the top of the stack.
	// Args: [operator string]
	UnaryOp Cmd = "UnaryOp"

	// BinaryOp pops the right then the left operand and pushes the result.
	// Args: [operator string]
	BinaryOp Cmd = "BinaryOp"

	// Cast converts the top of the stack to DataType.
	// Args: [source type name string]
	Cast Cmd = "Cast"

	// Call invokes a function; its arguments are on the stack, first argument deepest.
	// Args: [functionName string, argumentCount int, native bool]
	Call Cmd = "Call"

	// ExternalCall pops an address and calls into the host at that address.
	// Args: []
	ExternalCall Cmd = "ExternalCall"

	// ExternalJump pops an address and transfers control to the host at that address without returning.
	// Args: []
	ExternalJump Cmd = "ExternalJump"

	// Jump continues execution at an opcode index.
	// Args: [target int]
	Jump Cmd = "Jump"

	// JumpIfZero pops a value and jumps if it is zero.
	// Args: [target int]
	JumpIfZero Cmd = "JumpIfZero"

	// JumpIfNotZero pops a value and jumps if it is not zero.
	// Args: [target int]
	JumpIfNotZero Cmd = "JumpIfNotZero"

	// Dup pushes a copy of the top of the stack.
	// Args: []
	Dup Cmd = "Dup"

	// Pop discards the top of the stack.
	// Args: []
	Pop Cmd = "Pop"

	// Return leaves the function. If the function has a return type the value is on the stack.
	// Args: []
	Return Cmd = "Return"
)

// OpCode represents a single instruction.
// DataType is the type the instruction operates on, nil where it does not matter.
// Line is the flattened source line the instruction was generated from.
type OpCode struct {
	Cmd      Cmd
	Args     []any
	DataType *datatype.Type
	Line     int
}

// Variable represents a variable reference in OpCode arguments.
// This type distinguishes variable references from literal string values.
type Variable string

func (o OpCode) String() string {
	var sb strings.Builder
	sb.WriteString(string(o.Cmd))
	if o.DataType != nil {
		sb.WriteString("<" + o.DataType.String() + ">")
	}
	for _, arg := range o.Args {
		switch a := arg.(type) {
		case Variable:
			fmt.Fprintf(&sb, " $%s", string(a))
		case string:
			fmt.Fprintf(&sb, " %q", a)
		default:
			fmt.Fprintf(&sb, " %v", a)
		}
	}
	return sb.String()
}
