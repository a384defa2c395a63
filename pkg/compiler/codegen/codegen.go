// Package codegen lowers the classified node tree of a script function into the
// stack machine instructions of package opcode.
package codegen

import (
	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/node"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/opcode"
	"github.com/zurustar/lemonscript/pkg/program"
)

// Config holds the settings shared by all functions of a compile run.
type Config struct {
	// ExternalAddressType is the data type of call and jump targets.
	ExternalAddressType *datatype.Type
}

// loop collects the jumps of break and continue statements until their targets are known.
type loop struct {
	breaks    []int
	continues []int
}

type labelJump struct {
	index int
	label string
	line  int
}

// FunctionCompiler converts one script function to OpCode sequences.
type FunctionCompiler struct {
	fn     *program.ScriptFunction
	config Config

	opcodes    []opcode.OpCode
	labels     map[string]int
	labelJumps []labelJump
	loops      []*loop
}

// New creates a compiler for fn.
func New(fn *program.ScriptFunction, config Config) *FunctionCompiler {
	if config.ExternalAddressType == nil {
		config.ExternalAddressType = datatype.U32
	}
	return &FunctionCompiler{
		fn:     fn,
		config: config,
		labels: make(map[string]int),
	}
}

// ProcessParameters emits the prologue storing the call arguments into the parameter
// variables. The last argument is on top of the stack.
func (fc *FunctionCompiler) ProcessParameters() {
	params := fc.fn.Parameters()
	for i := len(params) - 1; i >= 0; i-- {
		v := fc.fn.LocalVariables[i]
		fc.emit(opcode.WriteVariable, v.DataType(), fc.fn.LineNumber, variableArgs(v)...)
		fc.emit(opcode.Pop, nil, fc.fn.LineNumber)
	}
}

// BuildOpcodesForFunction generates the body of the function and stores the result
// in its Opcodes and Labels.
func (fc *FunctionCompiler) BuildOpcodesForFunction(body *node.Block) error {
	if err := fc.generateNode(body); err != nil {
		return err
	}

	if fc.needsFinalReturn() {
		line := body.Line()
		rt := fc.fn.ReturnType()
		if !rt.IsVoid() {
			fc.emit(opcode.PushConstant, rt, line, uint64(0))
		}
		fc.emit(opcode.Return, rt, line)
	}

	for _, j := range fc.labelJumps {
		target, ok := fc.labels[j.label]
		if !ok {
			return diag.New(diag.CodeUnknownLabel, j.line, "Unknown label '@%s'", j.label)
		}
		fc.opcodes[j.index].Args = []any{target}
	}

	fc.fn.Opcodes = fc.opcodes
	fc.fn.Labels = fc.labels
	return nil
}

// needsFinalReturn reports whether execution can reach the end of the generated code.
func (fc *FunctionCompiler) needsFinalReturn() bool {
	end := len(fc.opcodes)
	if end == 0 || fc.opcodes[end-1].Cmd != opcode.Return {
		return true
	}
	for _, target := range fc.labels {
		if target == end {
			return true
		}
	}
	for _, op := range fc.opcodes {
		switch op.Cmd {
		case opcode.Jump, opcode.JumpIfZero, opcode.JumpIfNotZero:
			if op.Args[0] == any(end) {
				return true
			}
		}
	}
	return false
}

func (fc *FunctionCompiler) emit(cmd opcode.Cmd, dt *datatype.Type, line int, args ...any) int {
	fc.opcodes = append(fc.opcodes, opcode.OpCode{Cmd: cmd, Args: args, DataType: dt, Line: line})
	return len(fc.opcodes) - 1
}

// emitJump emits a jump whose target is filled in by patch.
func (fc *FunctionCompiler) emitJump(cmd opcode.Cmd, line int) int {
	return fc.emit(cmd, nil, line, -1)
}

func (fc *FunctionCompiler) patch(index int) {
	fc.opcodes[index].Args = []any{len(fc.opcodes)}
}

func variableArgs(v token.Variable) []any {
	if local, ok := v.(*program.LocalVariable); ok {
		return []any{opcode.Variable(v.Name()), local.ID}
	}
	return []any{opcode.Variable(v.Name()), -1}
}

// generateNode converts a classified node to OpCodes.
func (fc *FunctionCompiler) generateNode(n node.Node) error {
	switch n := n.(type) {
	case *node.Block:
		for _, child := range n.Nodes {
			if err := fc.generateNode(child); err != nil {
				return err
			}
		}
		return nil
	case *node.Pragma:
		return nil
	case *node.Statement:
		return fc.generateStatement(n.Statement, n.Line())
	case *node.If:
		return fc.generateIf(n)
	case *node.While:
		return fc.generateWhile(n)
	case *node.For:
		return fc.generateFor(n)
	case *node.Return:
		return fc.generateReturn(n)
	case *node.External:
		return fc.generateExternal(n)
	case *node.Jump:
		index := fc.emitJump(opcode.Jump, n.Line())
		fc.labelJumps = append(fc.labelJumps, labelJump{index: index, label: n.Label, line: n.Line()})
		return nil
	case *node.Label:
		if _, exists := fc.labels[n.Name]; exists {
			return diag.New(diag.CodeDuplicateSymbol, n.Line(), "Label '@%s' is already defined", n.Name)
		}
		fc.labels[n.Name] = len(fc.opcodes)
		return nil
	case *node.Break:
		return fc.generateLoopExit(n.Line(), "break", func(l *loop, index int) { l.breaks = append(l.breaks, index) })
	case *node.Continue:
		return fc.generateLoopExit(n.Line(), "continue", func(l *loop, index int) { l.continues = append(l.continues, index) })
	default:
		return diag.New(diag.CodeMalformedStatement, n.Line(), "Statement in wrong location")
	}
}

// generateStatement evaluates an expression statement and discards its value.
func (fc *FunctionCompiler) generateStatement(s token.Statement, line int) error {
	if s == nil {
		return nil
	}
	// a bare declaration such as "u32 x" produces no code
	if _, ok := s.(*token.VariableToken); ok {
		return nil
	}
	if err := fc.generateExpression(s, line); err != nil {
		return err
	}
	if !s.Type().IsVoid() {
		fc.emit(opcode.Pop, nil, line)
	}
	return nil
}

// generateIf converts an if statement with an optional else branch.
func (fc *FunctionCompiler) generateIf(n *node.If) error {
	if err := fc.generateExpression(n.Condition, n.Line()); err != nil {
		return err
	}
	skipThen := fc.emitJump(opcode.JumpIfZero, n.Line())
	if err := fc.generateNode(n.Then); err != nil {
		return err
	}
	if n.Else == nil {
		fc.patch(skipThen)
		return nil
	}

	skipElse := fc.emitJump(opcode.Jump, n.Line())
	fc.patch(skipThen)
	if err := fc.generateNode(n.Else); err != nil {
		return err
	}
	fc.patch(skipElse)
	return nil
}

// generateWhile converts a while loop. continue jumps back to the condition.
func (fc *FunctionCompiler) generateWhile(n *node.While) error {
	start := len(fc.opcodes)
	if err := fc.generateExpression(n.Condition, n.Line()); err != nil {
		return err
	}
	exit := fc.emitJump(opcode.JumpIfZero, n.Line())

	l, err := fc.generateLoopBody(n.Content)
	if err != nil {
		return err
	}
	fc.emit(opcode.Jump, nil, n.Line(), start)
	fc.patch(exit)
	fc.closeLoop(l, start)
	return nil
}

// generateFor converts a for loop. Every part of the header may be empty; a missing
// condition loops until break.
func (fc *FunctionCompiler) generateFor(n *node.For) error {
	if err := fc.generateStatement(n.Initial, n.Line()); err != nil {
		return err
	}

	start := len(fc.opcodes)
	exit := -1
	if n.Condition != nil {
		if err := fc.generateExpression(n.Condition, n.Line()); err != nil {
			return err
		}
		exit = fc.emitJump(opcode.JumpIfZero, n.Line())
	}

	l, err := fc.generateLoopBody(n.Content)
	if err != nil {
		return err
	}
	iteration := len(fc.opcodes)
	if err := fc.generateStatement(n.Iteration, n.Line()); err != nil {
		return err
	}
	fc.emit(opcode.Jump, nil, n.Line(), start)
	if exit >= 0 {
		fc.patch(exit)
	}
	fc.closeLoop(l, iteration)
	return nil
}

func (fc *FunctionCompiler) generateLoopBody(body node.Node) (*loop, error) {
	l := &loop{}
	fc.loops = append(fc.loops, l)
	err := fc.generateNode(body)
	fc.loops = fc.loops[:len(fc.loops)-1]
	return l, err
}

// closeLoop points the loop's break jumps behind the loop and its continue jumps at next.
func (fc *FunctionCompiler) closeLoop(l *loop, next int) {
	for _, index := range l.breaks {
		fc.patch(index)
	}
	for _, index := range l.continues {
		fc.opcodes[index].Args = []any{next}
	}
}

func (fc *FunctionCompiler) generateLoopExit(line int, keyword string, record func(*loop, int)) error {
	if len(fc.loops) == 0 {
		return diag.New(diag.CodeMalformedStatement, line, "'%s' is only allowed inside a loop", keyword)
	}
	record(fc.loops[len(fc.loops)-1], fc.emitJump(opcode.Jump, line))
	return nil
}

// generateReturn checks the returned value against the function's return type.
func (fc *FunctionCompiler) generateReturn(n *node.Return) error {
	rt := fc.fn.ReturnType()
	switch {
	case rt.IsVoid() && n.Value != nil:
		return diag.New(diag.CodeTypeMismatch, n.Line(), "Function '%s' returns void and cannot return a value", fc.fn.Name())
	case !rt.IsVoid() && n.Value == nil:
		return diag.New(diag.CodeTypeMismatch, n.Line(), "Function '%s' must return a value of type %s", fc.fn.Name(), rt)
	}

	if n.Value != nil {
		if err := fc.generateExpression(n.Value, n.Line()); err != nil {
			return err
		}
	}
	fc.emit(opcode.Return, rt, n.Line())
	return nil
}

func (fc *FunctionCompiler) generateExternal(n *node.External) error {
	if err := fc.generateExpression(n.Target, n.Line()); err != nil {
		return err
	}
	cmd := opcode.ExternalCall
	if n.Kind == node.ExternalJump {
		cmd = opcode.ExternalJump
	}
	fc.emit(cmd, fc.config.ExternalAddressType, n.Line())
	return nil
}
