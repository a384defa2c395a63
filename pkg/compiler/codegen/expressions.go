package codegen

import (
	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/opcode"
)

// generateExpression emits code leaving the value of s on the stack. Void function
// calls leave nothing.
func (fc *FunctionCompiler) generateExpression(s token.Statement, line int) error {
	switch e := s.(type) {
	case *token.ConstantToken:
		fc.emit(opcode.PushConstant, e.Type(), line, e.Value)

	case *token.VariableToken:
		fc.emit(opcode.ReadVariable, e.Type(), line, variableArgs(e.Variable)...)

	case *token.FunctionCallToken:
		for _, arg := range e.Args {
			if err := fc.generateExpression(arg, line); err != nil {
				return err
			}
		}
		fc.emit(opcode.Call, e.Type(), line, e.Function.Name(), len(e.Args), e.Function.IsNative())

	case *token.MemoryAccessToken:
		if err := fc.generateExpression(e.Address, line); err != nil {
			return err
		}
		fc.emit(opcode.ReadMemory, e.Type(), line)

	case *token.ValueCastToken:
		if err := fc.generateExpression(e.Argument, line); err != nil {
			return err
		}
		fc.emit(opcode.Cast, e.Type(), line, e.Argument.Type().String())

	case *token.UnaryOperationToken:
		return fc.generateUnary(e, line)

	case *token.BinaryOperationToken:
		return fc.generateBinary(e, line)

	default:
		return diag.New(diag.CodeMalformedStatement, line, "Cannot generate code for '%s'", token.Format(s))
	}
	return nil
}

func (fc *FunctionCompiler) generateUnary(e *token.UnaryOperationToken, line int) error {
	if e.Op != token.OpIncrement && e.Op != token.OpDecrement {
		if err := fc.generateExpression(e.Argument, line); err != nil {
			return err
		}
		fc.emit(opcode.UnaryOp, e.Type(), line, e.Op.String())
		return nil
	}

	op, inverse := token.OpPlus, token.OpMinus
	if e.Op == token.OpDecrement {
		op, inverse = inverse, op
	}
	one := token.NewConstant(1, e.Type())
	if err := fc.generateUpdate(e.Argument, op, one, line); err != nil {
		return err
	}
	// postfix yields the old value, which wraps back from the stored one
	if e.Postfix {
		fc.emit(opcode.PushConstant, e.Type(), line, uint64(1))
		fc.emit(opcode.BinaryOp, e.Type(), line, inverse.String())
	}
	return nil
}

func (fc *FunctionCompiler) generateBinary(e *token.BinaryOperationToken, line int) error {
	switch {
	case e.Op == token.OpAssign:
		return fc.generateAssignment(e.Left, e.Right, line)

	case token.IsAssignment(e.Op):
		base, _ := token.AssignmentBase(e.Op)
		return fc.generateUpdate(e.Left, base, e.Right, line)

	case e.Op == token.OpLogicalAnd || e.Op == token.OpLogicalOr:
		return fc.generateShortCircuit(e, line)
	}

	if err := fc.generateExpression(e.Left, line); err != nil {
		return err
	}
	if err := fc.generateExpression(e.Right, line); err != nil {
		return err
	}
	dt := e.Type()
	if token.IsComparison(e.Op) {
		dt = datatype.Common(e.Left.Type(), e.Right.Type())
	}
	fc.emit(opcode.BinaryOp, dt, line, e.Op.String())
	return nil
}

// generateShortCircuit evaluates the right operand of && and || only when it decides
// the result.
func (fc *FunctionCompiler) generateShortCircuit(e *token.BinaryOperationToken, line int) error {
	if err := fc.generateExpression(e.Left, line); err != nil {
		return err
	}
	fc.emit(opcode.Dup, nil, line)
	cmd := opcode.JumpIfZero
	if e.Op == token.OpLogicalOr {
		cmd = opcode.JumpIfNotZero
	}
	done := fc.emitJump(cmd, line)
	fc.emit(opcode.Pop, nil, line)
	if err := fc.generateExpression(e.Right, line); err != nil {
		return err
	}
	fc.patch(done)
	return nil
}

// generateAssignment stores value into target and leaves the value on the stack.
func (fc *FunctionCompiler) generateAssignment(target, value token.Statement, line int) error {
	switch t := target.(type) {
	case *token.VariableToken:
		if err := fc.generateExpression(value, line); err != nil {
			return err
		}
		fc.emit(opcode.WriteVariable, t.Type(), line, variableArgs(t.Variable)...)
	case *token.MemoryAccessToken:
		if err := fc.generateExpression(t.Address, line); err != nil {
			return err
		}
		if err := fc.generateExpression(value, line); err != nil {
			return err
		}
		fc.emit(opcode.WriteMemory, t.Type(), line)
	default:
		return diag.New(diag.CodeTypeMismatch, line, "Cannot assign to '%s'", token.Format(target))
	}
	return nil
}

// generateUpdate computes "target op value", stores it into target and leaves the
// new value on the stack.
func (fc *FunctionCompiler) generateUpdate(target token.Statement, op token.Operator, value token.Statement, line int) error {
	switch t := target.(type) {
	case *token.VariableToken:
		fc.emit(opcode.ReadVariable, t.Type(), line, variableArgs(t.Variable)...)
		if err := fc.generateExpression(value, line); err != nil {
			return err
		}
		fc.emit(opcode.BinaryOp, t.Type(), line, op.String())
		fc.emit(opcode.WriteVariable, t.Type(), line, variableArgs(t.Variable)...)
	case *token.MemoryAccessToken:
		if err := fc.generateExpression(t.Address, line); err != nil {
			return err
		}
		fc.emit(opcode.Dup, nil, line)
		fc.emit(opcode.ReadMemory, t.Type(), line)
		if err := fc.generateExpression(value, line); err != nil {
			return err
		}
		fc.emit(opcode.BinaryOp, t.Type(), line, op.String())
		fc.emit(opcode.WriteMemory, t.Type(), line)
	default:
		return diag.New(diag.CodeTypeMismatch, line, "Cannot assign to '%s'", token.Format(target))
	}
	return nil
}
