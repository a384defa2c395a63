package tokenproc

import (
	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
)

func (p *Processor) assignRootType(s token.Statement, expected *datatype.Type) error {
	if expected == nil || expected.IsVoid() {
		_, err := p.assignType(s, nil)
		return err
	}
	return p.expectType(s, expected)
}

// expectType assigns types below s and checks that the result can be used as want.
func (p *Processor) expectType(s token.Statement, want *datatype.Type) error {
	got, err := p.assignType(s, want)
	if err != nil {
		return err
	}
	if !datatype.Compatible(got, want) {
		return p.errorf(diag.CodeTypeMismatch, "Cannot use %s value '%s' as %s", got, token.Format(s), want)
	}
	return nil
}

func (p *Processor) requireInteger(s token.Statement, t *datatype.Type, op token.Operator) error {
	if !t.IsInteger() {
		return p.errorf(diag.CodeTypeMismatch, "Operator '%s' cannot be applied to %s value '%s'", op, t, token.Format(s))
	}
	return nil
}

// integerHint passes an expected type on to operands only when it is an integer type.
func integerHint(expected *datatype.Type) *datatype.Type {
	if expected != nil && expected.Class == datatype.ClassInteger && expected != datatype.ConstInt {
		return expected
	}
	return nil
}

// assignType sets the data type of s and everything below it, bottom-up, and returns
// it. Untyped integer constants adopt expected when given.
func (p *Processor) assignType(s token.Statement, expected *datatype.Type) (*datatype.Type, error) {
	switch s := s.(type) {
	case *token.ConstantToken:
		if s.DataType == datatype.ConstInt && expected != nil && expected.IsInteger() {
			s.DataType = expected
		}

	case *token.VariableToken:

	case *token.FunctionCallToken:
		params := s.Function.ParameterTypes()
		for i, arg := range s.Args {
			if err := p.expectType(arg, params[i]); err != nil {
				return nil, err
			}
		}

	case *token.MemoryAccessToken:
		at, err := p.assignType(s.Address, nil)
		if err != nil {
			return nil, err
		}
		if !at.IsInteger() {
			return nil, p.errorf(diag.CodeTypeMismatch, "Memory address '%s' is not an integer", token.Format(s.Address))
		}

	case *token.ValueCastToken:
		at, err := p.assignType(s.Argument, s.DataType)
		if err != nil {
			return nil, err
		}
		if at != s.DataType && !(at.IsInteger() && s.DataType.IsInteger()) {
			return nil, p.errorf(diag.CodeTypeMismatch, "Cannot cast %s to %s", at, s.DataType)
		}

	case *token.UnaryOperationToken:
		hint := integerHint(expected)
		if s.Op == token.OpLogicalNot || s.Op == token.OpIncrement || s.Op == token.OpDecrement {
			hint = nil
		}
		at, err := p.assignType(s.Argument, hint)
		if err != nil {
			return nil, err
		}
		if err := p.requireInteger(s.Argument, at, s.Op); err != nil {
			return nil, err
		}
		if s.Op == token.OpLogicalNot {
			s.DataType = datatype.Bool
		} else {
			s.DataType = at
		}

	case *token.BinaryOperationToken:
		dt, err := p.assignBinaryType(s, expected)
		if err != nil {
			return nil, err
		}
		s.DataType = dt
	}
	return s.Type(), nil
}

func (p *Processor) assignBinaryType(s *token.BinaryOperationToken, expected *datatype.Type) (*datatype.Type, error) {
	switch {
	case s.Op == token.OpAssign:
		lt, err := p.assignType(s.Left, nil)
		if err != nil {
			return nil, err
		}
		return lt, p.expectType(s.Right, lt)

	case token.IsAssignment(s.Op):
		lt, err := p.assignType(s.Left, nil)
		if err != nil {
			return nil, err
		}
		rt, err := p.assignType(s.Right, integerHint(lt))
		if err != nil {
			return nil, err
		}
		if err := p.requireInteger(s.Left, lt, s.Op); err != nil {
			return nil, err
		}
		return lt, p.requireInteger(s.Right, rt, s.Op)

	case s.Op == token.OpLogicalAnd || s.Op == token.OpLogicalOr:
		lt, rt, err := p.operandTypes(s, nil)
		if err != nil {
			return nil, err
		}
		if err := p.requireInteger(s.Left, lt, s.Op); err != nil {
			return nil, err
		}
		return datatype.Bool, p.requireInteger(s.Right, rt, s.Op)

	case token.IsComparison(s.Op):
		lt, rt, err := p.operandTypes(s, nil)
		if err != nil {
			return nil, err
		}
		if lt == datatype.String && rt == datatype.String && (s.Op == token.OpEqual || s.Op == token.OpNotEqual) {
			return datatype.Bool, nil
		}
		if err := p.requireInteger(s.Left, lt, s.Op); err != nil {
			return nil, err
		}
		return datatype.Bool, p.requireInteger(s.Right, rt, s.Op)

	case s.Op == token.OpShiftLeft || s.Op == token.OpShiftRight:
		lt, err := p.assignType(s.Left, integerHint(expected))
		if err != nil {
			return nil, err
		}
		rt, err := p.assignType(s.Right, datatype.U8)
		if err != nil {
			return nil, err
		}
		if err := p.requireInteger(s.Left, lt, s.Op); err != nil {
			return nil, err
		}
		return lt, p.requireInteger(s.Right, rt, s.Op)

	default:
		lt, rt, err := p.operandTypes(s, integerHint(expected))
		if err != nil {
			return nil, err
		}
		if err := p.requireInteger(s.Left, lt, s.Op); err != nil {
			return nil, err
		}
		if err := p.requireInteger(s.Right, rt, s.Op); err != nil {
			return nil, err
		}
		return datatype.Common(lt, rt), nil
	}
}

// operandTypes types both operands. An untyped constant side adopts the type of the
// other side.
func (p *Processor) operandTypes(s *token.BinaryOperationToken, hint *datatype.Type) (*datatype.Type, *datatype.Type, error) {
	lt, err := p.assignType(s.Left, hint)
	if err != nil {
		return nil, nil, err
	}
	rt, err := p.assignType(s.Right, hint)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case lt == datatype.ConstInt && rt != datatype.ConstInt && rt.Class == datatype.ClassInteger:
		lt, err = p.assignType(s.Left, rt)
	case rt == datatype.ConstInt && lt != datatype.ConstInt && lt.Class == datatype.ClassInteger:
		rt, err = p.assignType(s.Right, lt)
	}
	if err != nil {
		return nil, nil, err
	}
	return lt, rt, nil
}
