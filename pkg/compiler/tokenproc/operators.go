package tokenproc

import (
	"slices"

	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
)

func isPrefixOperator(op token.Operator) bool {
	switch op {
	case token.OpMinus, token.OpLogicalNot, token.OpBitNot, token.OpIncrement, token.OpDecrement:
		return true
	}
	return false
}

func isAssignable(s token.Statement) bool {
	switch s.(type) {
	case *token.VariableToken, *token.MemoryAccessToken:
		return true
	}
	return false
}

// processUnaryOperations binds postfix operators left to right, then prefix operators
// right to left so that chains like "- -x" or "!~x" nest correctly.
func (p *Processor) processUnaryOperations(tokens []token.Token) ([]token.Token, error) {
	for i := 1; i < len(tokens); i++ {
		op, ok := tokens[i].(*token.OperatorToken)
		if !ok || (op.Op != token.OpIncrement && op.Op != token.OpDecrement) {
			continue
		}
		arg, ok := tokens[i-1].(token.Statement)
		if !ok {
			continue
		}
		if !isAssignable(arg) {
			return nil, p.errorf(diag.CodeTypeMismatch, "Operator '%s' needs a variable or memory access", op.Op)
		}
		tokens[i-1] = &token.UnaryOperationToken{Op: op.Op, Argument: arg, Postfix: true}
		tokens = slices.Delete(tokens, i, i+1)
		i--
	}

	for i := len(tokens) - 2; i >= 0; i-- {
		op, ok := tokens[i].(*token.OperatorToken)
		if !ok || !isPrefixOperator(op.Op) {
			continue
		}
		if i > 0 && token.IsStatement(tokens[i-1]) {
			continue
		}
		arg, ok := tokens[i+1].(token.Statement)
		if !ok {
			continue
		}
		unary, err := p.prefix(op.Op, arg)
		if err != nil {
			return nil, err
		}
		tokens[i] = unary
		tokens = slices.Delete(tokens, i+1, i+2)
	}
	return tokens, nil
}

func (p *Processor) prefix(op token.Operator, arg token.Statement) (token.Statement, error) {
	switch op {
	case token.OpMinus:
		// negative literals stay constants
		if c, ok := arg.(*token.ConstantToken); ok && c.Type() == datatype.ConstInt {
			return token.NewConstant(-c.Value, datatype.ConstInt), nil
		}
	case token.OpIncrement, token.OpDecrement:
		if !isAssignable(arg) {
			return nil, p.errorf(diag.CodeTypeMismatch, "Operator '%s' needs a variable or memory access", op)
		}
	}
	return &token.UnaryOperationToken{Op: op, Argument: arg}, nil
}

// processBinaryOperations repeatedly joins the operator that binds tightest. Among
// operators of equal priority the leftmost is taken, or the rightmost for
// right-associative ones.
func (p *Processor) processBinaryOperations(tokens []token.Token) ([]token.Token, error) {
	for {
		best, bestPriority := -1, 0
		for i := 1; i+1 < len(tokens); i++ {
			op, ok := tokens[i].(*token.OperatorToken)
			if !ok || !token.IsBinary(op.Op) {
				continue
			}
			if !token.IsStatement(tokens[i-1]) || !token.IsStatement(tokens[i+1]) {
				continue
			}
			priority := token.Priority(op.Op)
			if best < 0 || priority < bestPriority || (priority == bestPriority && token.IsRightAssociative(op.Op)) {
				best, bestPriority = i, priority
			}
		}
		if best < 0 {
			break
		}

		op := tokens[best].(*token.OperatorToken).Op
		left := tokens[best-1].(token.Statement)
		right := tokens[best+1].(token.Statement)
		if token.IsAssignment(op) && !isAssignable(left) {
			return nil, p.errorf(diag.CodeTypeMismatch, "Cannot assign to '%s'", token.Format(left))
		}
		tokens[best-1] = &token.BinaryOperationToken{Op: op, Left: left, Right: right}
		tokens = slices.Delete(tokens, best, best+2)
	}

	for _, t := range tokens {
		if op, ok := t.(*token.OperatorToken); ok && (token.IsBinary(op.Op) || isPrefixOperator(op.Op)) {
			return nil, p.errorf(diag.CodeTypeMismatch, "Operator '%s' is missing an operand", op.Op)
		}
	}
	return tokens, nil
}
