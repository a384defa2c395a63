package preprocessor

import (
	"errors"

	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/lexer"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
)

// lowestPriority is the loosest binding non-assignment operator level.
const lowestPriority = 13

type evaluator struct {
	tokens      []lexer.Token
	pos         int
	definitions map[string]int64
	line        int
}

// evaluate computes the value of a conditional directive expression.
func (p *Preprocessor) evaluate(expr string, line int) (int64, error) {
	tokens, err := lexer.SplitLine(expr, line)
	if err != nil {
		msg := err.Error()
		var de *diag.Error
		if errors.As(err, &de) {
			msg = de.Message
		}
		return 0, diag.New(diag.CodePreprocessor, line, "Invalid preprocessor expression: %s", msg)
	}
	if len(tokens) == 0 {
		return 0, diag.New(diag.CodePreprocessor, line, "Missing preprocessor expression")
	}

	e := &evaluator{tokens: tokens, definitions: p.Definitions, line: line}
	value, err := e.parseExpression(lowestPriority)
	if err != nil {
		return 0, err
	}
	if e.pos < len(e.tokens) {
		return 0, e.errorf("Unexpected token in preprocessor expression")
	}
	return value, nil
}

func (e *evaluator) errorf(format string, args ...any) error {
	return diag.New(diag.CodePreprocessor, e.line, format, args...)
}

// parseExpression uses precedence climbing over the shared operator priorities.
func (e *evaluator) parseExpression(maxPriority int) (int64, error) {
	left, err := e.parseOperand()
	if err != nil {
		return 0, err
	}

	for e.pos < len(e.tokens) {
		tok := e.tokens[e.pos]
		if tok.Kind != lexer.KindOperator || !token.IsBinary(tok.Op) || token.IsAssignment(tok.Op) {
			break
		}
		priority := token.Priority(tok.Op)
		if priority > maxPriority {
			break
		}
		e.pos++

		right, err := e.parseExpression(priority - 1)
		if err != nil {
			return 0, err
		}
		left, err = e.apply(tok.Op, left, right)
		if err != nil {
			return 0, err
		}
	}
	return left, nil
}

func (e *evaluator) parseOperand() (int64, error) {
	if e.pos >= len(e.tokens) {
		return 0, e.errorf("Unexpected end of preprocessor expression")
	}
	tok := e.tokens[e.pos]
	e.pos++

	switch tok.Kind {
	case lexer.KindConstant:
		return int64(tok.Value), nil
	case lexer.KindIdentifier:
		return e.definitions[tok.Text], nil
	case lexer.KindOperator:
		switch tok.Op {
		case token.OpParenthesisLeft:
			value, err := e.parseExpression(lowestPriority)
			if err != nil {
				return 0, err
			}
			if e.pos >= len(e.tokens) || e.tokens[e.pos].Kind != lexer.KindOperator || e.tokens[e.pos].Op != token.OpParenthesisRight {
				return 0, e.errorf("Missing closing parenthesis in preprocessor expression")
			}
			e.pos++
			return value, nil
		case token.OpLogicalNot, token.OpBitNot, token.OpMinus:
			value, err := e.parseOperand()
			if err != nil {
				return 0, err
			}
			switch tok.Op {
			case token.OpLogicalNot:
				return boolValue(value == 0), nil
			case token.OpBitNot:
				return ^value, nil
			default:
				return -value, nil
			}
		}
	}
	return 0, e.errorf("Unexpected token in preprocessor expression")
}

func (e *evaluator) apply(op token.Operator, a, b int64) (int64, error) {
	switch op {
	case token.OpPlus:
		return a + b, nil
	case token.OpMinus:
		return a - b, nil
	case token.OpMultiply:
		return a * b, nil
	case token.OpDivide, token.OpModulo:
		if b == 0 {
			return 0, e.errorf("Division by zero in preprocessor expression")
		}
		if op == token.OpDivide {
			return a / b, nil
		}
		return a % b, nil
	case token.OpBitAnd:
		return a & b, nil
	case token.OpBitOr:
		return a | b, nil
	case token.OpBitXor:
		return a ^ b, nil
	case token.OpShiftLeft:
		return a << uint64(b), nil
	case token.OpShiftRight:
		return a >> uint64(b), nil
	case token.OpLogicalAnd:
		return boolValue(a != 0 && b != 0), nil
	case token.OpLogicalOr:
		return boolValue(a != 0 || b != 0), nil
	case token.OpEqual:
		return boolValue(a == b), nil
	case token.OpNotEqual:
		return boolValue(a != b), nil
	case token.OpLess:
		return boolValue(a < b), nil
	case token.OpLessOrEqual:
		return boolValue(a <= b), nil
	case token.OpGreater:
		return boolValue(a > b), nil
	case token.OpGreaterOrEqual:
		return boolValue(a >= b), nil
	}
	return 0, e.errorf("Operator '%s' not allowed in preprocessor expression", op)
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
