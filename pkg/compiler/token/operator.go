package token

import "sort"

// Operator is an operator or separator.
type Operator int

const (
	OpAssign Operator = iota
	OpAssignPlus
	OpAssignMinus
	OpAssignMultiply
	OpAssignDivide
	OpAssignModulo
	OpAssignAnd
	OpAssignOr
	OpAssignXor
	OpAssignShiftLeft
	OpAssignShiftRight
	OpPlus
	OpMinus
	OpMultiply
	OpDivide
	OpModulo
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpLogicalNot
	OpShiftLeft
	OpShiftRight
	OpLogicalAnd
	OpLogicalOr
	OpEqual
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpIncrement
	OpDecrement
	OpColon
	OpSemicolon
	OpComma
	OpParenthesisLeft
	OpParenthesisRight
	OpBracketLeft
	OpBracketRight
)

var operatorSpellings = [...]string{
	OpAssign:           "=",
	OpAssignPlus:       "+=",
	OpAssignMinus:      "-=",
	OpAssignMultiply:   "*=",
	OpAssignDivide:     "/=",
	OpAssignModulo:     "%=",
	OpAssignAnd:        "&=",
	OpAssignOr:         "|=",
	OpAssignXor:        "^=",
	OpAssignShiftLeft:  "<<=",
	OpAssignShiftRight: ">>=",
	OpPlus:             "+",
	OpMinus:            "-",
	OpMultiply:         "*",
	OpDivide:           "/",
	OpModulo:           "%",
	OpBitAnd:           "&",
	OpBitOr:            "|",
	OpBitXor:           "^",
	OpBitNot:           "~",
	OpLogicalNot:       "!",
	OpShiftLeft:        "<<",
	OpShiftRight:       ">>",
	OpLogicalAnd:       "&&",
	OpLogicalOr:        "||",
	OpEqual:            "==",
	OpNotEqual:         "!=",
	OpLess:             "<",
	OpLessOrEqual:      "<=",
	OpGreater:          ">",
	OpGreaterOrEqual:   ">=",
	OpIncrement:        "++",
	OpDecrement:        "--",
	OpColon:            ":",
	OpSemicolon:        ";",
	OpComma:            ",",
	OpParenthesisLeft:  "(",
	OpParenthesisRight: ")",
	OpBracketLeft:      "[",
	OpBracketRight:     "]",
}

func (op Operator) String() string {
	if int(op) < len(operatorSpellings) {
		return operatorSpellings[op]
	}
	return "<operator>"
}

// operatorsByLength lists all operators, longest spelling first, for longest-match scanning.
var operatorsByLength = func() []Operator {
	ops := make([]Operator, len(operatorSpellings))
	for i := range ops {
		ops[i] = Operator(i)
	}
	sort.SliceStable(ops, func(a, b int) bool {
		return len(operatorSpellings[ops[a]]) > len(operatorSpellings[ops[b]])
	})
	return ops
}()

// MatchOperator returns the longest operator that s starts with and its length.
func MatchOperator(s string) (Operator, int, bool) {
	for _, op := range operatorsByLength {
		spelling := operatorSpellings[op]
		if len(s) >= len(spelling) && s[:len(spelling)] == spelling {
			return op, len(spelling), true
		}
	}
	return 0, 0, false
}

// Priority returns the binding strength of op; lower values bind tighter.
func Priority(op Operator) int {
	switch op {
	case OpIncrement, OpDecrement, OpLogicalNot, OpBitNot:
		return 2
	case OpMultiply, OpDivide, OpModulo:
		return 3
	case OpPlus, OpMinus:
		return 4
	case OpShiftLeft, OpShiftRight:
		return 5
	case OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		return 6
	case OpEqual, OpNotEqual:
		return 7
	case OpBitAnd:
		return 8
	case OpBitXor:
		return 9
	case OpBitOr:
		return 10
	case OpLogicalAnd:
		return 11
	case OpLogicalOr:
		return 12
	case OpAssign, OpAssignPlus, OpAssignMinus, OpAssignMultiply, OpAssignDivide, OpAssignModulo,
		OpAssignAnd, OpAssignOr, OpAssignXor, OpAssignShiftLeft, OpAssignShiftRight:
		return 14
	default:
		return 15
	}
}

// IsRightAssociative reports whether a chain of op groups from the right.
func IsRightAssociative(op Operator) bool {
	return IsAssignment(op)
}

// IsAssignment reports whether op writes to its left operand.
func IsAssignment(op Operator) bool {
	return op >= OpAssign && op <= OpAssignShiftRight
}

// IsBinary reports whether op can join two operands.
func IsBinary(op Operator) bool {
	return op <= OpBitXor || (op >= OpShiftLeft && op <= OpGreaterOrEqual)
}

// IsComparison reports whether op yields a bool.
func IsComparison(op Operator) bool {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual, OpLogicalAnd, OpLogicalOr:
		return true
	}
	return false
}

// AssignmentBase returns the arithmetic operator of a compound assignment, e.g. + for +=.
func AssignmentBase(op Operator) (Operator, bool) {
	switch op {
	case OpAssignPlus:
		return OpPlus, true
	case OpAssignMinus:
		return OpMinus, true
	case OpAssignMultiply:
		return OpMultiply, true
	case OpAssignDivide:
		return OpDivide, true
	case OpAssignModulo:
		return OpModulo, true
	case OpAssignAnd:
		return OpBitAnd, true
	case OpAssignOr:
		return OpBitOr, true
	case OpAssignXor:
		return OpBitXor, true
	case OpAssignShiftLeft:
		return OpShiftLeft, true
	case OpAssignShiftRight:
		return OpShiftRight, true
	}
	return 0, false
}
