// Package token defines the compiler tokens a lemonscript line is made of,
// from the raw keyword/operator/identifier tokens up to resolved statement trees.
package token

import (
	"github.com/zurustar/lemonscript/pkg/datatype"
)

// Keyword is a reserved word of the language.
type Keyword int

const (
	KeywordFunction Keyword = iota
	KeywordGlobal
	KeywordDefine
	KeywordReturn
	KeywordCall
	KeywordJump
	KeywordBreak
	KeywordContinue
	KeywordIf
	KeywordElse
	KeywordWhile
	KeywordFor
	KeywordBlockBegin
	KeywordBlockEnd
)

var keywordSpellings = [...]string{
	KeywordFunction:   "function",
	KeywordGlobal:     "global",
	KeywordDefine:     "define",
	KeywordReturn:     "return",
	KeywordCall:       "call",
	KeywordJump:       "jump",
	KeywordBreak:      "break",
	KeywordContinue:   "continue",
	KeywordIf:         "if",
	KeywordElse:       "else",
	KeywordWhile:      "while",
	KeywordFor:        "for",
	KeywordBlockBegin: "{",
	KeywordBlockEnd:   "}",
}

func (k Keyword) String() string {
	if int(k) < len(keywordSpellings) {
		return keywordSpellings[k]
	}
	return "<keyword>"
}

// LookupKeyword returns the keyword spelled word.
func LookupKeyword(word string) (Keyword, bool) {
	for k, s := range keywordSpellings {
		if s == word {
			return Keyword(k), true
		}
	}
	return 0, false
}

// Token is one element of a token list. The set of implementations is closed.
type Token interface {
	token()
}

// KeywordToken is a reserved word.
type KeywordToken struct {
	Keyword Keyword
}

// VarTypeToken is a data type keyword such as u16.
type VarTypeToken struct {
	DataType *datatype.Type
}

// OperatorToken is an operator or separator not yet consumed by expression building.
type OperatorToken struct {
	Op Operator
}

// LabelToken is an "@name" label reference or definition.
type LabelToken struct {
	Name string
}

// IdentifierToken is a name not yet resolved to a symbol.
type IdentifierToken struct {
	Name string
}

// ParenthesisToken groups the tokens between matching ( ) or [ ].
type ParenthesisToken struct {
	Bracket bool
	Content []Token
}

// CommaListToken holds the comma separated parts of a parenthesis.
type CommaListToken struct {
	Items [][]Token
}

func (*KeywordToken) token()     {}
func (*VarTypeToken) token()     {}
func (*OperatorToken) token()    {}
func (*LabelToken) token()       {}
func (*IdentifierToken) token()  {}
func (*ParenthesisToken) token() {}
func (*CommaListToken) token()   {}

// Statement is a resolved expression tree root.
type Statement interface {
	Token
	Type() *datatype.Type
	SetType(dt *datatype.Type)
}

type typed struct {
	DataType *datatype.Type
}

func (t *typed) Type() *datatype.Type      { return t.DataType }
func (t *typed) SetType(dt *datatype.Type) { t.DataType = dt }

// ConstantToken is an integer, bool or interned string constant.
// For strings, Value holds the literal's hash.
type ConstantToken struct {
	typed
	Value uint64
}

// VariableToken references a local, global or external variable.
type VariableToken struct {
	typed
	Variable Variable
}

// FunctionCallToken calls a script or native function.
type FunctionCallToken struct {
	typed
	Function Function
	Args     []Statement
}

// MemoryAccessToken reads or writes emulated memory, as in u16[A0 + 4].
// DataType is the accessed width.
type MemoryAccessToken struct {
	typed
	Address Statement
}

// ValueCastToken converts its argument to DataType, as in s16(x).
type ValueCastToken struct {
	typed
	Argument Statement
}

// UnaryOperationToken applies a prefix or postfix operator.
type UnaryOperationToken struct {
	typed
	Op       Operator
	Argument Statement
	Postfix  bool
}

// BinaryOperationToken applies a binary operator, including assignments.
type BinaryOperationToken struct {
	typed
	Op    Operator
	Left  Statement
	Right Statement
}

func (*ConstantToken) token()        {}
func (*VariableToken) token()        {}
func (*FunctionCallToken) token()    {}
func (*MemoryAccessToken) token()    {}
func (*ValueCastToken) token()       {}
func (*UnaryOperationToken) token()  {}
func (*BinaryOperationToken) token() {}

// NewConstant creates a typed constant.
func NewConstant(value uint64, dt *datatype.Type) *ConstantToken {
	c := &ConstantToken{Value: value}
	c.DataType = dt
	return c
}

// IsStatement reports whether t is a resolved statement.
func IsStatement(t Token) bool {
	_, ok := t.(Statement)
	return ok
}

// IsOperator reports whether t is the operator op.
func IsOperator(t Token, op Operator) bool {
	o, ok := t.(*OperatorToken)
	return ok && o.Op == op
}

// IsKeyword reports whether t is the keyword k.
func IsKeyword(t Token, k Keyword) bool {
	kw, ok := t.(*KeywordToken)
	return ok && kw.Keyword == k
}

// VariableKind tells where a variable lives.
type VariableKind int

const (
	VariableLocal VariableKind = iota
	VariableGlobal
	VariableExternal
)

// Variable is a symbol that can be read and written.
type Variable interface {
	Name() string
	DataType() *datatype.Type
	Kind() VariableKind
}

// Function is a callable symbol.
type Function interface {
	Name() string
	ReturnType() *datatype.Type
	ParameterTypes() []*datatype.Type
	IsNative() bool
}
