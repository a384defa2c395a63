// Package lexer splits lemonscript source lines into parser tokens.
package lexer

import (
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
)

// Kind represents the type of a parser token.
type Kind int

const (
	KindKeyword Kind = iota
	KindVarType
	KindOperator
	KindLabel
	KindPragma
	KindConstant
	KindStringLiteral
	KindIdentifier
)

var kindNames = [...]string{"Keyword", "VarType", "Operator", "Label", "Pragma", "Constant", "StringLiteral", "Identifier"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Token is a parser token. Which fields are set depends on Kind.
type Token struct {
	Kind     Kind
	Keyword  token.Keyword  // KindKeyword
	DataType *datatype.Type // KindVarType, and the type of a KindConstant
	Op       token.Operator // KindOperator
	Value    uint64         // KindConstant
	Text     string         // label name, pragma content, string literal, identifier
	Line     int
	Column   int
}
