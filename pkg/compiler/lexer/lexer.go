package lexer

import (
	"strconv"
	"strings"

	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
)

// Lexer tokenizes a single lemonscript line.
type Lexer struct {
	input        string
	position     int  // current position in input
	readPosition int  // current reading position (after current char)
	ch           byte // current char
	line         int
}

// New creates a new Lexer for one line.
func New(input string, line int) *Lexer {
	l := &Lexer{input: input, line: line}
	l.readChar()
	return l
}

// SplitLine splits one source line into parser tokens.
// Comments are dropped, so an empty or comment-only line yields no tokens.
func SplitLine(line string, lineNumber int) ([]Token, error) {
	return New(line, lineNumber).Tokenize()
}

// Tokenize reads all tokens of the line.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		l.skipWhitespace()
		if l.ch == 0 {
			return tokens, nil
		}

		column := l.position + 1

		switch {
		case l.ch == '/' && l.peekChar() == '/':
			if l.position+2 < len(l.input) && l.input[l.position+2] == '#' {
				content := strings.TrimSpace(l.input[l.position+3:])
				tokens = append(tokens, Token{Kind: KindPragma, Text: content, Line: l.line, Column: column})
			}
			return tokens, nil

		case l.ch == '"':
			s, err := l.readString()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Kind: KindStringLiteral, Text: s, Line: l.line, Column: column})

		case l.ch == '@':
			l.readChar()
			if !isLetter(l.ch) {
				return nil, diag.New(diag.CodeInvalidToken, l.line, "Expected label name after '@' in column %d", column)
			}
			name := l.readIdentifier()
			tokens = append(tokens, Token{Kind: KindLabel, Text: name, Line: l.line, Column: column})

		case isDigit(l.ch):
			value, err := l.readNumber()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Kind: KindConstant, Value: value, DataType: datatype.ConstInt, Line: l.line, Column: column})

		case isLetter(l.ch):
			tokens = append(tokens, l.classifyWord(l.readIdentifier(), column))

		case l.ch == '{' || l.ch == '}':
			kw := token.KeywordBlockBegin
			if l.ch == '}' {
				kw = token.KeywordBlockEnd
			}
			tokens = append(tokens, Token{Kind: KindKeyword, Keyword: kw, Line: l.line, Column: column})
			l.readChar()

		default:
			op, n, ok := token.MatchOperator(l.input[l.position:])
			if !ok {
				return nil, diag.New(diag.CodeInvalidToken, l.line, "Invalid character '%c' in column %d", l.ch, column)
			}
			tokens = append(tokens, Token{Kind: KindOperator, Op: op, Line: l.line, Column: column})
			for i := 0; i < n; i++ {
				l.readChar()
			}
		}
	}
}

func (l *Lexer) classifyWord(word string, column int) Token {
	tok := Token{Line: l.line, Column: column}
	if kw, ok := token.LookupKeyword(word); ok {
		tok.Kind = KindKeyword
		tok.Keyword = kw
		return tok
	}
	if dt, ok := datatype.ByName(word); ok {
		tok.Kind = KindVarType
		tok.DataType = dt
		return tok
	}
	switch word {
	case "true", "false":
		tok.Kind = KindConstant
		tok.DataType = datatype.Bool
		if word == "true" {
			tok.Value = 1
		}
		return tok
	}
	tok.Kind = KindIdentifier
	tok.Text = word
	return tok
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// readIdentifier reads an identifier. Dots are part of identifiers, as in "D0.u16".
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads a decimal, 0x hexadecimal or 0b binary constant.
func (l *Lexer) readNumber() (uint64, error) {
	position := l.position
	base := 10
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		base = 16
	} else if l.ch == '0' && (l.peekChar() == 'b' || l.peekChar() == 'B') {
		base = 2
	}
	if base != 10 {
		l.readChar()
		l.readChar()
	}
	digitsStart := l.position
	for isHexDigit(l.ch) || isLetter(l.ch) {
		l.readChar()
	}
	literal := l.input[position:l.position]

	value, err := strconv.ParseUint(l.input[digitsStart:l.position], base, 64)
	if err != nil {
		return 0, diag.New(diag.CodeInvalidToken, l.line, "Invalid numeric constant '%s'", literal)
	}
	return value, nil
}

// readString reads a string literal, resolving escape sequences.
func (l *Lexer) readString() (string, error) {
	var sb strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case 0:
			return "", diag.New(diag.CodeInvalidToken, l.line, "Unterminated string literal")
		case '"':
			l.readChar()
			return sb.String(), nil
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case '"', '\\':
				sb.WriteByte(l.ch)
			default:
				return "", diag.New(diag.CodeInvalidToken, l.line, "Invalid escape sequence '\\%c' in string literal", l.ch)
			}
		default:
			sb.WriteByte(l.ch)
		}
	}
}

// skipWhitespace skips whitespace characters.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}

// isLetter checks if a character is a letter.
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

// isDigit checks if a character is a digit.
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// isHexDigit checks if a character is a hexadecimal digit.
func isHexDigit(ch byte) bool {
	return ('0' <= ch && ch <= '9') || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}
