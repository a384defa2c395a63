// Package diag defines the structured error raised by every compiler phase.
//
// A diag.Error always carries a flattened line number (a line index in the
// concatenated, include-expanded source). The compiler driver translates it
// back to the original file and line exactly once per compilation.
package diag

import "fmt"

// Code identifies a specific compiler error.
type Code int

const (
	CodeUnknown Code = iota
	CodeFileNotFound
	CodeRecursionLimit
	CodePreprocessor
	CodeInvalidToken
	CodeUnbalancedBlocks
	CodeUnclosedBlock
	CodeMalformedHeader
	CodeMissingFunctionBody
	CodeDuplicateParameterName
	CodeDuplicateSymbol
	CodeUndeterminedType
	CodeTooManyStringLiterals
	CodeTooManyReturnValues
	CodeLabelAfterCall
	CodeMalformedStatement
	CodeDanglingElse
	CodeUnknownIdentifier
	CodeUnknownLabel
	CodeTypeMismatch
)

var codeNames = map[Code]string{
	CodeUnknown:                "Unknown",
	CodeFileNotFound:           "FileNotFound",
	CodeRecursionLimit:         "RecursionLimit",
	CodePreprocessor:           "Preprocessor",
	CodeInvalidToken:           "InvalidToken",
	CodeUnbalancedBlocks:       "UnbalancedBlocks",
	CodeUnclosedBlock:          "UnclosedBlock",
	CodeMalformedHeader:        "MalformedHeader",
	CodeMissingFunctionBody:    "MissingFunctionBody",
	CodeDuplicateParameterName: "DuplicateParameterName",
	CodeDuplicateSymbol:        "DuplicateSymbol",
	CodeUndeterminedType:       "UndeterminedType",
	CodeTooManyStringLiterals:  "TooManyStringLiterals",
	CodeTooManyReturnValues:    "TooManyReturnValues",
	CodeLabelAfterCall:         "LabelAfterCall",
	CodeMalformedStatement:     "MalformedStatement",
	CodeDanglingElse:           "DanglingElse",
	CodeUnknownIdentifier:      "UnknownIdentifier",
	CodeUnknownLabel:           "UnknownLabel",
	CodeTypeMismatch:           "TypeMismatch",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Kind is the coarse error taxonomy a code belongs to.
type Kind int

const (
	KindInternal Kind = iota
	KindFileLoad
	KindIncludeCycle
	KindSyntaxStructure
	KindSymbol
	KindTooMany
	KindControlFlow
	KindType
)

var kindNames = [...]string{"Internal", "FileLoad", "IncludeCycle", "SyntaxStructure", "Symbol", "TooMany", "ControlFlow", "Type"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kind returns the taxonomy of the code.
func (c Code) Kind() Kind {
	switch c {
	case CodeFileNotFound:
		return KindFileLoad
	case CodeRecursionLimit:
		return KindIncludeCycle
	case CodePreprocessor, CodeInvalidToken, CodeUnbalancedBlocks, CodeUnclosedBlock,
		CodeMalformedHeader, CodeMissingFunctionBody, CodeMalformedStatement, CodeTooManyReturnValues:
		return KindSyntaxStructure
	case CodeDuplicateParameterName, CodeDuplicateSymbol, CodeUndeterminedType,
		CodeUnknownIdentifier, CodeUnknownLabel:
		return KindSymbol
	case CodeTooManyStringLiterals:
		return KindTooMany
	case CodeDanglingElse, CodeLabelAfterCall:
		return KindControlFlow
	case CodeTypeMismatch:
		return KindType
	default:
		return KindInternal
	}
}

// Error is a compiler error at a flattened line number.
type Error struct {
	Code    Code
	Message string
	Line    int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Is matches another *Error with the same code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Line == 0
}

// New creates an error with a formatted message.
func New(code Code, line int, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
	}
}

// Sentinels for errors.Is.
var (
	ErrFileNotFound           = &Error{Code: CodeFileNotFound}
	ErrRecursionLimit         = &Error{Code: CodeRecursionLimit}
	ErrPreprocessor           = &Error{Code: CodePreprocessor}
	ErrInvalidToken           = &Error{Code: CodeInvalidToken}
	ErrUnbalancedBlocks       = &Error{Code: CodeUnbalancedBlocks}
	ErrUnclosedBlock          = &Error{Code: CodeUnclosedBlock}
	ErrMalformedHeader        = &Error{Code: CodeMalformedHeader}
	ErrMissingFunctionBody    = &Error{Code: CodeMissingFunctionBody}
	ErrDuplicateParameterName = &Error{Code: CodeDuplicateParameterName}
	ErrDuplicateSymbol        = &Error{Code: CodeDuplicateSymbol}
	ErrUndeterminedType       = &Error{Code: CodeUndeterminedType}
	ErrTooManyStringLiterals  = &Error{Code: CodeTooManyStringLiterals}
	ErrTooManyReturnValues    = &Error{Code: CodeTooManyReturnValues}
	ErrLabelAfterCall         = &Error{Code: CodeLabelAfterCall}
	ErrMalformedStatement     = &Error{Code: CodeMalformedStatement}
	ErrDanglingElse           = &Error{Code: CodeDanglingElse}
	ErrUnknownIdentifier      = &Error{Code: CodeUnknownIdentifier}
	ErrUnknownLabel           = &Error{Code: CodeUnknownLabel}
	ErrTypeMismatch           = &Error{Code: CodeTypeMismatch}
)
