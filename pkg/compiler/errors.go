package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/source"
)

// ErrorMessage is a compile failure as reported to the user.
// It refers to the original source file, not to the flattened line sequence.
type ErrorMessage struct {
	// Code classifies the failure.
	Code diag.Code

	// Message is the human-readable error description.
	Message string

	// Filename is the path of the script file the error was found in.
	Filename string

	// LineNumber is the 1-indexed line within Filename, or 0 if the error has no line.
	LineNumber int

	// Context contains the source lines around the error location,
	// 2 lines before and after the error line.
	Context string
}

// Error implements the error interface.
func (e *ErrorMessage) Error() string {
	if e.LineNumber > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Filename, e.LineNumber, e.Message)
	}
	if e.Filename != "" {
		return fmt.Sprintf("%s: %s", e.Filename, e.Message)
	}
	return e.Message
}

// Is matches diag sentinels such as diag.ErrDanglingElse by code.
func (e *ErrorMessage) Is(target error) bool {
	t, ok := target.(*diag.Error)
	return ok && t.Code == e.Code
}

// newLoadErrorMessage converts a failure of the include loader. Those already carry
// file-local line numbers.
func (c *Compiler) newLoadErrorMessage(path string, err error) ErrorMessage {
	msg := ErrorMessage{Code: diag.CodeUnknown, Message: err.Error(), Filename: path}

	var fe *source.FileError
	var de *diag.Error
	switch {
	case errors.As(err, &fe):
		msg.Code = fe.Err.Code
		msg.Message = fe.Err.Message
		msg.Filename = fe.Filename
		msg.LineNumber = fe.Line
	case errors.As(err, &de):
		msg.Code = de.Code
		msg.Message = de.Message
	}
	msg.Context = GenerateErrorContext(c.fileLines(msg.Filename), msg.LineNumber)
	return msg
}

// newCompileErrorMessage converts a failure carrying a flattened line number.
func (c *Compiler) newCompileErrorMessage(err error) ErrorMessage {
	msg := ErrorMessage{Code: diag.CodeUnknown, Message: err.Error()}

	var de *diag.Error
	if !errors.As(err, &de) {
		return msg
	}
	msg.Code = de.Code
	msg.Message = de.Message
	if de.Line > 0 && c.translation != nil {
		filename, lineInFile := c.translation.Translate(de.Line)
		msg.Filename = filename
		msg.LineNumber = lineInFile + 1
		msg.Context = GenerateErrorContext(c.fileLines(filename), msg.LineNumber)
	}
	return msg
}

func (c *Compiler) fileLines(path string) []string {
	for _, f := range c.scriptFiles {
		if f.Path() == path {
			return f.Lines
		}
	}
	return nil
}

// GenerateErrorContext generates source code context around an error location.
// It includes 2 lines before and 2 lines after the error line, with line numbers,
// and marks the error line with ">".
//
// Parameters:
//   - lines: The lines of the source file
//   - line: The 1-indexed line number of the error
//
// Returns:
//   - string: Formatted context, empty if line is outside of lines
//
// Example output:
//
//	  2 | u8 x = 5
//	  3 | u8 y = 10
//	> 4 | u8 z = ?
//	  5 | u8 w = 20
//	  6 | u8 v = 30
func GenerateErrorContext(lines []string, line int) string {
	if line <= 0 || line > len(lines) {
		return ""
	}

	start := max(line-3, 0)
	end := min(line+2, len(lines))
	width := len(fmt.Sprintf("%d", end))

	var buf strings.Builder
	for i := start; i < end; i++ {
		marker := " "
		if i+1 == line {
			marker = ">"
		}
		fmt.Fprintf(&buf, "%s %*d | %s\n", marker, width, i+1, lines[i])
	}
	return buf.String()
}

// atLine attaches a flattened line number to an error that was created without one.
func atLine(err error, line int) error {
	var de *diag.Error
	if errors.As(err, &de) && de.Line == 0 {
		located := *de
		located.Line = line
		return &located
	}
	return err
}
