// Package preprocessor runs the per-file source preprocessing pass:
// block comment removal and #if/#elif/#else/#endif conditional sections.
package preprocessor

import (
	"strings"

	"github.com/zurustar/lemonscript/pkg/compiler/diag"
)

// Preprocessor handles block comments and conditional directives.
// Lines are modified in place and the line count never changes, so line numbers stay valid.
type Preprocessor struct {
	// Definitions are the values visible to #if expressions. Unknown names evaluate to 0.
	Definitions map[string]int64
}

// NewPreprocessor creates a new preprocessor.
func NewPreprocessor(definitions map[string]int64) *Preprocessor {
	if definitions == nil {
		definitions = make(map[string]int64)
	}
	return &Preprocessor{Definitions: definitions}
}

type condition struct {
	line         int
	parentActive bool
	active       bool
	taken        bool // some branch of this #if chain was active already
	seenElse     bool
}

// ProcessLines preprocesses the lines of one file.
// Errors carry the 1-based line number within that file.
func (p *Preprocessor) ProcessLines(lines []string) error {
	if err := stripBlockComments(lines); err != nil {
		return err
	}

	var stack []condition
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}

	for i, line := range lines {
		lineNumber := i + 1
		trimmed := strings.TrimSpace(line)

		if !strings.HasPrefix(trimmed, "#") {
			if !active() {
				lines[i] = ""
			}
			continue
		}
		lines[i] = ""

		directive, rest, _ := strings.Cut(trimmed[1:], " ")
		rest = strings.TrimSpace(rest)

		switch directive {
		case "if":
			parent := active()
			c := condition{line: lineNumber, parentActive: parent}
			if parent {
				value, err := p.evaluate(rest, lineNumber)
				if err != nil {
					return err
				}
				c.active = value != 0
				c.taken = c.active
			}
			stack = append(stack, c)

		case "elif":
			if len(stack) == 0 {
				return diag.New(diag.CodePreprocessor, lineNumber, "#elif without #if")
			}
			c := &stack[len(stack)-1]
			if c.seenElse {
				return diag.New(diag.CodePreprocessor, lineNumber, "#elif after #else")
			}
			c.active = false
			if c.parentActive && !c.taken {
				value, err := p.evaluate(rest, lineNumber)
				if err != nil {
					return err
				}
				c.active = value != 0
				c.taken = c.active
			}

		case "else":
			if len(stack) == 0 {
				return diag.New(diag.CodePreprocessor, lineNumber, "#else without #if")
			}
			c := &stack[len(stack)-1]
			if c.seenElse {
				return diag.New(diag.CodePreprocessor, lineNumber, "Duplicate #else")
			}
			c.seenElse = true
			c.active = c.parentActive && !c.taken
			c.taken = true

		case "endif":
			if len(stack) == 0 {
				return diag.New(diag.CodePreprocessor, lineNumber, "#endif without #if")
			}
			stack = stack[:len(stack)-1]

		default:
			if active() {
				return diag.New(diag.CodePreprocessor, lineNumber, "Unknown preprocessor directive '#%s'", directive)
			}
		}
	}

	if len(stack) > 0 {
		return diag.New(diag.CodePreprocessor, stack[len(stack)-1].line, "Missing #endif")
	}
	return nil
}

// stripBlockComments replaces /* ... */ comments with spaces, across lines if needed.
// Comment markers inside string literals or after // are left alone.
func stripBlockComments(lines []string) error {
	inComment := false
	commentStart := 0

	for i, line := range lines {
		if !inComment && !strings.Contains(line, "/*") {
			continue
		}

		var sb strings.Builder
		inString := false
		for pos := 0; pos < len(line); pos++ {
			ch := line[pos]
			var next byte
			if pos+1 < len(line) {
				next = line[pos+1]
			}

			if inComment {
				if ch == '*' && next == '/' {
					inComment = false
					pos++
				}
				sb.WriteByte(' ')
				continue
			}

			if inString {
				if ch == '\\' && next != 0 {
					sb.WriteByte(ch)
					sb.WriteByte(next)
					pos++
					continue
				}
				if ch == '"' {
					inString = false
				}
				sb.WriteByte(ch)
				continue
			}

			switch {
			case ch == '"':
				inString = true
				sb.WriteByte(ch)
			case ch == '/' && next == '/':
				sb.WriteString(line[pos:])
				pos = len(line)
			case ch == '/' && next == '*':
				inComment = true
				commentStart = i + 1
				sb.WriteString("  ")
				pos++
			default:
				sb.WriteByte(ch)
			}
		}
		lines[i] = sb.String()
	}

	if inComment {
		return diag.New(diag.CodePreprocessor, commentStart, "Unterminated block comment")
	}
	return nil
}
