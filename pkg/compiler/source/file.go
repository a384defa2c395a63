// Package source loads lemonscript files, resolves includes and keeps the
// table that maps flattened line numbers back to the files they came from.
package source

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ScriptFile is one loaded source file.
type ScriptFile struct {
	BasePath  string // directory, empty or ending with "/"
	Filename  string
	Content   string
	Lines     []string // lines as read, before preprocessing
	FirstLine int      // flattened line number of the first line taken from this file
}

// Path returns BasePath + Filename.
func (f *ScriptFile) Path() string {
	return f.BasePath + f.Filename
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeContent converts raw file bytes to UTF-8.
// UTF-8 input (with or without BOM) is kept, anything else is decoded with legacy.
func decodeContent(data []byte, legacy encoding.Encoding) (string, error) {
	var decoder *encoding.Decoder
	switch {
	case bytes.HasPrefix(data, utf8BOM) || utf8.Valid(data):
		decoder = unicode.UTF8BOM.NewDecoder()
	case legacy != nil:
		decoder = legacy.NewDecoder()
	default:
		decoder = charmap.Windows1252.NewDecoder()
	}
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", fmt.Errorf("failed to decode content: %w", err)
	}
	return string(out), nil
}

// splitLines splits on "\r\n", "\n" or "\r". A trailing line break does not start another line.
func splitLines(content string) []string {
	var lines []string
	for len(content) > 0 {
		i := strings.IndexAny(content, "\r\n")
		if i < 0 {
			lines = append(lines, content)
			break
		}
		lines = append(lines, content[:i])
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			i++
		}
		content = content[i+1:]
	}
	return lines
}
