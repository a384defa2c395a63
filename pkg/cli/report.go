package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/zurustar/lemonscript/pkg/app"
	"github.com/zurustar/lemonscript/pkg/compiler"
)

type styles struct {
	location *color.Color
	label    *color.Color
	code     *color.Color
	marker   *color.Color
	ok       *color.Color
}

func newStyles() styles {
	return styles{
		location: color.New(color.Bold),
		label:    color.New(color.Bold, color.FgRed),
		code:     color.New(color.FgYellow),
		marker:   color.New(color.FgHiRed),
		ok:       color.New(color.Bold, color.FgGreen),
	}
}

// printDiagnostics writes errors as "file:line: error: message [Code]" followed by the
// source context.
func printDiagnostics(w io.Writer, errs []compiler.ErrorMessage) {
	s := newStyles()
	for _, e := range errs {
		location := e.Filename
		if e.LineNumber > 0 {
			location = fmt.Sprintf("%s:%d", e.Filename, e.LineNumber)
		}
		s.location.Fprint(w, location+":")
		s.label.Fprint(w, " error: ")
		fmt.Fprint(w, e.Message)
		s.code.Fprintf(w, " [%s]\n", e.Code)

		for _, line := range strings.SplitAfter(e.Context, "\n") {
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, ">") {
				s.marker.Fprint(w, line)
			} else {
				fmt.Fprint(w, line)
			}
		}
	}
}

func printSummary(w io.Writer, result *app.Result) {
	s := newStyles()
	s.ok.Fprint(w, "ok")
	fmt.Fprintf(w, " %s: %d functions, %d globals, %d string literals from %d files (%s)\n",
		result.Module.Name,
		len(result.Module.ScriptFunctions()),
		len(result.Module.Globals()),
		len(result.Module.StringLiterals()),
		len(result.Files),
		result.Duration.Round(time.Millisecond))
}
