package diag

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIs(t *testing.T) {
	err := New(CodeDanglingElse, 12, "Else in wrong location")

	if !errors.Is(err, ErrDanglingElse) {
		t.Error("expected errors.Is to match the sentinel with the same code")
	}
	if errors.Is(err, ErrUnclosedBlock) {
		t.Error("errors.Is must not match a sentinel with another code")
	}

	wrapped := fmt.Errorf("compiling: %w", err)
	if !errors.Is(wrapped, ErrDanglingElse) {
		t.Error("expected errors.Is to see through wrapping")
	}

	var de *Error
	if !errors.As(wrapped, &de) || de.Line != 12 {
		t.Errorf("errors.As failed or wrong line: %+v", de)
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(CodeUnknownIdentifier, 3, "Unknown identifier '%s'", "foo")
	if got, want := err.Error(), "line 3: Unknown identifier 'foo'"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	noLine := New(CodeFileNotFound, 0, "missing")
	if got := noLine.Error(); got != "missing" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCodeKinds(t *testing.T) {
	tests := []struct {
		code Code
		kind Kind
	}{
		{CodeFileNotFound, KindFileLoad},
		{CodeRecursionLimit, KindIncludeCycle},
		{CodeUnbalancedBlocks, KindSyntaxStructure},
		{CodeDuplicateParameterName, KindSymbol},
		{CodeUnknownIdentifier, KindSymbol},
		{CodeTooManyStringLiterals, KindTooMany},
		{CodeDanglingElse, KindControlFlow},
		{CodeTypeMismatch, KindType},
	}
	for _, tt := range tests {
		if got := tt.code.Kind(); got != tt.kind {
			t.Errorf("%v.Kind() = %v, want %v", tt.code, got, tt.kind)
		}
	}
	if CodeTypeMismatch.String() != "TypeMismatch" {
		t.Errorf("String() = %q", CodeTypeMismatch.String())
	}
}
