package markup

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the three failure classes of a conversion run.
var (
	// ErrConfig indicates a bad delimiter selector or a heading list that does
	// not agree with the markup.
	ErrConfig = errors.New("configuration error")
	// ErrUnterminated indicates an opener that is never closed.
	ErrUnterminated = errors.New("unterminated tag")
	// ErrUnmatchedCloser indicates a closer with no open tag.
	ErrUnmatchedCloser = errors.New("unmatched closing tag")
	// ErrMismatchedCloser indicates a closer that does not close the most
	// recently opened tag.
	ErrMismatchedCloser = errors.New("mismatched closing tag")
	// ErrInvariant indicates broken offset arithmetic.
	ErrInvariant = errors.New("internal invariant violated")
)

// MarkupError reports malformed markup at a position in the raw text.
type MarkupError struct {
	Err      error  // One of ErrUnterminated, ErrUnmatchedCloser, ErrMismatchedCloser
	Literal  string // The offending opener or closer
	Expected string // Closer that was expected instead (mismatch only)
	Pos      int    // Byte position in the raw text
	Line     int    // 1-based line of Pos
	Near     string // Raw text following Pos
}

func (e *MarkupError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %q at line %d (byte %d)", e.Err, e.Literal, e.Line, e.Pos)
	if e.Expected != "" {
		fmt.Fprintf(&b, ", expected %q", e.Expected)
	}
	if e.Near != "" {
		fmt.Fprintf(&b, " near %q", e.Near)
	}
	return b.String()
}

func (e *MarkupError) Unwrap() error {
	return e.Err
}

// ConfigError reports a configuration problem.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", ErrConfig, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", ErrConfig, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// InvariantError reports an internal consistency failure.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvariant, e.Message)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

const nearLen = 30

func markupError(err error, raw, literal string, pos int) *MarkupError {
	end := min(pos+nearLen, len(raw))
	return &MarkupError{
		Err:     err,
		Literal: literal,
		Pos:     pos,
		Line:    lineAt(raw, pos),
		Near:    strings.ToValidUTF8(raw[pos:end], ""),
	}
}

func lineAt(raw string, pos int) int {
	return strings.Count(raw[:pos], "\n") + 1
}
