// Package dberrors defines the typed error kinds used across the engine.
//
// Every error surfaced by the storage or query layers wraps one of these
// four kinds with fmt.Errorf("...: %w", err), so callers can use
// errors.Is / errors.As to branch on category without string matching.
package dberrors

import (
	"errors"
	"fmt"
)

// Kind identifies which of the four taxonomy categories an error belongs to.
type Kind int

const (
	// KindParse covers tokenizer and parser failures: malformed SQL text.
	KindParse Kind = iota
	// KindTable covers table/file-level failures: missing table, duplicate
	// table, corrupted node, I/O failure against the data or metadata file.
	KindTable
	// KindValue covers row-value failures: wrong type, missing mandatory
	// column, value that does not satisfy its column's validator.
	KindValue
	// KindOutOfRange covers indexing failures: a row number, node offset,
	// or slice bound outside what the table/file actually contains.
	KindOutOfRange
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindTable:
		return "TableError"
	case KindValue:
		return "ValueError"
	case KindOutOfRange:
		return "OutOfRangeError"
	default:
		return "UnknownError"
	}
}

// Error is the concrete type wrapped by every sentinel below. Kind lets
// callers branch with errors.As without depending on message text.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Msg
}

// Is reports whether target is the same taxonomy Kind, so errors.Is(err,
// dberrors.ErrParse) works even through wrapping.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// Sentinels to use with errors.Is.
var (
	ErrParse      = &Error{Kind: KindParse, Msg: "parse error"}
	ErrTable      = &Error{Kind: KindTable, Msg: "table error"}
	ErrValue      = &Error{Kind: KindValue, Msg: "value error"}
	ErrOutOfRange = &Error{Kind: KindOutOfRange, Msg: "out of range"}
)

// Parse constructs a parser-taxonomy error with the given message.
func Parse(msg string) error { return &Error{Kind: KindParse, Msg: msg} }

// Table constructs a table-taxonomy error with the given message.
func Table(msg string) error { return &Error{Kind: KindTable, Msg: msg} }

// Value constructs a value-taxonomy error with the given message.
func Value(msg string) error { return &Error{Kind: KindValue, Msg: msg} }

// OutOfRange constructs an out-of-range-taxonomy error with the given message.
func OutOfRange(msg string) error { return &Error{Kind: KindOutOfRange, Msg: msg} }

// wrapped is a taxonomy-Kind error that also unwraps to an underlying
// cause, so errors.Is(err, dberrors.ErrTable) and errors.Is(err, cause)
// both succeed.
type wrapped struct {
	kind  Kind
	op    string
	cause error
}

func (w *wrapped) Error() string { return fmt.Sprintf("%s: %s: %v", w.kind, w.op, w.cause) }
func (w *wrapped) Unwrap() error { return w.cause }
func (w *wrapped) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return w.kind == other.Kind
}

// wrap builds an error reading "Kind: op: cause" that matches the taxonomy
// Kind in errors.Is and unwraps to cause, so errors.Is/errors.As see both.
func wrap(kind Kind, op string, cause error) error {
	return &wrapped{kind: kind, op: op, cause: cause}
}

// TableWrap wraps cause as a TableError, annotated with op.
func TableWrap(op string, cause error) error { return wrap(KindTable, op, cause) }

// ParseWrap wraps cause as a ParseError, annotated with op.
func ParseWrap(op string, cause error) error { return wrap(KindParse, op, cause) }

// ValueWrap wraps cause as a ValueError, annotated with op.
func ValueWrap(op string, cause error) error { return wrap(KindValue, op, cause) }

// OutOfRangeWrap wraps cause as an OutOfRangeError, annotated with op.
func OutOfRangeWrap(op string, cause error) error { return wrap(KindOutOfRange, op, cause) }
