// Package geoerr defines the closed error taxonomy shared by the rtree and
// kdtree packages. Construction and parse errors are surfaced as values of
// this type; queries never return an error once a buffer has parsed.
package geoerr

import "fmt"

// Code is a closed set of error kinds. New codes are never added silently:
// callers may safely switch over every value defined here.
type Code int

const (
	// BadNodeSize means node_size fell outside [2, 65535].
	BadNodeSize Code = iota
	// TooManyItems means Add was called more times than the declared count.
	TooManyItems
	// NotEnoughItems means Finish was called before the declared count was reached.
	NotEnoughItems
	// BadBuffer means a buffer failed to parse: too short, bad magic, bad
	// version, bad coordinate tag, or a size mismatch.
	BadBuffer
	// InvalidCoordinate means a NaN or unrepresentable value was supplied at build time.
	InvalidCoordinate
	// LevelOutOfRange means boxes_at_level/indices_at_level was called with level >= L.
	LevelOutOfRange
	// TypeMismatch means a query or parse used a coordinate width the index was not built with.
	TypeMismatch
)

func (c Code) String() string {
	switch c {
	case BadNodeSize:
		return "bad_node_size"
	case TooManyItems:
		return "too_many_items"
	case NotEnoughItems:
		return "not_enough_items"
	case BadBuffer:
		return "bad_buffer"
	case InvalidCoordinate:
		return "invalid_coordinate"
	case LevelOutOfRange:
		return "level_out_of_range"
	case TypeMismatch:
		return "type_mismatch"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by this module's constructors
// and parsers.
type Error struct {
	Code   Code
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// Is supports errors.Is comparisons between two *Error values that share a
// Code, e.g. errors.Is(err, &geoerr.Error{Code: geoerr.BadBuffer}). A bare
// Code is not an error and cannot be passed to errors.Is; compare the Code
// field of an *Error instead.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// New builds an *Error with the given code and a formatted reason.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}
