package xmi

import (
	"errors"
	"strconv"
)

// Decoder failure modes (§4.5, §7). DanglingReference is deliberately not an
// error: a reference id that resolves to nothing is silently dropped,
// matching the source behaviour.
var (
	ErrUnknownType     = errors.New("xmi: unknown type")
	ErrUnknownProperty = errors.New("xmi: unknown property")
	ErrMismatchedType  = errors.New("xmi: xsi:type does not match a known type")
)

// ParseError wraps a decode failure with the line/column of the offending
// token, so a single error value can be surfaced to the caller the way the
// source's XML reader does (§7).
type ParseError struct {
	Line, Col int
	Err       error
}

func (e *ParseError) Error() string {
	return e.Err.Error() + ": at line " + strconv.Itoa(e.Line) + ", column " + strconv.Itoa(e.Col)
}

func (e *ParseError) Unwrap() error { return e.Err }
