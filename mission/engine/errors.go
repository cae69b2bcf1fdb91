package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies mission failures
type ErrorKind int

const (
	// InvalidBounds: plateau declared with a negative coordinate. Fatal to the run.
	InvalidBounds ErrorKind = iota + 1
	// InvalidHeading: rover facing is not one of N, E, S, W.
	InvalidHeading
	// InvalidCommand: command string holds a character outside L, R, M.
	InvalidCommand
	// InvalidPlacement: initial position out of bounds or occupied. The rover is skipped.
	InvalidPlacement
)

var kindNames = map[ErrorKind]string{
	InvalidBounds:    "invalid_bounds",
	InvalidHeading:   "invalid_heading",
	InvalidCommand:   "invalid_command",
	InvalidPlacement: "invalid_placement",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("error_kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *ErrorKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", text)
}

// Error carries an ErrorKind and a human-readable message
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidBounds    = &Error{Kind: InvalidBounds}
	ErrInvalidHeading   = &Error{Kind: InvalidHeading}
	ErrInvalidCommand   = &Error{Kind: InvalidCommand}
	ErrInvalidPlacement = &Error{Kind: InvalidPlacement}
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the ErrorKind of err, or 0 when err is not a mission error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
