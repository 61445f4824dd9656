package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies failures raised by the analysis exchange model.
type Kind int

const (
	KindUnknown     Kind = iota
	InvalidArgument      // negative counts, inconsistent dimensions, unsupported mutation
	IndexOutOfRange      // constraint or penalty slot outside the valid range
	InvalidState         // query issued before the required quantity was calculated
	ParseFailure         // malformed textual protocol input
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case IndexOutOfRange:
		return "index out of range"
	case InvalidState:
		return "invalid state"
	case ParseFailure:
		return "parse failure"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks. An *Error matches the sentinel of its Kind.
var (
	ErrInvalidArgument = &Error{Kind: InvalidArgument}
	ErrIndexOutOfRange = &Error{Kind: IndexOutOfRange}
	ErrInvalidState    = &Error{Kind: InvalidState}
	ErrParseFailure    = &Error{Kind: ParseFailure}
)

// ErrNullArgument is found in the chain of a ParseFailure caused by missing input.
var ErrNullArgument = errors.New("null argument")

// Error is a typed failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around err.
func Wrap(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
