package domain

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUsage
	KindConfiguration
	KindSubmission
	KindPoll
	KindTimeout
	KindStaple
)

func (k ErrorKind) String() string {
	switch k {
	case KindUsage:
		return "usage error"
	case KindConfiguration:
		return "configuration error"
	case KindSubmission:
		return "submission error"
	case KindPoll:
		return "poll error"
	case KindTimeout:
		return "timeout"
	case KindStaple:
		return "staple error"
	default:
		return "error"
	}
}

// ExitCode is the process status for a failure of this kind.
func (k ErrorKind) ExitCode() int {
	switch k {
	case KindUsage:
		return 2
	case KindConfiguration:
		return 3
	case KindSubmission:
		return 4
	case KindPoll:
		return 5
	case KindTimeout:
		return 6
	case KindStaple:
		return 7
	default:
		return 1
	}
}

// Error is a classified, terminal failure of one invocation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

var (
	ErrUsage         = &Error{Kind: KindUsage}
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrSubmission    = &Error{Kind: KindSubmission}
	ErrPoll          = &Error{Kind: KindPoll}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrStaple        = &Error{Kind: KindStaple}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrTimeout) works
// regardless of Op and cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

func newError(k ErrorKind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

func UsageError(op string, err error) error         { return newError(KindUsage, op, err) }
func ConfigurationError(op string, err error) error { return newError(KindConfiguration, op, err) }
func SubmissionError(op string, err error) error    { return newError(KindSubmission, op, err) }
func PollError(op string, err error) error          { return newError(KindPoll, op, err) }
func TimeoutError(op string, err error) error       { return newError(KindTimeout, op, err) }
func StapleError(op string, err error) error        { return newError(KindStaple, op, err) }

func Errorf(k ErrorKind, op, format string, args ...any) error {
	return newError(k, op, fmt.Errorf(format, args...))
}

func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).ExitCode()
}
