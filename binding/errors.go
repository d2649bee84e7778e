package binding

import "fmt"

// Error reports a placeholder or argument that cannot be bound for one call.
type Error struct {
	Ref    string // placeholder reference, e.g. "user.id" or "2"
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := "binding"
	if e.Ref != "" {
		msg += " :" + e.Ref
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func errorf(ref, format string, args ...any) *Error {
	return &Error{Ref: ref, Reason: fmt.Sprintf(format, args...)}
}
