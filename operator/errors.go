package operator

import (
	"errors"
	"fmt"
)

// ConfigError reports a method that cannot be compiled. It is only ever
// returned by Factory.Compile and Factory.Plan, never by Execute.
type ConfigError struct {
	Method string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("compile %s: %s", e.Method, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

var errPagedWithoutPage = errors.New("paged result requires a page.Page parameter")
