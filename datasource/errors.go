package datasource

import "fmt"

// RoutingError reports a statement that cannot be routed to a store or,
// when Table is set, to a physical table.
type RoutingError struct {
	Owner  string
	Class  Class
	Group  string
	Table  string
	Reason string
	Err    error
}

func (e *RoutingError) Error() string {
	var msg string
	if e.Table != "" {
		msg = fmt.Sprintf("route %s table %s", e.Owner, e.Table)
	} else {
		msg = fmt.Sprintf("route %s (%s)", e.Owner, e.Class)
	}
	if e.Group != "" {
		msg += " to group " + e.Group
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RoutingError) Unwrap() error { return e.Err }
