package httperror

import (
	"errors"
	"fmt"
	"net"
)

// Condition is a fixed HTTP error outcome: a status code paired with its
// reason phrase. Conditions are returned as error values from the parse and
// resolve steps and mapped to wire responses at the connection handler.
type Condition struct {
	Code   int
	Reason string
}

// The full error taxonomy of the server. Immutable; compare by identity or
// with errors.Is.
var (
	BadRequest       = &Condition{Code: 400, Reason: "Bad Request"}
	NotFound         = &Condition{Code: 404, Reason: "Not Found"}
	MethodNotAllowed = &Condition{Code: 405, Reason: "Method Not Allowed"}
	RequestTimeout = &Condition{Code: 408, Reason: "Request Timeout"}
	Internal       = &Condition{Code: 500, Reason: "Internal Server Error"}
)

// Error implements the error interface.
func (c *Condition) Error() string {
	return fmt.Sprintf("%d %s", c.Code, c.Reason)
}

// FromError maps an arbitrary failure to a Condition. A Condition passes
// through unchanged, timeouts on socket reads and writes map to
// RequestTimeout, and everything else maps to Internal.
func FromError(err error) *Condition {
	var cond *Condition
	if errors.As(err, &cond) {
		return cond
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return RequestTimeout
	}
	return Internal
}
