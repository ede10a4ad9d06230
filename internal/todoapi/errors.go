package todoapi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRequestFailed is the single failure kind reported by the client:
// transport errors, non-2xx statuses, unreadable or invalid bodies.
var ErrRequestFailed = errors.New("request failed")

// RequestError describes one failed request. It matches ErrRequestFailed.
type RequestError struct {
	Op     string
	Method string
	URL    string
	Status int // 0 when no response arrived
	Err    error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %s", e.Op, e.Method, e.URL)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) Is(target error) bool { return target == ErrRequestFailed }
