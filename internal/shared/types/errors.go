package types

import "errors"

// ErrUnreachable marks a content round trip that got no substantive answer:
// no responder, closed channel or timeout.
var ErrUnreachable = errors.New("content unreachable")
