package chat

import "fmt"

// UpstreamError wraps a failure from the mailbox or the language model.
// Handlers use it to distinguish upstream outages from local errors and
// to respond with a generic retry message instead of the raw cause.
type UpstreamError struct {
	Service string // "gmail" or "model"
	Op      string // the gateway operation that failed
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
