package errors

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest    = errors.New("bad request")
	ErrMisconfigured = errors.New("misconfigured")
	ErrUpstream      = errors.New("upstream failure")
	ErrNotFound      = errors.New("not found")
	ErrInternal      = errors.New("internal")
)

// ProviderError carries a non-success completion-provider response. It is the
// only upstream failure that surfaces to the caller, status and body intact.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Body)
}

func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

func IsMisconfigured(err error) bool {
	return errors.Is(err, ErrMisconfigured)
}
