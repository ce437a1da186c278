package model

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceUnavailable = errors.New("printer unavailable")
	ErrDeviceNotFound    = fmt.Errorf("%w: device not found", ErrDeviceUnavailable)
	ErrDecodeFailure     = errors.New("cannot decode print payload")
	ErrTransport         = errors.New("realtime transport error")
	ErrAuthRejected      = errors.New("status endpoint rejected token")
	ErrMalformedEvent    = errors.New("malformed realtime event")
	ErrAlreadyRunning    = errors.New("realtime client already running")
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API Error %d: %s", e.StatusCode, e.Body)
}
