package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrLegNotConnected is returned when a conversion (revenue) override is
	// rejected because the target leg was never bridged to an agent. The sync
	// engine downgrades this specific rejection to a partial success.
	ErrLegNotConnected = errors.New("leg not connected")

	ErrUnauthorized = errors.New("platform rejected credentials")
)

// APIError is a non-2xx platform response, carrying the raw body for the
// audit trail.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Raw        string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("platform api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("platform api error %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known platform error codes onto sentinel errors so
// callers can branch with errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "leg_not_connected":
		return ErrLegNotConnected
	case "unauthorized":
		return ErrUnauthorized
	}
	return nil
}
