package hafas

import (
	"errors"
	"fmt"
)

var (
	ErrProtocolVersionMismatch = errors.New("protocol version mismatch")
	// ErrMalformedResponse covers structural violations: short reads, pointers
	// past table bounds, unexpected elements and invalid numeric fields.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrSessionExpired means the continuation tokens are no longer usable and
	// the search has to be restarted from scratch.
	ErrSessionExpired = errors.New("session expired")
)

// ProtocolError is a backend status code missing from the known catalogue.
type ProtocolError struct {
	Code string
	Text string
}

func (e *ProtocolError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("unknown backend status %s: %s", e.Code, e.Text)
	}
	return fmt.Sprintf("unknown backend status %s", e.Code)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// wrapMalformed tags low level read errors so callers can match them as
// ErrMalformedResponse while keeping the original cause.
func wrapMalformed(context string, err error) error {
	if err == nil || errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrProtocolVersionMismatch) {
		return err
	}
	var protocolErr *ProtocolError
	if errors.As(err, &protocolErr) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrMalformedResponse, context, err)
}
