package webpush

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrKeyDecoding matches every *KeyError.
	ErrKeyDecoding = errors.New("webpush: key decoding failed")

	ErrMissingEndpoint = errors.New("webpush: endpoint is required")
	ErrMissingKeys     = errors.New("webpush: payload requires a public key and auth secret")
	ErrInvalidUrgency  = errors.New("webpush: invalid urgency")
	ErrInvalidEndpoint = errors.New("webpush: endpoint is not an absolute URL")
)

// KeyError reports a client key that could not be decoded.
type KeyError struct {
	Field string // "p256dh" or "auth"
	Err   error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("webpush: decode %s: %v", e.Field, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

func (e *KeyError) Is(target error) bool { return target == ErrKeyDecoding }

// EndpointError reports an endpoint that cannot be parsed as an absolute URL.
type EndpointError struct {
	Endpoint string
	Err      error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("webpush: endpoint %q: %v", e.Endpoint, e.Err)
}

func (e *EndpointError) Unwrap() error { return e.Err }

func (e *EndpointError) Is(target error) bool { return target == ErrInvalidEndpoint }
