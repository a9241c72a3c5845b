package ocpi

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRegistered  = errors.New("ocpi: partner already registered")
	ErrNotRegistered      = errors.New("ocpi: partner not registered")
	ErrVersionMismatch    = errors.New("ocpi: requested version differs from committed version")
	ErrNoMatchingVersion  = errors.New("ocpi: remote offers no matching version")
	ErrNotFound           = errors.New("ocpi: not found")
	ErrMissingField       = errors.New("ocpi: missing required field")
	ErrDuplicateEndpoint  = errors.New("ocpi: duplicate endpoint for module")
	ErrMissingLocationRef = errors.New("ocpi: response lacks created-resource location")
)

// TransportError wraps any failure of an outbound call to a partner,
// including timeouts and non-2xx statuses.
type TransportError struct {
	Partner string
	URL     string
	Status  int
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("ocpi: transport failure calling %s (%s): status %d", e.Partner, e.URL, e.Status)
	}
	return fmt.Sprintf("ocpi: transport failure calling %s (%s): %v", e.Partner, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
