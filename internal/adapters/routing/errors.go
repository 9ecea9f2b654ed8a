package routing

import "fmt"

// ProviderError marks any geocoding, matrix or directions failure. The
// engine treats these as fatal to the current run and aborts before any
// commit boundary.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("route provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func providerErr(op string, err error) *ProviderError {
	return &ProviderError{Op: op, Err: err}
}
