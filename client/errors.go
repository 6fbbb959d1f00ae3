package client

import "errors"

// TransportError indicates the request never produced a usable
// response: connection refused, timeout, or a truncated body. The
// reconciler treats these as transient and keeps its local state.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + " " + e.URL + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is a transport failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
