package chain

import "errors"

var (
	// ErrTxNotFound is returned when the backend does not know the
	// requested transaction.
	ErrTxNotFound = errors.New("transaction not found")

	// ErrBroadcastRejected is returned when the backend refuses a
	// transaction. The backend's message is wrapped with it.
	ErrBroadcastRejected = errors.New("broadcast rejected")

	// ErrUnexpectedStatus is returned for any other non-success response
	// of the backend.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrMalformedResponse is returned when a response body cannot be
	// decoded.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnknownFeeTier is returned when a fee tier name cannot be parsed.
	ErrUnknownFeeTier = errors.New("unknown fee tier")
)
