package outbox

import "errors"

var (
	ErrNotFound      = errors.New("event not found")
	ErrSerialization = errors.New("event could not be serialized")
	ErrUndecodable   = errors.New("stored event could not be reconstructed")
	ErrStaleWrite    = errors.New("stored event is already processed")
	ErrNoTransaction = errors.New("no active transaction")
)
