package event

import "errors"

var (
	ErrUnknownType      = errors.New("unknown event type")
	ErrAbstractType     = errors.New("event type is abstract")
	ErrStatusRegression = errors.New("event status cannot move backwards")
)
