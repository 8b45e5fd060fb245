package notify

import (
	"errors"
	"fmt"
)

var (
	ErrAuth     = errors.New("smtp authentication failed")
	ErrProtocol = errors.New("smtp protocol error")
	ErrConnect  = errors.New("smtp connection failed")
)

// DeliveryError is returned for every failed send. Kind is one of ErrAuth,
// ErrProtocol or ErrConnect and matches with errors.Is.
type DeliveryError struct {
	Kind error
	Op   string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func deliveryError(kind error, op string, err error) *DeliveryError {
	return &DeliveryError{Kind: kind, Op: op, Err: err}
}
