package suggest

import (
	"errors"
	"fmt"
)

var (
	// ErrWeightOutOfRange is returned when a weight is negative or exceeds MaxWeight.
	ErrWeightOutOfRange = errors.New("weight out of range")

	// ErrCorruptPayload indicates a completed path whose payload has no separator or a
	// malformed doc id. It means the automaton was built with a different separator.
	ErrCorruptPayload = errors.New("corrupt completion payload")

	// ErrCollectionTerminated is returned by a Collector that has collected enough. The
	// search stops and Lookup reports success.
	ErrCollectionTerminated = errors.New("collection terminated")

	// ErrInvalidRecord is returned when a persisted suggester record cannot be decoded.
	ErrInvalidRecord = errors.New("invalid suggester record")
)

// PayloadError describes where a completed payload failed to decode.
//
// The underlying error is always ErrCorruptPayload and can be matched with errors.Is.
type PayloadError struct {
	Payload []byte
	Reason  string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%v: %s (payload %q)", ErrCorruptPayload, e.Reason, e.Payload)
}

func (e *PayloadError) Unwrap() error { return ErrCorruptPayload }
