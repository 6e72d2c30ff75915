package concache

import (
	"errors"
	"fmt"
)

var (
	// ErrNilValue is returned when storing a nil pointer, interface, map,
	// channel or func. Absence is reserved to mean "no entry".
	ErrNilValue = errors.New("concache: nil value")

	// ErrInvalidConfig is wrapped by every *ConfigError.
	ErrInvalidConfig = errors.New("concache: invalid config")

	// ErrProducerPanicked is what waiters observe when the goroutine running
	// their key's producer panicked. The key is released and waiters retry,
	// so callers only see it if their context ends first.
	ErrProducerPanicked = errors.New("concache: producer panicked")
)

type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("concache: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// ProducerError reports a ComputeIfAbsent producer failure. It is returned
// only to the caller whose producer ran; the key is left absent.
type ProducerError struct {
	Key any
	Err error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("concache: compute %v: %v", e.Key, e.Err)
}

func (e *ProducerError) Unwrap() error { return e.Err }

// BackendError wraps a storage failure with the operation that hit it.
type BackendError struct {
	Op  string
	Key any
	Err error
}

func (e *BackendError) Error() string {
	if e.Key == nil {
		return fmt.Sprintf("concache: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("concache: %s %v: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
