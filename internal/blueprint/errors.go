package blueprint

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter matches every *InvalidParameterError.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrProcessing matches every *ProcessingFailure.
	ErrProcessing = errors.New("processing failure")
)

// InvalidParameterError reports a request field that failed validation.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is match ErrInvalidParameter.
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// ProcessingFailure reports an error raised while running an accepted job.
type ProcessingFailure struct {
	JobID string
	Cause error
}

func (e *ProcessingFailure) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("processing failed: %v", e.Cause)
	}
	return fmt.Sprintf("job %s: processing failed: %v", e.JobID, e.Cause)
}

func (e *ProcessingFailure) Unwrap() error { return e.Cause }

// Is lets errors.Is match ErrProcessing.
func (e *ProcessingFailure) Is(target error) bool {
	return target == ErrProcessing
}

// PanicError wraps a value recovered from a panic so it can travel as an error.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
