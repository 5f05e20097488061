package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError is an error built from a recovered panic. Candidate fitting runs
// inside SafeExecute so a panicking estimator fails its own grid cell instead
// of the whole training job.
type PanicError struct {
	// PanicValue is the value passed to panic().
	PanicValue interface{}

	// StackTrace is the goroutine stack at recovery time.
	StackTrace string

	// Operation identifies where the panic was recovered.
	Operation string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// String includes the stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a PanicError capturing the current stack.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error assigned to *err. Use with defer:
//
//	func (g *GridSearchCV) evaluate() (err error) {
//	    defer errors.Recover(&err, "GridSearchCV.evaluate")
//	    ...
//	}
//
// An error already stored in *err is kept in the chain.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		panicErr := NewPanicError(operation, r)
		if *err != nil {
			*err = Wrapf(*err, "%s (original error)", panicErr.Error())
			return
		}
		*err = panicErr
	}
}

// SafeExecute runs fn and converts a panic into a *PanicError.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
