// Package armadaerrors contains the generic errors returned by the jobbuffer command and its components.
// The command's entrypoint looks for the error types defined in this file and sets the process exit code
// accordingly, see ExitCodeFromError.
//
// If multiple errors occur in some function (e.g., tearing down several resources), that
// function should return an error of type multierror.Error from package
// github.com/hashicorp/go-multierror that encapsulates those individual errors.
package armadaerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Process exit codes.
const (
	ExitCodeSuccess          = 0
	ExitCodeUnknown          = 1
	ExitCodeArgumentCount    = 2
	ExitCodeInvalidArgument  = 3
	ExitCodeResourceCreation = 4
)

// ErrArgumentCount is returned when a command is invoked with the wrong number of positional arguments.
type ErrArgumentCount struct {
	Expected int
	Actual   int
}

func (err *ErrArgumentCount) Error() string {
	return fmt.Sprintf("incorrect number of arguments: expected %d but got %d", err.Expected, err.Actual)
}

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "bufferSize"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message, e.g., explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %q is invalid for field %q", fmt.Sprint(err.Value), err.Name)
	} else {
		return fmt.Sprintf("value %q is invalid for field %q; %s", fmt.Sprint(err.Value), err.Name, err.Message)
	}
}

// ErrResourceCreation is returned when a resource the system depends on (e.g. the semaphore set) could not be
// created or initialised. Message and Err are optional.
type ErrResourceCreation struct {
	Resource string // Resource that could not be created, e.g., "semaphore set"
	Message  string // An optional message with a human-readable diagnosis
	Err      error  // The underlying error, if any
}

func (err *ErrResourceCreation) Error() (s string) {
	s = fmt.Sprintf("failed to create %s", err.Resource)
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	if err.Err != nil {
		s = s + fmt.Sprintf(": %s", err.Err)
	}
	return
}

func (err *ErrResourceCreation) Unwrap() error {
	return err.Err
}

// ExitCodeFromError maps error types to process exit codes.
// Uses errors.As to look through the chain of errors, as opposed to just considering the topmost error in the chain.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	// Using {} scopes just to re-use the "e" variable name for each case.
	{
		var e *ErrArgumentCount
		if errors.As(err, &e) {
			return ExitCodeArgumentCount
		}
	}
	{
		var e *ErrInvalidArgument
		if errors.As(err, &e) {
			return ExitCodeInvalidArgument
		}
	}
	{
		var e *ErrResourceCreation
		if errors.As(err, &e) {
			return ExitCodeResourceCreation
		}
	}

	return ExitCodeUnknown
}
