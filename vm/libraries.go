package vm

import (
	"context"
	"errors"
	"fmt"
)

// Libraries is the host's collection of standard library implementations.
// The engine calls it for every library method call and property access.
type Libraries interface {
	// SetEventCallbacks installs the function libraries call to raise an
	// event. Calls must be serialized with Execute by the host.
	SetEventCallbacks(raise func(library, event string))

	InvokeMethod(ctx context.Context, library, method string, args []Value) (Value, error)
	GetProperty(ctx context.Context, library, property string) (Value, error)
	SetProperty(ctx context.Context, library, property string, value Value) error
}

// ErrProgramEnded is returned by a library call that ends the program. The
// engine terminates without reporting an error.
var ErrProgramEnded = errors.New("program ended")

// LibraryError is a failed library call attributed to its source line.
type LibraryError struct {
	Library string
	Member  string
	Range   SourceRange
	Err     error
}

func (e *LibraryError) Error() string {
	return fmt.Sprintf("line %d: %s.%s: %v", e.Range.Line+1, e.Library, e.Member, e.Err)
}

func (e *LibraryError) Unwrap() error { return e.Err }
