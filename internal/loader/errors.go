package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrOpen wraps failures of the library opener.
	ErrOpen = errors.New("cannot open module library")
	// ErrMissingSymbol is returned when a library does not export the entry symbol.
	ErrMissingSymbol = errors.New("module entry symbol not found")
	// ErrNotModule is returned when the entry symbol does not hold an api.Module.
	ErrNotModule = errors.New("entry symbol is not a module")
	// ErrLoadPanic wraps a panic raised while loading or inspecting a module.
	ErrLoadPanic = errors.New("module panicked while loading")
	// ErrInvalidName is returned for module names outside [A-Za-z0-9_|]+.
	ErrInvalidName = errors.New("illegal module name")
	// ErrDuplicateModule is returned when a name is already taken by a loaded module.
	ErrDuplicateModule = errors.New("module name already loaded")
	// ErrServerUnsupported is returned when a server-only host loads a client-only module.
	ErrServerUnsupported = errors.New("module does not support server-only hosts")

	// ErrAlreadyDiscovered is returned by a second call to Discover.
	ErrAlreadyDiscovered = errors.New("modules already discovered")
	// ErrStageOrder is returned when a phase runs out of order.
	ErrStageOrder = errors.New("stage out of order")
	// ErrClientStageDisabled is returned for ClientInit on a server-only host.
	ErrClientStageDisabled = errors.New("client stage disabled on server-only host")
	// ErrHookPanic wraps a panic raised by a stage hook.
	ErrHookPanic = errors.New("stage hook panicked")
)

// LoadError describes a candidate library that was not loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
