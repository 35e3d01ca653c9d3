package api

import (
	"log/slog"
	"sync"
)

// EntrySymbol is the name of the exported variable every module library
// must provide. It may hold an api.Module value or point to one.
const EntrySymbol = "Module"

// Module is the capability set every extension unit implements.
type Module interface {
	// Name is the procedural name of the module. It is persisted as part of
	// every qualified name the module registers, so changing it breaks
	// existing saves. Only [A-Za-z0-9_|] are allowed.
	Name() string
	// Version is informational; no ordering or compatibility is derived from it.
	Version() string

	// HasClient reports whether the module takes part in ClientInit.
	HasClient() bool
	// HasServer reports whether the module may be loaded by a server-only host.
	HasServer() bool

	OnPreInit(ctx *PreInitContext) error
	OnInit(ctx *InitContext) error
	OnClientInit(ctx *ClientInitContext) error
}

// LoggerSetter is implemented by modules that want to keep the logger the
// host assigns to them at load time.
type LoggerSetter interface {
	SetLogger(logger *slog.Logger)
}

// Base provides the default behaviour for every optional part of Module.
// Embed it and implement Name and Version.
type Base struct {
	mu     sync.RWMutex
	logger *slog.Logger
}

// HasClient returns true.
func (b *Base) HasClient() bool { return true }

// HasServer returns true.
func (b *Base) HasServer() bool { return true }

// OnPreInit does nothing.
func (b *Base) OnPreInit(*PreInitContext) error { return nil }

// OnInit does nothing.
func (b *Base) OnInit(*InitContext) error { return nil }

// OnClientInit does nothing.
func (b *Base) OnClientInit(*ClientInitContext) error { return nil }

// SetLogger stores the module's dedicated logger. The host calls it once
// the module has been accepted.
func (b *Base) SetLogger(logger *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
}

// Logger returns the module's dedicated logger, or slog.Default if the module
// has not been loaded by a host yet.
func (b *Base) Logger() *slog.Logger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.logger == nil {
		return slog.Default()
	}
	return b.logger
}

// ValidName reports whether name is a legal module name: non-empty and made
// only of ASCII letters, digits, '_' and '|'.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '|':
		default:
			return false
		}
	}
	return true
}
