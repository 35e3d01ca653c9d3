package loader

import (
	"errors"
	"log/slog"
	"time"

	"github.com/vk/fabrica/pkg/api"
)

// Record is a loaded module and what the host knows about it. Records are
// immutable once created.
type Record struct {
	module      api.Module
	name        string
	version     string
	basePath    string
	order       int
	libraryPath string
	config      api.Config
	logger      *slog.Logger
	// library keeps the owning library referenced for as long as the module
	// can be called.
	library Library
}

// Module returns the module.
func (r *Record) Module() api.Module { return r.module }

// Name returns the module name captured at load time.
func (r *Record) Name() string { return r.name }

// Version returns the module version captured at load time.
func (r *Record) Version() string { return r.version }

// BasePath is the directory the module's resources are resolved against.
func (r *Record) BasePath() string { return r.basePath }

// Order is the position of the module in load order. The built-in module is 0.
func (r *Record) Order() int { return r.order }

// LibraryPath is the file the module was loaded from, or "" for the
// built-in module.
func (r *Record) LibraryPath() string { return r.libraryPath }

// Builtin reports whether the record is the host's built-in module.
func (r *Record) Builtin() bool { return r.libraryPath == "" }

// Config is the module's configuration.
func (r *Record) Config() api.Config { return r.config }

// Logger is the module's dedicated logger.
func (r *Record) Logger() *slog.Logger { return r.logger }

// HookResult is the outcome of one module's hook during a stage.
type HookResult struct {
	Module  string
	Skipped bool
	Elapsed time.Duration
	Err     error
}

// StageReport collects the hook results of one stage in load order.
type StageReport struct {
	Stage   api.Stage
	Results []HookResult
}

// Failed returns the results whose hook returned an error or panicked.
func (r *StageReport) Failed() []HookResult {
	var out []HookResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins the errors of every failed hook, or returns nil.
func (r *StageReport) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}
