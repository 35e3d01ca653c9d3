// Package loader discovers module libraries, loads their entry points and
// drives the staged initialization protocol.
//
// A Host is used in a fixed order: Discover, Load, then RunStage for PreInit,
// Init and ClientInit. Every phase runs synchronously on the caller's
// goroutine. Failures of individual modules are logged and reported but
// never stop the host.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/vk/fabrica/internal/config"
	"github.com/vk/fabrica/internal/ctxlog"
	"github.com/vk/fabrica/internal/fsutil"
	"github.com/vk/fabrica/internal/resolver"
	"github.com/vk/fabrica/pkg/api"
)

// Options configures a Host. Zero values select the defaults.
type Options struct {
	// Opener opens module libraries. Defaults to PluginOpener.
	Opener Opener
	// LibraryExt is the extension of module libraries. Defaults to
	// DefaultLibraryExt.
	LibraryExt string
	// ServerOnly hosts reject modules without server support and never run
	// ClientInit.
	ServerOnly bool
	// ConfigLoader reads per-module configuration. Without one every module
	// gets an empty configuration.
	ConfigLoader config.ModuleLoader
}

// Host owns the module records of one application instance.
type Host struct {
	core    api.Module
	content api.ContentRegistrar
	render  api.RenderRegistrar
	opts    Options

	mu         sync.RWMutex
	records    []*Record
	candidates []string
	corePath   string
	configPath string
	discovered bool
	loaded     bool
	stagesRun  int

	resolver *resolver.Resolver
}

var _ resolver.Table = (*Host)(nil)

// New creates a Host around the built-in module core. Contributions made
// during Init go to content and those made during ClientInit go to render,
// which may be nil on a server-only host.
func New(core api.Module, content api.ContentRegistrar, render api.RenderRegistrar, opts Options) *Host {
	if core == nil {
		panic("loader: built-in module must not be nil")
	}
	if content == nil {
		panic("loader: content registrar must not be nil")
	}
	if render == nil && !opts.ServerOnly {
		panic("loader: render registrar must not be nil on a client host")
	}
	if opts.Opener == nil {
		opts.Opener = PluginOpener{}
	}
	if opts.LibraryExt == "" {
		opts.LibraryExt = DefaultLibraryExt()
	}
	h := &Host{core: core, content: content, render: render, opts: opts}
	h.resolver = resolver.New(h)
	return h
}

// Discover registers the built-in module, bound to corePath, and collects
// candidate libraries under modulesRoot. A missing modules root is not an
// error: the host then runs with the built-in module only.
func (h *Host) Discover(ctx context.Context, corePath, configPath, modulesRoot string) error {
	logger := ctxlog.FromContext(ctx)

	name := h.core.Name()
	if !api.ValidName(name) {
		return fmt.Errorf("built-in module %q: %w", name, ErrInvalidName)
	}

	h.mu.Lock()
	if h.discovered {
		h.mu.Unlock()
		return ErrAlreadyDiscovered
	}
	h.discovered = true
	h.corePath = corePath
	h.configPath = configPath
	h.mu.Unlock()

	core := h.newRecord(ctx, h.core, corePath, "", nil, 0)
	h.mu.Lock()
	h.records = append(h.records, core)
	h.mu.Unlock()
	logger.Info("Built-in module registered.", "name", name, "version", core.version, "path", corePath)

	info, err := os.Stat(modulesRoot)
	if err != nil || !info.IsDir() {
		logger.Warn("Unable to find module path. No modules will be loaded.", "path", modulesRoot)
		return nil
	}

	logger.Debug("Discovering modules...", "path", modulesRoot, "extension", h.opts.LibraryExt)
	files, err := fsutil.FindLibraries(modulesRoot, h.opts.LibraryExt, func(dir string, err error) {
		logger.Warn("Skipping unreadable module directory.", "path", dir, "error", err)
	})
	if err != nil {
		logger.Warn("Unable to read module path. No modules will be loaded.", "path", modulesRoot, "error", err)
		return nil
	}
	h.mu.Lock()
	h.candidates = files
	h.mu.Unlock()
	logger.Info("Module discovery finished.", "candidates", len(files))
	return nil
}

// Load opens every candidate and accepts the modules that pass validation,
// in discovery order. Rejected candidates are logged and returned; they do
// not stop the remaining ones.
func (h *Host) Load(ctx context.Context) []*LoadError {
	logger := ctxlog.FromContext(ctx)

	h.mu.Lock()
	if !h.discovered || h.stagesRun > 0 {
		h.mu.Unlock()
		return []*LoadError{{Err: fmt.Errorf("%w: load must follow discover and precede the stages", ErrStageOrder)}}
	}
	if h.loaded {
		h.mu.Unlock()
		logger.Warn("Modules already loaded, ignoring.")
		return nil
	}
	h.loaded = true
	candidates := append([]string(nil), h.candidates...)
	h.mu.Unlock()

	var failures []*LoadError
	for _, path := range candidates {
		rec, err := h.loadOne(ctx, path)
		if err != nil {
			logger.Warn("Unable to load module.", "path", path, "error", err)
			failures = append(failures, &LoadError{Path: path, Err: err})
			continue
		}
		logger.Info("Found module.", "name", rec.name, "version", rec.version, "path", path)
	}

	logger.Info("Module loading finished.", "loaded", len(h.Records()), "failed", len(failures))
	return failures
}

// loadOne opens path and turns it into a Record. Panics raised by the
// library are converted to ErrLoadPanic.
func (h *Host) loadOne(ctx context.Context, path string) (rec *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("%w: %v", ErrLoadPanic, r)
		}
	}()

	lib, err := h.opts.Opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	sym, err := lib.Lookup(api.EntrySymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingSymbol, api.EntrySymbol, err)
	}
	mod, err := moduleFromSymbol(sym)
	if err != nil {
		return nil, err
	}

	name := mod.Name()
	if !api.ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if h.opts.ServerOnly && !mod.HasServer() {
		return nil, fmt.Errorf("%w: %s", ErrServerUnsupported, name)
	}

	h.mu.RLock()
	order := len(h.records)
	for _, existing := range h.records {
		if existing.name == name {
			h.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModule, name)
		}
	}
	h.mu.RUnlock()

	rec = h.newRecord(ctx, mod, filepath.Dir(path), path, lib, order)
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	return rec, nil
}

func moduleFromSymbol(sym any) (api.Module, error) {
	switch v := sym.(type) {
	case *api.Module:
		if v == nil || *v == nil {
			return nil, fmt.Errorf("%w: nil", ErrNotModule)
		}
		return *v, nil
	case api.Module:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotModule, sym)
	}
}

// newRecord builds the record of an accepted module. The base path of a
// library module is the grouping directory that holds its library.
func (h *Host) newRecord(ctx context.Context, mod api.Module, basePath, libraryPath string, lib Library, order int) *Record {
	name := mod.Name()
	logger := ctxlog.FromContext(ctx).With("module", name)
	if setter, ok := mod.(api.LoggerSetter); ok {
		setter.SetLogger(logger)
	}

	h.mu.RLock()
	configPath := h.configPath
	h.mu.RUnlock()

	var cfg api.Config = api.EmptyConfig{}
	if h.opts.ConfigLoader != nil {
		loaded, err := h.opts.ConfigLoader.LoadModule(ctxlog.WithLogger(ctx, logger), configPath, name)
		if err != nil {
			logger.Warn("Unable to load module configuration, using an empty one.", "error", err)
		} else {
			cfg = loaded
		}
	}

	return &Record{
		module:      mod,
		name:        name,
		version:     mod.Version(),
		basePath:    basePath,
		order:       order,
		libraryPath: libraryPath,
		config:      cfg,
		logger:      logger,
		library:     lib,
	}
}

// RunStage invokes the stage hook of every loaded module in load order.
// Stages must run in order, each exactly once. Errors and panics of a hook
// are recorded in the report and the stage moves on to the next module; the
// returned error is only about the stage itself.
func (h *Host) RunStage(ctx context.Context, stage api.Stage) (*StageReport, error) {
	ctx = ctxlog.With(ctx, "stage", stage.String())
	logger := ctxlog.FromContext(ctx)

	h.mu.Lock()
	if stage == api.StageClientInit && h.opts.ServerOnly {
		h.mu.Unlock()
		return nil, ErrClientStageDisabled
	}
	if !h.discovered {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %s before discovery", ErrStageOrder, stage)
	}
	if h.stagesRun >= len(api.Stages) || api.Stages[h.stagesRun] != stage {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %s after %d completed stages", ErrStageOrder, stage, h.stagesRun)
	}
	h.stagesRun++
	records := append([]*Record(nil), h.records...)
	h.mu.Unlock()

	logger.Info("Stage started.", "modules", len(records))
	report := &StageReport{Stage: stage}
	for _, rec := range records {
		res := h.runHook(ctx, rec, stage)
		report.Results = append(report.Results, res)
		switch {
		case res.Skipped:
			logger.Debug("Module skipped.", "module", rec.name)
		case res.Err != nil:
			logger.Error("Module hook failed.", "module", rec.name, "error", res.Err, "elapsed", res.Elapsed)
		default:
			logger.Debug("Module hook finished.", "module", rec.name, "elapsed", res.Elapsed)
		}
	}
	logger.Info("Stage finished.", "modules", len(records), "failed", len(report.Failed()))
	return report, nil
}

func (h *Host) runHook(ctx context.Context, rec *Record, stage api.Stage) (res HookResult) {
	res.Module = rec.name
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Debug("Recovered hook panic.", "module", rec.name, "stack", string(debug.Stack()))
			res.Err = fmt.Errorf("module %s: %w: %v", rec.name, ErrHookPanic, r)
		}
		res.Elapsed = time.Since(start)
	}()

	var err error
	switch stage {
	case api.StagePreInit:
		c := api.NewPreInitContext(rec.name, rec.logger, rec.config, h.resolver)
		defer c.Expire()
		err = rec.module.OnPreInit(c)
	case api.StageInit:
		c := api.NewInitContext(rec.name, rec.logger, h.content)
		defer c.Expire()
		err = rec.module.OnInit(c)
	case api.StageClientInit:
		if !rec.module.HasClient() {
			res.Skipped = true
			return res
		}
		c := api.NewClientInitContext(rec.name, rec.logger, h.render, h.resolver)
		defer c.Expire()
		err = rec.module.OnClientInit(c)
	}
	if err != nil {
		res.Err = fmt.Errorf("module %s: %w", rec.name, err)
	}
	return res
}

// Records returns the loaded modules in load order, built-in first.
func (h *Host) Records() []*Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*Record(nil), h.records...)
}

// Record returns the loaded module named name.
func (h *Host) Record(name string) (*Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, rec := range h.records {
		if rec.name == name {
			return rec, true
		}
	}
	return nil, false
}

// Candidates returns the library paths found by Discover, in discovery order.
func (h *Host) Candidates() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.candidates...)
}

// Resolver resolves resource locations against the loaded modules.
func (h *Host) Resolver() *resolver.Resolver { return h.resolver }

// Domains implements resolver.Table.
func (h *Host) Domains() []resolver.Domain {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]resolver.Domain, len(h.records))
	for i, rec := range h.records {
		out[i] = resolver.Domain{Name: rec.name, BasePath: rec.basePath}
	}
	return out
}

// DefaultBase implements resolver.Table. It is the built-in module's base path.
func (h *Host) DefaultBase() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.corePath
}
