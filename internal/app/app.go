package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/vk/fabrica/internal/config"
	"github.com/vk/fabrica/internal/ctxlog"
	"github.com/vk/fabrica/internal/hcl"
	"github.com/vk/fabrica/internal/loader"
	"github.com/vk/fabrica/internal/registry"
	"github.com/vk/fabrica/internal/render"
	"github.com/vk/fabrica/pkg/api"
)

// App encapsulates the host's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	logFile *os.File
	config  *config.Model

	content *registry.Registry
	render  *render.Registry
	host    *loader.Host

	mu       sync.Mutex
	textures *render.TextureManager
}

// NewApp is the constructor for the host application. It returns a fully
// initialized App with its own isolated logger and registries. Nothing is
// discovered or loaded until Start.
func NewApp(outW io.Writer, cfg *config.Model, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.core == nil {
		o.core = coreModule()
	}
	if o.moduleLoader == nil {
		o.moduleLoader = hcl.NewLoader()
	}

	a := &App{outW: outW, config: cfg}
	logW := outW
	if cfg.Log.File != "" {
		f, err := openLogFile(cfg.Log.File)
		if err != nil {
			return nil, err
		}
		a.logFile = f
		logW = io.MultiWriter(outW, f)
	}
	a.logger = newLogger(cfg.Log.Level, cfg.Log.Format, logW)
	a.logger.Debug("Logger configured successfully.")

	a.content = registry.New(a.logger)
	var renders api.RenderRegistrar
	if !cfg.ServerOnly {
		a.render = render.New(a.logger)
		renders = a.render
	}
	a.host = loader.New(o.core, a.content, renders, loader.Options{
		Opener:       o.opener,
		LibraryExt:   o.libraryExt,
		ServerOnly:   cfg.ServerOnly,
		ConfigLoader: o.moduleLoader,
	})
	a.logger.Debug("Host created.", "server_only", cfg.ServerOnly)
	return a, nil
}

// Context returns ctx carrying the application's logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Config returns the configuration the App was built with.
func (a *App) Config() *config.Model { return a.config }

// Content returns the content registry.
func (a *App) Content() *registry.Registry { return a.content }

// Render returns the render registry, or nil on a server-only host.
func (a *App) Render() *render.Registry { return a.render }

// Host returns the module host.
func (a *App) Host() *loader.Host { return a.host }

// Textures returns the texture manager of the last successful BuildTextures.
func (a *App) Textures() *render.TextureManager {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.textures
}

// Close releases the texture atlas and the log file.
func (a *App) Close() error {
	a.mu.Lock()
	tm := a.textures
	a.textures = nil
	a.mu.Unlock()

	if tm != nil {
		if err := tm.Close(); err != nil {
			return err
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			return fmt.Errorf("unable to close log file: %w", err)
		}
		a.logFile = nil
	}
	return nil
}
