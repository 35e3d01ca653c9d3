package app

import (
	"github.com/vk/fabrica/internal/config"
	"github.com/vk/fabrica/internal/loader"
	"github.com/vk/fabrica/pkg/api"
)

// Option customizes an App. The defaults load real plugins and the
// built-in core module.
type Option func(*options)

type options struct {
	opener       loader.Opener
	libraryExt   string
	core         api.Module
	moduleLoader config.ModuleLoader
}

// WithOpener replaces the plugin opener, typically with an in-memory one in tests.
func WithOpener(o loader.Opener) Option {
	return func(opts *options) { opts.opener = o }
}

// WithLibraryExt overrides the platform library extension.
func WithLibraryExt(ext string) Option {
	return func(opts *options) { opts.libraryExt = ext }
}

// WithCore replaces the built-in module.
func WithCore(m api.Module) Option {
	return func(opts *options) { opts.core = m }
}

// WithModuleLoader replaces the per-module configuration loader.
func WithModuleLoader(l config.ModuleLoader) Option {
	return func(opts *options) { opts.moduleLoader = l }
}
