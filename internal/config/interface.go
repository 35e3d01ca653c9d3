package config

import (
	"context"

	"github.com/vk/fabrica/pkg/api"
)

// Loader is the interface for a format-specific host configuration loader.
type Loader interface {
	// Load reads the host configuration at path on top of Default. An empty
	// path returns Default unchanged.
	Load(ctx context.Context, path string) (*Model, error)
}

// ModuleLoader reads the configuration file of one module.
type ModuleLoader interface {
	// LoadModule reads the configuration of module from dir. A module with
	// no file gets api.EmptyConfig and no error.
	LoadModule(ctx context.Context, dir, module string) (api.Config, error)
}
