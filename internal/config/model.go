package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Model is the host configuration.
type Model struct {
	Paths      Paths
	Log        Log
	ServerOnly bool
	Atlas      Atlas
}

// Paths locates the directories the host reads from.
type Paths struct {
	// Core is the base path of the built-in module. Its assets directory is
	// also the fallback for unknown resource domains.
	Core string
	// Config holds one "<module>.hcl" file per configured module.
	Config string
	// Modules holds one grouping directory per module library.
	Modules string
}

// Log configures the host logger.
type Log struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	// File, when set, receives a copy of every record.
	File string
}

// Atlas sizes the texture atlas. Charts are square.
type Atlas struct {
	ChartSize   int
	PlaneWidth  int
	PlaneHeight int
	Depth       int
}

// Default returns the configuration used when no file is given.
func Default() *Model {
	return &Model{
		Paths: Paths{
			Core:    ".",
			Config:  "config",
			Modules: "modules",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Atlas: Atlas{
			ChartSize:   16,
			PlaneWidth:  16,
			PlaneHeight: 16,
			Depth:       16,
		},
	}
}

// Validate checks the values a loader cannot check on its own.
func (m *Model) Validate() error {
	var errs []error
	switch m.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: log level %q", ErrInvalid, m.Log.Level))
	}
	switch m.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log format %q", ErrInvalid, m.Log.Format))
	}
	if m.Paths.Core == "" {
		errs = append(errs, fmt.Errorf("%w: core path is empty", ErrInvalid))
	}
	a := m.Atlas
	if a.ChartSize <= 0 || a.PlaneWidth <= 0 || a.PlaneHeight <= 0 || a.Depth <= 0 {
		errs = append(errs, fmt.Errorf("%w: atlas dimensions must be positive, got chart %d, plane %dx%d, depth %d",
			ErrInvalid, a.ChartSize, a.PlaneWidth, a.PlaneHeight, a.Depth))
	}
	return errors.Join(errs...)
}
