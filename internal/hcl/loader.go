package hcl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/fabrica/internal/config"
	"github.com/vk/fabrica/internal/ctxlog"
	"github.com/vk/fabrica/pkg/api"
)

// ModuleConfigExt is the extension of per-module configuration files.
const ModuleConfigExt = ".hcl"

// hostFile is the schema of the host configuration file. Every block and
// attribute is optional; zero values keep the defaults.
type hostFile struct {
	Paths      *pathsBlock `hcl:"paths,block"`
	Log        *logBlock   `hcl:"log,block"`
	ServerOnly *bool       `hcl:"server_only,optional"`
	Atlas      *atlasBlock `hcl:"atlas,block"`
}

type pathsBlock struct {
	Core    string `hcl:"core,optional"`
	Config  string `hcl:"config,optional"`
	Modules string `hcl:"modules,optional"`
}

type logBlock struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
	File   string `hcl:"file,optional"`
}

type atlasBlock struct {
	ChartSize   int `hcl:"chart_size,optional"`
	PlaneWidth  int `hcl:"plane_width,optional"`
	PlaneHeight int `hcl:"plane_height,optional"`
	Depth       int `hcl:"depth,optional"`
}

// Loader reads HCL configuration files.
type Loader struct{}

var (
	_ config.Loader       = (*Loader)(nil)
	_ config.ModuleLoader = (*Loader)(nil)
)

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the host configuration file at path on top of config.Default.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := config.Default()
	if path == "" {
		logger.Debug("No configuration file given, using defaults.")
		return model, nil
	}

	logger.Debug("Loading configuration file...", "path", path)
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var raw hostFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode configuration file %s: %w", path, diags)
	}
	merge(model, &raw)

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("configuration file %s: %w", path, err)
	}
	logger.Debug("Configuration loaded.", "path", path)
	return model, nil
}

func merge(m *config.Model, raw *hostFile) {
	if p := raw.Paths; p != nil {
		setString(&m.Paths.Core, p.Core)
		setString(&m.Paths.Config, p.Config)
		setString(&m.Paths.Modules, p.Modules)
	}
	if lg := raw.Log; lg != nil {
		setString(&m.Log.Level, lg.Level)
		setString(&m.Log.Format, lg.Format)
		setString(&m.Log.File, lg.File)
	}
	if raw.ServerOnly != nil {
		m.ServerOnly = *raw.ServerOnly
	}
	if a := raw.Atlas; a != nil {
		setInt(&m.Atlas.ChartSize, a.ChartSize)
		setInt(&m.Atlas.PlaneWidth, a.PlaneWidth)
		setInt(&m.Atlas.PlaneHeight, a.PlaneHeight)
		setInt(&m.Atlas.Depth, a.Depth)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// LoadModule reads "<dir>/<module>.hcl". Every top-level attribute is
// evaluated up front so that a broken file fails at load time, not when the
// module first reads it.
func (l *Loader) LoadModule(ctx context.Context, dir, module string) (api.Config, error) {
	logger := ctxlog.FromContext(ctx)
	if dir == "" {
		return api.EmptyConfig{}, nil
	}

	path := filepath.Join(dir, module+ModuleConfigExt)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("No configuration file for module.", "module", module, "path", path)
		return api.EmptyConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("module %s configuration: %w", module, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("module %s configuration: %s is a directory", module, path)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	cfg, err := newModuleConfig(ctx, path, file.Body)
	if err != nil {
		return nil, err
	}
	logger.Debug("Module configuration loaded.", "module", module, "path", path, "attributes", len(cfg.values))
	return cfg, nil
}
