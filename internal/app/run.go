package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/fabrica/internal/loader"
	"github.com/vk/fabrica/internal/render"
	"github.com/vk/fabrica/pkg/api"
)

// ErrServerOnly is returned by client-side operations of a server-only App.
var ErrServerOnly = errors.New("operation not available on a server-only host")

// StartupReport summarizes what Start did.
type StartupReport struct {
	LoadErrors []*loader.LoadError
	Stages     []*loader.StageReport
}

// HookFailures returns every failed hook of every stage.
func (r *StartupReport) HookFailures() []loader.HookResult {
	var out []loader.HookResult
	for _, s := range r.Stages {
		out = append(out, s.Failed()...)
	}
	return out
}

// Start discovers and loads modules, then runs every stage the host takes
// part in. Module failures end up in the report; the returned error is
// reserved for failures of the host itself.
func (a *App) Start(ctx context.Context) (*StartupReport, error) {
	ctx = a.Context(ctx)
	a.logger.Debug("App.Start method started.")

	paths := a.config.Paths
	if err := a.host.Discover(ctx, paths.Core, paths.Config, paths.Modules); err != nil {
		return nil, fmt.Errorf("failed to discover modules: %w", err)
	}

	report := &StartupReport{LoadErrors: a.host.Load(ctx)}

	for _, stage := range api.Stages {
		if stage == api.StageClientInit && a.config.ServerOnly {
			a.logger.Debug("Skipping client stage on server-only host.")
			continue
		}
		sr, err := a.host.RunStage(ctx, stage)
		if err != nil {
			return report, fmt.Errorf("failed to run stage %s: %w", stage, err)
		}
		report.Stages = append(report.Stages, sr)
	}

	a.logger.Info("Host started.",
		"modules", len(a.host.Records()),
		"load_errors", len(report.LoadErrors),
		"hook_failures", len(report.HookFailures()),
		"blocks", a.content.BlockCount(),
		"items", a.content.ItemCount(),
	)
	return report, nil
}

// BuildTextures packs the textures of every bound renderer into a new atlas
// and replaces the previous one.
func (a *App) BuildTextures(ctx context.Context) (*render.TextureManager, error) {
	if a.render == nil {
		return nil, ErrServerOnly
	}
	ctx = a.Context(ctx)
	geo := a.config.Atlas
	tm, err := a.render.BuildAll(ctx, render.Geometry{
		ChartSize:   geo.ChartSize,
		PlaneWidth:  geo.PlaneWidth,
		PlaneHeight: geo.PlaneHeight,
		Depth:       geo.Depth,
	}, a.host.Resolver())
	if err != nil {
		return nil, fmt.Errorf("failed to build textures: %w", err)
	}

	a.mu.Lock()
	prev := a.textures
	a.textures = tm
	a.mu.Unlock()
	if prev != nil {
		if err := prev.Close(); err != nil {
			a.logger.Warn("Unable to release the previous texture atlas.", "error", err)
		}
	}
	return tm, nil
}
