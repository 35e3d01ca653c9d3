package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"

	"github.com/vk/fabrica/internal/ctxlog"
	"github.com/vk/fabrica/pkg/api"
)

var (
	// ErrTextureSize is returned by LoadPNG for images that are not exactly
	// one chart in size.
	ErrTextureSize = errors.New("texture does not match the chart size")
	// ErrRendererPanic wraps a panic raised by a renderer's LoadTextures.
	ErrRendererPanic = errors.New("renderer panicked")
	// ErrManagerClosed is returned when a TextureManager is closed twice.
	ErrManagerClosed = errors.New("texture manager already closed")
)

// Geometry sizes the atlas built by BuildAll. Charts are square.
type Geometry struct {
	ChartSize   int
	PlaneWidth  int
	PlaneHeight int
	Depth       int
}

// Failure records a renderer whose LoadTextures returned an error.
type Failure struct {
	Block api.Block
	Err   error
}

// BuildAll packs the textures of every bound renderer into a fresh atlas.
// Renderers are visited in binding order and share one chart counter, so
// chart ids are dense and follow that order. A renderer that fails is logged
// and skipped. Running out of charts aborts the pass with ErrAtlasFull.
//
// Calling BuildAll again produces an independent TextureManager; renderers
// overwrite the chart ids they stored during the previous pass.
func (r *Registry) BuildAll(ctx context.Context, geo Geometry, resolver api.Resolver) (*TextureManager, error) {
	logger := ctxlog.FromContext(ctx)

	atlas, err := NewAtlas(geo.ChartSize, geo.ChartSize, geo.PlaneWidth, geo.PlaneHeight, geo.Depth)
	if err != nil {
		return nil, err
	}

	bindings := r.snapshot()
	logger.Debug("Building texture atlas...", "renderers", len(bindings), "capacity", atlas.Capacity())

	tm := &TextureManager{atlas: atlas}
	sink := &sink{atlas: atlas, resolver: resolver, manager: tm}
	for _, b := range bindings {
		sink.owner = b.block
		err := loadTextures(b, sink)
		if sink.full != nil {
			atlas.Release()
			logger.Error("Texture atlas overflowed.", "capacity", atlas.Capacity(), "block", fmt.Sprintf("%T", b.block))
			return nil, sink.full
		}
		if err != nil {
			logger.Error("Renderer failed to load its textures.", "block", fmt.Sprintf("%T", b.block), "error", err)
			tm.failures = append(tm.failures, Failure{Block: b.block, Err: err})
		}
	}

	logger.Info("Texture atlas built.", "charts", len(tm.charts), "failures", len(tm.failures))
	return tm, nil
}

// loadTextures runs one renderer, turning a panic into ErrRendererPanic.
func loadTextures(b binding, s *sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %T: %v", ErrRendererPanic, b.renderer, r)
		}
	}()
	return b.renderer.LoadTextures(s)
}

// sink is the api.TextureSink shared by every renderer during one pass.
type sink struct {
	atlas    *Atlas
	resolver api.Resolver
	manager  *TextureManager
	owner    api.Block
	full     error
}

func (s *sink) ChartSize() int {
	w, _ := s.atlas.ChartSize()
	return w
}

func (s *sink) LoadPNG(loc api.ResourceLocation) ([]byte, error) {
	path := s.resolver.ResolveLocation(loc)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", loc, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("texture %s: decoding %s: %w", loc, path, err)
	}

	size := s.ChartSize()
	bounds := img.Bounds()
	if bounds.Dx() != size || bounds.Dy() != size {
		return nil, fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrTextureSize, loc, bounds.Dx(), bounds.Dy(), size, size)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba.Pix, nil
}

func (s *sink) Register(pixels []byte) (int, error) {
	if s.full != nil {
		return -1, s.full
	}
	id := len(s.manager.charts)
	if id >= s.atlas.Capacity() {
		s.full = fmt.Errorf("%w: capacity %d", ErrAtlasFull, s.atlas.Capacity())
		return -1, s.full
	}
	if err := s.atlas.LoadChart(id, pixels); err != nil {
		return -1, err
	}
	s.manager.charts = append(s.manager.charts, s.owner)
	return id, nil
}

// TextureManager owns the atlas produced by one BuildAll pass.
type TextureManager struct {
	atlas    *Atlas
	charts   []api.Block
	failures []Failure
	closed   bool
}

// Atlas returns the packed atlas.
func (m *TextureManager) Atlas() *Atlas { return m.atlas }

// Charts returns the block that registered each chart, indexed by chart id.
func (m *TextureManager) Charts() []api.Block {
	out := make([]api.Block, len(m.charts))
	copy(out, m.charts)
	return out
}

// Failures returns the renderers that failed during the pass.
func (m *TextureManager) Failures() []Failure {
	out := make([]Failure, len(m.failures))
	copy(out, m.failures)
	return out
}

// ChartUVW returns the texture coordinates of an allocated chart.
func (m *TextureManager) ChartUVW(id int) (UVW, error) {
	if id < 0 || id >= len(m.charts) {
		return UVW{}, fmt.Errorf("%w: %d not allocated", ErrChartRange, id)
	}
	return m.atlas.ChartUVW(id)
}

// Close releases the atlas pixels. The manager must not be used afterwards.
func (m *TextureManager) Close() error {
	if m.closed {
		return ErrManagerClosed
	}
	m.closed = true
	m.atlas.Release()
	return nil
}
