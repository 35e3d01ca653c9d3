// Package renderer provides the block renderers most modules need: a full
// cube with one texture on every face, and a full cube with a texture per
// face group.
package renderer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vk/fabrica/pkg/api"
)

// ErrNoTextures is returned by NewFaced when no texture covers any face.
var ErrNoTextures = errors.New("faced renderer needs at least one texture")

// Unassigned is the chart id of a face that has no texture yet.
const Unassigned = -1

// Uniform draws a full cube with the same texture on all six faces.
type Uniform struct {
	texture api.ResourceLocation

	mu    sync.RWMutex
	chart int
}

var _ api.Renderer = (*Uniform)(nil)

// NewUniform creates a Uniform renderer using texture.
func NewUniform(texture api.ResourceLocation) *Uniform {
	return &Uniform{texture: texture, chart: Unassigned}
}

// LoadTextures registers the texture and keeps its chart id.
func (u *Uniform) LoadTextures(sink api.TextureSink) error {
	pixels, err := sink.LoadPNG(u.texture)
	if err != nil {
		return err
	}
	id, err := sink.Register(pixels)
	if err != nil {
		return err
	}
	u.mu.Lock()
	u.chart = id
	u.mu.Unlock()
	return nil
}

// Chart returns the chart id used for face. Every face shares one chart.
func (u *Uniform) Chart(api.Facing) int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.chart
}

// Faced draws a full cube whose faces use different textures. Each texture
// is registered once and assigned to every face of its mask.
type Faced struct {
	textures []facedTexture

	mu     sync.RWMutex
	charts [6]int
}

type facedTexture struct {
	loc  api.ResourceLocation
	mask api.Facing
}

var _ api.Renderer = (*Faced)(nil)

// NewFaced creates a Faced renderer from a texture → face mask map. Textures
// are registered in location order. When masks overlap, the texture that
// sorts last wins the shared face.
func NewFaced(faces map[api.ResourceLocation]api.Facing) (*Faced, error) {
	f := &Faced{}
	for i := range f.charts {
		f.charts[i] = Unassigned
	}
	for loc, mask := range faces {
		if mask&api.AllFaces == 0 {
			continue
		}
		f.textures = append(f.textures, facedTexture{loc: loc, mask: mask & api.AllFaces})
	}
	if len(f.textures) == 0 {
		return nil, ErrNoTextures
	}
	sort.Slice(f.textures, func(i, j int) bool {
		return f.textures[i].loc.Less(f.textures[j].loc)
	})
	return f, nil
}

// LoadTextures registers each texture and assigns its chart to its faces.
func (f *Faced) LoadTextures(sink api.TextureSink) error {
	var charts [6]int
	for i := range charts {
		charts[i] = Unassigned
	}
	for _, tex := range f.textures {
		pixels, err := sink.LoadPNG(tex.loc)
		if err != nil {
			return fmt.Errorf("face %s: %w", tex.mask, err)
		}
		id, err := sink.Register(pixels)
		if err != nil {
			return err
		}
		for _, face := range api.Faces {
			if tex.mask.Has(face) {
				charts[face.Index()] = id
			}
		}
	}
	f.mu.Lock()
	f.charts = charts
	f.mu.Unlock()
	return nil
}

// Chart returns the chart id of a single face, or Unassigned.
func (f *Faced) Chart(face api.Facing) int {
	idx := face.Index()
	if idx < 0 {
		return Unassigned
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.charts[idx]
}

// VisibleFaces returns the faces of a full cube that must be drawn. A face
// is hidden when the neighbour on that side has its opposite side solid.
// neighbor returns nil for empty space.
func VisibleFaces(neighbor func(face api.Facing) api.Block) api.Facing {
	var visible api.Facing
	for _, face := range api.Faces {
		adj := neighbor(face)
		if adj != nil && adj.IsSideSolid(face.Opposite()) {
			continue
		}
		visible |= face
	}
	return visible
}
