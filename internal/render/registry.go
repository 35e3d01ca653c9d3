// Package render binds renderers to blocks and packs the textures they
// contribute into a layered atlas.
package render

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/vk/fabrica/pkg/api"
)

var (
	// ErrNotComparable is returned for blocks whose dynamic type cannot be
	// used as a map key. Use pointer blocks.
	ErrNotComparable = errors.New("block type is not comparable")
	// ErrNilBinding is returned when the block or the renderer is nil.
	ErrNilBinding = errors.New("nil block or renderer")
)

type binding struct {
	block    api.Block
	renderer api.Renderer
}

// Registry maps block identities to renderers, remembering the order in
// which blocks were first bound.
type Registry struct {
	logger *slog.Logger

	mu       sync.RWMutex
	bindings []binding
	index    map[api.Block]int
}

var _ api.RenderRegistrar = (*Registry)(nil)

// New creates an empty Registry. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		index:  make(map[api.Block]int),
	}
}

// RegisterRenderer binds renderer to block. Binding a block twice replaces
// the renderer; the block keeps its original position.
func (r *Registry) RegisterRenderer(block api.Block, renderer api.Renderer) error {
	if isNil(block) || isNil(renderer) {
		return ErrNilBinding
	}
	if t := reflect.TypeOf(block); !t.Comparable() {
		return fmt.Errorf("%w: %s", ErrNotComparable, t)
	}

	pos, replaced, err := r.bind(block, renderer)
	if err != nil {
		return err
	}
	if replaced {
		r.logger.Warn("Renderer replaced for an already bound block.", "block", fmt.Sprintf("%T", block), "position", pos)
		return nil
	}
	r.logger.Debug("Registering renderer.", "block", fmt.Sprintf("%T", block), "renderer", fmt.Sprintf("%T", renderer))
	return nil
}

// bind inserts or replaces the binding under the lock. A comparable type can
// still hold an unhashable value in an interface field; hashing it panics,
// which is reported as ErrNotComparable.
func (r *Registry) bind(block api.Block, renderer api.Renderer) (pos int, replaced bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %T: %v", ErrNotComparable, block, rec)
		}
	}()

	pos, replaced = r.index[block]
	if replaced {
		r.bindings[pos].renderer = renderer
		return pos, true, nil
	}
	pos = len(r.bindings)
	r.index[block] = pos
	r.bindings = append(r.bindings, binding{block: block, renderer: renderer})
	return pos, false, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Renderer returns the renderer bound to block.
func (r *Registry) Renderer(block api.Block) (renderer api.Renderer, ok bool) {
	if block == nil || !reflect.TypeOf(block).Comparable() {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	defer func() {
		if recover() != nil {
			renderer, ok = nil, false
		}
	}()
	pos, ok := r.index[block]
	if !ok {
		return nil, false
	}
	return r.bindings[pos].renderer, true
}

// MustRenderer is like Renderer but panics when block has no renderer.
func (r *Registry) MustRenderer(block api.Block) api.Renderer {
	renderer, ok := r.Renderer(block)
	if !ok {
		panic(fmt.Sprintf("render: no renderer bound to block %T", block))
	}
	return renderer
}

// Len returns the number of bound blocks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

// snapshot copies the bindings so that renderers run without the lock held.
func (r *Registry) snapshot() []binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]binding, len(r.bindings))
	copy(out, r.bindings)
	return out
}
