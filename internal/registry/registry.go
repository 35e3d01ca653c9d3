package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vk/fabrica/pkg/api"
)

var (
	// ErrAlreadyRegistered is returned when a qualified name is taken. The
	// first registration is kept.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrNilContent is returned when a nil block or item is registered.
	ErrNilContent = errors.New("nil content")
	// ErrMalformedName is returned for names not of the form "<module>:<local>".
	ErrMalformedName = errors.New("malformed qualified name")
)

// Registry is the content registry of one application instance.
type Registry struct {
	logger *slog.Logger

	blocksMu sync.RWMutex
	blocks   map[string]api.Block

	itemsMu sync.RWMutex
	items   map[string]api.Item
}

var _ api.ContentRegistrar = (*Registry)(nil)

// New creates an empty Registry. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		blocks: make(map[string]api.Block),
		items:  make(map[string]api.Item),
	}
}

// RegisterBlock stores block under qualifiedName.
func (r *Registry) RegisterBlock(block api.Block, qualifiedName string) error {
	if block == nil {
		return fmt.Errorf("block %q: %w", qualifiedName, ErrNilContent)
	}
	if err := checkName(qualifiedName); err != nil {
		return err
	}

	r.blocksMu.Lock()
	_, exists := r.blocks[qualifiedName]
	if !exists {
		r.blocks[qualifiedName] = block
	}
	r.blocksMu.Unlock()

	if exists {
		return fmt.Errorf("block %q: %w", qualifiedName, ErrAlreadyRegistered)
	}
	r.logger.Debug("Registering block.", "name", qualifiedName)
	return nil
}

// RegisterItem stores item under qualifiedName.
func (r *Registry) RegisterItem(item api.Item, qualifiedName string) error {
	if item == nil {
		return fmt.Errorf("item %q: %w", qualifiedName, ErrNilContent)
	}
	if err := checkName(qualifiedName); err != nil {
		return err
	}

	r.itemsMu.Lock()
	_, exists := r.items[qualifiedName]
	if !exists {
		r.items[qualifiedName] = item
	}
	r.itemsMu.Unlock()

	if exists {
		return fmt.Errorf("item %q: %w", qualifiedName, ErrAlreadyRegistered)
	}
	r.logger.Debug("Registering item.", "name", qualifiedName)
	return nil
}

// Block returns the block registered under name.
func (r *Registry) Block(name string) (api.Block, bool) {
	r.blocksMu.RLock()
	defer r.blocksMu.RUnlock()
	b, ok := r.blocks[name]
	return b, ok
}

// Item returns the item registered under name.
func (r *Registry) Item(name string) (api.Item, bool) {
	r.itemsMu.RLock()
	defer r.itemsMu.RUnlock()
	i, ok := r.items[name]
	return i, ok
}

// BlockNames returns every registered block name, sorted.
func (r *Registry) BlockNames() []string {
	r.blocksMu.RLock()
	names := make([]string, 0, len(r.blocks))
	for name := range r.blocks {
		names = append(names, name)
	}
	r.blocksMu.RUnlock()
	sort.Strings(names)
	return names
}

// ItemNames returns every registered item name, sorted.
func (r *Registry) ItemNames() []string {
	r.itemsMu.RLock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	r.itemsMu.RUnlock()
	sort.Strings(names)
	return names
}

// BlockCount returns the number of registered blocks.
func (r *Registry) BlockCount() int {
	r.blocksMu.RLock()
	defer r.blocksMu.RUnlock()
	return len(r.blocks)
}

// ItemCount returns the number of registered items.
func (r *Registry) ItemCount() int {
	r.itemsMu.RLock()
	defer r.itemsMu.RUnlock()
	return len(r.items)
}

func checkName(name string) error {
	if _, _, err := api.SplitQualifiedName(name); err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedName, name)
	}
	return nil
}
