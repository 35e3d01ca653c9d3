package testutil

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/vk/fabrica/internal/loader"
	"github.com/vk/fabrica/pkg/api"
)

// FakeModule is a configurable api.Module that records the stages it saw.
type FakeModule struct {
	api.Base

	ModName    string
	ModVersion string
	NoClient   bool
	NoServer   bool

	PreInit    func(ctx *api.PreInitContext) error
	Init       func(ctx *api.InitContext) error
	ClientInit func(ctx *api.ClientInitContext) error

	mu    sync.Mutex
	calls []api.Stage
}

func (m *FakeModule) Name() string    { return m.ModName }
func (m *FakeModule) Version() string { return m.ModVersion }
func (m *FakeModule) HasClient() bool { return !m.NoClient }
func (m *FakeModule) HasServer() bool { return !m.NoServer }

func (m *FakeModule) record(stage api.Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, stage)
}

// Calls returns the stages whose hook ran, in order.
func (m *FakeModule) Calls() []api.Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]api.Stage(nil), m.calls...)
}

func (m *FakeModule) OnPreInit(ctx *api.PreInitContext) error {
	m.record(api.StagePreInit)
	if m.PreInit != nil {
		return m.PreInit(ctx)
	}
	return nil
}

func (m *FakeModule) OnInit(ctx *api.InitContext) error {
	m.record(api.StageInit)
	if m.Init != nil {
		return m.Init(ctx)
	}
	return nil
}

func (m *FakeModule) OnClientInit(ctx *api.ClientInitContext) error {
	m.record(api.StageClientInit)
	if m.ClientInit != nil {
		return m.ClientInit(ctx)
	}
	return nil
}

// Library is an in-memory module library: exported symbol name to value.
type Library map[string]any

// Lookup implements loader.Library.
func (l Library) Lookup(symbol string) (any, error) {
	sym, ok := l[symbol]
	if !ok {
		return nil, errors.New("symbol " + symbol + " not found")
	}
	return sym, nil
}

// ModuleLibrary exports m the way a plugin declaring
// `var Module api.Module = ...` does.
func ModuleLibrary(m api.Module) Library {
	return Library{api.EntrySymbol: &m}
}

// Opener opens libraries by file base name. Unknown names fail to open, the
// way a corrupt or foreign library would.
type Opener struct {
	mu     sync.Mutex
	libs   map[string]loader.Library
	opened []string
}

var _ loader.Opener = (*Opener)(nil)

// NewOpener creates an Opener serving libs, keyed by file base name.
func NewOpener(libs map[string]loader.Library) *Opener {
	return &Opener{libs: libs}
}

// Open implements loader.Opener.
func (o *Opener) Open(path string) (loader.Library, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, path)
	lib, ok := o.libs[filepath.Base(path)]
	if !ok {
		return nil, errors.New("not a loadable library: " + path)
	}
	return lib, nil
}

// Opened returns every path passed to Open, in order.
func (o *Opener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}
