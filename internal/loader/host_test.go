package loader_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/fabrica/internal/ctxlog"
	"github.com/vk/fabrica/internal/loader"
	"github.com/vk/fabrica/internal/registry"
	"github.com/vk/fabrica/internal/render"
	"github.com/vk/fabrica/internal/testutil"
	"github.com/vk/fabrica/pkg/api"
)

type fixture struct {
	root    string
	modules string
	logs    *testutil.SafeBuffer
	ctx     context.Context
	content *registry.Registry
	render  *render.Registry
	core    *testutil.FakeModule
	opener  *testutil.Opener
}

// newFixture lays out root/modules/<group>/<file> for every library and
// serves them from an in-memory opener.
func newFixture(t *testing.T, libs map[string]loader.Library) *fixture {
	t.Helper()
	root := t.TempDir()
	modules := filepath.Join(root, "modules")
	for rel := range libs {
		path := filepath.Join(modules, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
	byBase := make(map[string]loader.Library, len(libs))
	for rel, lib := range libs {
		byBase[filepath.Base(rel)] = lib
	}

	logs := &testutil.SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &fixture{
		root:    root,
		modules: modules,
		logs:    logs,
		ctx:     ctxlog.WithLogger(context.Background(), logger),
		content: registry.New(logger),
		render:  render.New(logger),
		core:    &testutil.FakeModule{ModName: "Fabrica", ModVersion: "0.0.1"},
		opener:  testutil.NewOpener(byBase),
	}
}

func (f *fixture) host(opts loader.Options) *loader.Host {
	opts.Opener = f.opener
	opts.LibraryExt = ".so"
	var rr api.RenderRegistrar
	if f.render != nil {
		rr = f.render
	}
	return loader.New(f.core, f.content, rr, opts)
}

func (f *fixture) start(t *testing.T, h *loader.Host) []*loader.LoadError {
	t.Helper()
	require.NoError(t, h.Discover(f.ctx, filepath.Join(f.root, "core"), filepath.Join(f.root, "config"), f.modules))
	return h.Load(f.ctx)
}

func names(records []*loader.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name()
	}
	return out
}

func TestDiscover_MissingModulesRoot(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t, nil)
	h := f.host(loader.Options{})

	// --- Act ---
	err := h.Discover(f.ctx, "core", "config", filepath.Join(f.root, "absent"))

	// --- Assert ---
	require.NoError(t, err)
	assert.Empty(t, h.Candidates())
	assert.Empty(t, h.Load(f.ctx))
	assert.Equal(t, []string{"Fabrica"}, names(h.Records()))
	assert.Contains(t, f.logs.String(), "Unable to find module path")
}

func TestDiscover_RootIsAFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	file := filepath.Join(f.root, "modules.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	h := f.host(loader.Options{})
	require.NoError(t, h.Discover(f.ctx, "core", "", file))
	assert.Empty(t, h.Candidates())
}

func TestDiscover_Twice(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	h := f.host(loader.Options{})
	require.NoError(t, h.Discover(f.ctx, "core", "", f.modules))
	assert.ErrorIs(t, h.Discover(f.ctx, "core", "", f.modules), loader.ErrAlreadyDiscovered)
}

func TestDiscover_InvalidBuiltinName(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.core.ModName = "bad name"
	h := f.host(loader.Options{})

	err := h.Discover(f.ctx, "core", "", f.modules)
	assert.ErrorIs(t, err, loader.ErrInvalidName)
}

func TestLoad_NameValidation(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	good := &testutil.FakeModule{ModName: "Good_1|x"}
	space := &testutil.FakeModule{ModName: "has space"}
	empty := &testutil.FakeModule{ModName: ""}
	f := newFixture(t, map[string]loader.Library{
		"a/good.so":  testutil.ModuleLibrary(good),
		"b/space.so": testutil.ModuleLibrary(space),
		"c/empty.so": testutil.ModuleLibrary(empty),
	})
	h := f.host(loader.Options{})

	// --- Act ---
	failures := f.start(t, h)
	for _, stage := range api.Stages {
		_, err := h.RunStage(f.ctx, stage)
		require.NoError(t, err)
	}

	// --- Assert ---
	assert.Equal(t, []string{"Fabrica", "Good_1|x"}, names(h.Records()))
	require.Len(t, failures, 2)
	for _, fail := range failures {
		assert.ErrorIs(t, fail, loader.ErrInvalidName)
	}
	assert.Equal(t, api.Stages, good.Calls())
	assert.Empty(t, space.Calls(), "a rejected module never receives a stage call")
	assert.Empty(t, empty.Calls(), "a rejected module never receives a stage call")
}

// hashlessBlock has a comparable type whose values can hold a slice, which
// makes them unhashable at runtime.
type hashlessBlock struct {
	api.BaseBlock
	tag any
}

func TestRunStage_UnhashableBlockDoesNotBlockLaterModules(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var badErr error
	bad := &testutil.FakeModule{
		ModName: "Bad",
		ClientInit: func(ctx *api.ClientInitContext) error {
			badErr = ctx.RegisterRenderer(hashlessBlock{tag: []int{1}}, noopRenderer{})
			return badErr
		},
	}
	goodBlock := &api.BaseBlock{}
	good := &testutil.FakeModule{
		ModName: "Good",
		ClientInit: func(ctx *api.ClientInitContext) error {
			return ctx.RegisterRenderer(goodBlock, noopRenderer{})
		},
	}
	f := newFixture(t, map[string]loader.Library{
		"a/bad.so":  testutil.ModuleLibrary(bad),
		"b/good.so": testutil.ModuleLibrary(good),
	})
	h := f.host(loader.Options{})
	require.Empty(t, f.start(t, h))
	for _, stage := range []api.Stage{api.StagePreInit, api.StageInit} {
		_, err := h.RunStage(f.ctx, stage)
		require.NoError(t, err)
	}

	// --- Act ---
	done := make(chan *loader.StageReport, 1)
	go func() {
		report, err := h.RunStage(f.ctx, api.StageClientInit)
		assert.NoError(t, err)
		done <- report
	}()

	// --- Assert ---
	var report *loader.StageReport
	select {
	case report = <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("ClientInit did not finish after a module bound an unhashable block")
	}
	assert.ErrorIs(t, badErr, render.ErrNotComparable)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "Bad", report.Failed()[0].Module)
	_, ok := f.render.Renderer(goodBlock)
	assert.True(t, ok)
}

// noopRenderer contributes no textures.
type noopRenderer struct{}

func (noopRenderer) LoadTextures(api.TextureSink) error { return nil }

func TestLoad_RejectsBrokenLibraries(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t, map[string]loader.Library{
		"a/nosymbol.so":  testutil.Library{"Other": 1},
		"b/wrongtype.so": testutil.Library{api.EntrySymbol: "not a module"},
		"c/nilmodule.so": testutil.Library{api.EntrySymbol: new(api.Module)},
		"d/panics.so":    testutil.ModuleLibrary(&panickyName{}),
		"e/ok.so":        testutil.ModuleLibrary(&testutil.FakeModule{ModName: "Industria", ModVersion: "1.2.3"}),
	})
	// A file the opener does not know, like a corrupt library.
	corrupt := filepath.Join(f.modules, "f", "corrupt.so")
	require.NoError(t, os.MkdirAll(filepath.Dir(corrupt), 0o755))
	require.NoError(t, os.WriteFile(corrupt, []byte("garbage"), 0o644))
	h := f.host(loader.Options{})

	// --- Act ---
	failures := f.start(t, h)

	// --- Assert ---
	require.Len(t, failures, 5)
	assert.ErrorIs(t, failures[0], loader.ErrMissingSymbol)
	assert.ErrorIs(t, failures[1], loader.ErrNotModule)
	assert.ErrorIs(t, failures[2], loader.ErrNotModule)
	assert.ErrorIs(t, failures[3], loader.ErrLoadPanic)
	assert.ErrorIs(t, failures[4], loader.ErrOpen)
	assert.Equal(t, corrupt, failures[4].Path)

	assert.Equal(t, []string{"Fabrica", "Industria"}, names(h.Records()))
	rec, ok := h.Record("Industria")
	require.True(t, ok)
	assert.Equal(t, "1.2.3", rec.Version())
	assert.Equal(t, filepath.Join(f.modules, "e"), rec.BasePath())
	assert.Equal(t, 1, rec.Order())
	assert.False(t, rec.Builtin())
	assert.Contains(t, f.logs.String(), "Unable to load module.")
}

type panickyName struct{ testutil.FakeModule }

func (*panickyName) Name() string { panic("name exploded") }

func TestLoad_AcceptsValueSymbol(t *testing.T) {
	t.Parallel()

	m := &testutil.FakeModule{ModName: "Direct"}
	f := newFixture(t, map[string]loader.Library{
		"direct/direct.so": testutil.Library{api.EntrySymbol: m},
	})
	h := f.host(loader.Options{})

	assert.Empty(t, f.start(t, h))
	rec, ok := h.Record("Direct")
	require.True(t, ok)
	assert.Same(t, m, rec.Module())
}

func TestLoad_DuplicateNameRejected(t *testing.T) {
	t.Parallel()

	first := &testutil.FakeModule{ModName: "Twin"}
	f := newFixture(t, map[string]loader.Library{
		"a/twin.so":  testutil.ModuleLibrary(first),
		"b/twin2.so": testutil.ModuleLibrary(&testutil.FakeModule{ModName: "Twin"}),
		"c/core.so":  testutil.ModuleLibrary(&testutil.FakeModule{ModName: "Fabrica"}),
	})
	h := f.host(loader.Options{})

	failures := f.start(t, h)

	require.Len(t, failures, 2)
	assert.ErrorIs(t, failures[0], loader.ErrDuplicateModule)
	assert.ErrorIs(t, failures[1], loader.ErrDuplicateModule)
	rec, _ := h.Record("Twin")
	assert.Same(t, first, rec.Module())
}

func TestLoad_DiscoveryOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]loader.Library{
		"zeta/z.so":  testutil.ModuleLibrary(&testutil.FakeModule{ModName: "Zeta"}),
		"alpha/b.so": testutil.ModuleLibrary(&testutil.FakeModule{ModName: "AlphaB"}),
		"alpha/a.so": testutil.ModuleLibrary(&testutil.FakeModule{ModName: "AlphaA"}),
	})
	h := f.host(loader.Options{})

	require.Empty(t, f.start(t, h))
	assert.Equal(t, []string{"Fabrica", "AlphaA", "AlphaB", "Zeta"}, names(h.Records()))
	assert.Equal(t, h.Candidates(), f.opener.Opened())
}

func TestLoad_BeforeDiscover(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	failures := f.host(loader.Options{}).Load(f.ctx)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], loader.ErrStageOrder)
}

func TestRunStage_OrderAndBarriers(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var trace []string
	hook := func(name string) func(ctx *api.InitContext) error {
		return func(*api.InitContext) error {
			trace = append(trace, name)
			return nil
		}
	}
	a := &testutil.FakeModule{ModName: "A", PreInit: func(*api.PreInitContext) error {
		trace = append(trace, "A-pre")
		return nil
	}, Init: hook("A-init")}
	b := &testutil.FakeModule{ModName: "B", PreInit: func(*api.PreInitContext) error {
		trace = append(trace, "B-pre")
		return nil
	}, Init: hook("B-init")}
	f := newFixture(t, map[string]loader.Library{
		"a/a.so": testutil.ModuleLibrary(a),
		"b/b.so": testutil.ModuleLibrary(b),
	})
	h := f.host(loader.Options{})
	require.Empty(t, f.start(t, h))

	// --- Act ---
	_, initFirst := h.RunStage(f.ctx, api.StageInit)
	_, preErr := h.RunStage(f.ctx, api.StagePreInit)
	_, preAgain := h.RunStage(f.ctx, api.StagePreInit)
	_, initErr := h.RunStage(f.ctx, api.StageInit)
	report, clientErr := h.RunStage(f.ctx, api.StageClientInit)
	_, afterAll := h.RunStage(f.ctx, api.StageClientInit)
	lateLoad := h.Load(f.ctx)

	// --- Assert ---
	assert.ErrorIs(t, initFirst, loader.ErrStageOrder)
	assert.NoError(t, preErr)
	assert.ErrorIs(t, preAgain, loader.ErrStageOrder)
	assert.NoError(t, initErr)
	assert.NoError(t, clientErr)
	assert.ErrorIs(t, afterAll, loader.ErrStageOrder)
	require.Len(t, lateLoad, 1)
	assert.ErrorIs(t, lateLoad[0], loader.ErrStageOrder)

	assert.Equal(t, []string{"A-pre", "B-pre", "A-init", "B-init"}, trace)
	assert.Equal(t, []api.Stage{api.StagePreInit, api.StageInit, api.StageClientInit}, f.core.Calls())
	assert.Len(t, report.Results, 3)
	assert.NoError(t, report.Err())
}

func TestRunStage_HookFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	boom := errors.New("boom")
	failing := &testutil.FakeModule{ModName: "Failing", Init: func(*api.InitContext) error { return boom }}
	panicking := &testutil.FakeModule{ModName: "Panicking", Init: func(*api.InitContext) error { panic("kaput") }}
	healthy := &testutil.FakeModule{ModName: "Healthy", Init: func(ctx *api.InitContext) error {
		return ctx.RegisterBlock(&api.BaseBlock{}, "stone")
	}}
	f := newFixture(t, map[string]loader.Library{
		"a/failing.so":   testutil.ModuleLibrary(failing),
		"b/panicking.so": testutil.ModuleLibrary(panicking),
		"c/healthy.so":   testutil.ModuleLibrary(healthy),
	})
	h := f.host(loader.Options{})
	require.Empty(t, f.start(t, h))
	_, err := h.RunStage(f.ctx, api.StagePreInit)
	require.NoError(t, err)

	// --- Act ---
	report, err := h.RunStage(f.ctx, api.StageInit)

	// --- Assert ---
	require.NoError(t, err)
	failed := report.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "Failing", failed[0].Module)
	assert.ErrorIs(t, failed[0].Err, boom)
	assert.Equal(t, "Panicking", failed[1].Module)
	assert.ErrorIs(t, failed[1].Err, loader.ErrHookPanic)
	assert.ErrorIs(t, report.Err(), boom)

	_, ok := f.content.Block("Healthy:stone")
	assert.True(t, ok, "modules after a failing one still run")
	assert.Contains(t, f.logs.String(), "Module hook failed.")
}

func TestRunStage_ContextsExpireAfterHook(t *testing.T) {
	t.Parallel()

	var kept *api.InitContext
	m := &testutil.FakeModule{ModName: "Leaky", Init: func(ctx *api.InitContext) error {
		kept = ctx
		return nil
	}}
	f := newFixture(t, map[string]loader.Library{"leaky/leaky.so": testutil.ModuleLibrary(m)})
	h := f.host(loader.Options{})
	require.Empty(t, f.start(t, h))
	_, err := h.RunStage(f.ctx, api.StagePreInit)
	require.NoError(t, err)
	_, err = h.RunStage(f.ctx, api.StageInit)
	require.NoError(t, err)

	require.NotNil(t, kept)
	assert.Equal(t, "Leaky", kept.ModuleName())
	assert.ErrorIs(t, kept.RegisterBlock(&api.BaseBlock{}, "late"), api.ErrContextExpired)
	assert.Zero(t, f.content.BlockCount())
}

func TestRunStage_ClientInitSkipsServerOnlyModules(t *testing.T) {
	t.Parallel()

	headless := &testutil.FakeModule{ModName: "Headless", NoClient: true}
	f := newFixture(t, map[string]loader.Library{"h/h.so": testutil.ModuleLibrary(headless)})
	h := f.host(loader.Options{})
	require.Empty(t, f.start(t, h))

	for _, stage := range api.Stages {
		report, err := h.RunStage(f.ctx, stage)
		require.NoError(t, err)
		if stage == api.StageClientInit {
			require.Len(t, report.Results, 2)
			assert.False(t, report.Results[0].Skipped)
			assert.True(t, report.Results[1].Skipped)
		}
	}
	assert.Equal(t, []api.Stage{api.StagePreInit, api.StageInit}, headless.Calls())
}

func TestServerOnlyHost(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	clientOnly := &testutil.FakeModule{ModName: "Shiny", NoServer: true}
	f := newFixture(t, map[string]loader.Library{
		"s/shiny.so": testutil.ModuleLibrary(clientOnly),
		"w/work.so":  testutil.ModuleLibrary(&testutil.FakeModule{ModName: "Worker"}),
	})
	f.render = nil
	h := f.host(loader.Options{ServerOnly: true})

	// --- Act ---
	failures := f.start(t, h)
	_, preErr := h.RunStage(f.ctx, api.StagePreInit)
	_, initErr := h.RunStage(f.ctx, api.StageInit)
	_, clientErr := h.RunStage(f.ctx, api.StageClientInit)

	// --- Assert ---
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], loader.ErrServerUnsupported)
	assert.Equal(t, []string{"Fabrica", "Worker"}, names(h.Records()))
	assert.NoError(t, preErr)
	assert.NoError(t, initErr)
	assert.ErrorIs(t, clientErr, loader.ErrClientStageDisabled)
}

func TestRecords_LoggerAndConfig(t *testing.T) {
	t.Parallel()

	m := &testutil.FakeModule{ModName: "Chatty", PreInit: func(ctx *api.PreInitContext) error {
		ctx.Logger().Info("Hello from PreInit.")
		return nil
	}}
	f := newFixture(t, map[string]loader.Library{"c/chatty.so": testutil.ModuleLibrary(m)})
	h := f.host(loader.Options{})
	require.Empty(t, f.start(t, h))
	_, err := h.RunStage(f.ctx, api.StagePreInit)
	require.NoError(t, err)

	rec, ok := h.Record("Chatty")
	require.True(t, ok)
	assert.Equal(t, api.EmptyConfig{}, rec.Config())
	assert.Same(t, rec.Logger(), m.Logger())
	assert.Contains(t, f.logs.String(), `msg="Hello from PreInit." module=Chatty`)
}

func TestResolver_UsesRecords(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]loader.Library{
		"industria/industria.so": testutil.ModuleLibrary(&testutil.FakeModule{ModName: "Industria"}),
	})
	h := f.host(loader.Options{})
	require.Empty(t, f.start(t, h))

	res := h.Resolver()
	core := filepath.Join(f.root, "core")
	assert.Equal(t, filepath.Join(f.modules, "industria", "assets", "gear.png"),
		res.ResolveLocation(api.NewLocation("Industria", "gear.png")))
	assert.Equal(t, filepath.Join(core, "assets", "dirt.png"),
		res.ResolveLocation(api.NewLocation("Fabrica", "dirt.png")))
	assert.Equal(t, filepath.Join(core, "assets", "dirt.png"),
		res.ResolveLocation(api.NewLocation("Nobody", "dirt.png")))
}
