package module_contract_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/fabrica/internal/loader"
	"github.com/vk/fabrica/internal/testutil"
	"github.com/vk/fabrica/pkg/api"
	"github.com/vk/fabrica/pkg/renderer"
)

type oreBlock struct {
	api.BaseBlock
	kind string
}

func TestModuleLifecycle_ConfigContentAndTextures(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	png, err := os.ReadFile(filepath.Join("..", "..", "..", "assets", "dirt.png"))
	require.NoError(t, err)

	ore := &oreBlock{kind: "copper"}
	oreRenderer := renderer.NewUniform(api.NewLocation("Ores", "ore.png"))
	var (
		rarity   int
		resolved string
	)
	mod := &testutil.FakeModule{
		ModName:    "Ores",
		ModVersion: "0.4.0",
		PreInit: func(ctx *api.PreInitContext) error {
			resolved = ctx.ResolveLocation(api.NewLocation("Ores", "ore.png"))
			return ctx.Config().DecodeAttr("rarity", &rarity)
		},
		Init: func(ctx *api.InitContext) error {
			return ctx.RegisterBlock(ore, ore.kind+"_ore")
		},
		ClientInit: func(ctx *api.ClientInitContext) error {
			return ctx.RegisterRenderer(ore, oreRenderer)
		},
	}

	// --- Act ---
	res := testutil.RunHost(t, testutil.HostSetup{
		Libraries: map[string]loader.Library{"ores/ores.so": testutil.ModuleLibrary(mod)},
		Files: map[string]string{
			"config/Ores.hcl":             "rarity = 7\n",
			"modules/ores/assets/ore.png": string(png),
		},
	})
	require.NoError(t, res.Err)
	tm, err := res.App.BuildTextures(context.Background())
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, 7, rarity)
	assert.Equal(t, filepath.Join(res.Root, "modules", "ores", "assets", "ore.png"), resolved)

	got, ok := res.App.Content().Block("Ores:copper_ore")
	require.True(t, ok)
	assert.Same(t, ore, got)

	chart := oreRenderer.Chart(api.Up)
	require.NotEqual(t, renderer.Unassigned, chart)
	assert.Same(t, ore, tm.Charts()[chart])
	uvw, err := tm.ChartUVW(chart)
	require.NoError(t, err)
	assert.Less(t, uvw.U0, uvw.U1)
}

func TestModuleLifecycle_ContextExpiresAfterHook(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var kept *api.InitContext
	mod := &testutil.FakeModule{
		ModName: "Leaky",
		Init: func(ctx *api.InitContext) error {
			kept = ctx
			return nil
		},
	}

	// --- Act ---
	res := testutil.RunHost(t, testutil.HostSetup{
		Libraries: map[string]loader.Library{"leaky/leaky.so": testutil.ModuleLibrary(mod)},
	})

	// --- Assert ---
	require.NoError(t, res.Err)
	require.NotNil(t, kept)
	err := kept.RegisterBlock(&oreBlock{kind: "late"}, "late")
	assert.ErrorIs(t, err, api.ErrContextExpired)
	_, ok := res.App.Content().Block("Leaky:late")
	assert.False(t, ok)
}

func TestModuleLifecycle_ModuleLoggerIsNamed(t *testing.T) {
	t.Parallel()

	mod := &testutil.FakeModule{
		ModName: "Chatty",
		PreInit: func(ctx *api.PreInitContext) error {
			ctx.Logger().Info("chatty module says hi")
			return nil
		},
	}

	res := testutil.RunHost(t, testutil.HostSetup{
		Libraries: map[string]loader.Library{"chatty/chatty.so": testutil.ModuleLibrary(mod)},
	})

	require.NoError(t, res.Err)
	assert.Contains(t, res.LogOutput, "module=Chatty")
	assert.Contains(t, res.LogOutput, "chatty module says hi")
}
