package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/fabrica/internal/app"
	"github.com/vk/fabrica/internal/config"
	"github.com/vk/fabrica/internal/loader"
	"github.com/vk/fabrica/pkg/api"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// LibraryExt is the library extension used by every harness layout.
const LibraryExt = ".so"

// HostSetup describes the directory layout and modules of one harness run.
type HostSetup struct {
	// Core replaces the built-in module when set.
	Core api.Module
	// Libraries maps "<dir>/<file>" under the modules root to the library
	// served for it. A nil library writes the file but fails to open.
	Libraries map[string]loader.Library
	// Files maps paths relative to the layout root to their contents.
	// Module configs go under "config/", assets under "assets/".
	Files map[string]string
	// Mutate adjusts the configuration before the App is built.
	Mutate func(cfg *config.Model)
}

// HarnessResult holds the outcomes of a harness run. LogOutput is the log
// captured up to the end of Start; Logs keeps receiving records afterwards.
type HarnessResult struct {
	Root      string
	LogOutput string
	Logs      *SafeBuffer
	Report    *app.StartupReport
	Err       error
	App       *app.App
	Opener    *Opener
}

// RunHost lays out a temporary host directory, builds an App over it with an
// in-memory opener, and starts it.
func RunHost(t *testing.T, setup HostSetup) *HarnessResult {
	t.Helper()
	return RunHostWithContext(context.Background(), t, setup)
}

// RunHostWithContext is RunHost with a caller provided context.
func RunHostWithContext(ctx context.Context, t *testing.T, setup HostSetup) *HarnessResult {
	t.Helper()

	root := t.TempDir()
	modulesDir := filepath.Join(root, "modules")
	require.NoError(t, os.MkdirAll(modulesDir, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))

	libs := make(map[string]loader.Library, len(setup.Libraries))
	for rel, lib := range setup.Libraries {
		path := filepath.Join(modulesDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("library"), 0o644))
		if lib != nil {
			libs[filepath.Base(path)] = lib
		}
	}
	for rel, content := range setup.Files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := config.Default()
	cfg.Paths.Core = root
	cfg.Paths.Config = filepath.Join(root, "config")
	cfg.Paths.Modules = modulesDir
	cfg.Log.Level = "debug"
	if setup.Mutate != nil {
		setup.Mutate(cfg)
	}

	opener := NewOpener(libs)
	opts := []app.Option{app.WithOpener(opener), app.WithLibraryExt(LibraryExt)}
	if setup.Core != nil {
		opts = append(opts, app.WithCore(setup.Core))
	}

	logs := &SafeBuffer{}
	res := &HarnessResult{Root: root, Logs: logs, Opener: opener}
	res.App, res.Err = app.NewApp(logs, cfg, opts...)
	if res.Err == nil {
		t.Cleanup(func() { _ = res.App.Close() })
		res.Report, res.Err = res.App.Start(ctx)
	}
	res.LogOutput = logs.String()

	if os.Getenv("FABRICA_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.LogOutput)
	}
	return res
}
