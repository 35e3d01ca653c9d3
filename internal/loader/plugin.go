package loader

import (
	"plugin"
	"runtime"
)

// Library is an opened module library.
type Library interface {
	// Lookup returns a pointer to the exported variable or function symbol.
	Lookup(symbol string) (any, error)
}

// Opener opens module libraries.
type Opener interface {
	Open(path string) (Library, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Library, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Library, error) { return f(path) }

// PluginOpener opens libraries built with -buildmode=plugin. Go plugins
// cannot be closed, so a loaded library stays mapped for the process lifetime.
type PluginOpener struct{}

// Open opens the plugin at path.
func (PluginOpener) Open(path string) (Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return pluginLibrary{p: p}, nil
}

type pluginLibrary struct {
	p *plugin.Plugin
}

func (l pluginLibrary) Lookup(symbol string) (any, error) {
	sym, err := l.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// DefaultLibraryExt is the file extension of module libraries on this platform.
func DefaultLibraryExt() string {
	if runtime.GOOS == "windows" {
		return ".dll"
	}
	return ".so"
}
