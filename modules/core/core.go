// Package core is the built-in Fabrica module. It is compiled into the host,
// always loaded first, and owns the base content every world relies on.
package core

import (
	"fmt"

	"github.com/vk/fabrica/pkg/api"
	"github.com/vk/fabrica/pkg/renderer"
)

const (
	// Name is the procedural name of the built-in module.
	Name = "Fabrica"
	// Version is the version of the built-in module.
	Version = "0.0.1"
)

// Block is a plain full cube known by its local name.
type Block struct {
	api.BaseBlock
	local string
}

// LocalName is the name the block is registered under, without the module prefix.
func (b *Block) LocalName() string { return b.local }

// Module is the built-in module. Its blocks are process-lifetime values so
// that renderer bindings made in ClientInit stay valid.
type Module struct {
	api.Base

	Grass *Block
	Dirt  *Block

	grassRenderer *renderer.Faced
	dirtRenderer  *renderer.Uniform
}

var _ api.Module = (*Module)(nil)

// New creates the built-in module.
func New() *Module {
	return &Module{
		Grass: &Block{local: "grass"},
		Dirt:  &Block{local: "dirt"},
	}
}

func (m *Module) Name() string    { return Name }
func (m *Module) Version() string { return Version }

// OnInit registers the base blocks.
func (m *Module) OnInit(ctx *api.InitContext) error {
	for _, b := range []*Block{m.Grass, m.Dirt} {
		if err := ctx.RegisterBlock(b, b.local); err != nil {
			return err
		}
	}
	ctx.Logger().Debug("Core blocks registered.", "count", 2)
	return nil
}

// OnClientInit binds the renderers of the base blocks.
func (m *Module) OnClientInit(ctx *api.ClientInitContext) error {
	grass, err := renderer.NewFaced(map[api.ResourceLocation]api.Facing{
		api.NewLocation(Name, "dirt.png"):       api.Down,
		api.NewLocation(Name, "grass_side.png"): api.North | api.South | api.West | api.East,
		api.NewLocation(Name, "grass_top.png"):  api.Up,
	})
	if err != nil {
		return fmt.Errorf("grass renderer: %w", err)
	}
	m.grassRenderer = grass
	m.dirtRenderer = renderer.NewUniform(api.NewLocation(Name, "dirt.png"))

	if err := ctx.RegisterRenderer(m.Grass, m.grassRenderer); err != nil {
		return err
	}
	return ctx.RegisterRenderer(m.Dirt, m.dirtRenderer)
}

// GrassRenderer returns the renderer bound to grass during ClientInit.
func (m *Module) GrassRenderer() *renderer.Faced { return m.grassRenderer }

// DirtRenderer returns the renderer bound to dirt during ClientInit.
func (m *Module) DirtRenderer() *renderer.Uniform { return m.dirtRenderer }
