package api

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// ErrContextExpired is returned by every registration made through a stage
// context after the hook that received it has returned.
var ErrContextExpired = errors.New("stage context used after its hook returned")

// ContentRegistrar receives the blocks and items registered during Init.
type ContentRegistrar interface {
	RegisterBlock(block Block, qualifiedName string) error
	RegisterItem(item Item, qualifiedName string) error
}

// RenderRegistrar receives the renderer bindings made during ClientInit.
type RenderRegistrar interface {
	RegisterRenderer(block Block, renderer Renderer) error
}

// Resolver turns resource locations into filesystem paths.
type Resolver interface {
	ResolveDomain(domain string) string
	ResolveLocation(loc ResourceLocation) string
}

// scope is the part shared by every stage context.
type scope struct {
	module  string
	stage   Stage
	logger  *slog.Logger
	expired atomic.Bool
}

func (s *scope) init(module string, stage Stage, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.module = module
	s.stage = stage
	s.logger = logger
}

// ModuleName is the name of the module the context was built for.
func (s *scope) ModuleName() string { return s.module }

// Stage is the stage the context belongs to.
func (s *scope) Stage() Stage { return s.stage }

// Logger is the module's dedicated logger.
func (s *scope) Logger() *slog.Logger { return s.logger }

// Expire invalidates the context. The host calls it when the hook returns.
func (s *scope) Expire() { s.expired.Store(true) }

// Expired reports whether Expire has been called.
func (s *scope) Expired() bool { return s.expired.Load() }

func (s *scope) check() error {
	if s.expired.Load() {
		return fmt.Errorf("%w: module %s, stage %s", ErrContextExpired, s.module, s.stage)
	}
	return nil
}

// PreInitContext is handed to OnPreInit. It exposes configuration and
// resource resolution; nothing can be registered yet.
type PreInitContext struct {
	scope
	config   Config
	resolver Resolver
}

// NewPreInitContext builds the PreInit context of one module.
func NewPreInitContext(module string, logger *slog.Logger, config Config, resolver Resolver) *PreInitContext {
	if config == nil {
		config = EmptyConfig{}
	}
	c := &PreInitContext{config: config, resolver: resolver}
	c.init(module, StagePreInit, logger)
	return c
}

// Config returns the module's configuration.
func (c *PreInitContext) Config() Config { return c.config }

// ResolveLocation returns the filesystem path of loc.
func (c *PreInitContext) ResolveLocation(loc ResourceLocation) string {
	return c.resolver.ResolveLocation(loc)
}

// InitContext is handed to OnInit. Content registered through it is named
// "<module>:<local>".
type InitContext struct {
	scope
	content ContentRegistrar
}

// NewInitContext builds the Init context of one module.
func NewInitContext(module string, logger *slog.Logger, content ContentRegistrar) *InitContext {
	c := &InitContext{content: content}
	c.init(module, StageInit, logger)
	return c
}

// RegisterBlock registers block as "<module>:<localName>".
func (c *InitContext) RegisterBlock(block Block, localName string) error {
	if err := c.check(); err != nil {
		return err
	}
	if err := checkLocalName(localName); err != nil {
		return err
	}
	return c.content.RegisterBlock(block, QualifiedName(c.module, localName))
}

// RegisterItem registers item as "<module>:<localName>".
func (c *InitContext) RegisterItem(item Item, localName string) error {
	if err := c.check(); err != nil {
		return err
	}
	if err := checkLocalName(localName); err != nil {
		return err
	}
	return c.content.RegisterItem(item, QualifiedName(c.module, localName))
}

// ClientInitContext is handed to OnClientInit. Renderers are bound by block
// identity, not by name.
type ClientInitContext struct {
	scope
	render   RenderRegistrar
	resolver Resolver
}

// NewClientInitContext builds the ClientInit context of one module.
func NewClientInitContext(module string, logger *slog.Logger, render RenderRegistrar, resolver Resolver) *ClientInitContext {
	c := &ClientInitContext{render: render, resolver: resolver}
	c.init(module, StageClientInit, logger)
	return c
}

// RegisterRenderer binds renderer to block.
func (c *ClientInitContext) RegisterRenderer(block Block, renderer Renderer) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.render.RegisterRenderer(block, renderer)
}

// ResolveLocation returns the filesystem path of loc.
func (c *ClientInitContext) ResolveLocation(loc ResourceLocation) string {
	return c.resolver.ResolveLocation(loc)
}
