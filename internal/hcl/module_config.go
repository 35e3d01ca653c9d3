package hcl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/fabrica/internal/ctxlog"
	"github.com/vk/fabrica/pkg/api"
	"github.com/zclconf/go-cty/cty"
)

// ModuleConfig is the api.Config read from one module's HCL file.
type ModuleConfig struct {
	path   string
	body   hcl.Body
	values map[string]cty.Value
	logger *slog.Logger
}

var _ api.Config = (*ModuleConfig)(nil)

func newModuleConfig(ctx context.Context, path string, body hcl.Body) (*ModuleConfig, error) {
	attrs, diags := topLevelAttributes(body)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read attributes of %s: %w", path, diags)
	}

	values := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate %q in %s: %w", name, path, diags)
		}
		values[name] = val
	}

	return &ModuleConfig{
		path:   path,
		body:   body,
		values: values,
		logger: ctxlog.FromContext(ctx),
	}, nil
}

// topLevelAttributes returns the attributes of body and ignores its blocks,
// so that modules may nest blocks they decode themselves.
func topLevelAttributes(body hcl.Body) (hcl.Attributes, hcl.Diagnostics) {
	sb, ok := body.(*hclsyntax.Body)
	if !ok {
		return body.JustAttributes()
	}
	attrs := make(hcl.Attributes, len(sb.Attributes))
	for name, attr := range sb.Attributes {
		attrs[name] = attr.AsHCLAttribute()
	}
	return attrs, nil
}

// Path is the file the configuration was read from.
func (c *ModuleConfig) Path() string { return c.path }

// Decode decodes the whole file into target with gohcl. The target must
// declare every attribute and block of the file.
func (c *ModuleConfig) Decode(target any) error {
	if diags := gohcl.DecodeBody(c.body, nil, target); diags.HasErrors() {
		return fmt.Errorf("failed to decode %s: %w", c.path, diags)
	}
	return nil
}

// Value returns the evaluated top-level attribute name.
func (c *ModuleConfig) Value(name string) (cty.Value, bool) {
	v, ok := c.values[name]
	return v, ok
}

// DecodeAttr converts the attribute name into target, converting between
// compatible cty types when needed. Absent and null attributes leave target
// untouched.
func (c *ModuleConfig) DecodeAttr(name string, target any) error {
	v, ok := c.values[name]
	if !ok {
		return nil
	}
	if err := decodeAttr(c.logger, v, target); err != nil {
		return fmt.Errorf("attribute %q in %s: %w", name, c.path, err)
	}
	return nil
}
