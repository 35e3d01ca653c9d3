// Package resolver maps resource locations to filesystem paths using the
// base directory of each loaded module.
package resolver

import (
	"path/filepath"

	"github.com/vk/fabrica/pkg/api"
)

// AssetsDir is the directory, inside a module's base path, that holds its
// resources.
const AssetsDir = "assets"

// Domain is one resolvable namespace: a module name and its base path.
type Domain struct {
	Name     string
	BasePath string
}

// Table is the source of truth for resolution. Resolution is a pure
// function of what the table returns at call time.
type Table interface {
	// Domains lists the known domains in table order. The first match wins.
	Domains() []Domain
	// DefaultBase is used for domains the table does not know.
	DefaultBase() string
}

// Resolver resolves domains and resource locations against a Table.
type Resolver struct {
	table Table
}

var _ api.Resolver = (*Resolver)(nil)

// New creates a Resolver reading from table.
func New(table Table) *Resolver {
	return &Resolver{table: table}
}

// ResolveDomain returns "<base>/assets" for the module named domain, or the
// default base's assets directory when no module matches. It scans every
// domain, so it is not meant for hot paths.
func (r *Resolver) ResolveDomain(domain string) string {
	for _, d := range r.table.Domains() {
		if d.Name == domain {
			return filepath.Join(d.BasePath, AssetsDir)
		}
	}
	return filepath.Join(r.table.DefaultBase(), AssetsDir)
}

// ResolveLocation returns ResolveDomain(loc.Domain) joined with loc.Path.
func (r *Resolver) ResolveLocation(loc api.ResourceLocation) string {
	return filepath.Join(r.ResolveDomain(loc.Domain), filepath.FromSlash(loc.Path))
}
