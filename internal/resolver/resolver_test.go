package resolver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/fabrica/pkg/api"
)

type staticTable struct {
	domains []Domain
	base    string
}

func (t *staticTable) Domains() []Domain  { return t.domains }
func (t *staticTable) DefaultBase() string { return t.base }

func TestResolveDomain(t *testing.T) {
	t.Parallel()

	table := &staticTable{
		base: filepath.Join("srv", "core"),
		domains: []Domain{
			{Name: "Fabrica", BasePath: filepath.Join("srv", "core")},
			{Name: "Industria", BasePath: filepath.Join("srv", "modules", "industria")},
		},
	}
	r := New(table)

	assert.Equal(t, filepath.Join("srv", "modules", "industria", "assets"), r.ResolveDomain("Industria"))
	assert.Equal(t, filepath.Join("srv", "core", "assets"), r.ResolveDomain("Fabrica"))
	assert.Equal(t, filepath.Join("srv", "core", "assets"), r.ResolveDomain("unknown"))
}

func TestResolveLocation_UnknownDomainFallsBackToDefault(t *testing.T) {
	t.Parallel()

	table := &staticTable{base: "core", domains: []Domain{{Name: "Fabrica", BasePath: "core"}}}
	r := New(table)

	unknown := r.ResolveLocation(api.NewLocation("nobody", "blocks/dirt.png"))
	core := r.ResolveLocation(api.NewLocation("Fabrica", "blocks/dirt.png"))

	assert.Equal(t, core, unknown)
	assert.Equal(t, filepath.Join("core", "assets", "blocks", "dirt.png"), unknown)
}

func TestResolve_ReadsTableAtCallTime(t *testing.T) {
	t.Parallel()

	table := &staticTable{base: "core"}
	r := New(table)
	assert.Equal(t, filepath.Join("core", "assets"), r.ResolveDomain("late"))

	table.domains = append(table.domains, Domain{Name: "late", BasePath: "late_dir"})
	assert.Equal(t, filepath.Join("late_dir", "assets"), r.ResolveDomain("late"))
}

func TestResolveDomain_FirstMatchWins(t *testing.T) {
	t.Parallel()

	table := &staticTable{base: "core", domains: []Domain{
		{Name: "dup", BasePath: "first"},
		{Name: "dup", BasePath: "second"},
	}}
	assert.Equal(t, filepath.Join("first", "assets"), New(table).ResolveDomain("dup"))
}
