package api

import (
	"fmt"
	"strings"
)

// ResourceLocation names an asset inside a module's asset directory. The
// domain is a module name; the path is relative to that module's "assets"
// directory and uses forward slashes.
//
// ResourceLocation is comparable and can key maps; Compare gives the total
// order (domain, then path) used for sorted containers.
type ResourceLocation struct {
	Domain string
	Path   string
}

// NewLocation returns the location of path inside domain.
func NewLocation(domain, path string) ResourceLocation {
	return ResourceLocation{Domain: domain, Path: path}
}

// ParseLocation parses the "<domain>:<path>" form produced by String.
func ParseLocation(s string) (ResourceLocation, error) {
	domain, path, ok := strings.Cut(s, ":")
	if !ok || domain == "" || path == "" {
		return ResourceLocation{}, fmt.Errorf("malformed resource location %q: want <domain>:<path>", s)
	}
	return ResourceLocation{Domain: domain, Path: path}, nil
}

// String returns "<domain>:<path>".
func (l ResourceLocation) String() string {
	return l.Domain + ":" + l.Path
}

// Compare orders locations by domain, then by path. It returns -1, 0 or +1.
func (l ResourceLocation) Compare(o ResourceLocation) int {
	if c := strings.Compare(l.Domain, o.Domain); c != 0 {
		return c
	}
	return strings.Compare(l.Path, o.Path)
}

// Less reports whether l sorts before o.
func (l ResourceLocation) Less(o ResourceLocation) bool {
	return l.Compare(o) < 0
}
