package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLocalName is returned when a module registers content under an
// empty local name or one that contains the ':' separator.
var ErrInvalidLocalName = errors.New("invalid local name")

// Block is the uniform shared by every placed instance of one block kind.
// Registries hold blocks by identity, so implementations should be pointers
// with process lifetime.
type Block interface {
	// IsOpaque reports whether the block hides what is behind it.
	IsOpaque() bool
	// IsSideSolid reports whether the given face fully covers its neighbour.
	IsSideSolid(face Facing) bool
}

// Item is the uniform shared by every stack of one item kind.
type Item interface {
	// MaxStack is the largest stack size of the item.
	MaxStack() int
}

// BaseBlock is an opaque full cube. Embed it to get the default behaviour.
type BaseBlock struct{}

// IsOpaque returns true.
func (BaseBlock) IsOpaque() bool { return true }

// IsSideSolid returns true for every face.
func (BaseBlock) IsSideSolid(Facing) bool { return true }

// QualifiedName joins a module name and a local name as "<module>:<local>".
func QualifiedName(module, local string) string {
	return module + ":" + local
}

// SplitQualifiedName breaks "<module>:<local>" into its two parts.
func SplitQualifiedName(name string) (module, local string, err error) {
	module, local, ok := strings.Cut(name, ":")
	if !ok || module == "" || local == "" || strings.Contains(local, ":") {
		return "", "", fmt.Errorf("malformed qualified name %q", name)
	}
	return module, local, nil
}

func checkLocalName(local string) error {
	if local == "" || strings.Contains(local, ":") {
		return fmt.Errorf("%w: %q", ErrInvalidLocalName, local)
	}
	return nil
}
