package api

import "github.com/zclconf/go-cty/cty"

// Config is a module's own configuration, read from "<module>.hcl" in the
// host's configuration directory. A module without a file gets an empty
// Config: Decode leaves the target untouched and Value finds nothing.
type Config interface {
	// Path is the file the configuration was read from, or "" if none.
	Path() string
	// Decode fills target, a pointer to a struct with `hcl` tags. Fields
	// missing from the file keep their current values when tagged optional.
	Decode(target any) error
	// Value returns a top-level attribute.
	Value(name string) (cty.Value, bool)
	// DecodeAttr converts the top-level attribute name into target, a
	// pointer. A missing attribute leaves target untouched.
	DecodeAttr(name string, target any) error
}

// EmptyConfig is the Config of a module that has no configuration file.
type EmptyConfig struct{}

// Path returns "".
func (EmptyConfig) Path() string { return "" }

// Decode leaves target untouched.
func (EmptyConfig) Decode(any) error { return nil }

// Value finds nothing.
func (EmptyConfig) Value(string) (cty.Value, bool) { return cty.NilVal, false }

// DecodeAttr leaves target untouched.
func (EmptyConfig) DecodeAttr(string, any) error { return nil }
