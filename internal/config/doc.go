// Package config defines the format-agnostic configuration model of the host,
// along with the interfaces (Loader, ModuleLoader) used to read it.
//
// Concrete implementations, such as the HCL one, live in separate packages.
package config
