// Package app wires one Fabrica host together: configuration, logging, the
// content and render registries, the module host and the texture atlas. It
// replaces process-wide singletons with a single App value that owns them,
// decoupled from any entrypoint like a CLI.
package app
