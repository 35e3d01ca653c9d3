// Package hcl provides the HCL implementation of the configuration loaders
// defined in the config package: the host configuration file and the
// per-module configuration files handed to modules during PreInit.
package hcl
