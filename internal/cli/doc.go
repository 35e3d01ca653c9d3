// Package cli builds the fabrica command tree on cobra, translates flags and
// the host configuration file into the application's configuration, and maps
// failures to process exit codes.
package cli
