// Package registry holds the logical content contributed by modules.
//
// Blocks and items are stored under their qualified names
// ("<module>:<local>"). The registry never owns what it stores: modules keep
// their block and item values alive for the lifetime of the process, and the
// registry only maps names to them.
//
// Each table has its own mutex so that a module's worker goroutines can
// register concurrently with lookups on the other table. No critical section
// calls back into module code.
package registry
