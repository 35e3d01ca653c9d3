// Package api is the contract between the Fabrica host and its modules.
//
// A module is an independently compiled extension unit. It exports a single
// value implementing Module under the symbol named by EntrySymbol, and the
// host drives it through three globally barriered stages:
//
//   - PreInit: the module reads its configuration. Nothing can be registered.
//   - Init: blocks and items are registered under "<module>:<local>" names.
//   - ClientInit: renderers are bound to the blocks registered during Init.
//
// Each hook receives a context scoped to that stage and that module. The
// context carries the module's name, so everything registered through it is
// namespaced automatically. Contexts expire when the hook returns and must
// not be retained.
//
// A minimal module embeds Base and overrides only what it needs:
//
//	type Mod struct{ api.Base }
//
//	func (m *Mod) Name() string    { return "Industria" }
//	func (m *Mod) Version() string { return "1.2.3" }
//
//	func (m *Mod) OnInit(ctx *api.InitContext) error {
//		return ctx.RegisterBlock(&ore, "ore")
//	}
//
//	var Module api.Module = &Mod{}
package api
