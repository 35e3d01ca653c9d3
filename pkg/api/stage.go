package api

// Stage is one globally barriered phase of startup.
type Stage int

const (
	// StagePreInit lets modules read early configuration.
	StagePreInit Stage = iota
	// StageInit is where blocks and items are registered.
	StageInit
	// StageClientInit is where renderers are bound. It never runs on a
	// server-only host.
	StageClientInit
)

// Stages lists every stage in execution order.
var Stages = []Stage{StagePreInit, StageInit, StageClientInit}

// String returns a human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StagePreInit:
		return "pre-init"
	case StageInit:
		return "init"
	case StageClientInit:
		return "client-init"
	default:
		return "unknown"
	}
}
