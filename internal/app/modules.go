package app

import (
	"github.com/vk/fabrica/modules/core"
	"github.com/vk/fabrica/pkg/api"
)

// coreModule builds the module compiled into the fabrica binary. It is
// always loaded first and its base path is the fallback for unknown
// resource domains.
func coreModule() api.Module {
	return core.New()
}
