// Command industria is an example Fabrica module built as a plugin:
//
//	go build -buildmode=plugin -o modules/industria/industria.so ./modules/industria
//
// Its optional configuration lives in <config dir>/Industria.hcl:
//
//	greeting = "hello from the config"
package main

import (
	"github.com/vk/fabrica/pkg/api"
)

// Module is the entry symbol the host looks up.
var Module api.Module = &industria{}

const defaultGreeting = "Industria is here."

type industria struct {
	api.Base
	greeting string
}

func (m *industria) Name() string    { return "Industria" }
func (m *industria) Version() string { return "1.2.3" }

func (m *industria) OnPreInit(ctx *api.PreInitContext) error {
	m.greeting = defaultGreeting
	if err := ctx.Config().DecodeAttr("greeting", &m.greeting); err != nil {
		return err
	}
	ctx.Logger().Info(m.greeting, "config", ctx.Config().Path())
	return nil
}

func main() {}
