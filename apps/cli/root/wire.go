package root

import (
	"github.com/zenGate-Global/palmyra-gacha/apps/cli/cmd/auth"
	"github.com/zenGate-Global/palmyra-gacha/apps/cli/cmd/bootstrap"
	imagescmd "github.com/zenGate-Global/palmyra-gacha/apps/cli/cmd/images"
	tenantcmd "github.com/zenGate-Global/palmyra-gacha/apps/cli/cmd/tenant"
	usercmd "github.com/zenGate-Global/palmyra-gacha/apps/cli/cmd/user"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(tenantcmd.Command())
	Root().AddCommand(usercmd.Command())
	Root().AddCommand(imagescmd.Command())
}
