// Package urfavecli has utilities for working with urfave/cli.
package urfavecli

import (
	cli "github.com/urfave/cli/v2"

	"go.therock.dev/infra/go/sklog"
)

// LogFlags logs the name and value of every flag of the running app. Always
// logging the effective flag values makes CI failures diagnosable from the
// logs alone.
func LogFlags(c *cli.Context) {
	for _, flag := range c.App.Flags {
		name := flag.Names()[0]
		sklog.Infof("Flags: --%s=%v", name, c.Value(name))
	}
}
