package main

import (
	"fmt"

	"github.com/hashicorp/cli"
)

// VersionCommand prints the version.
type VersionCommand struct {
	UI cli.Ui
}

func (c *VersionCommand) Help() string {
	return "Usage: multiplex version"
}

func (c *VersionCommand) Run(_ []string) int {
	c.UI.Output(fmt.Sprintf("multiplex v%s", version))
	return 0
}

func (c *VersionCommand) Synopsis() string {
	return "Prints the version"
}
