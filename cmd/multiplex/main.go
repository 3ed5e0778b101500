package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/cli"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ui := &cli.BasicUi{
		Reader:      os.Stdin,
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	c := cli.NewCLI("multiplex", version)
	c.Args = args
	c.Commands = map[string]cli.CommandFactory{
		"serve": func() (cli.Command, error) {
			return &ServeCommand{UI: ui}, nil
		},
		"send": func() (cli.Command, error) {
			return &SendCommand{UI: ui}, nil
		},
		"bench": func() (cli.Command, error) {
			return &BenchCommand{UI: ui}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{UI: ui}, nil
		},
	}

	code, err := c.Run()
	if err != nil {
		ui.Error(fmt.Sprintf("Error executing CLI: %s", err))
		return 1
	}
	return code
}
