// Package logging builds the hclog logger used across the node.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/progrium/multiplex-go/config"
)

// New returns a logger writing to w, or stderr when w is nil.
func New(name string, cfg config.LogConfig, w io.Writer) hclog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		JSONFormat: cfg.JSON,
		Output:     w,
	})
}
