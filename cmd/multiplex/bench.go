package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/cli"

	"github.com/progrium/multiplex-go/codec"
	"github.com/progrium/multiplex-go/host"
	"github.com/progrium/multiplex-go/multiplex"
)

// BenchCommand measures echo throughput across many channels, either
// against a node at -addr or against a `multiplex serve -stdio` subprocess.
type BenchCommand struct {
	UI cli.Ui

	flags    connFlags
	channels int
	messages int
	timeout  time.Duration
}

func (c *BenchCommand) Help() string {
	helpText := `
Usage: multiplex bench [options]

  Opens a number of channels, writes messages on each and waits for every
  echo. Without -addr the benchmark runs against a "multiplex serve -stdio"
  subprocess.

Options:

  -addr=host:port     Benchmark a running node instead of a subprocess.
  -transport=tcp      Transport used with -addr.
  -codec=json         Payload codec: json or cbor, optionally with +frame.
  -channels=10        Number of channels.
  -messages=1000      Messages per channel.
  -timeout=1m         Give up after this long.
`
	return strings.TrimSpace(helpText)
}

func (c *BenchCommand) Synopsis() string {
	return "Benchmarks channel echo throughput"
}

func (c *BenchCommand) Run(args []string) int {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.Usage = func() { c.UI.Output(c.Help()) }
	c.flags.register(fs)
	fs.IntVar(&c.channels, "channels", 10, "")
	fs.IntVar(&c.messages, "messages", 1000, "")
	fs.DurationVar(&c.timeout, "timeout", time.Minute, "")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := c.flags.load()
	if err != nil {
		c.UI.Error(fmt.Sprintf("Invalid configuration: %s", err))
		return 1
	}
	logger := newLogger(cfg)

	var conn *host.Conn
	if c.flags.addr != "" {
		conn, err = c.flags.dial(cfg, logger)
		if err != nil {
			c.UI.Error(fmt.Sprintf("Error connecting: %s", err))
			return 1
		}
	} else {
		cd, err := codec.ByName(cfg.Server.Codec)
		if err != nil {
			c.UI.Error(err.Error())
			return 1
		}
		path, err := os.Executable()
		if err != nil {
			c.UI.Error(err.Error())
			return 1
		}
		cmd := exec.Command(path, "serve", "-stdio", "-codec", cfg.Server.Codec, "-log-level", "warn")
		cmd.Stderr = os.Stderr
		wc, err := cmd.StdinPipe()
		if err != nil {
			c.UI.Error(err.Error())
			return 1
		}
		rc, err := cmd.StdoutPipe()
		if err != nil {
			c.UI.Error(err.Error())
			return 1
		}
		conn, err = host.DialIO(wc, rc, cd, host.WithLogger(logger.Named("host")))
		if err != nil {
			c.UI.Error(err.Error())
			return 1
		}
		if err := cmd.Start(); err != nil {
			c.UI.Error(fmt.Sprintf("Error starting server: %s", err))
			return 1
		}
		defer func() {
			cmd.Process.Signal(os.Interrupt)
			cmd.Wait()
		}()
	}
	defer conn.Close()

	mp := multiplex.New(conn, multiplex.WithLogger(logger))
	var wg sync.WaitGroup
	chans := make([]*multiplex.Channel, c.channels)
	for i := range chans {
		ch := mp.Channel(fmt.Sprintf("bench-%d", i))
		wg.Add(c.messages)
		ch.OnData(func(interface{}) { wg.Done() })
		chans[i] = ch
	}

	start := time.Now()
	conn.Start()
	for _, ch := range chans {
		for j := 0; j < c.messages; j++ {
			ch.Write(j)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(c.timeout):
		c.UI.Error("Timed out waiting for echoes")
		return 1
	case <-conn.Done():
		c.UI.Error("Connection closed")
		return 1
	}
	elapsed := time.Since(start)

	total := c.channels * c.messages
	c.UI.Output(fmt.Sprintf("%d messages over %d channels in %s (%.0f msg/s)",
		total, c.channels, elapsed, float64(total)/elapsed.Seconds()))

	for _, ch := range chans {
		ch.End()
	}
	return 0
}
