package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/cli"
	"github.com/progrium/clon-go"

	"github.com/progrium/multiplex-go/multiplex"
)

// SendCommand opens one channel, writes a value and prints the replies.
type SendCommand struct {
	UI cli.Ui

	flags   connFlags
	channel string
	count   int
	timeout time.Duration
}

func (c *SendCommand) Help() string {
	helpText := `
Usage: multiplex send [options] [value...]

  Opens a channel on a multiplex node, writes one value and prints the
  replies as JSON. Values are given in CLON notation, for example:

      multiplex send -channel chat user=ann text="hello there"

Options:

  -config=path        TOML config file.
  -transport=tcp      Transport: tcp, unix or ws.
  -addr=host:port     Address of the node.
  -codec=json         Payload codec: json or cbor, optionally with +frame.
  -channel=default    Name of the channel to open.
  -count=1            Number of replies to wait for.
  -timeout=5s         How long to wait for replies.
`
	return strings.TrimSpace(helpText)
}

func (c *SendCommand) Synopsis() string {
	return "Writes a value on a channel and prints replies"
}

func (c *SendCommand) Run(args []string) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.Usage = func() { c.UI.Output(c.Help()) }
	c.flags.register(fs)
	fs.StringVar(&c.channel, "channel", "default", "")
	fs.IntVar(&c.count, "count", 1, "")
	fs.DurationVar(&c.timeout, "timeout", 5*time.Second, "")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	var payload interface{} = ""
	if rest := fs.Args(); len(rest) > 0 {
		v, err := clon.Parse(rest)
		if err != nil {
			c.UI.Error(fmt.Sprintf("Error parsing value: %s", err))
			return 1
		}
		payload = v
	}

	cfg, err := c.flags.load()
	if err != nil {
		c.UI.Error(fmt.Sprintf("Invalid configuration: %s", err))
		return 1
	}
	logger := newLogger(cfg)

	conn, err := c.flags.dial(cfg, logger)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error connecting: %s", err))
		return 1
	}
	defer conn.Close()

	mp := multiplex.New(conn, multiplex.WithLogger(logger))
	mp.OnChannel(func(ch *multiplex.Channel) {
		logger.Info("peer opened channel", "name", ch.Name())
		ch.OnData(func(p interface{}) {
			logger.Info("peer channel message", "name", ch.Name(), "payload", p)
		})
	})

	ch := mp.Channel(c.channel)
	replies := make(chan interface{}, c.count)
	ch.OnData(func(p interface{}) {
		select {
		case replies <- p:
		default:
		}
	})
	conn.Start()
	ch.Write(payload)

	code := 0
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
wait:
	for i := 0; i < c.count; i++ {
		select {
		case p := <-replies:
			c.UI.Output(format(p))
		case <-timer.C:
			c.UI.Error(fmt.Sprintf("Timed out after %d of %d replies", i, c.count))
			code = 1
			break wait
		case <-conn.Done():
			c.UI.Error("Connection closed")
			return 1
		}
	}

	ch.End()
	return code
}

func format(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
