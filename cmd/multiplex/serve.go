package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"

	"github.com/progrium/multiplex-go/codec"
	"github.com/progrium/multiplex-go/config"
	"github.com/progrium/multiplex-go/host"
	"github.com/progrium/multiplex-go/multiplex"
)

// ServeCommand accepts connections and echoes every channel the peer opens,
// or relays the channels to an upstream node.
type ServeCommand struct {
	UI cli.Ui

	flags    connFlags
	upstream string
	stdio    bool
}

func (c *ServeCommand) Help() string {
	helpText := `
Usage: multiplex serve [options]

  Accepts connections and serves multiplexed channels on them. Every
  channel a client opens is echoed back, unless -upstream is given, in
  which case channels are relayed to the upstream node under the same
  name. Channels listed in the config file are opened towards each client
  with a welcome message.

Options:

  -config=path        TOML config file.
  -transport=tcp      Transport: tcp, unix or ws.
  -addr=host:port     Address to listen on.
  -codec=json         Payload codec: json or cbor, optionally with +frame.
  -upstream=host:port Relay channels to this node.
  -stdio              Serve a single connection on stdin and stdout.
  -log-level=info     Log level.
`
	return strings.TrimSpace(helpText)
}

func (c *ServeCommand) Synopsis() string {
	return "Serves multiplexed channels"
}

func (c *ServeCommand) Run(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() { c.UI.Output(c.Help()) }
	c.flags.register(fs)
	fs.StringVar(&c.upstream, "upstream", "", "")
	fs.BoolVar(&c.stdio, "stdio", false, "")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := c.flags.load()
	if err != nil {
		c.UI.Error(fmt.Sprintf("Invalid configuration: %s", err))
		return 1
	}
	if c.upstream != "" {
		cfg.Server.Upstream = c.upstream
	}
	logger := newLogger(cfg)

	inm := metrics.NewInmemSink(10*time.Second, time.Minute)
	metrics.DefaultInmemSignal(inm)
	if _, err := metrics.NewGlobal(metrics.DefaultConfig("multiplex"), inm); err != nil {
		c.UI.Error(fmt.Sprintf("Error setting up metrics: %s", err))
		return 1
	}

	cd, err := codec.ByName(cfg.Server.Codec)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	opts := []host.Option{host.WithLogger(logger.Named("host"))}

	if c.stdio {
		conn, err := host.DialStdio(cd, opts...)
		if err != nil {
			logger.Error("stdio connection failed", "error", err)
			return 1
		}
		if err := serveConn(cfg, cd, logger, conn); err != nil {
			logger.Error("connection ended", "error", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := host.Listen(cfg.Server.Transport, cfg.Server.Addr, cd, opts...)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error listening: %s", err))
		return 1
	}
	logger.Info("listening", "transport", cfg.Server.Transport, "addr", l.Addr(), "codec", cfg.Server.Codec)
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				logger.Info("shutting down")
				return 0
			}
			logger.Error("accept failed", "error", err)
			return 1
		}
		go func() {
			if err := serveConn(cfg, cd, logger, conn); err != nil {
				logger.Warn("connection ended", "error", err)
			}
		}()
	}
}

// serveConn runs one client connection until it closes.
func serveConn(cfg config.Config, cd codec.Codec, logger hclog.Logger, conn *host.Conn) error {
	ids, err := multiplex.NewGenerator(cfg.Server.IDs)
	if err != nil {
		conn.Close()
		return err
	}
	mp := multiplex.New(conn,
		multiplex.WithLogger(logger),
		multiplex.WithIDGenerator(ids),
		multiplex.WithDropHandler(func(f multiplex.Frame, reason multiplex.DropReason) {
			logger.Debug("dropped frame", "frame", f, "reason", reason)
		}),
	)

	if cfg.Server.Upstream != "" {
		up, err := host.Dial(cfg.Server.Transport, cfg.Server.Upstream, cd, host.WithLogger(logger.Named("upstream")))
		if err != nil {
			conn.Close()
			return fmt.Errorf("dial upstream: %w", err)
		}
		mup := multiplex.New(up, multiplex.WithLogger(logger.Named("upstream")))
		multiplex.Proxy(mup, mp)
		conn.OnClose(func() { up.Close() })
		up.OnClose(func() { conn.Close() })
		up.Start()
	} else {
		mp.OnChannel(func(ch *multiplex.Channel) {
			logger.Info("channel opened", "id", ch.ID(), "name", ch.Name())
			ch.OnData(func(payload interface{}) {
				if msg, ok := parseChat(payload); ok {
					logger.Info("chat message", "channel", ch.Name(), "user", msg.User, "text", msg.Text)
				}
				ch.Write(payload)
			})
			ch.OnClose(func() {
				logger.Info("channel closed", "id", ch.ID(), "name", ch.Name())
			})
		})
	}

	for _, name := range cfg.Channels {
		ch := mp.Channel(name)
		ch.Write(fmt.Sprintf("welcome to %s", name))
	}

	conn.OnData(func(payload interface{}) {
		logger.Info("host message", "payload", payload)
	})
	conn.Start()
	return conn.Wait()
}

// chatMessage is the structured payload written by
// `multiplex send user=ann text="..."`.
type chatMessage struct {
	User string `json:"user"`
	Text string `json:"text"`
}

func parseChat(payload interface{}) (chatMessage, bool) {
	var msg chatMessage
	if err := multiplex.DecodePayload(payload, &msg); err != nil {
		return msg, false
	}
	return msg, msg.Text != ""
}
