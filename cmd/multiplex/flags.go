package main

import (
	"flag"

	"github.com/hashicorp/go-hclog"

	"github.com/progrium/multiplex-go/codec"
	"github.com/progrium/multiplex-go/config"
	"github.com/progrium/multiplex-go/host"
	"github.com/progrium/multiplex-go/logging"
)

// connFlags are the connection settings shared by every command. Flags
// that are set override the config file.
type connFlags struct {
	configPath string
	transport  string
	addr       string
	codec      string
	logLevel   string
}

func (f *connFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "Path to a TOML config file.")
	fs.StringVar(&f.transport, "transport", "", "Transport: tcp, unix or ws.")
	fs.StringVar(&f.addr, "addr", "", "Address to listen on or dial.")
	fs.StringVar(&f.codec, "codec", "", "Payload codec: json or cbor, optionally with +frame.")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: trace, debug, info, warn or error.")
}

func (f *connFlags) load() (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}
	if f.transport != "" {
		cfg.Server.Transport = f.transport
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.codec != "" {
		cfg.Server.Codec = f.codec
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, cfg.Validate()
}

func (f *connFlags) dial(cfg config.Config, logger hclog.Logger) (*host.Conn, error) {
	c, err := codec.ByName(cfg.Server.Codec)
	if err != nil {
		return nil, err
	}
	return host.Dial(cfg.Server.Transport, cfg.Server.Addr, c, host.WithLogger(logger.Named("host")))
}

func newLogger(cfg config.Config) hclog.Logger {
	return logging.New("multiplex", cfg.Log, nil)
}
