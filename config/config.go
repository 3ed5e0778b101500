// Package config loads the TOML configuration of the multiplex node.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Config is the node configuration.
type Config struct {
	Server   ServerConfig `toml:"server"`
	Log      LogConfig    `toml:"log"`
	Channels []string     `toml:"channels"`
}

// ServerConfig describes where and how the node listens.
type ServerConfig struct {
	// Transport is one of "tcp", "unix" or "ws".
	Transport string `toml:"transport"`
	Addr      string `toml:"addr"`
	// Codec is "json" or "cbor", optionally with a "+frame" suffix.
	Codec string `toml:"codec"`
	// IDs selects the channel id generator: "counter", "timestamp" or "xid".
	IDs string `toml:"ids"`
	// Upstream, when set, makes the node relay every inbound channel to
	// this address instead of echoing.
	Upstream string `toml:"upstream"`
}

// LogConfig configures the hclog logger.
type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Transport: "tcp",
			Addr:      "127.0.0.1:8080",
			Codec:     "json",
			IDs:       "counter",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := undecoded(md); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Parse decodes TOML from data on top of the defaults.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := undecoded(md); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

func undecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var result *multierror.Error
	switch c.Server.Transport {
	case "tcp", "unix", "ws":
	default:
		result = multierror.Append(result, fmt.Errorf("server.transport %q must be tcp, unix or ws", c.Server.Transport))
	}
	if c.Server.Addr == "" {
		result = multierror.Append(result, fmt.Errorf("server.addr is required"))
	}
	switch strings.TrimSuffix(c.Server.Codec, "+frame") {
	case "json", "cbor":
	default:
		result = multierror.Append(result, fmt.Errorf("server.codec %q must be json or cbor", c.Server.Codec))
	}
	switch c.Server.IDs {
	case "counter", "timestamp", "xid":
	default:
		result = multierror.Append(result, fmt.Errorf("server.ids %q must be counter, timestamp or xid", c.Server.IDs))
	}
	if c.Log.Level != "" && hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("log.level %q must be trace, debug, info, warn, error or off", c.Log.Level))
	}
	for i, name := range c.Channels {
		if name == "" {
			result = multierror.Append(result, fmt.Errorf("channels[%d] is empty", i))
		}
	}
	return result.ErrorOrNil()
}
