package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
channels = ["ann", "bob"]

[server]
transport = "ws"
addr = ":9000"
codec = "cbor+frame"
ids = "xid"

[log]
level = "debug"
json = true
`)
	require.NoError(t, err)
	assert.Equal(t, "ws", cfg.Server.Transport)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "cbor+frame", cfg.Server.Codec)
	assert.Equal(t, "xid", cfg.Server.IDs)
	assert.Equal(t, []string{"ann", "bob"}, cfg.Channels)
	assert.Equal(t, LogConfig{Level: "debug", JSON: true}, cfg.Log)
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse(`[server]
addr = "0.0.0.0:1"`)
	require.NoError(t, err)
	assert.Equal(t, "tcp", cfg.Server.Transport)
	assert.Equal(t, "json", cfg.Server.Codec)
}

func TestParseUnknownKey(t *testing.T) {
	_, err := Parse(`[server]
adress = "typo"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.adress")
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Transport = "udp"
	cfg.Server.Addr = ""
	cfg.Server.Codec = "xml"
	cfg.Server.IDs = "uuid"
	cfg.Channels = []string{""}
	cfg.Log.Level = "chatty"

	err := cfg.Validate()
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 6)
	assert.Contains(t, err.Error(), `log.level "chatty"`)
}

func TestValidateLogLevels(t *testing.T) {
	for _, level := range []string{"", "trace", "DEBUG", "info", "warn", "error", "off"} {
		cfg := Default()
		cfg.Log.Level = level
		assert.NoError(t, cfg.Validate(), level)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multiplex.toml")
	require.NoError(t, os.WriteFile(path, []byte(`channels = ["news"]`), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"news"}, cfg.Channels)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
