package actorwire

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleTOML = `
[identity]
type = "greeter"
name = "client"

[channel]
endpoint = "127.0.0.1:7000"
keepalive_interval = "15s"
keepalive_timeout = "5s"

[log]
level = "debug"
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "actorwire.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)
	cfg, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}

	id := cfg.BuildIdentity()
	if id.Key() != "greeter#client" {
		t.Fatalf("BuildIdentity() = %s, want greeter#client", id.Key())
	}
	if cfg.Channel.Endpoint != "127.0.0.1:7000" {
		t.Fatalf("Endpoint = %q", cfg.Channel.Endpoint)
	}
	// handshake_timeout and connect_timeout were left unset — defaults apply.
	if cfg.Channel.HandshakeTimeout != "5s" {
		t.Fatalf("HandshakeTimeout default = %q, want 5s", cfg.Channel.HandshakeTimeout)
	}
	if cfg.LogLevel().String() != "DEBUG" {
		t.Fatalf("LogLevel = %v, want DEBUG", cfg.LogLevel())
	}
}

func TestLoadFileConfigMissingRequiredField(t *testing.T) {
	path := writeTempConfig(t, `
[identity]
name = "client"

[channel]
endpoint = "127.0.0.1:7000"
`)
	if _, err := LoadFileConfig(path); err == nil {
		t.Fatal("expected an error for a config missing identity.type")
	}
}

func TestLoadFileConfigBadDuration(t *testing.T) {
	path := writeTempConfig(t, `
[identity]
type = "greeter"
name = "client"

[channel]
endpoint = "127.0.0.1:7000"
keepalive_interval = "not-a-duration"
`)
	if _, err := LoadFileConfig(path); err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
}

func TestFileConfigOptions(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)
	cfg, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}
	opts := cfg.Options()
	if len(opts) != 4 {
		t.Fatalf("Options() returned %d options, want 4", len(opts))
	}
	applied := defaultChannelConfig()
	for _, opt := range opts {
		opt(&applied)
	}
	if applied.keepAliveInterval.String() != "15s" {
		t.Fatalf("keepAliveInterval = %v, want 15s", applied.keepAliveInterval)
	}
}
