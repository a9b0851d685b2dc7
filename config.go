package actorwire

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

// FileConfig is the on-disk shape a channel's tunables are loaded from: a
// flat TOML-tagged struct, defaulted and validated after decode, rather
// than a builder API.
type FileConfig struct {
	Identity struct {
		Type string `toml:"type"`
		Name string `toml:"name"`
	} `toml:"identity"`

	Channel struct {
		KeepAliveInterval string `toml:"keepalive_interval"`
		KeepAliveTimeout  string `toml:"keepalive_timeout"`
		HandshakeTimeout  string `toml:"handshake_timeout"`
		ConnectTimeout    string `toml:"connect_timeout"`
		Endpoint          string `toml:"endpoint"`
	} `toml:"channel"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// LoadFileConfig decodes a TOML file at path: read, decode, default,
// validate.
func LoadFileConfig(path string) (FileConfig, error) {
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("actorwire: config load failed (%s): %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func (c *FileConfig) applyDefaults() {
	if c.Channel.KeepAliveInterval == "" {
		c.Channel.KeepAliveInterval = "30s"
	}
	if c.Channel.KeepAliveTimeout == "" {
		c.Channel.KeepAliveTimeout = "10s"
	}
	if c.Channel.HandshakeTimeout == "" {
		c.Channel.HandshakeTimeout = "5s"
	}
	if c.Channel.ConnectTimeout == "" {
		c.Channel.ConnectTimeout = "5s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *FileConfig) validate() error {
	if strings.TrimSpace(c.Identity.Type) == "" {
		return fmt.Errorf("actorwire: config missing identity.type")
	}
	if strings.TrimSpace(c.Identity.Name) == "" {
		return fmt.Errorf("actorwire: config missing identity.name")
	}
	if strings.TrimSpace(c.Channel.Endpoint) == "" {
		return fmt.Errorf("actorwire: config missing channel.endpoint")
	}
	for _, d := range []string{
		c.Channel.KeepAliveInterval, c.Channel.KeepAliveTimeout,
		c.Channel.HandshakeTimeout, c.Channel.ConnectTimeout,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("actorwire: config duration %q: %w", d, err)
		}
	}
	return nil
}

// BuildIdentity constructs the ActorIdentity described by the config file.
func (c FileConfig) BuildIdentity() ActorIdentity {
	return NewActorIdentity(c.Identity.Type, c.Identity.Name)
}

// Options translates the [channel] table into Channel constructor Options.
func (c FileConfig) Options() []Option {
	keepAliveInterval, _ := time.ParseDuration(c.Channel.KeepAliveInterval)
	keepAliveTimeout, _ := time.ParseDuration(c.Channel.KeepAliveTimeout)
	handshakeTimeout, _ := time.ParseDuration(c.Channel.HandshakeTimeout)
	connectTimeout, _ := time.ParseDuration(c.Channel.ConnectTimeout)
	return []Option{
		WithKeepAliveInterval(keepAliveInterval),
		WithKeepAliveTimeout(keepAliveTimeout),
		WithHandshakeTimeout(handshakeTimeout),
		WithConnectTimeout(connectTimeout),
	}
}

// LogLevel parses the [log] level string into an slog.Level, defaulting to
// Info on an unrecognized value.
func (c FileConfig) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConfigWatcher watches a TOML config file for changes and re-decodes it
// on every write, handing the fresh FileConfig to OnChange. This is purely
// a notification path — a Channel's timers/intervals are fixed at
// construction (see Option), so hot-reload only affects callers that
// rebuild state (e.g. a supervising process restarting a Channel) in
// response to OnChange, it never mutates a live Channel's own config.
type ConfigWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	OnChange func(FileConfig)
	OnError  func(error)
	done     chan struct{}
}

// WatchFileConfig starts watching path and returns the decoded initial
// config plus a watcher the caller must Close when done. Only Write and
// Create events on path trigger a reload; Rename and Remove events (as
// when an editor replaces the file) are ignored.
func WatchFileConfig(path string) (FileConfig, *ConfigWatcher, error) {
	cfg, err := LoadFileConfig(path)
	if err != nil {
		return FileConfig{}, nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return FileConfig{}, nil, fmt.Errorf("actorwire: config watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return FileConfig{}, nil, fmt.Errorf("actorwire: watch %s: %w", path, err)
	}
	cw := &ConfigWatcher{path: path, watcher: w, done: make(chan struct{})}
	go cw.loop()
	return cfg, cw, nil
}

func (cw *ConfigWatcher) loop() {
	for {
		select {
		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := LoadFileConfig(cw.path)
			if err != nil {
				if cw.OnError != nil {
					cw.OnError(err)
				}
				continue
			}
			if cw.OnChange != nil {
				cw.OnChange(cfg)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			if cw.OnError != nil {
				cw.OnError(err)
			}
		case <-cw.done:
			return
		}
	}
}

// Close stops the watcher.
func (cw *ConfigWatcher) Close() error {
	close(cw.done)
	return cw.watcher.Close()
}
