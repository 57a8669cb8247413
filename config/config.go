// Package config defines the runtime configuration for the chat server and
// client: addresses, message bounds, timeouts, flood protection, and the
// reply engine's keyword table. Configuration is loaded from a YAML file over
// built-in defaults; nothing is compiled in.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default network endpoint. Overridable via config file or flags.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 9000
)

// Config is the root configuration document.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Reply  ReplyConfig  `yaml:"reply"`
}

// ServerConfig holds the chat server tuneables.
type ServerConfig struct {
	Host           string      `yaml:"host"`
	Port           int         `yaml:"port"`
	MaxMessageSize int         `yaml:"max_message_size"` // bytes per message payload
	QuitCommand    string      `yaml:"quit_command"`     // sentinel input that ends a session
	ReplyTimeout   Duration    `yaml:"reply_timeout"`    // bound on one reply-engine call
	WriteTimeout   Duration    `yaml:"write_timeout"`
	Flood          FloodConfig `yaml:"flood"`
}

// FloodConfig holds flood-protection settings. Disabled by default.
type FloodConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Limit     int      `yaml:"limit"`      // messages allowed per window
	Window    Duration `yaml:"window"`     // rate window length
	Warning   string   `yaml:"warning"`    // reply sent when a message is dropped
	RedisAddr string   `yaml:"redis_addr"` // non-empty switches to the Redis limiter
}

// ClientConfig holds the chat client tuneables.
type ClientConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	MaxMessageSize int      `yaml:"max_message_size"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	WriteTimeout   Duration `yaml:"write_timeout"`
}

// ReplyConfig holds the reply engine's data: the ordered keyword table, the
// fallback set for unrecognized input, and the time layout for time replies.
type ReplyConfig struct {
	TimeFormat string        `yaml:"time_format"`
	Keywords   []KeywordRule `yaml:"keywords"`
	Fallbacks  []string      `yaml:"fallbacks"`
}

// KeywordRule maps a keyword to its canned reply.
type KeywordRule struct {
	Match string `yaml:"match"`
	Reply string `yaml:"reply"`
}

// Default returns the complete built-in configuration: loopback on the
// default port, 2048-byte messages, "bye" as the quit sentinel, flood
// protection off, and a small starter keyword table.
//
// Returns:
//   - A Config with every field populated
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:           DefaultHost,
			Port:           DefaultPort,
			MaxMessageSize: 2048,
			QuitCommand:    "bye",
			ReplyTimeout:   Duration(5 * time.Second),
			WriteTimeout:   Duration(10 * time.Second),
			Flood: FloodConfig{
				Enabled: false,
				Limit:   10,
				Window:  Duration(time.Second),
				Warning: "You are sending messages too quickly. Slow down.",
			},
		},
		Client: ClientConfig{
			Host:           DefaultHost,
			Port:           DefaultPort,
			MaxMessageSize: 2048,
			ConnectTimeout: Duration(10 * time.Second),
			WriteTimeout:   Duration(10 * time.Second),
		},
		Reply: ReplyConfig{
			TimeFormat: "15:04:05",
			Keywords: []KeywordRule{
				{Match: "hello", Reply: "Hello there! How can I help you?"},
				{Match: "how are you", Reply: "I am doing fine, thanks for asking."},
				{Match: "name", Reply: "I am the go-chat reply bot."},
				{Match: "bye", Reply: "Goodbye! It was nice talking to you."},
			},
			Fallbacks: []string{
				"Interesting, tell me more.",
				"I am not sure I follow.",
				"Could you rephrase that?",
				"Let's talk about something else.",
			},
		},
	}
}

// Load reads the YAML file at path and overlays it on Default. A missing
// file is not an error; the defaults are returned as-is. The result is
// validated before being returned.
//
// Parameters:
//   - path: Path to the YAML config file; "" skips file loading entirely
//
// Returns:
//   - The merged, validated Config
//   - An error if the file is unreadable, malformed, or fails validation
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the server or client cannot
// run with.
//
// Returns:
//   - nil if the configuration is usable, otherwise a descriptive error
func (c *Config) Validate() error {
	if err := validatePort("server.port", c.Server.Port); err != nil {
		return err
	}

	if err := validatePort("client.port", c.Client.Port); err != nil {
		return err
	}

	if c.Server.MaxMessageSize <= 0 {
		return fmt.Errorf("server.max_message_size must be positive, got %d", c.Server.MaxMessageSize)
	}

	if c.Client.MaxMessageSize <= 0 {
		return fmt.Errorf("client.max_message_size must be positive, got %d", c.Client.MaxMessageSize)
	}

	if c.Server.ReplyTimeout <= 0 {
		return fmt.Errorf("server.reply_timeout must be positive, got %s", c.Server.ReplyTimeout)
	}

	if c.Server.QuitCommand == "" {
		return fmt.Errorf("server.quit_command must not be empty")
	}

	if c.Server.Flood.Enabled {
		if c.Server.Flood.Limit < 1 {
			return fmt.Errorf("server.flood.limit must be at least 1, got %d", c.Server.Flood.Limit)
		}

		if c.Server.Flood.Window <= 0 {
			return fmt.Errorf("server.flood.window must be positive, got %s", c.Server.Flood.Window)
		}
	}

	if len(c.Reply.Fallbacks) == 0 {
		return fmt.Errorf("reply.fallbacks must contain at least one entry")
	}

	return nil
}

// ServerAddr returns the server's "host:port" listen address.
func (c *Config) ServerAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ClientAddr returns the client's "host:port" dial address.
func (c *Config) ClientAddr() string {
	return net.JoinHostPort(c.Client.Host, strconv.Itoa(c.Client.Port))
}

// validatePort rejects ports outside 1-65535.
func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", field, port)
	}

	return nil
}
