package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/asrayaos/presence-go/pkg/wire"
)

// Config holds the resolved presence-room configuration. Values layer
// as: built-in defaults, then the config file, then environment
// variables, then explicitly set flags.
//
// It implements interactive.RoomConfig.
type Config struct {
	URL       string `yaml:"url" env:"PRESENCE_URL"`
	APIKey    string `yaml:"api_key" env:"PRESENCE_API_KEY"`
	Token     string `yaml:"token" env:"PRESENCE_TOKEN"`
	Channel   string `yaml:"channel" env:"PRESENCE_CHANNEL"`
	UserID    string `yaml:"user_id" env:"PRESENCE_USER_ID"`
	UserName  string `yaml:"user_name" env:"PRESENCE_USER_NAME"`
	UserImage string `yaml:"user_image" env:"PRESENCE_USER_IMAGE"`
	RoomID    string `yaml:"room_id" env:"PRESENCE_ROOM_ID"`
	Kind      string `yaml:"kind" env:"PRESENCE_KIND"`

	PresenceThrottleMs int `yaml:"presence_throttle_ms" env:"PRESENCE_THROTTLE_MS"`
	TypingThrottleMs   int `yaml:"typing_throttle_ms" env:"TYPING_THROTTLE_MS"`
	PresenceExpiryMs   int `yaml:"presence_expiry_ms" env:"PRESENCE_EXPIRY_MS"`
	TypingStaleMs      int `yaml:"typing_stale_ms" env:"TYPING_STALE_MS"`

	CapturePath string `yaml:"capture" env:"PRESENCE_CAPTURE"`
	SimPeers    int    `yaml:"sim_peers" env:"PRESENCE_SIM_PEERS"`
	LogLevel    string `yaml:"log_level" env:"PRESENCE_LOG_LEVEL"`

	// Flag-only settings
	ConfigFile  string `yaml:"-"`
	Interactive bool   `yaml:"-"`
}

// flagValues receives raw flag input; resolveConfig copies over only
// the flags the user actually set, so flag defaults never shadow the
// config file or environment.
var flagValues Config

// resolveConfig builds the final configuration in layer order.
func resolveConfig(cfg *Config) error {
	cfg.Channel = "lobby"
	cfg.Kind = "user"
	cfg.LogLevel = "info"

	if cfg.ConfigFile != "" {
		if err := loadConfigFile(cfg.ConfigFile, cfg); err != nil {
			return err
		}
	}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	applySetFlags(cfg)

	if cfg.UserID == "" {
		cfg.UserID = fmt.Sprintf("user-%d", time.Now().Unix()%10000)
	}
	if cfg.UserName == "" {
		cfg.UserName = cfg.UserID
	}
	if cfg.Channel == "" {
		return fmt.Errorf("channel must not be empty")
	}
	if cfg.SimPeers < 0 {
		return fmt.Errorf("sim-peers must not be negative, got %d", cfg.SimPeers)
	}
	return nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applySetFlags copies explicitly set flags into cfg. flag.Visit only
// walks flags present on the command line.
func applySetFlags(cfg *Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.URL = flagValues.URL
		case "api-key":
			cfg.APIKey = flagValues.APIKey
		case "token":
			cfg.Token = flagValues.Token
		case "channel":
			cfg.Channel = flagValues.Channel
		case "user-id":
			cfg.UserID = flagValues.UserID
		case "user-name":
			cfg.UserName = flagValues.UserName
		case "user-image":
			cfg.UserImage = flagValues.UserImage
		case "room-id":
			cfg.RoomID = flagValues.RoomID
		case "kind":
			cfg.Kind = flagValues.Kind
		case "capture":
			cfg.CapturePath = flagValues.CapturePath
		case "sim-peers":
			cfg.SimPeers = flagValues.SimPeers
		case "presence-throttle-ms":
			cfg.PresenceThrottleMs = flagValues.PresenceThrottleMs
		case "typing-throttle-ms":
			cfg.TypingThrottleMs = flagValues.TypingThrottleMs
		case "presence-expiry-ms":
			cfg.PresenceExpiryMs = flagValues.PresenceExpiryMs
		case "typing-stale-ms":
			cfg.TypingStaleMs = flagValues.TypingStaleMs
		case "log-level":
			cfg.LogLevel = flagValues.LogLevel
		}
	})
}

// ChannelName implements interactive.RoomConfig.
func (c *Config) ChannelName() string {
	return c.Channel
}

// Identity implements interactive.RoomConfig.
func (c *Config) Identity() wire.PresenceMeta {
	kind, _ := parseKind(c.Kind)
	return wire.PresenceMeta{
		Kind:   kind,
		ID:     c.UserID,
		Name:   c.UserName,
		Image:  c.UserImage,
		RoomID: c.RoomID,
	}
}
