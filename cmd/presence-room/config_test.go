package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/asrayaos/presence-go/pkg/wire"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presence.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg := Config{}
	if err := resolveConfig(&cfg); err != nil {
		t.Fatalf("resolveConfig failed: %v", err)
	}

	if cfg.Channel != "lobby" {
		t.Errorf("Channel = %q, want lobby", cfg.Channel)
	}
	if cfg.Kind != "user" {
		t.Errorf("Kind = %q, want user", cfg.Kind)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if !strings.HasPrefix(cfg.UserID, "user-") {
		t.Errorf("UserID = %q, want generated user- prefix", cfg.UserID)
	}
	if cfg.UserName != cfg.UserID {
		t.Errorf("UserName = %q, want the user id %q", cfg.UserName, cfg.UserID)
	}
}

func TestResolveConfigReadsFile(t *testing.T) {
	path := writeConfigFile(t, `
channel: room-7
user_id: u-42
user_name: Ada
kind: agent
presence_throttle_ms: 5000
typing_stale_ms: 4000
sim_peers: 2
`)

	cfg := Config{ConfigFile: path}
	if err := resolveConfig(&cfg); err != nil {
		t.Fatalf("resolveConfig failed: %v", err)
	}

	if cfg.Channel != "room-7" {
		t.Errorf("Channel = %q, want room-7", cfg.Channel)
	}
	if cfg.UserID != "u-42" {
		t.Errorf("UserID = %q, want u-42", cfg.UserID)
	}
	if cfg.UserName != "Ada" {
		t.Errorf("UserName = %q, want Ada", cfg.UserName)
	}
	if cfg.Kind != "agent" {
		t.Errorf("Kind = %q, want agent", cfg.Kind)
	}
	if cfg.PresenceThrottleMs != 5000 {
		t.Errorf("PresenceThrottleMs = %d, want 5000", cfg.PresenceThrottleMs)
	}
	if cfg.TypingStaleMs != 4000 {
		t.Errorf("TypingStaleMs = %d, want 4000", cfg.TypingStaleMs)
	}
	if cfg.SimPeers != 2 {
		t.Errorf("SimPeers = %d, want 2", cfg.SimPeers)
	}
}

func TestResolveConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
channel: from-file
user_id: file-user
`)
	t.Setenv("PRESENCE_CHANNEL", "from-env")
	t.Setenv("PRESENCE_TOKEN", "env-token")

	cfg := Config{ConfigFile: path}
	if err := resolveConfig(&cfg); err != nil {
		t.Fatalf("resolveConfig failed: %v", err)
	}

	if cfg.Channel != "from-env" {
		t.Errorf("Channel = %q, want the env value", cfg.Channel)
	}
	if cfg.UserID != "file-user" {
		t.Errorf("UserID = %q, want the file value", cfg.UserID)
	}
	if cfg.Token != "env-token" {
		t.Errorf("Token = %q, want the env value", cfg.Token)
	}
}

func TestResolveConfigRejectsBadValues(t *testing.T) {
	t.Setenv("PRESENCE_SIM_PEERS", "-1")
	cfg := Config{}
	if err := resolveConfig(&cfg); err == nil {
		t.Error("expected error for negative sim peers")
	}

	cfg = Config{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}
	if err := resolveConfig(&cfg); err == nil {
		t.Error("expected error for missing config file")
	}

	bad := writeConfigFile(t, "channel: [not: closed")
	cfg = Config{ConfigFile: bad}
	if err := resolveConfig(&cfg); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    wire.ParticipantKind
		wantErr bool
	}{
		{"user", wire.KindUser, false},
		{"agent", wire.KindAgent, false},
		{"", wire.KindUser, false},
		{"robot", "", true},
	}

	for _, tt := range tests {
		kind, err := parseKind(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseKind(%q) should return error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseKind(%q) returned error: %v", tt.input, err)
			continue
		}
		if kind != tt.want {
			t.Errorf("parseKind(%q) = %q, want %q", tt.input, kind, tt.want)
		}
	}
}

func TestConfigIdentity(t *testing.T) {
	cfg := Config{
		Kind:     "agent",
		UserID:   "a-1",
		UserName: "Helper",
		RoomID:   "room-1",
	}
	meta := cfg.Identity()

	if meta.Kind != wire.KindAgent {
		t.Errorf("Kind = %q, want agent", meta.Kind)
	}
	if meta.ID != "a-1" {
		t.Errorf("ID = %q, want a-1", meta.ID)
	}
	if meta.Name != "Helper" {
		t.Errorf("Name = %q, want Helper", meta.Name)
	}
	if meta.RoomID != "room-1" {
		t.Errorf("RoomID = %q, want room-1", meta.RoomID)
	}
}
