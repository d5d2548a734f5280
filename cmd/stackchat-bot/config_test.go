// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stackchat.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
email: bot@example.com
password: hunter2
rooms: [1, 139]
poll_interval: 30s
retry_pause: 2s
chat_url: http://chat.test
`)

	config, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if config.Email != "bot@example.com" || config.Password != "hunter2" {
		t.Errorf("credentials = %q / %q", config.Email, config.Password)
	}
	if len(config.Rooms) != 2 || config.Rooms[0] != 1 || config.Rooms[1] != 139 {
		t.Errorf("rooms = %v", config.Rooms)
	}
	if time.Duration(config.PollInterval) != 30*time.Second {
		t.Errorf("poll_interval = %v", time.Duration(config.PollInterval))
	}
	if time.Duration(config.RetryPause) != 2*time.Second {
		t.Errorf("retry_pause = %v", time.Duration(config.RetryPause))
	}
	if config.ChatURL != "http://chat.test" {
		t.Errorf("chat_url = %q", config.ChatURL)
	}
}

func TestLoadConfigDefaultsPollInterval(t *testing.T) {
	path := writeConfig(t, "email: bot@example.com\n")
	config, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if time.Duration(config.PollInterval) != defaultPollInterval {
		t.Errorf("poll_interval = %v, want default %v", time.Duration(config.PollInterval), defaultPollInterval)
	}
}

func TestLoadConfigRequiresEmail(t *testing.T) {
	path := writeConfig(t, "rooms: [1]\n")
	if _, err := loadConfig(path); err == nil || !strings.Contains(err.Error(), "email") {
		t.Fatalf("loadConfig = %v, want email-required error", err)
	}
}

func TestLoadConfigEnvFallback(t *testing.T) {
	path := writeConfig(t, "email: bot@example.com\n")
	t.Setenv("STACKCHAT_CONFIG", path)

	config, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if config.Email != "bot@example.com" {
		t.Errorf("email = %q", config.Email)
	}
}

func TestLoadConfigMissingEverywhere(t *testing.T) {
	t.Setenv("STACKCHAT_CONFIG", "")
	if _, err := loadConfig(""); err == nil {
		t.Fatal("expected error when no config path is available")
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := writeConfig(t, "email: bot@example.com\npoll_interval: fast\n")
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected error for unparsable duration")
	}
}
