// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Config is the bot's configuration file. Located via the
// STACKCHAT_CONFIG environment variable or the --config flag; there is
// no discovery fallback, so configuration stays deterministic and
// auditable.
type Config struct {
	// Email and Password are the account credentials. An empty
	// Password is prompted for on the terminal at startup, so the
	// config file never has to hold the secret.
	Email    string `yaml:"email"`
	Password string `yaml:"password"`

	// Rooms are the numeric room IDs to join and poll.
	Rooms []int `yaml:"rooms"`

	// PollInterval is how often each room is polled for new messages.
	PollInterval duration `yaml:"poll_interval"`

	// RetryPause is the base unit of the client's retry backoff.
	// Zero uses the client default.
	RetryPause duration `yaml:"retry_pause"`

	// ChatURL and LoginURL override the service endpoints. Empty
	// values use the client defaults; set these only against a test
	// deployment.
	ChatURL  string `yaml:"chat_url"`
	LoginURL string `yaml:"login_url"`
}

// duration is a time.Duration that unmarshals from the YAML string
// form ("30s", "2m") rather than integer nanoseconds.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar like \"30s\"")
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", value.Value, err)
	}
	*d = duration(parsed)
	return nil
}

const defaultPollInterval = 10 * time.Second

// loadConfig reads the config file at path, falling back to the
// STACKCHAT_CONFIG environment variable when path is empty.
func loadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("STACKCHAT_CONFIG")
	}
	if path == "" {
		return nil, fmt.Errorf("no config file: set STACKCHAT_CONFIG or pass --config")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if config.Email == "" {
		return nil, fmt.Errorf("config %s: email is required", path)
	}
	if config.PollInterval == 0 {
		config.PollInterval = duration(defaultPollInterval)
	}
	return &config, nil
}

// resolvePassword returns the account password, prompting on the
// terminal with echo disabled when the config leaves it empty.
func resolvePassword(config *Config) (string, error) {
	if config.Password != "" {
		return config.Password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password in config and no terminal to prompt on")
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", config.Email)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(password) == 0 {
		return "", fmt.Errorf("empty password")
	}
	return string(password), nil
}
