// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

// stackchat-bot is a minimal chat bot: it logs in, joins the
// configured rooms, echoes every new message to its log, and flushes
// pending posts before exiting on SIGINT or SIGTERM. It exists mostly
// as a reference for wiring the chat package end to end.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/stackchat/stackchat/chat"
	"github.com/stackchat/stackchat/lib/clock"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		roomFlags    []int
		pollInterval time.Duration
		showVersion  bool
	)
	flagSet := pflag.NewFlagSet("stackchat-bot", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML config file (default: $STACKCHAT_CONFIG)")
	flagSet.IntSliceVar(&roomFlags, "room", nil, "room ID to join (repeatable; overrides the config's rooms)")
	flagSet.DurationVar(&pollInterval, "poll-interval", 0, "how often to poll each room (overrides the config)")
	flagSet.BoolVar(&showVersion, "version", false, "print the version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("stackchat-bot %s\n", version)
		return nil
	}

	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if len(roomFlags) > 0 {
		config.Rooms = roomFlags
	}
	if pollInterval > 0 {
		config.PollInterval = duration(pollInterval)
	}
	if len(config.Rooms) == 0 {
		return fmt.Errorf("no rooms: set rooms in the config or pass --room")
	}

	password, err := resolvePassword(config)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client, err := chat.NewClient(chat.ClientConfig{
		ChatURL:    config.ChatURL,
		LoginURL:   config.LoginURL,
		Logger:     logger,
		RetryPause: time.Duration(config.RetryPause),
	})
	if err != nil {
		return err
	}
	defer client.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Login(ctx, config.Email, password); err != nil {
		return err
	}
	for _, room := range config.Rooms {
		if err := client.JoinRoom(ctx, room); err != nil {
			return fmt.Errorf("joining room %d: %w", room, err)
		}
		logger.Info("joined room", "room", room)
	}

	ticker := clock.Real().NewTicker(time.Duration(config.PollInterval))
	defer ticker.Stop()

	logger.Info("polling", "rooms", config.Rooms, "interval", time.Duration(config.PollInterval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down, flushing pending posts")
			return nil
		case <-ticker.C:
		}

		for _, room := range config.Rooms {
			messages, err := client.GetNewMessages(ctx, room)
			if err != nil {
				if ctx.Err() != nil {
					logger.Info("shutting down, flushing pending posts")
					return nil
				}
				logger.Error("poll failed", "room", room, "error", err)
				continue
			}
			for _, message := range messages {
				logger.Info("message",
					"room", message.RoomID,
					"id", message.MessageID,
					"user", message.Username,
					"content", message.Content,
				)
			}
		}
	}
}
