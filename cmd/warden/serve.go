// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/wardenhq/warden/controlplane"
	"github.com/wardenhq/warden/lib/config"
	"github.com/wardenhq/warden/lib/credential"
	"github.com/wardenhq/warden/lib/session"
	"github.com/wardenhq/warden/lib/supervisor"
	"github.com/wardenhq/warden/lib/version"
	"github.com/wardenhq/warden/lib/workdir"
	"github.com/wardenhq/warden/sandbox"
)

// shutdownTimeout bounds the wait for in-flight requests. Jobs still
// running after it are killed before Shutdown returns.
const shutdownTimeout = 30 * time.Second

func runServe(args []string) error {
	var (
		configuration configFlags
		port          int
		logLevel      string
		logFormat     string
	)
	flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	configuration.addFlags(flagSet)
	flagSet.IntVarP(&port, "port", "p", 0, "listen port (overrides the config file and PORT)")
	flagSet.StringVar(&logLevel, "log-level", "info", "minimum log level: debug, info, warn, error")
	flagSet.StringVar(&logFormat, "log-format", "auto", "log format: json, text, or auto (text on a terminal)")
	if stop, err := parseFlags(flagSet, args, os.Stdout); stop || err != nil {
		return err
	}

	logger, err := newLogger(os.Stderr, logFormat, logLevel, stderrIsTerminal())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	settings, err := configuration.load(func(settings *config.Config) {
		if flagSet.Changed("port") {
			settings.Port = port
		}
	})
	if err != nil {
		return err
	}
	if err := settings.EnsurePaths(); err != nil {
		return err
	}

	logger.Info("starting warden", version.LogAttrs()...)
	logger.Info("loaded configuration",
		"address", settings.Address(),
		"apps", settings.Paths.Apps,
		"logs", settings.Paths.Logs,
		"auth_enabled", settings.AuthEnabled(),
		"clone_prefixes", len(settings.Git.AllowedPrefixes),
	)

	store, err := credential.Open(settings.Paths.State, logger.With("component", "credential"))
	if err != nil {
		return err
	}
	defer store.Close()
	if _, err := store.EnsureProvisioned(); err != nil {
		return fmt.Errorf("provisioning credentials: %w", err)
	}

	authority := session.NewAuthority(store, session.Config{
		Enabled:             settings.AuthEnabled(),
		Lifetime:            settings.TokenLifetime(),
		BindGeneration:      settings.Auth.BindPasswordGeneration,
		MaxConcurrentLogins: settings.Auth.MaxConcurrentLogins,
		Logger:              logger.With("component", "session"),
	})
	if !settings.AuthEnabled() {
		logger.Warn("authentication is disabled; every route is open to anyone who can reach the port")
	}

	runner := sandbox.NewRunner(sandbox.RunnerConfig{Logger: logger.With("component", "sandbox")})
	pm2, err := supervisor.NewPM2(supervisor.PM2Config{
		Runner:  runner,
		Binary:  settings.Supervisor.Binary,
		Timeout: settings.SupervisorTimeout(),
		Dir:     settings.Paths.Apps,
		Logger:  logger.With("component", "supervisor"),
	})
	if err != nil {
		return err
	}
	apps, err := workdir.New(settings.Paths.Apps)
	if err != nil {
		return err
	}
	logs, err := supervisor.NewLogLayout(settings.Paths.Logs)
	if err != nil {
		return err
	}

	server, err := controlplane.NewServer(controlplane.ServerConfig{
		Settings:   settings,
		Authority:  authority,
		Supervisor: pm2,
		Runner:     runner,
		Apps:       apps,
		Logs:       logs,
		Logger:     logger.With("component", "controlplane"),
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownContext); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
