// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/wardenhq/warden/lib/config"
	"github.com/wardenhq/warden/lib/credential"
	"github.com/wardenhq/warden/lib/process"
	"github.com/wardenhq/warden/lib/secret"
	"github.com/wardenhq/warden/lib/session"
)

// exitMismatch is the status for a declined or mistyped confirmation.
const exitMismatch = 2

// openStore opens and provisions the credential store for settings.
// Offline commands log warnings only.
func openStore(settings *config.Config) (*credential.Store, error) {
	if err := settings.EnsurePaths(); err != nil {
		return nil, err
	}
	logger, err := newLogger(os.Stderr, "text", "warn", true)
	if err != nil {
		return nil, err
	}
	store, err := credential.Open(settings.Paths.State, logger)
	if err != nil {
		return nil, err
	}
	if _, err := store.EnsureProvisioned(); err != nil {
		store.Close()
		return nil, fmt.Errorf("provisioning credentials: %w", err)
	}
	return store, nil
}

func runResetPassword(args []string, stdout io.Writer) error {
	var (
		configuration configFlags
		passwordFile  string
	)
	flagSet := pflag.NewFlagSet("reset-password", pflag.ContinueOnError)
	configuration.addFlags(flagSet)
	flagSet.StringVar(&passwordFile, "password-file", "", `read the new password from a file ("-" for stdin) instead of prompting`)
	if stop, err := parseFlags(flagSet, args, stdout); stop || err != nil {
		return err
	}

	settings, err := configuration.load()
	if err != nil {
		return err
	}

	password, err := readNewPassword(passwordFile, stdout)
	if err != nil {
		return err
	}
	defer password.Close()
	if password.Len() < session.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", session.MinPasswordLength)
	}

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetPassword(password.Bytes()); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Operator password updated.")
	if !settings.Auth.BindPasswordGeneration {
		fmt.Fprintln(stdout, "Tokens issued under the old password stay valid until they expire; run 'warden rotate-signing-key' to revoke them.")
	}
	return nil
}

// readNewPassword reads the password from path, or prompts twice on
// the terminal when path is empty.
func readNewPassword(path string, prompt io.Writer) (*secret.Buffer, error) {
	if path != "" {
		return secret.ReadFromPath(path)
	}

	fd := int(os.Stdin.Fd())
	password, err := secret.ReadFromTerminal(fd, prompt, "New password: ")
	if err != nil {
		return nil, err
	}
	confirmation, err := secret.ReadFromTerminal(fd, prompt, "Confirm new password: ")
	if err != nil {
		password.Close()
		return nil, err
	}
	defer confirmation.Close()

	if !password.Equal(confirmation.Bytes()) {
		password.Close()
		return nil, &process.ExitError{Code: exitMismatch, Err: errors.New("passwords do not match")}
	}
	return password, nil
}

func runRotateSigningKey(args []string, stdout io.Writer) error {
	var configuration configFlags
	flagSet := pflag.NewFlagSet("rotate-signing-key", pflag.ContinueOnError)
	configuration.addFlags(flagSet)
	if stop, err := parseFlags(flagSet, args, stdout); stop || err != nil {
		return err
	}

	settings, err := configuration.load()
	if err != nil {
		return err
	}
	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RotateSigningKey(); err != nil {
		return fmt.Errorf("rotating signing key: %w", err)
	}
	fmt.Fprintln(stdout, "Signing key rotated. Restart 'warden serve' to apply; every issued token is now invalid.")
	return nil
}
