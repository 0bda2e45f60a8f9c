// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open(%s): %v", dir, err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func provisionedStore(t *testing.T) *Store {
	t.Helper()
	store := openStore(t, t.TempDir())
	if _, err := store.EnsureProvisioned(); err != nil {
		t.Fatalf("EnsureProvisioned: %v", err)
	}
	return store
}

// --- Provisioning ---

func TestEnsureProvisioned_FirstRun(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, dir)

	result, err := store.EnsureProvisioned()
	if err != nil {
		t.Fatalf("EnsureProvisioned: %v", err)
	}
	if !result.SigningKey || !result.DefaultPassword {
		t.Errorf("EnsureProvisioned() = %+v, want both generated", result)
	}

	seed, err := os.ReadFile(filepath.Join(dir, signingKeyFile))
	if err != nil {
		t.Fatalf("reading signing key: %v", err)
	}
	if len(seed) != ed25519.SeedSize {
		t.Errorf("signing key has %d bytes, want %d", len(seed), ed25519.SeedSize)
	}

	hash, err := store.PasswordHash()
	if err != nil {
		t.Fatalf("PasswordHash: %v", err)
	}
	cost, err := bcrypt.Cost(hash)
	if err != nil {
		t.Fatalf("bcrypt.Cost: %v", err)
	}
	if cost != BcryptCost {
		t.Errorf("bcrypt cost = %d, want %d", cost, BcryptCost)
	}
	if err := store.CheckPassword([]byte(DefaultPassword)); err != nil {
		t.Errorf("CheckPassword(default): %v", err)
	}

	for _, name := range []string{signingKeyFile, passwordHashFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("%s mode = %v, want 0600", name, info.Mode().Perm())
		}
	}
}

func TestEnsureProvisioned_Idempotent(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, dir)
	if _, err := store.EnsureProvisioned(); err != nil {
		t.Fatalf("first EnsureProvisioned: %v", err)
	}
	firstKey, _ := store.PublicKey()
	firstHash, _ := store.PasswordHash()

	result, err := store.EnsureProvisioned()
	if err != nil {
		t.Fatalf("second EnsureProvisioned: %v", err)
	}
	if result.SigningKey || result.DefaultPassword {
		t.Errorf("second EnsureProvisioned() = %+v, want nothing generated", result)
	}

	// A fresh Store over the same directory sees the same record.
	reopened := openStore(t, dir)
	result, err = reopened.EnsureProvisioned()
	if err != nil {
		t.Fatalf("EnsureProvisioned after reopen: %v", err)
	}
	if result.SigningKey || result.DefaultPassword {
		t.Errorf("EnsureProvisioned() after reopen = %+v, want nothing generated", result)
	}
	reopenedKey, _ := reopened.PublicKey()
	if !firstKey.Equal(reopenedKey) {
		t.Error("public key changed across reopen")
	}
	reopenedHash, _ := reopened.PasswordHash()
	if !bytes.Equal(firstHash, reopenedHash) {
		t.Error("password hash changed across reopen")
	}
}

func TestEnsureProvisioned_KeepsExistingPassword(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, dir)
	if _, err := store.EnsureProvisioned(); err != nil {
		t.Fatalf("EnsureProvisioned: %v", err)
	}
	if err := store.SetPassword([]byte("s3cret")); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}

	reopened := openStore(t, dir)
	result, err := reopened.EnsureProvisioned()
	if err != nil {
		t.Fatalf("EnsureProvisioned: %v", err)
	}
	if result.DefaultPassword {
		t.Error("existing password was replaced by the default")
	}
	if err := reopened.CheckPassword([]byte("s3cret")); err != nil {
		t.Errorf("CheckPassword(s3cret): %v", err)
	}
}

func TestEnsureProvisioned_CorruptSigningKey(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, signingKeyFile), []byte("short"), 0600); err != nil {
		t.Fatalf("writing corrupt key: %v", err)
	}

	store := openStore(t, dir)
	_, err := store.EnsureProvisioned()
	if err == nil {
		t.Fatal("EnsureProvisioned succeeded with a corrupt signing key")
	}
	if !strings.Contains(err.Error(), "want 32") {
		t.Errorf("error = %v, want size mismatch", err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, signingKeyFile))
	if string(data) != "short" {
		t.Error("corrupt signing key was overwritten")
	}
}

func TestUnprovisionedStore(t *testing.T) {
	store := openStore(t, t.TempDir())

	if _, err := store.Sign([]byte("m")); !errors.Is(err, ErrNotProvisioned) {
		t.Errorf("Sign() error = %v, want ErrNotProvisioned", err)
	}
	if _, err := store.PublicKey(); !errors.Is(err, ErrNotProvisioned) {
		t.Errorf("PublicKey() error = %v, want ErrNotProvisioned", err)
	}
	if _, err := store.PasswordHash(); !errors.Is(err, ErrNoPassword) {
		t.Errorf("PasswordHash() error = %v, want ErrNoPassword", err)
	}
}

// --- Signing ---

func TestSign_VerifiesWithPublicKey(t *testing.T) {
	store := provisionedStore(t)

	signature, err := store.Sign([]byte("payload"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	public, err := store.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	if !ed25519.Verify(public, []byte("payload"), signature) {
		t.Error("signature does not verify")
	}
	if ed25519.Verify(public, []byte("tampered"), signature) {
		t.Error("signature verifies for a different message")
	}
}

func TestRotateSigningKey(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, dir)
	if _, err := store.EnsureProvisioned(); err != nil {
		t.Fatalf("EnsureProvisioned: %v", err)
	}
	before, _ := store.PublicKey()
	hashBefore, _ := store.PasswordHash()

	if err := store.RotateSigningKey(); err != nil {
		t.Fatalf("RotateSigningKey: %v", err)
	}
	after, _ := store.PublicKey()
	if before.Equal(after) {
		t.Error("public key unchanged after rotation")
	}
	hashAfter, _ := store.PasswordHash()
	if !bytes.Equal(hashBefore, hashAfter) {
		t.Error("password hash changed by signing key rotation")
	}

	reopened := openStore(t, dir)
	if _, err := reopened.EnsureProvisioned(); err != nil {
		t.Fatalf("EnsureProvisioned after rotation: %v", err)
	}
	reopenedKey, _ := reopened.PublicKey()
	if !after.Equal(reopenedKey) {
		t.Error("rotated key not persisted")
	}
}

// --- Password ---

func TestCheckPassword_Mismatch(t *testing.T) {
	store := provisionedStore(t)

	if err := store.CheckPassword([]byte("wrong")); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("CheckPassword(wrong) = %v, want ErrPasswordMismatch", err)
	}
}

func TestSetPasswordHash_RejectsNonBcrypt(t *testing.T) {
	store := provisionedStore(t)

	if err := store.SetPasswordHash([]byte("plaintext")); err == nil {
		t.Fatal("SetPasswordHash accepted a non-bcrypt value")
	}
	if err := store.CheckPassword([]byte(DefaultPassword)); err != nil {
		t.Errorf("stored hash changed after rejected write: %v", err)
	}
}

func TestSetPasswordHash_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, dir)
	if _, err := store.EnsureProvisioned(); err != nil {
		t.Fatalf("EnsureProvisioned: %v", err)
	}
	if err := store.SetPassword([]byte("rotated")); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Errorf("leftover temporary file %s", entry.Name())
		}
	}
}

func TestSetPassword_ConcurrentReadersSeeWholeHash(t *testing.T) {
	store := provisionedStore(t)

	hashes := make([][]byte, 3)
	for index := range hashes {
		hash, err := bcrypt.GenerateFromPassword([]byte{byte('a' + index), 'x', 'y', 'z'}, bcrypt.MinCost)
		if err != nil {
			t.Fatalf("GenerateFromPassword: %v", err)
		}
		hashes[index] = hash
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 16)

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				hash, err := store.PasswordHash()
				if err != nil {
					errs <- err
					return
				}
				if _, err := bcrypt.Cost(hash); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	for round := range 30 {
		if err := store.SetPasswordHash(hashes[round%len(hashes)]); err != nil {
			t.Fatalf("SetPasswordHash: %v", err)
		}
	}
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("reader saw invalid hash: %v", err)
	}
}

// --- Generation ---

func TestGeneration(t *testing.T) {
	store := provisionedStore(t)

	first, err := store.Generation()
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if len(first) != GenerationSize {
		t.Errorf("len(Generation()) = %d, want %d", len(first), GenerationSize)
	}
	again, _ := store.Generation()
	if !bytes.Equal(first, again) {
		t.Error("Generation() not stable without a password change")
	}

	if err := store.SetPassword([]byte("changed")); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	after, _ := store.Generation()
	if bytes.Equal(first, after) {
		t.Error("Generation() unchanged after password change")
	}
}
