// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardenhq/warden/lib/secret"
)

const (
	signingKeyFile   = "signing-key"
	passwordHashFile = "password-hash"
	lockFile         = ".credential.lock"

	// DefaultPassword is provisioned when no password hash exists.
	DefaultPassword = "admin"

	// BcryptCost is the work factor for stored password hashes.
	BcryptCost = 10

	// GenerationSize is the length of a [Store.Generation] fingerprint.
	GenerationSize = 16
)

// generationDomain separates generation fingerprints from any other
// use of the signing seed as a MAC key.
const generationDomain = "warden credential generation v1\x00"

var (
	ErrNotProvisioned   = errors.New("credential: signing key not loaded; call EnsureProvisioned")
	ErrNoPassword       = errors.New("credential: no password hash provisioned")
	ErrPasswordMismatch = errors.New("credential: password does not match")
)

// Provisioned reports what [Store.EnsureProvisioned] had to create.
type Provisioned struct {
	SigningKey      bool
	DefaultPassword bool
}

// Store is the credential record in a state directory. Safe for
// concurrent use.
type Store struct {
	dir      string
	logger   *slog.Logger
	fileLock *flock.Flock
	writeMu  sync.Mutex

	mu     sync.RWMutex
	seed   *secret.Buffer
	public ed25519.PublicKey
}

// Open prepares a Store rooted at stateDir, creating the directory with
// 0700 permissions if needed. Nothing is read or generated until
// EnsureProvisioned.
func Open(stateDir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		dir:      stateDir,
		logger:   logger,
		fileLock: flock.New(filepath.Join(stateDir, lockFile)),
	}, nil
}

// EnsureProvisioned loads the signing seed and checks for a password
// hash, generating whichever is absent. Calling it again once both
// exist changes nothing. An existing seed file of the wrong size is an
// error rather than being replaced, since replacing it would silently
// invalidate every issued token.
func (s *Store) EnsureProvisioned() (Provisioned, error) {
	var result Provisioned

	unlock, err := s.lock()
	if err != nil {
		return result, err
	}
	defer unlock()

	if s.seed == nil {
		generated, err := s.loadOrGenerateSeed()
		if err != nil {
			return result, err
		}
		result.SigningKey = generated
	}

	_, err = s.readPasswordHash()
	switch {
	case err == nil:
	case errors.Is(err, ErrNoPassword):
		hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), BcryptCost)
		if err != nil {
			return result, fmt.Errorf("hashing default password: %w", err)
		}
		if err := writeAtomic(filepath.Join(s.dir, passwordHashFile), hash, 0600); err != nil {
			return result, fmt.Errorf("writing password hash: %w", err)
		}
		result.DefaultPassword = true
		s.logger.Warn("provisioned default operator password; change it with the change-password API or warden reset-password",
			"state_dir", s.dir,
		)
	default:
		return result, err
	}

	return result, nil
}

// loadOrGenerateSeed is called with the lock held.
func (s *Store) loadOrGenerateSeed() (bool, error) {
	path := filepath.Join(s.dir, signingKeyFile)

	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != ed25519.SeedSize {
			secret.Zero(data)
			return false, fmt.Errorf("signing key %s has %d bytes, want %d", path, len(data), ed25519.SeedSize)
		}
		return false, s.installSeed(data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("reading signing key: %w", err)
	}

	seed, err := generateSeed()
	if err != nil {
		return false, err
	}
	if err := writeAtomic(path, seed, 0600); err != nil {
		secret.Zero(seed)
		return false, fmt.Errorf("writing signing key: %w", err)
	}
	s.logger.Info("generated token signing key", "path", path)
	return true, s.installSeed(seed)
}

// installSeed moves seed into locked memory and zeroes the argument.
func (s *Store) installSeed(seed []byte) error {
	private := ed25519.NewKeyFromSeed(seed)
	public := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(public, private.Public().(ed25519.PublicKey))
	secret.Zero(private)

	buffer, err := secret.NewFromBytes(seed)
	if err != nil {
		return fmt.Errorf("storing signing key: %w", err)
	}

	s.mu.Lock()
	previous := s.seed
	s.seed = buffer
	s.public = public
	s.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	return nil
}

func generateSeed() ([]byte, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generating signing key: %w", err)
	}
	return seed, nil
}

// PublicKey returns the verification key for tokens signed by Sign.
func (s *Store) PublicKey() (ed25519.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.seed == nil {
		return nil, ErrNotProvisioned
	}
	return s.public, nil
}

// Sign signs message with the current signing key.
func (s *Store) Sign(message []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.seed == nil {
		return nil, ErrNotProvisioned
	}

	private := ed25519.NewKeyFromSeed(s.seed.Bytes())
	signature := ed25519.Sign(private, message)
	secret.Zero(private)
	return signature, nil
}

// RotateSigningKey replaces the signing seed. Every token signed with
// the previous key stops verifying.
func (s *Store) RotateSigningKey() error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	seed, err := generateSeed()
	if err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(s.dir, signingKeyFile), seed, 0600); err != nil {
		secret.Zero(seed)
		return fmt.Errorf("writing signing key: %w", err)
	}
	s.logger.Info("rotated token signing key", "state_dir", s.dir)
	return s.installSeed(seed)
}

// PasswordHash returns the stored bcrypt hash, read fresh from disk.
// Returns ErrNoPassword when none has been provisioned.
func (s *Store) PasswordHash() ([]byte, error) {
	return s.readPasswordHash()
}

func (s *Store) readPasswordHash() ([]byte, error) {
	hash, err := os.ReadFile(filepath.Join(s.dir, passwordHashFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoPassword
	}
	if err != nil {
		return nil, fmt.Errorf("reading password hash: %w", err)
	}
	if len(hash) == 0 {
		return nil, ErrNoPassword
	}
	return hash, nil
}

// SetPasswordHash replaces the stored hash atomically. The value must
// be a bcrypt hash.
func (s *Store) SetPasswordHash(hash []byte) error {
	if _, err := bcrypt.Cost(hash); err != nil {
		return fmt.Errorf("credential: not a bcrypt hash: %w", err)
	}

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := writeAtomic(filepath.Join(s.dir, passwordHashFile), hash, 0600); err != nil {
		return fmt.Errorf("writing password hash: %w", err)
	}
	return nil
}

// SetPassword hashes password at BcryptCost and stores the result.
func (s *Store) SetPassword(password []byte) error {
	hash, err := bcrypt.GenerateFromPassword(password, BcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return s.SetPasswordHash(hash)
}

// CheckPassword compares password against the stored hash. Returns
// ErrPasswordMismatch on a wrong password.
func (s *Store) CheckPassword(password []byte) error {
	hash, err := s.readPasswordHash()
	if err != nil {
		return err
	}
	err = bcrypt.CompareHashAndPassword(hash, password)
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	if err != nil {
		return fmt.Errorf("comparing password: %w", err)
	}
	return nil
}

// Generation returns a fingerprint of the current password hash, keyed
// by the signing seed. It changes whenever the password changes and
// reveals nothing about the hash without the seed.
func (s *Store) Generation() ([]byte, error) {
	hash, err := s.readPasswordHash()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.seed == nil {
		return nil, ErrNotProvisioned
	}

	hasher, err := blake3.NewKeyed(s.seed.Bytes())
	if err != nil {
		return nil, fmt.Errorf("credential: keyed hash initialization failed: %w", err)
	}
	hasher.Write([]byte(generationDomain))
	hasher.Write(hash)
	return hasher.Sum(nil)[:GenerationSize], nil
}

// Close releases the in-memory signing seed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seed == nil {
		return nil
	}
	err := s.seed.Close()
	s.seed = nil
	s.public = nil
	return err
}

// lock serializes writers within this process and across processes
// sharing the state directory.
func (s *Store) lock() (func(), error) {
	s.writeMu.Lock()
	if err := s.fileLock.Lock(); err != nil {
		s.writeMu.Unlock()
		return nil, fmt.Errorf("locking credential store: %w", err)
	}
	return func() {
		_ = s.fileLock.Unlock()
		s.writeMu.Unlock()
	}, nil
}
