// Package secrets stores the OAuth2 client secret in the system keyring,
// falling back to a private file when no keyring is available.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tracegas-cli/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.SecretStore = (*Store)(nil)

const serviceName = "tracegas"

// NoKeyringEnv disables the system keyring when set to any value.
const NoKeyringEnv = "TRACEGAS_NO_KEYRING"

// Store handles secret storage, preferring the system keychain.
type Store struct {
	useKeyring  bool
	fallbackDir string
	mu          sync.Mutex
}

// NewStore creates a secret store. The keyring is tried once; when it is
// unavailable or disabled through NoKeyringEnv, secrets go to
// fallbackDir/secrets.json with mode 0600.
func NewStore(fallbackDir string) *Store {
	if os.Getenv(NoKeyringEnv) != "" {
		return &Store{useKeyring: false, fallbackDir: fallbackDir}
	}

	check := key("availability-check")
	if err := keyring.Set(serviceName, check, "ok"); err == nil {
		_ = keyring.Delete(serviceName, check)
		return &Store{useKeyring: true, fallbackDir: fallbackDir}
	}
	logger.Warn("system keyring unavailable, client secret stored in plaintext at %s",
		filepath.Join(fallbackDir, "secrets.json"))
	return &Store{useKeyring: false, fallbackDir: fallbackDir}
}

// UsesKeyring reports whether secrets go to the system keyring.
func (s *Store) UsesKeyring() bool {
	return s.useKeyring
}

func key(clientID string) string {
	return "tracegas::" + clientID
}

// Get returns the secret for clientID, or domain.ErrNotFound.
func (s *Store) Get(clientID string) (string, error) {
	if s.useKeyring {
		secret, err := keyring.Get(serviceName, key(clientID))
		if errors.Is(err, keyring.ErrNotFound) {
			return "", domain.ErrNotFound
		}
		if err != nil {
			return "", fmt.Errorf("reading keyring: %w", err)
		}
		return secret, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadFile()
	if err != nil {
		return "", err
	}
	secret, ok := all[clientID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return secret, nil
}

// Set stores the secret for clientID.
func (s *Store) Set(clientID, secret string) error {
	if clientID == "" {
		return &domain.InvalidArgumentError{Arg: "client_id", Reason: "must not be empty"}
	}
	if s.useKeyring {
		return keyring.Set(serviceName, key(clientID), secret)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadFile()
	if err != nil {
		return err
	}
	all[clientID] = secret
	return s.saveFile(all)
}

// Delete removes the secret for clientID. Missing entries are not an error.
func (s *Store) Delete(clientID string) error {
	if s.useKeyring {
		err := keyring.Delete(serviceName, key(clientID))
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return err
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.loadFile()
	if err != nil {
		return err
	}
	if _, ok := all[clientID]; !ok {
		return nil
	}
	delete(all, clientID)
	return s.saveFile(all)
}

// File fallback methods

func (s *Store) path() string {
	return filepath.Join(s.fallbackDir, "secrets.json")
}

func (s *Store) loadFile() (map[string]string, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	var all map[string]string
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("invalid secrets file: %w", err)
	}
	if all == nil {
		all = make(map[string]string)
	}
	return all, nil
}

func (s *Store) saveFile(all map[string]string) error {
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(), data, 0600)
}
