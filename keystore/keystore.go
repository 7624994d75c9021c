// Package keystore abstracts where the AI API credential lives. The
// original app keeps it in the platform keychain; server-side we settle for
// a mode-0600 file with an env-var override, behind one small interface so
// tests can inject a double.
package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CredentialStore retrieves and manages the API credential.
type CredentialStore interface {
	APIKey(ctx context.Context) (string, error)
	Save(ctx context.Context, key string) error
	Delete(ctx context.Context) error
}

// ErrReadOnly is returned by stores that cannot persist credentials.
var ErrReadOnly = errors.New("credential store is read-only")

type fileCredentials struct {
	APIKey string `json:"api_key"`
}

// FileStore keeps the credential in a JSON file. When the file is absent
// and a fallback key was configured, the first read seeds the file with the
// fallback (the original first-run behavior).
type FileStore struct {
	path     string
	fallback string
	mu       sync.Mutex
}

func NewFileStore(path, fallback string) *FileStore {
	return &FileStore{path: path, fallback: fallback}
}

func (s *FileStore) APIKey(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.read()
	if err != nil {
		return "", err
	}
	if key != "" {
		return key, nil
	}
	if s.fallback == "" {
		return "", nil
	}
	if err := s.write(s.fallback); err != nil {
		return "", fmt.Errorf("failed to seed credential file: %w", err)
	}
	return s.fallback, nil
}

func (s *FileStore) Save(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(key)
}

func (s *FileStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete credential file: %w", err)
	}
	return nil
}

func (s *FileStore) read() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential file: %w", err)
	}

	var creds fileCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", fmt.Errorf("failed to decode credential file: %w", err)
	}
	return strings.TrimSpace(creds.APIKey), nil
}

func (s *FileStore) write(key string) error {
	data, err := json.Marshal(fileCredentials{APIKey: key})
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o600)
}

// EnvStore reads the credential from an environment variable.
type EnvStore struct {
	Var string
}

func NewEnvStore(envVar string) *EnvStore {
	return &EnvStore{Var: envVar}
}

func (s *EnvStore) APIKey(ctx context.Context) (string, error) {
	return strings.TrimSpace(os.Getenv(s.Var)), nil
}

func (s *EnvStore) Save(ctx context.Context, key string) error {
	return ErrReadOnly
}

func (s *EnvStore) Delete(ctx context.Context) error {
	return ErrReadOnly
}

// StaticStore holds a fixed in-memory credential, mainly for tests.
type StaticStore struct {
	mu  sync.Mutex
	key string
}

func NewStaticStore(key string) *StaticStore {
	return &StaticStore{key: key}
}

func (s *StaticStore) APIKey(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, nil
}

func (s *StaticStore) Save(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	return nil
}

func (s *StaticStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = ""
	return nil
}
