package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/johanforsgren/orgpulse/internal/logger"
)

const (
	configDir       = ".orgpulse"
	credentialsFile = "credentials.json"
)

// LocalCredentialStore keeps the bearer credential in a single JSON file.
type LocalCredentialStore struct {
	path  string
	token string
	mu    sync.RWMutex
}

func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, configDir, credentialsFile), nil
}

func NewLocalCredentialStore() (*LocalCredentialStore, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return NewLocalCredentialStoreAt(path)
}

func NewLocalCredentialStoreAt(path string) (*LocalCredentialStore, error) {
	store := &LocalCredentialStore{path: path}

	if err := store.ensureDir(); err != nil {
		return nil, err
	}

	// An unreadable file counts as no credential; the next Store replaces it.
	if err := store.load(); err != nil && !os.IsNotExist(err) {
		logger.Log("Ignoring unreadable credential file %s", path)
	}

	return store, nil
}

func (s *LocalCredentialStore) Path() string {
	return s.path
}

func (s *LocalCredentialStore) ensureDir() error {
	return os.MkdirAll(filepath.Dir(s.path), 0700)
}

func (s *LocalCredentialStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.LogFileOpen(s.path)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.LogError("LOAD", s.path, err)
		}
		return err
	}

	var doc credentialFile
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.LogError("UNMARSHAL", s.path, err)
		return fmt.Errorf("failed to parse credentials: %w", err)
	}

	s.token = doc.Token
	logger.Log("Credential loaded from %s", s.path)
	return nil
}

func (s *LocalCredentialStore) save(token string) error {
	data, err := json.MarshalIndent(credentialFile{Token: token}, "", "  ")
	if err != nil {
		logger.LogError("MARSHAL", s.path, err)
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := s.ensureDir(); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	logger.LogFileWrite(s.path)
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		logger.LogError("SAVE", s.path, err)
		return err
	}

	return nil
}

// Store replaces any existing credential.
func (s *LocalCredentialStore) Store(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(token); err != nil {
		return err
	}
	s.token = token
	logger.Log("Credential stored")
	return nil
}

func (s *LocalCredentialStore) Read() (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", false, nil
	}
	return s.token, true, nil
}

func (s *LocalCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.LogError("CLEAR", s.path, err)
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	s.token = ""
	logger.Log("Credential cleared")
	return nil
}
