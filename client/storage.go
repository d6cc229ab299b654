package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fundn3xus/sessionauth"
)

// Storage keys for the token pair.
const (
	AccessTokenKey  = "fundn3xus_access_token"
	RefreshTokenKey = "fundn3xus_refresh_token"
)

// Storage is a small string key/value store. Get returns "" for absent keys.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryStorage keeps values in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Get implements Storage.
func (s *MemoryStorage) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], nil
}

// Set implements Storage.
func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete implements Storage.
func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// FileStorage persists values as a YAML mapping in a single file readable
// only by its owner. Every write rewrites the whole file.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage returns a FileStorage at path. The file is created on the first Set.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Get implements Storage. A missing file reads as empty.
func (s *FileStorage) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// Set implements Storage.
func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Delete implements Storage.
func (s *FileStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

func (s *FileStorage) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return values, nil
}

func (s *FileStorage) save(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// Tokens stores a token pair in a Storage under the well-known keys.
type Tokens struct {
	storage Storage
}

// NewTokens wraps storage. A nil storage uses a fresh MemoryStorage.
func NewTokens(storage Storage) *Tokens {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Tokens{storage: storage}
}

// Store saves both tokens of pair.
func (t *Tokens) Store(pair sessionauth.TokenPair) error {
	if err := t.storage.Set(AccessTokenKey, pair.AccessToken); err != nil {
		return err
	}
	return t.storage.Set(RefreshTokenKey, pair.RefreshToken)
}

// AccessToken returns the stored access token, or "".
func (t *Tokens) AccessToken() string {
	v, _ := t.storage.Get(AccessTokenKey)
	return v
}

// RefreshToken returns the stored refresh token, or "".
func (t *Tokens) RefreshToken() string {
	v, _ := t.storage.Get(RefreshTokenKey)
	return v
}

// Clear removes both tokens.
func (t *Tokens) Clear() error {
	return errors.Join(
		t.storage.Delete(AccessTokenKey),
		t.storage.Delete(RefreshTokenKey),
	)
}

// HasTokens reports whether both tokens are present.
func (t *Tokens) HasTokens() bool {
	return t.AccessToken() != "" && t.RefreshToken() != ""
}
