package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	seatlock "github.com/preplabs/seatlock"
)

// Stable storage keys. Other contexts sharing the same store depend on
// these names: removal of KeyAccessToken specifically is the logout
// signal watched by [StoreWatcher].
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyProfile      = "profile"
	KeyDeviceID     = "device_id"
)

// CredentialStore is the client's persistent key/value state. Reads must
// observe writes made by other contexts sharing the same backing storage;
// implementations must not cache across calls.
type CredentialStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// credentials is the typed view the manager works with.
type credentials struct {
	AccessToken  string
	RefreshToken string
	Profile      *seatlock.UserProfile
}

func loadCredentials(store CredentialStore) (credentials, error) {
	var creds credentials

	access, _, err := store.Get(KeyAccessToken)
	if err != nil {
		return credentials{}, fmt.Errorf("load access token: %w", err)
	}
	refresh, _, err := store.Get(KeyRefreshToken)
	if err != nil {
		return credentials{}, fmt.Errorf("load refresh token: %w", err)
	}
	creds.AccessToken = access
	creds.RefreshToken = refresh

	raw, ok, err := store.Get(KeyProfile)
	if err != nil {
		return credentials{}, fmt.Errorf("load profile: %w", err)
	}
	if ok && raw != "" {
		var profile seatlock.UserProfile
		if err := json.Unmarshal([]byte(raw), &profile); err == nil {
			creds.Profile = &profile
		}
		// A corrupt profile blob is denormalized data; drop it silently
		// and let the next refresh rewrite it.
	}

	return creds, nil
}

func saveSession(store CredentialStore, pair seatlock.TokenPair, profile *seatlock.UserProfile) error {
	if err := store.Set(KeyRefreshToken, pair.RefreshToken); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	if profile != nil {
		raw, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		if err := store.Set(KeyProfile, string(raw)); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
	}
	// Access token last: its presence is what sibling contexts key on.
	if err := store.Set(KeyAccessToken, pair.AccessToken); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	return nil
}

// clearSession removes session keys but never the device id: storage loss
// of the device id means "new device" server-side, and logout is not that.
func clearSession(store CredentialStore) error {
	// Access token first, so watchers see the logout signal even if a
	// later delete fails.
	var errs []error
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyProfile} {
		if err := store.Delete(key); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

/*
====================================
FILE STORE
====================================
*/

// FileStore persists keys as a single JSON document, rewritten atomically
// via a temp file and rename so concurrent readers never observe a torn
// write. Every Get re-reads the file, so contexts sharing the path observe
// each other's writes.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates the parent directory if needed. The file itself is
// created on first Set.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("lifecycle: file store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return "", false, err
	}
	value, ok := data[key]
	return value, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	data[key] = value
	return s.write(data)
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.write(data)
}

func (s *FileStore) read() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential store: %w", err)
	}

	data := map[string]string{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode credential store: %w", err)
	}
	return data, nil
}

func (s *FileStore) write(data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode credential store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".seatlock-*")
	if err != nil {
		return fmt.Errorf("stage credential store: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write credential store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("flush credential store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit credential store: %w", err)
	}
	return nil
}

/*
====================================
MEMORY STORE
====================================
*/

// MemoryStore is an in-process CredentialStore. Two managers sharing one
// instance model two contexts sharing the same storage origin.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]string{}}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
