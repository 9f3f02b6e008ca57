package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"lingobar/internal/security"
)

// FileStore keeps all entries in a single sealed file. Every write rewrites
// the file through a temp file and rename.
type FileStore struct {
	path   string
	secret []byte
	crypto *security.EncryptionConfig

	mu sync.Mutex
}

type fileContents map[string]map[string]string

// NewFileStore opens (or lazily creates) the sealed file at path. A nil
// crypto config uses security.DefaultEncryptionConfig.
func NewFileStore(path string, secret []byte, crypto *security.EncryptionConfig) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path is empty")
	}
	if len(secret) == 0 {
		return nil, errors.New("file store secret is empty")
	}
	if crypto == nil {
		crypto = security.DefaultEncryptionConfig()
	}
	if err := security.ValidateEncryptionConfig(crypto); err != nil {
		return nil, err
	}
	return &FileStore{path: path, secret: secret, crypto: crypto}, nil
}

func (s *FileStore) Set(namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.load()
	if err != nil {
		return err
	}
	ns, ok := contents[namespace]
	if !ok {
		ns = make(map[string]string)
		contents[namespace] = ns
	}
	delete(ns, key)
	ns[key] = value
	return s.save(contents)
}

func (s *FileStore) Get(namespace, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := contents[namespace][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *FileStore) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := contents[namespace][key]; !ok {
		return nil
	}
	delete(contents[namespace], key)
	if len(contents[namespace]) == 0 {
		delete(contents, namespace)
	}
	return s.save(contents)
}

// load must be called with mu held. A missing file is an empty store.
func (s *FileStore) load() (fileContents, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(fileContents), nil
	}
	if err != nil {
		return nil, unavailable("file read", err)
	}

	var payload security.EncryptedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, unavailable("file decode", err)
	}
	plaintext, err := security.Open(&payload, s.secret, s.crypto)
	if err != nil {
		return nil, unavailable("file open", err)
	}
	defer clear(plaintext)

	contents := make(fileContents)
	if err := json.Unmarshal(plaintext, &contents); err != nil {
		return nil, unavailable("file decode", err)
	}
	return contents, nil
}

// save must be called with mu held.
func (s *FileStore) save(contents fileContents) error {
	plaintext, err := json.Marshal(contents)
	if err != nil {
		return unavailable("file encode", err)
	}
	defer clear(plaintext)

	payload, err := security.Seal(plaintext, s.secret, s.crypto)
	if err != nil {
		return unavailable("file seal", err)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return unavailable("file encode", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return unavailable("file mkdir", err)
	}
	tmp, err := os.CreateTemp(dir, ".secrets-*.tmp")
	if err != nil {
		return unavailable("file create", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return unavailable("file chmod", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return unavailable("file write", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return unavailable("file sync", err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable("file close", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return unavailable("file rename", fmt.Errorf("%s: %w", s.path, err))
	}
	return nil
}
