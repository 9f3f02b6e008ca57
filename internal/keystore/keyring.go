package keystore

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// KeyringStore stores entries in the OS credential store. The namespace is
// the keychain service name and the key is the account.
//
// On macOS items live in the user's login keychain and are unreadable while
// the session is locked.
type KeyringStore struct{}

// NewKeyringStore returns a store backed by the OS keychain.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// Set removes any existing item before adding the new one.
func (s *KeyringStore) Set(namespace, key, value string) error {
	if err := s.Delete(namespace, key); err != nil {
		return err
	}
	if err := keyring.Set(namespace, key, value); err != nil {
		return unavailable("keyring set", err)
	}
	return nil
}

func (s *KeyringStore) Get(namespace, key string) (string, error) {
	v, err := keyring.Get(namespace, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", unavailable("keyring get", err)
	}
	return v, nil
}

func (s *KeyringStore) Delete(namespace, key string) error {
	err := keyring.Delete(namespace, key)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return unavailable("keyring delete", err)
}
