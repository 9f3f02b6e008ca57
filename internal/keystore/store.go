package keystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lingobar/internal/config"
	apperrors "lingobar/internal/errors"
	"lingobar/internal/security"
)

var (
	// ErrNotFound is returned by Get when no entry exists.
	ErrNotFound = errors.New("keystore: entry not found")

	// ErrUnavailable wraps backend failures.
	ErrUnavailable = apperrors.ErrStorageUnavailable
)

// Store is a namespaced secret store.
type Store interface {
	Set(namespace, key, value string) error
	Get(namespace, key string) (string, error)
	Delete(namespace, key string) error
}

// Lookup returns the value and whether it was present. Backend failures are
// indistinguishable from absence here; callers needing the difference use Get.
func Lookup(s Store, namespace, key string) (string, bool) {
	v, err := s.Get(namespace, key)
	if err != nil {
		return "", false
	}
	return v, true
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

// New builds the backend selected by cfg.
func New(ctx context.Context, cfg config.StoreConfig, ids *security.InstanceIdentifier, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.StoreBackendKeyring:
		return NewKeyringStore(), nil
	case config.StoreBackendMemory:
		return NewMemoryStore(), nil
	case config.StoreBackendFile:
		secret := fileSecret(ctx, cfg, ids, logger)
		return NewFileStore(cfg.FilePath, secret, nil)
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}

// fileSecret binds the file store key to this machine. Copying the file to
// another machine leaves it unreadable.
func fileSecret(ctx context.Context, cfg config.StoreConfig, ids *security.InstanceIdentifier, logger *slog.Logger) []byte {
	if ids != nil {
		if id, err := ids.HardwareUUID(ctx); err == nil {
			return []byte(cfg.Bundle + ":" + id)
		}
	}
	if logger != nil {
		logger.WarnContext(ctx, "No hardware identifier, file store key bound to bundle id only",
			slog.String("component", "keystore"),
		)
	}
	return []byte(cfg.Bundle + ":unbound")
}
