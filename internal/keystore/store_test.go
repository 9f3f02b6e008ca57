package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zalando/go-keyring"

	"lingobar/internal/config"
	"lingobar/internal/security"
)

const testNS = "com.lingobar.test.license"

func fastCrypto() *security.EncryptionConfig {
	cfg := security.DefaultEncryptionConfig()
	cfg.SCryptN = 1024
	return cfg
}

// StoreContractSuite runs the same behaviour checks against every backend.
type StoreContractSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
}

func (s *StoreContractSuite) SetupTest() {
	s.store = s.newStore(s.T())
}

func (s *StoreContractSuite) TestGetMissing() {
	_, err := s.store.Get(testNS, "license-key")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreContractSuite) TestSetThenGet() {
	s.Require().NoError(s.store.Set(testNS, "trial-start-date", "1712345678.25"))

	v, err := s.store.Get(testNS, "trial-start-date")
	s.Require().NoError(err)
	s.Equal("1712345678.25", v)
}

func (s *StoreContractSuite) TestSetIsUpsert() {
	s.Require().NoError(s.store.Set(testNS, "last-used-date", "1"))
	s.Require().NoError(s.store.Set(testNS, "last-used-date", "2"))

	v, err := s.store.Get(testNS, "last-used-date")
	s.Require().NoError(err)
	s.Equal("2", v)
}

func (s *StoreContractSuite) TestDeleteIsIdempotent() {
	s.Require().NoError(s.store.Set(testNS, "license-key", "KEY"))
	s.NoError(s.store.Delete(testNS, "license-key"))
	s.NoError(s.store.Delete(testNS, "license-key"))

	_, err := s.store.Get(testNS, "license-key")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreContractSuite) TestNamespacesAreIsolated() {
	s.Require().NoError(s.store.Set(testNS, "k", "license"))
	s.Require().NoError(s.store.Set("com.lingobar.test.api-keys", "k", "apikey"))

	a, _ := s.store.Get(testNS, "k")
	b, _ := s.store.Get("com.lingobar.test.api-keys", "k")
	s.Equal("license", a)
	s.Equal("apikey", b)
}

func (s *StoreContractSuite) TestLookup() {
	_, ok := Lookup(s.store, testNS, "instance-id")
	s.False(ok)

	s.Require().NoError(s.store.Set(testNS, "instance-id", "a1b2c3d4"))
	v, ok := Lookup(s.store, testNS, "instance-id")
	s.True(ok)
	s.Equal("a1b2c3d4", v)
}

func TestMemoryStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(*testing.T) Store { return NewMemoryStore() }})
}

func TestKeyringStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(*testing.T) Store {
		keyring.MockInit()
		return NewKeyringStore()
	}})
}

func TestFileStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(t *testing.T) Store {
		fs, err := NewFileStore(filepath.Join(t.TempDir(), "secrets.enc"), []byte("machine-1"), fastCrypto())
		require.NoError(t, err)
		return fs
	}})
}

func TestKeyringStoreBackendFailure(t *testing.T) {
	keyring.MockInitWithError(errors.New("keychain locked"))
	defer keyring.MockInit()

	s := NewKeyringStore()
	_, err := s.Get(testNS, "license-key")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Set(testNS, "license-key", "x"), ErrUnavailable)
}

func TestMemoryStoreFailWith(t *testing.T) {
	s := NewMemoryStore()
	s.FailWith(nil, errors.New("disk full"), nil)

	assert.ErrorIs(t, s.Set(testNS, "k", "v"), ErrUnavailable)
	assert.Equal(t, 0, s.Len(testNS))

	s.FailWith(nil, nil, nil)
	assert.NoError(t, s.Set(testNS, "k", "v"))
	assert.Equal(t, 1, s.Len(testNS))
}

func TestFileStorePersistsSealed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secrets.enc")
	s, err := NewFileStore(path, []byte("machine-1"), fastCrypto())
	require.NoError(t, err)

	require.NoError(t, s.Set(testNS, "license-key", "SUPER-SECRET-KEY"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "SUPER-SECRET-KEY")

	var payload security.EncryptedPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, uint8(security.PayloadVersion), payload.Version)

	reopened, err := NewFileStore(path, []byte("machine-1"), fastCrypto())
	require.NoError(t, err)
	v, err := reopened.Get(testNS, "license-key")
	require.NoError(t, err)
	assert.Equal(t, "SUPER-SECRET-KEY", v)
}

func TestFileStoreWrongMachine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	s, err := NewFileStore(path, []byte("machine-1"), fastCrypto())
	require.NoError(t, err)
	require.NoError(t, s.Set(testNS, "license-key", "KEY"))

	other, err := NewFileStore(path, []byte("machine-2"), fastCrypto())
	require.NoError(t, err)
	_, err = other.Get(testNS, "license-key")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	s, err := NewFileStore(path, []byte("machine-1"), fastCrypto())
	require.NoError(t, err)
	_, err = s.Get(testNS, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewFileStoreRejectsBadArgs(t *testing.T) {
	_, err := NewFileStore("", []byte("s"), nil)
	assert.Error(t, err)
	_, err = NewFileStore("/tmp/x", nil, nil)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	tests := []struct {
		name    string
		backend string
		want    interface{}
		wantErr bool
	}{
		{"keyring", config.StoreBackendKeyring, &KeyringStore{}, false},
		{"memory", config.StoreBackendMemory, &MemoryStore{}, false},
		{"file", config.StoreBackendFile, &FileStore{}, false},
		{"unknown", "vault", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.StoreConfig{
				Backend:  tt.backend,
				Bundle:   "com.lingobar.test",
				FilePath: filepath.Join(t.TempDir(), "secrets.enc"),
			}
			ids := security.NewInstanceIdentifierWithProbe(func(context.Context) (string, error) {
				return "HW-UUID", nil
			}, nil)

			s, err := New(ctx, cfg, ids, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}
