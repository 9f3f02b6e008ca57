package security

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps scrypt cheap in tests
func fastConfig() *EncryptionConfig {
	cfg := DefaultEncryptionConfig()
	cfg.SCryptN = 1024
	return cfg
}

func TestSealOpenRoundTrip(t *testing.T) {
	secret := []byte("instance-1234")
	plaintext := []byte(`{"com.lingobar.app.license":{"license-key":"ABCD-1234"}}`)

	payload, err := Seal(plaintext, secret, fastConfig())
	require.NoError(t, err)
	assert.Equal(t, uint8(PayloadVersion), payload.Version)
	assert.Len(t, payload.Salt, 32)
	assert.NotContains(t, string(payload.Ciphertext), "ABCD-1234")

	out, err := Open(payload, secret, fastConfig())
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestSealUsesFreshSalt(t *testing.T) {
	a, err := Seal([]byte("x"), []byte("s"), fastConfig())
	require.NoError(t, err)
	b, err := Seal([]byte("x"), []byte("s"), fastConfig())
	require.NoError(t, err)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestOpenFailures(t *testing.T) {
	payload, err := Seal([]byte("secret data"), []byte("right"), fastConfig())
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := Open(payload, []byte("wrong"), fastConfig())
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		tampered := *payload
		tampered.Ciphertext = append([]byte(nil), payload.Ciphertext...)
		tampered.Ciphertext[0] ^= 0xFF
		_, err := Open(&tampered, []byte("right"), fastConfig())
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("unknown version", func(t *testing.T) {
		v2 := *payload
		v2.Version = 9
		_, err := Open(&v2, []byte("right"), fastConfig())
		assert.Error(t, err)
	})

	t.Run("nil payload", func(t *testing.T) {
		_, err := Open(nil, []byte("right"), fastConfig())
		assert.Error(t, err)
	})
}

func TestValidateEncryptionConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EncryptionConfig)
		wantErr bool
	}{
		{"default", func(*EncryptionConfig) {}, false},
		{"n not power of two", func(c *EncryptionConfig) { c.SCryptN = 1000 }, true},
		{"short key", func(c *EncryptionConfig) { c.SCryptKeyLen = 16 }, true},
		{"short salt", func(c *EncryptionConfig) { c.SaltSize = 8 }, true},
		{"zero r", func(c *EncryptionConfig) { c.SCryptR = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEncryptionConfig()
			tt.mutate(cfg)
			err := ValidateEncryptionConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHardwareUUIDCachesFirstSuccess(t *testing.T) {
	calls := 0
	ii := NewInstanceIdentifierWithProbe(func(context.Context) (string, error) {
		calls++
		return "  4C4C4544-0042-3510-8048-B7C04F4B4E32\n", nil
	}, nil)

	first, err := ii.HardwareUUID(context.Background())
	require.NoError(t, err)
	second, err := ii.HardwareUUID(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "4C4C4544-0042-3510-8048-B7C04F4B4E32", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestHardwareUUIDProbeFailure(t *testing.T) {
	calls := 0
	ii := NewInstanceIdentifierWithProbe(func(context.Context) (string, error) {
		calls++
		return "", errors.New("no ioreg")
	}, nil)

	_, err := ii.HardwareUUID(context.Background())
	assert.Error(t, err)
	_, err = ii.HardwareUUID(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, calls, "failures are not cached")
}

func TestHardwareUUIDBlank(t *testing.T) {
	ii := NewInstanceIdentifierWithProbe(func(context.Context) (string, error) {
		return "   ", nil
	}, nil)
	_, err := ii.HardwareUUID(context.Background())
	assert.ErrorIs(t, err, ErrNoHardwareID)
}

func TestParseIORegUUID(t *testing.T) {
	out := []byte(`+-o Mac14,2  <class IOPlatformExpertDevice, id 0x100000258>
    {
      "IOPlatformSerialNumber" = "C02XXXXXXX"
      "IOPlatformUUID" = "8D43C1A0-5F6B-5C1E-9A51-2B1F7C3E4D5A"
    }`)

	id, err := ParseIORegUUID(out)
	require.NoError(t, err)
	assert.Equal(t, "8D43C1A0-5F6B-5C1E-9A51-2B1F7C3E4D5A", id)

	_, err = ParseIORegUUID([]byte("nothing here"))
	assert.ErrorIs(t, err, ErrNoHardwareID)
}
