package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// PayloadVersion is the current sealed payload format.
const PayloadVersion = 1

// ErrDecrypt is returned when a payload cannot be authenticated with the given secret.
var ErrDecrypt = errors.New("decryption failed")

// EncryptionConfig defines scrypt and AES-GCM parameters
type EncryptionConfig struct {
	SCryptN      int // CPU/memory cost parameter, power of two
	SCryptR      int
	SCryptP      int
	SCryptKeyLen int // 32 for AES-256
	SaltSize     int
}

// EncryptedPayload is the on-disk form of sealed data
type EncryptedPayload struct {
	Version    uint8  `json:"version"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// DefaultEncryptionConfig returns OWASP-recommended scrypt parameters
func DefaultEncryptionConfig() *EncryptionConfig {
	return &EncryptionConfig{
		SCryptN:      32768,
		SCryptR:      8,
		SCryptP:      1,
		SCryptKeyLen: 32,
		SaltSize:     32,
	}
}

// Seal encrypts plaintext with AES-256-GCM under a key derived from secret
// and a fresh random salt.
func Seal(plaintext, secret []byte, config *EncryptionConfig) (*EncryptedPayload, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret cannot be empty")
	}
	if config == nil {
		config = DefaultEncryptionConfig()
	}
	if err := ValidateEncryptionConfig(config); err != nil {
		return nil, err
	}

	salt := make([]byte, config.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(secret, salt, config)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &EncryptedPayload{
		Version:    PayloadVersion,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, plaintext, additionalData(salt)),
	}, nil
}

// Open authenticates and decrypts a payload produced by Seal.
func Open(payload *EncryptedPayload, secret []byte, config *EncryptionConfig) ([]byte, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}
	if payload.Version != PayloadVersion {
		return nil, fmt.Errorf("unsupported payload version: %d", payload.Version)
	}
	if config == nil {
		config = DefaultEncryptionConfig()
	}
	if err := ValidateEncryptionConfig(config); err != nil {
		return nil, err
	}

	gcm, err := newGCM(secret, payload.Salt, config)
	if err != nil {
		return nil, err
	}
	if len(payload.Nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce length", ErrDecrypt)
	}

	plaintext, err := gcm.Open(nil, payload.Nonce, payload.Ciphertext, additionalData(payload.Salt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

func newGCM(secret, salt []byte, config *EncryptionConfig) (cipher.AEAD, error) {
	key, err := scrypt.Key(secret, salt, config.SCryptN, config.SCryptR, config.SCryptP, config.SCryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// additionalData binds the format version and salt to the ciphertext
func additionalData(salt []byte) []byte {
	return append([]byte("lingobar-store-v1"), salt...)
}

// ValidateEncryptionConfig validates encryption configuration parameters
func ValidateEncryptionConfig(config *EncryptionConfig) error {
	if config == nil {
		return errors.New("encryption config cannot be nil")
	}
	if config.SCryptN < 2 || config.SCryptN&(config.SCryptN-1) != 0 {
		return errors.New("SCryptN must be a power of two greater than 1")
	}
	if config.SCryptR < 1 || config.SCryptP < 1 {
		return errors.New("SCryptR and SCryptP must be positive")
	}
	if config.SCryptKeyLen != 32 {
		return errors.New("SCryptKeyLen must be 32 for AES-256")
	}
	if config.SaltSize < 16 {
		return errors.New("SaltSize must be at least 16 bytes")
	}
	return nil
}
