package managers

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/flowbaker/regcheck/internal/domain"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// credentialSecretSealer encrypts passwords with ChaCha20-Poly1305 under a
// key derived per account from the master key.
type credentialSecretSealer struct {
	masterKey []byte
}

func NewCredentialSecretSealer(masterKeyBase64 string) (domain.SecretSealer, error) {
	masterKey, err := decodeMasterKey(masterKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master key: %w", err)
	}

	return &credentialSecretSealer{
		masterKey: masterKey,
	}, nil
}

func decodeMasterKey(base64Key string) ([]byte, error) {
	keyBytes, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}

	if len(keyBytes) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("invalid key length: expected %d bytes, got %d", chacha20poly1305.KeySize, len(keyBytes))
	}

	return keyBytes, nil
}

// Seal returns nonce || ciphertext. The account id is bound as additional
// data so a sealed value cannot be moved between accounts.
func (s *credentialSecretSealer) Seal(accountID string, plaintext []byte) ([]byte, error) {
	aead, err := s.aeadFor(accountID)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, []byte(accountID)), nil
}

func (s *credentialSecretSealer) Open(accountID string, sealed []byte) ([]byte, error) {
	aead, err := s.aeadFor(accountID)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, errors.New("sealed secret is too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

func (s *credentialSecretSealer) aeadFor(accountID string) (cipher.AEAD, error) {
	key, err := deriveAccountKey(s.masterKey, accountID)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}

	return aead, nil
}

func deriveAccountKey(masterKey []byte, accountID string) ([]byte, error) {
	salt := []byte("regcheck-registry-credentials")
	info := []byte("encryption-key-" + accountID)

	reader := hkdf.New(sha256.New, masterKey, salt, info)
	key := make([]byte, chacha20poly1305.KeySize)

	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	return key, nil
}
