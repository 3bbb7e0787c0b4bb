package initialization

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// SigningKeyPair is an account's request signing pair. The public half goes
// into auth.account_keys, the private half stays with the client.
type SigningKeyPair struct {
	AccountID  string `json:"account_id,omitempty" yaml:"account_id,omitempty"`
	PublicKey  string `json:"public_key" yaml:"public_key"`
	PrivateKey string `json:"private_key" yaml:"private_key"`
}

// GenerateMasterKey returns a base64 key suitable for secrets.master_key.
func GenerateMasterKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate master key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(key), nil
}

func GenerateSigningKeyPair(accountID string) (SigningKeyPair, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return SigningKeyPair{}, fmt.Errorf("failed to generate Ed25519 keys: %w", err)
	}

	return SigningKeyPair{
		AccountID:  accountID,
		PublicKey:  base64.StdEncoding.EncodeToString(publicKey),
		PrivateKey: base64.StdEncoding.EncodeToString(privateKey),
	}, nil
}
