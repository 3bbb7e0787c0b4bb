package auth

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureHeader = "X-API-Signature"
	TimestampHeader = "X-API-Timestamp"

	signaturePrefix      = "ed25519="
	DefaultTimestampSkew = 5 * time.Minute
)

var (
	ErrInvalidSignatureFormat = errors.New("invalid signature format")
	ErrTimestampOutOfWindow   = errors.New("timestamp outside allowed window")
	ErrSignatureMismatch      = errors.New("signature verification failed")
)

// canonicalRequest is the string both sides sign: method, path, an empty
// line, the unix timestamp and the body digest.
func canonicalRequest(method, path, timestamp string, body []byte) []byte {
	bodyHash := sha256.Sum256(body)

	return []byte(fmt.Sprintf("%s\n%s\n\n%s\nsha256:%x", strings.ToUpper(method), path, timestamp, bodyHash))
}

// RequestSigner signs requests on behalf of an account's API client.
type RequestSigner struct {
	privateKey ed25519.PrivateKey
	now        func() time.Time
}

func NewRequestSigner(privateKeyBase64 string) (*RequestSigner, error) {
	privateKeyBytes, err := base64.StdEncoding.DecodeString(privateKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}

	if len(privateKeyBytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size: expected %d, got %d", ed25519.PrivateKeySize, len(privateKeyBytes))
	}

	return &RequestSigner{
		privateKey: ed25519.PrivateKey(privateKeyBytes),
		now:        time.Now,
	}, nil
}

// SignRequest returns the headers to attach to the request.
func (s *RequestSigner) SignRequest(method, path string, body []byte) map[string]string {
	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	signature := ed25519.Sign(s.privateKey, canonicalRequest(method, path, timestamp, body))

	return map[string]string{
		SignatureHeader: signaturePrefix + base64.StdEncoding.EncodeToString(signature),
		TimestampHeader: timestamp,
	}
}

// SignatureVerifier checks request signatures against an account's public key.
type SignatureVerifier struct {
	publicKey ed25519.PublicKey
	skew      time.Duration
	now       func() time.Time
}

func NewSignatureVerifier(publicKeyBase64 string) (*SignatureVerifier, error) {
	publicKeyBytes, err := base64.StdEncoding.DecodeString(publicKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}

	if len(publicKeyBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key size: expected %d, got %d", ed25519.PublicKeySize, len(publicKeyBytes))
	}

	return &SignatureVerifier{
		publicKey: ed25519.PublicKey(publicKeyBytes),
		skew:      DefaultTimestampSkew,
		now:       time.Now,
	}, nil
}

func (v *SignatureVerifier) VerifyRequest(method, path, signatureHeader, timestampHeader string, body []byte) error {
	encoded, ok := strings.CutPrefix(signatureHeader, signaturePrefix)
	if !ok || encoded == "" {
		return ErrInvalidSignatureFormat
	}

	signature, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}

	timestamp, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}

	diff := v.now().Sub(time.Unix(timestamp, 0))
	if diff < 0 {
		diff = -diff
	}

	if diff > v.skew {
		return ErrTimestampOutOfWindow
	}

	if !ed25519.Verify(v.publicKey, canonicalRequest(method, path, timestampHeader, body), signature) {
		return ErrSignatureMismatch
	}

	return nil
}
