// Package envelope implements the hybrid encryption wrapping anonymous
// review payloads: the payload is sealed with a one-time AES-256-GCM
// key, and that key travels RSA-OAEP-wrapped under the server's
// encryption keypair. The server stores both blobs verbatim and only
// opens them at shuffle time.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

const (
	// KeySize is the AES-256 key length.
	KeySize = 32
	// NonceSize is the GCM nonce length.
	NonceSize = 12
	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

// ErrDecryption is returned for any failure while opening an envelope.
// It is deliberately generic: a tampered tag, a wrong key, and a
// truncated blob are indistinguishable to the caller.
var ErrDecryption = errors.New("envelope decryption failed")

// EncryptionKeyPair wraps the RSA keypair used exclusively for payload
// key wrapping. It is a distinct type from blindsign.SigningKeyPair so
// the two keypairs can never be interchanged.
type EncryptionKeyPair struct {
	key *rsa.PrivateKey
}

// NewEncryptionKeyPair wraps an existing RSA private key.
func NewEncryptionKeyPair(key *rsa.PrivateKey) *EncryptionKeyPair {
	return &EncryptionKeyPair{key: key}
}

// GenerateEncryptionKeyPair creates a fresh encryption keypair.
func GenerateEncryptionKeyPair(bits int) (*EncryptionKeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("encryption key generation failed: %w", err)
	}
	return &EncryptionKeyPair{key: key}, nil
}

// Key exposes the underlying private key for PEM persistence.
func (kp *EncryptionKeyPair) Key() *rsa.PrivateKey {
	return kp.key
}

// Public returns the public half used by clients to wrap payload keys.
func (kp *EncryptionKeyPair) Public() *rsa.PublicKey {
	return &kp.key.PublicKey
}

// Seal encrypts a payload under a fresh one-time AES-256 key and wraps
// that key for the given public key. The blob layout is
// nonce(12) || tag(16) || ciphertext.
func Seal(payload []byte, pub *rsa.PublicKey) (blob, wrappedKey []byte, err error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, fmt.Errorf("payload key generation failed: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("GCM creation failed: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("nonce generation failed: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, payload, nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	blob = make([]byte, 0, NonceSize+TagSize+len(ciphertext))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)

	wrappedKey, err = rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("key wrapping failed: %w", err)
	}

	return blob, wrappedKey, nil
}

// Open unwraps the payload key with the private half and decrypts the
// blob. Any failure is reported as ErrDecryption.
func (kp *EncryptionKeyPair) Open(blob, wrappedKey []byte) ([]byte, error) {
	if len(blob) < NonceSize+TagSize {
		return nil, ErrDecryption
	}

	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, kp.key, wrappedKey, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	if len(key) != KeySize {
		return nil, ErrDecryption
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrDecryption
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryption
	}

	nonce := blob[:NonceSize]
	tag := blob[NonceSize : NonceSize+TagSize]
	ciphertext := blob[NonceSize+TagSize:]

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	payload, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return payload, nil
}

// MarshalPublicKeyPEM encodes the encryption public key for the
// key-distribution endpoint.
func MarshalPublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("public key encoding failed: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ParsePublicKeyPEM decodes a PEM public key fetched from the server.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("public key parsing failed: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return pub, nil
}
