// Package keymanager owns the service's two RSA keypairs: the blind
// signing pair and the envelope encryption pair. The pairs are
// generated on first boot, persisted PEM-encoded in the database, and
// encrypted with Vault's transit engine when Vault is enabled. They are
// handed out as two distinct Go types so signing and encryption keys
// can never be swapped.
package keymanager

import (
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"fmt"

	"unireview/internal/blindsign"
	"unireview/internal/envelope"
	"unireview/internal/vault"
)

const (
	transitKeyName    = "service-keys"
	signingKeyName    = "signing"
	encryptionKeyName = "encryption"
)

// KeyManager loads or creates the service keypairs
type KeyManager struct {
	db      *sql.DB
	vault   *vault.Client // nil when Vault is disabled
	keyBits int
}

// NewKeyManager creates a new KeyManager instance
func NewKeyManager(db *sql.DB, vaultClient *vault.Client, keyBits int) (*KeyManager, error) {
	km := &KeyManager{
		db:      db,
		vault:   vaultClient,
		keyBits: keyBits,
	}

	if vaultClient != nil {
		if err := vaultClient.CreateKey(transitKeyName); err != nil {
			return nil, fmt.Errorf("failed to initialize transit key: %w", err)
		}
	}

	return km, nil
}

// SigningKeyPair returns the blind-signature keypair, creating it on
// first use.
func (km *KeyManager) SigningKeyPair() (*blindsign.SigningKeyPair, error) {
	key, err := km.loadKey(signingKeyName)
	if err != nil {
		return nil, err
	}
	if key != nil {
		return blindsign.NewSigningKeyPair(key), nil
	}

	pair, err := blindsign.GenerateSigningKeyPair(km.keyBits)
	if err != nil {
		return nil, err
	}
	key, err = km.storeAndReload(signingKeyName, pair.Key())
	if err != nil {
		return nil, err
	}
	return blindsign.NewSigningKeyPair(key), nil
}

// EncryptionKeyPair returns the envelope keypair, creating it on first
// use. It is always a different keypair from the signing one.
func (km *KeyManager) EncryptionKeyPair() (*envelope.EncryptionKeyPair, error) {
	key, err := km.loadKey(encryptionKeyName)
	if err != nil {
		return nil, err
	}
	if key != nil {
		return envelope.NewEncryptionKeyPair(key), nil
	}

	pair, err := envelope.GenerateEncryptionKeyPair(km.keyBits)
	if err != nil {
		return nil, err
	}
	key, err = km.storeAndReload(encryptionKeyName, pair.Key())
	if err != nil {
		return nil, err
	}
	return envelope.NewEncryptionKeyPair(key), nil
}

// loadKey reads and decodes a stored keypair; nil when absent
func (km *KeyManager) loadKey(name string) (*rsa.PrivateKey, error) {
	var material string
	var vaultWrapped bool

	query := `SELECT material, vault_wrapped FROM service_keys WHERE name = $1`
	err := km.db.QueryRow(query, name).Scan(&material, &vaultWrapped)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("key lookup failed: %w", err)
	}

	pemBytes := []byte(material)
	if vaultWrapped {
		if km.vault == nil {
			return nil, fmt.Errorf("key %s is vault-wrapped but vault is disabled", name)
		}
		pemBytes, err = km.vault.Decrypt(transitKeyName, material)
		if err != nil {
			return nil, fmt.Errorf("key unwrapping failed: %w", err)
		}
	}

	return unmarshalKey(pemBytes)
}

// storeAndReload persists a freshly generated key and reads back the
// winning row, so two concurrently booting instances converge on one
// keypair.
func (km *KeyManager) storeAndReload(name string, key *rsa.PrivateKey) (*rsa.PrivateKey, error) {
	pemBytes := marshalKey(key)

	material := string(pemBytes)
	vaultWrapped := false
	if km.vault != nil {
		wrapped, err := km.vault.Encrypt(transitKeyName, pemBytes)
		if err != nil {
			return nil, fmt.Errorf("key wrapping failed: %w", err)
		}
		material = wrapped
		vaultWrapped = true
	}

	query := `
		INSERT INTO service_keys (name, material, vault_wrapped)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := km.db.Exec(query, name, material, vaultWrapped); err != nil {
		return nil, fmt.Errorf("key insert failed: %w", err)
	}

	stored, err := km.loadKey(name)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("key %s vanished after insert", name)
	}
	return stored, nil
}

func marshalKey(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

func unmarshalKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in stored key")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("key parsing failed: %w", err)
	}
	return key, nil
}
