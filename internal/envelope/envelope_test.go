package envelope

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyPair(t *testing.T) *EncryptionKeyPair {
	t.Helper()
	pair, err := GenerateEncryptionKeyPair(2048)
	require.NoError(t, err)
	return pair
}

func TestSealOpenRoundTrip(t *testing.T) {
	pair := testKeyPair(t)

	payload, err := json.Marshal(map[string]interface{}{
		"ratingOverall": 4,
		"comment":       "engaging lectures, tough exams",
		"grade":         "B+",
		"courseCode":    "MATH201",
		"semester":      "2025S",
	})
	require.NoError(t, err)

	blob, wrappedKey, err := Seal(payload, pair.Public())
	require.NoError(t, err)

	got, err := pair.Open(blob, wrappedKey)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestBlobLayout(t *testing.T) {
	pair := testKeyPair(t)

	payload := []byte("short payload")
	blob, _, err := Seal(payload, pair.Public())
	require.NoError(t, err)

	// nonce || tag || ciphertext, with ciphertext length == payload length
	assert.Equal(t, NonceSize+TagSize+len(payload), len(blob))
}

func TestOneTimeKeys(t *testing.T) {
	pair := testKeyPair(t)

	payload := []byte("same payload twice")
	blob1, key1, err := Seal(payload, pair.Public())
	require.NoError(t, err)
	blob2, key2, err := Seal(payload, pair.Public())
	require.NoError(t, err)

	assert.False(t, bytes.Equal(blob1, blob2), "nonces must differ")
	assert.False(t, bytes.Equal(key1, key2), "payload keys must differ")
}

func TestOpenFailsClosed(t *testing.T) {
	pair := testKeyPair(t)

	payload := []byte(`{"comment":"tamper target"}`)
	blob, wrappedKey, err := Seal(payload, pair.Public())
	require.NoError(t, err)

	t.Run("tampered ciphertext", func(t *testing.T) {
		mutated := append([]byte(nil), blob...)
		mutated[len(mutated)-1] ^= 0x01
		_, err := pair.Open(mutated, wrappedKey)
		assert.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("tampered auth tag", func(t *testing.T) {
		mutated := append([]byte(nil), blob...)
		mutated[NonceSize] ^= 0x01
		_, err := pair.Open(mutated, wrappedKey)
		assert.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("tampered nonce", func(t *testing.T) {
		mutated := append([]byte(nil), blob...)
		mutated[0] ^= 0x01
		_, err := pair.Open(mutated, wrappedKey)
		assert.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("tampered wrapped key", func(t *testing.T) {
		mutated := append([]byte(nil), wrappedKey...)
		mutated[0] ^= 0x01
		_, err := pair.Open(blob, mutated)
		assert.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("truncated blob", func(t *testing.T) {
		_, err := pair.Open(blob[:NonceSize+TagSize-1], wrappedKey)
		assert.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("wrong keypair", func(t *testing.T) {
		other := testKeyPair(t)
		_, err := other.Open(blob, wrappedKey)
		assert.ErrorIs(t, err, ErrDecryption)
	})
}

func TestPublicKeyPEMRoundTrip(t *testing.T) {
	pair := testKeyPair(t)

	pemBytes, err := MarshalPublicKeyPEM(pair.Public())
	require.NoError(t, err)
	assert.Contains(t, string(pemBytes), "BEGIN PUBLIC KEY")

	pub, err := ParsePublicKeyPEM(pemBytes)
	require.NoError(t, err)
	assert.Equal(t, pair.Public().N, pub.N)
	assert.Equal(t, pair.Public().E, pub.E)
}

func TestParsePublicKeyPEMRejectsGarbage(t *testing.T) {
	_, err := ParsePublicKeyPEM([]byte("not a key"))
	assert.Error(t, err)
}
