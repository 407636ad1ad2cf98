// Package blindsign implements the RSA blind-signature scheme used to
// issue anonymous review tokens.
//
// The server signs blinded digests without seeing their plaintext: the
// client hashes the token message, multiplies the digest by r^E mod N
// for a fresh random blinding factor r, and sends only the product. The
// server raises it to the private exponent, and the client divides the
// blinding factor back out. The resulting signature verifies against
// the plain digest even though the server never saw it.
//
// Signing is deliberately raw modular exponentiation with no padding:
// the digest is computed and blinded client-side, and any server-side
// re-hashing or padding would break the unblinding algebra.
package blindsign

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidBlindedMessage is returned for blinded input that is empty,
// zero, or not below the modulus. Callers surface it generically for a
// whole batch so a response never narrows down which entry was bad.
var ErrInvalidBlindedMessage = errors.New("invalid blinded message")

var one = big.NewInt(1)

// SigningKeyPair wraps the RSA keypair used exclusively for blind
// signatures. It is a distinct type from envelope.EncryptionKeyPair so
// the two keypairs can never be handed to the wrong subsystem.
type SigningKeyPair struct {
	key *rsa.PrivateKey
}

// NewSigningKeyPair wraps an existing RSA private key.
func NewSigningKeyPair(key *rsa.PrivateKey) *SigningKeyPair {
	return &SigningKeyPair{key: key}
}

// GenerateSigningKeyPair creates a fresh signing keypair.
func GenerateSigningKeyPair(bits int) (*SigningKeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("signing key generation failed: %w", err)
	}
	return &SigningKeyPair{key: key}, nil
}

// Key exposes the underlying private key for PEM persistence.
func (kp *SigningKeyPair) Key() *rsa.PrivateKey {
	return kp.key
}

// Authority holds the signing keypair and performs the server side of
// the blind-signature protocol.
type Authority struct {
	pair *SigningKeyPair
}

// NewAuthority creates a signing authority over the given keypair.
func NewAuthority(pair *SigningKeyPair) *Authority {
	return &Authority{pair: pair}
}

// PublicComponents returns the modulus and public exponent clients need
// for the blinding math.
func (a *Authority) PublicComponents() (n *big.Int, e int) {
	return new(big.Int).Set(a.pair.key.N), a.pair.key.E
}

// SignBlinded computes blinded^D mod N over the blinded digest exactly
// as received. The input must be in (0, N).
func (a *Authority) SignBlinded(blinded *big.Int) (*big.Int, error) {
	if blinded == nil || blinded.Sign() <= 0 || blinded.Cmp(a.pair.key.N) >= 0 {
		return nil, ErrInvalidBlindedMessage
	}
	return new(big.Int).Exp(blinded, a.pair.key.D, a.pair.key.N), nil
}

// Verify checks an unblinded signature against the message it was bound
// to: sig^E mod N must equal the message digest.
func (a *Authority) Verify(message []byte, sig *big.Int) bool {
	if sig == nil || sig.Sign() <= 0 || sig.Cmp(a.pair.key.N) >= 0 {
		return false
	}
	e := big.NewInt(int64(a.pair.key.E))
	recovered := new(big.Int).Exp(sig, e, a.pair.key.N)
	return recovered.Cmp(Digest(message)) == 0
}

// TokenMessage builds the canonical byte string a token signature is
// bound to. Client and server must agree on it exactly.
func TokenMessage(tokenUUID string, profID int64, cycleID string) []byte {
	return fmt.Appendf(nil, "%s|%d|%s", tokenUUID, profID, cycleID)
}

// Digest hashes a token message into the integer the signature covers.
// SHA-256 output is far below any practical modulus, so no reduction is
// needed.
func Digest(message []byte) *big.Int {
	sum := sha256.Sum256(message)
	return new(big.Int).SetBytes(sum[:])
}

// Blind prepares a message digest for blind signing. It draws a fresh
// blinding factor r invertible mod n and returns digest*r^e mod n along
// with r. A new r must be drawn for every attempt; reusing one across
// retries would open a signature-reuse side channel.
func Blind(message []byte, n *big.Int, e int) (blinded, r *big.Int, err error) {
	if n == nil || n.Sign() <= 0 {
		return nil, nil, errors.New("invalid modulus")
	}

	for {
		r, err = rand.Int(rand.Reader, n)
		if err != nil {
			return nil, nil, fmt.Errorf("blinding factor generation failed: %w", err)
		}
		if r.Cmp(one) <= 0 {
			continue
		}
		// r must be invertible mod n for unblinding to exist.
		if new(big.Int).ModInverse(r, n) != nil {
			break
		}
	}

	mask := new(big.Int).Exp(r, big.NewInt(int64(e)), n)
	blinded = mask.Mul(mask, Digest(message))
	blinded.Mod(blinded, n)
	return blinded, r, nil
}

// Unblind removes the blinding factor from a blinded signature:
// sig = blindedSig * r^-1 mod n.
func Unblind(blindedSig, r, n *big.Int) (*big.Int, error) {
	inv := new(big.Int).ModInverse(r, n)
	if inv == nil {
		return nil, errors.New("blinding factor not invertible")
	}
	sig := new(big.Int).Mul(blindedSig, inv)
	return sig.Mod(sig, n), nil
}

// VerifyWithComponents is the client-side counterpart of
// Authority.Verify, using only the public components.
func VerifyWithComponents(message []byte, sig, n *big.Int, e int) bool {
	if sig == nil || sig.Sign() <= 0 || sig.Cmp(n) >= 0 {
		return false
	}
	recovered := new(big.Int).Exp(sig, big.NewInt(int64(e)), n)
	return recovered.Cmp(Digest(message)) == 0
}
