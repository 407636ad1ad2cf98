package tokenstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"unireview/internal/models"
)

// Backup hardening parameters. The iteration count is the floor for
// offline brute-force cost; exports written with a higher count still
// import because the count is stored in the header.
const (
	backupIterations = 150_000
	backupSaltSize   = 16
	backupKeySize    = 32
)

// ErrBackupDecrypt is returned for every backup import failure, wrong
// password and corrupted file alike. The two cases are deliberately
// indistinguishable.
var ErrBackupDecrypt = errors.New("invalid password or corrupted backup")

// ErrTokenExists is returned when a batch would overwrite a token the
// device already holds for the same professor and cycle.
var ErrTokenExists = errors.New("token already held for professor and cycle")

// Store is the device-side token wallet: a single JSON file holding
// every token the device has been issued, keyed by professor and
// cycle. Writes go through a temp file and rename, so a crash never
// leaves a half-written wallet.
type Store struct {
	mu   sync.Mutex
	path string
}

type walletFile struct {
	Tokens []models.ReviewToken `json:"tokens"`
}

// New creates a store backed by the given file path. The file is
// created on first save.
func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() (*walletFile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &walletFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token store: %w", err)
	}
	var w walletFile
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse token store: %w", err)
	}
	return &w, nil
}

func (s *Store) save(w *walletFile) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".wallet-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict token store permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to flush token store: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// Get returns the token held for a professor in a cycle, nil when the
// device holds none.
func (s *Store) Get(profID int64, cycleID string) (*models.ReviewToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range w.Tokens {
		if w.Tokens[i].ProfID == profID && w.Tokens[i].CycleID == cycleID {
			t := w.Tokens[i]
			return &t, nil
		}
	}
	return nil, nil
}

// List returns every token in the wallet.
func (s *Store) List() ([]models.ReviewToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.load()
	if err != nil {
		return nil, err
	}
	return w.Tokens, nil
}

// Unused returns every unspent token for a cycle.
func (s *Store) Unused(cycleID string) ([]models.ReviewToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []models.ReviewToken
	for _, t := range w.Tokens {
		if t.CycleID == cycleID && !t.Used {
			out = append(out, t)
		}
	}
	return out, nil
}

// SaveBatch stores a freshly issued token batch. It refuses to
// overwrite an existing token for the same professor and cycle: a
// claim is one-shot, so a collision means the caller is about to
// discard a token it can never replace.
func (s *Store) SaveBatch(tokens []models.ReviewToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.load()
	if err != nil {
		return err
	}
	held := make(map[string]bool, len(w.Tokens))
	for _, t := range w.Tokens {
		held[fmt.Sprintf("%d|%s", t.ProfID, t.CycleID)] = true
	}
	for _, t := range tokens {
		key := fmt.Sprintf("%d|%s", t.ProfID, t.CycleID)
		if held[key] {
			return ErrTokenExists
		}
		held[key] = true
	}
	w.Tokens = append(w.Tokens, tokens...)
	return s.save(w)
}

// MarkUsed flags a token as spent. Missing tokens are ignored so a
// replayed confirmation cannot fail the submission flow.
func (s *Store) MarkUsed(tokenUUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.load()
	if err != nil {
		return err
	}
	for i := range w.Tokens {
		if w.Tokens[i].TokenUUID == tokenUUID {
			w.Tokens[i].Used = true
		}
	}
	return s.save(w)
}

// DeleteCycle drops every token for a cycle, typically after rollover
// when they can no longer be redeemed.
func (s *Store) DeleteCycle(cycleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.load()
	if err != nil {
		return err
	}
	kept := w.Tokens[:0]
	for _, t := range w.Tokens {
		if t.CycleID != cycleID {
			kept = append(kept, t)
		}
	}
	w.Tokens = kept
	return s.save(w)
}

// Export serializes the wallet encrypted under a password. Layout:
// salt || nonce || ciphertext, with the AES key derived via
// PBKDF2-SHA256. Each export draws a fresh salt and nonce.
func (s *Store) Export(password string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.load()
	if err != nil {
		return nil, err
	}
	plaintext, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to encode wallet: %w", err)
	}

	salt := make([]byte, backupSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to draw salt: %w", err)
	}
	gcm, err := backupCipher(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to draw nonce: %w", err)
	}

	out := make([]byte, 0, len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// Import decrypts a backup and merges its tokens into the wallet.
// Tokens already held (same uuid) keep their local state; a locally
// spent token stays spent even if the backup predates the spend.
func (s *Store) Import(backup []byte, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(backup) < backupSaltSize {
		return ErrBackupDecrypt
	}
	salt, rest := backup[:backupSaltSize], backup[backupSaltSize:]
	gcm, err := backupCipher(password, salt)
	if err != nil {
		return ErrBackupDecrypt
	}
	if len(rest) < gcm.NonceSize() {
		return ErrBackupDecrypt
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrBackupDecrypt
	}
	var restored walletFile
	if err := json.Unmarshal(plaintext, &restored); err != nil {
		return ErrBackupDecrypt
	}

	w, err := s.load()
	if err != nil {
		return err
	}
	held := make(map[string]bool, len(w.Tokens))
	for _, t := range w.Tokens {
		held[t.TokenUUID] = true
	}
	for _, t := range restored.Tokens {
		if !held[t.TokenUUID] {
			w.Tokens = append(w.Tokens, t)
		}
	}
	return s.save(w)
}

func backupCipher(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, backupIterations, backupKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
