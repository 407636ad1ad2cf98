package tokenstore

import (
	"errors"
	"path/filepath"
	"testing"

	"unireview/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "wallet.json"))
}

func token(profID int64, cycleID, uuid string) models.ReviewToken {
	return models.ReviewToken{
		TokenUUID:      uuid,
		ProfID:         profID,
		CycleID:        cycleID,
		Signature:      "ab12",
		BlindingFactor: "cd34",
	}
}

func TestSaveBatchAndGet(t *testing.T) {
	s := newTestStore(t)

	batch := []models.ReviewToken{
		token(1, "2026_07_A", "uuid-1"),
		token(2, "2026_07_A", "uuid-2"),
	}
	if err := s.SaveBatch(batch); err != nil {
		t.Fatalf("failed to save batch: %v", err)
	}

	got, err := s.Get(2, "2026_07_A")
	if err != nil {
		t.Fatalf("failed to get token: %v", err)
	}
	if got == nil || got.TokenUUID != "uuid-2" {
		t.Errorf("expected uuid-2, got %+v", got)
	}

	missing, err := s.Get(99, "2026_07_A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unheld token, got %+v", missing)
	}
}

func TestSaveBatchRefusesOverwrite(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveBatch([]models.ReviewToken{token(1, "2026_07_A", "uuid-1")}); err != nil {
		t.Fatalf("failed to save batch: %v", err)
	}
	err := s.SaveBatch([]models.ReviewToken{token(1, "2026_07_A", "uuid-other")})
	if !errors.Is(err, ErrTokenExists) {
		t.Errorf("expected ErrTokenExists, got %v", err)
	}
}

func TestSaveBatchRefusesDuplicateWithinBatch(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveBatch([]models.ReviewToken{
		token(1, "2026_07_A", "uuid-1"),
		token(1, "2026_07_A", "uuid-2"),
	})
	if !errors.Is(err, ErrTokenExists) {
		t.Errorf("expected ErrTokenExists, got %v", err)
	}
	tokens, err := s.List()
	if err != nil {
		t.Fatalf("failed to list tokens: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("expected empty wallet after rejected batch, got %d tokens", len(tokens))
	}
}

func TestMarkUsedAndUnused(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveBatch([]models.ReviewToken{
		token(1, "2026_07_A", "uuid-1"),
		token(2, "2026_07_A", "uuid-2"),
	}); err != nil {
		t.Fatalf("failed to save batch: %v", err)
	}
	if err := s.MarkUsed("uuid-1"); err != nil {
		t.Fatalf("failed to mark used: %v", err)
	}

	unused, err := s.Unused("2026_07_A")
	if err != nil {
		t.Fatalf("failed to list unused: %v", err)
	}
	if len(unused) != 1 || unused[0].TokenUUID != "uuid-2" {
		t.Errorf("expected only uuid-2 unused, got %+v", unused)
	}
}

func TestDeleteCycle(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveBatch([]models.ReviewToken{
		token(1, "2026_05_A", "uuid-old"),
		token(1, "2026_07_A", "uuid-new"),
	}); err != nil {
		t.Fatalf("failed to save batch: %v", err)
	}
	if err := s.DeleteCycle("2026_05_A"); err != nil {
		t.Fatalf("failed to delete cycle: %v", err)
	}

	old, err := s.Get(1, "2026_05_A")
	if err != nil || old != nil {
		t.Errorf("expected old cycle gone, got %+v err %v", old, err)
	}
	kept, err := s.Get(1, "2026_07_A")
	if err != nil || kept == nil {
		t.Errorf("expected current cycle kept, got %+v err %v", kept, err)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveBatch([]models.ReviewToken{token(1, "2026_07_A", "uuid-1")}); err != nil {
		t.Fatalf("failed to save batch: %v", err)
	}

	backup, err := s.Export("correct horse battery")
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	restored := newTestStore(t)
	if err := restored.Import(backup, "correct horse battery"); err != nil {
		t.Fatalf("failed to import: %v", err)
	}
	got, err := restored.Get(1, "2026_07_A")
	if err != nil {
		t.Fatalf("failed to read restored token: %v", err)
	}
	if got == nil || got.TokenUUID != "uuid-1" {
		t.Errorf("restored wallet missing token: %+v", got)
	}
}

func TestBackupExportsDiffer(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveBatch([]models.ReviewToken{token(1, "2026_07_A", "uuid-1")}); err != nil {
		t.Fatalf("failed to save batch: %v", err)
	}

	a, err := s.Export("pw")
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}
	b, err := s.Export("pw")
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}
	if string(a) == string(b) {
		t.Error("two exports must not share salt and nonce")
	}
}

func TestImportFailuresAreIndistinguishable(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveBatch([]models.ReviewToken{token(1, "2026_07_A", "uuid-1")}); err != nil {
		t.Fatalf("failed to save batch: %v", err)
	}
	backup, err := s.Export("right password")
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	corrupted := append([]byte(nil), backup...)
	corrupted[len(corrupted)-1] ^= 0xff

	cases := map[string]struct {
		data     []byte
		password string
	}{
		"wrong password": {backup, "wrong password"},
		"corrupted file": {corrupted, "right password"},
		"truncated file": {backup[:10], "right password"},
	}
	for name, tc := range cases {
		target := newTestStore(t)
		if err := target.Import(tc.data, tc.password); !errors.Is(err, ErrBackupDecrypt) {
			t.Errorf("%s: expected ErrBackupDecrypt, got %v", name, err)
		}
	}
}

func TestImportKeepsLocalSpentState(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveBatch([]models.ReviewToken{token(1, "2026_07_A", "uuid-1")}); err != nil {
		t.Fatalf("failed to save batch: %v", err)
	}
	backup, err := s.Export("pw")
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	if err := s.MarkUsed("uuid-1"); err != nil {
		t.Fatalf("failed to mark used: %v", err)
	}
	if err := s.Import(backup, "pw"); err != nil {
		t.Fatalf("failed to import: %v", err)
	}

	got, err := s.Get(1, "2026_07_A")
	if err != nil {
		t.Fatalf("failed to read token: %v", err)
	}
	if got == nil || !got.Used {
		t.Error("import must not resurrect a spent token")
	}
}
