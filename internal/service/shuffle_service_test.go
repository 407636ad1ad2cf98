package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"testing"
	"time"

	"unireview/internal/config"
	"unireview/internal/envelope"
	"unireview/internal/models"
)

func testShuffleConfig() config.ShuffleConfig {
	return config.ShuffleConfig{
		MinBatchSize: 5,
		MinInterval:  time.Hour,
		MaxWait:      24 * time.Hour,
	}
}

func TestDueSmallBatchWaits(t *testing.T) {
	s := &ShuffleService{cfg: testShuffleConfig()}

	if s.due(0, 48*time.Hour) {
		t.Error("empty inbox should never be due")
	}
	if s.due(3, 2*time.Hour) {
		t.Error("batch below minimum should wait within the max-wait window")
	}
	if !s.due(3, 24*time.Hour) {
		t.Error("any non-empty batch should run once max wait elapses")
	}
}

func TestDueFullBatchRespectsMinInterval(t *testing.T) {
	s := &ShuffleService{cfg: testShuffleConfig()}

	if s.due(10, 30*time.Minute) {
		t.Error("full batch should still wait out the minimum interval")
	}
	if !s.due(10, 90*time.Minute) {
		t.Error("full batch past the minimum interval should be due")
	}
}

func sealEntry(t *testing.T, keys *envelope.EncryptionKeyPair, profID int64, payload models.ReviewPayload) models.PendingReview {
	t.Helper()
	plaintext, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	blob, wrappedKey, err := envelope.Seal(plaintext, keys.Public())
	if err != nil {
		t.Fatalf("failed to seal payload: %v", err)
	}
	return models.PendingReview{
		ID:            fmt.Sprintf("entry-%d", profID),
		TokenUUID:     fmt.Sprintf("token-%d", profID),
		ProfID:        profID,
		CycleID:       "2026_07_A",
		EncryptedBlob: blob,
		EncryptedKey:  wrappedKey,
	}
}

func validPayload(comment string) models.ReviewPayload {
	return models.ReviewPayload{
		RatingOverall:    4,
		RatingClarity:    3,
		RatingDifficulty: 2,
		WouldTakeAgain:   true,
		Comment:          comment,
		CourseCode:       "CS101",
		Semester:         "WS25",
		ReviewType:       "lecture",
	}
}

func TestDecryptBatchDropsCorruptEntries(t *testing.T) {
	keys, err := envelope.GenerateEncryptionKeyPair(2048)
	if err != nil {
		t.Fatalf("failed to generate keypair: %v", err)
	}

	good := sealEntry(t, keys, 1, validPayload("clear lectures"))

	corrupt := sealEntry(t, keys, 2, validPayload("tampered"))
	corrupt.EncryptedBlob[len(corrupt.EncryptedBlob)-1] ^= 0xff

	badPayload := validPayload("out of range")
	badPayload.RatingOverall = 9
	invalid := sealEntry(t, keys, 3, badPayload)

	items, dropped := decryptBatch([]models.PendingReview{good, corrupt, invalid}, keys)

	if dropped != 2 {
		t.Errorf("expected 2 dropped entries, got %d", dropped)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 surviving item, got %d", len(items))
	}
	if items[0].ProfID != 1 || items[0].Payload.Comment != "clear lectures" {
		t.Errorf("surviving item does not match the intact entry: %+v", items[0])
	}
}

func TestShuffleItemsIsAPermutation(t *testing.T) {
	items := make([]publishItem, 50)
	for i := range items {
		items[i] = publishItem{ProfID: int64(i), CycleID: "2026_07_A"}
	}

	if err := shuffleItems(items); err != nil {
		t.Fatalf("shuffle failed: %v", err)
	}

	ids := make([]int, len(items))
	for i, item := range items {
		ids[i] = int(item.ProfID)
	}
	sort.Ints(ids)
	for i, id := range ids {
		if id != i {
			t.Fatalf("shuffle lost or duplicated item %d", i)
		}
	}
}

func TestShuffleItemsBreaksArrivalOrder(t *testing.T) {
	const n = 100
	const runs = 20

	// With a uniform permutation the chance that any single run leaves
	// even 90% of items in place is astronomically small; requiring it
	// across all runs makes a flake effectively impossible.
	for run := 0; run < runs; run++ {
		items := make([]publishItem, n)
		for i := range items {
			items[i] = publishItem{ProfID: int64(i)}
		}
		if err := shuffleItems(items); err != nil {
			t.Fatalf("shuffle failed: %v", err)
		}

		moved := 0
		for i, item := range items {
			if int64(i) != item.ProfID {
				moved++
			}
		}
		if moved > n/10 {
			return
		}
	}
	t.Error("shuffle left arrival order nearly intact on every run")
}
