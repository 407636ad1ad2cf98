package service

import "testing"

func TestIdentityHashIsDeterministic(t *testing.T) {
	s := &ClaimService{identitySecret: []byte("test-master-secret-at-least-32-chars")}

	a := s.IdentityHash("2026_07_A", "student@uni.example")
	b := s.IdentityHash("2026_07_A", "student@uni.example")
	if a != b {
		t.Error("same cycle and email must hash identically")
	}
	if len(a) != 64 {
		t.Errorf("expected hex-encoded sha256 output, got %d chars", len(a))
	}
}

func TestIdentityHashNormalizesEmail(t *testing.T) {
	s := &ClaimService{identitySecret: []byte("test-master-secret-at-least-32-chars")}

	a := s.IdentityHash("2026_07_A", "Student@Uni.example")
	b := s.IdentityHash("2026_07_A", "  student@uni.example ")
	if a != b {
		t.Error("case and whitespace variants of an email must hash identically")
	}
}

func TestIdentityHashSeparatesCycles(t *testing.T) {
	s := &ClaimService{identitySecret: []byte("test-master-secret-at-least-32-chars")}

	a := s.IdentityHash("2026_07_A", "student@uni.example")
	b := s.IdentityHash("2026_09_A", "student@uni.example")
	if a == b {
		t.Error("ledger rows from different cycles must not be joinable on the hash")
	}
}

func TestIdentityHashSeparatesSecrets(t *testing.T) {
	a := (&ClaimService{identitySecret: []byte("first-master-secret-version-32ch")}).IdentityHash("2026_07_A", "student@uni.example")
	b := (&ClaimService{identitySecret: []byte("other-master-secret-version-32ch")}).IdentityHash("2026_07_A", "student@uni.example")
	if a == b {
		t.Error("rotating the master secret must change the derived hashes")
	}
}
