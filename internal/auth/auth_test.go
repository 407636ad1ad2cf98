package auth

import (
	"testing"
	"time"

	"unireview/internal/config"
)

func testService(expiration time.Duration) *Service {
	cfg := &config.JWTConfig{
		Secret:     "test-secret",
		Expiration: expiration,
	}
	return NewService(cfg)
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := testService(24 * time.Hour)

	token, err := svc.GenerateToken(42, "reviewer@example.edu")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("Token should not be empty")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "reviewer@example.edu" {
		t.Errorf("Email = %q, want reviewer@example.edu", claims.Email)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := testService(24 * time.Hour)

	if _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Error("Should reject a malformed token")
	}
}

func TestValidateTokenRejectsForeignToken(t *testing.T) {
	svc1 := testService(24 * time.Hour)
	svc2 := testService(24 * time.Hour)

	token, err := svc1.GenerateToken(1, "a@example.edu")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	// Different service instance generated its own ephemeral keypair.
	if _, err := svc2.ValidateToken(token); err == nil {
		t.Error("Should reject a token signed by another key")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := testService(-1 * time.Minute)

	token, err := svc.GenerateToken(1, "a@example.edu")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("Should reject an expired token")
	}
}
