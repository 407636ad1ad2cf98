package client

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"unireview/internal/blindsign"
	"unireview/internal/envelope"
	"unireview/internal/models"
	"unireview/internal/tokenstore"
)

// stubServer fakes the anonymous API with real crypto: a live signing
// authority and envelope keypair, an in-memory spent set, and the
// plaintexts it managed to decrypt.
type stubServer struct {
	t          *testing.T
	authority  *blindsign.Authority
	encKeys    *envelope.EncryptionKeyPair
	cycleID    string
	hasClaimed bool
	spent      map[string]bool
	received   []models.ReviewPayload
}

func newStubServer(t *testing.T) *stubServer {
	t.Helper()
	signing, err := blindsign.GenerateSigningKeyPair(1024)
	if err != nil {
		t.Fatalf("failed to generate signing keys: %v", err)
	}
	encKeys, err := envelope.GenerateEncryptionKeyPair(2048)
	if err != nil {
		t.Fatalf("failed to generate encryption keys: %v", err)
	}
	return &stubServer{
		t:         t,
		authority: blindsign.NewAuthority(signing),
		encKeys:   encKeys,
		cycleID:   "2026_07_A",
		spent:     map[string]bool{},
	}
}

func (s *stubServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /anonymous/status", func(w http.ResponseWriter, r *http.Request) {
		n, e := s.authority.PublicComponents()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"cycleId":    s.cycleID,
			"hasClaimed": s.hasClaimed,
			"signingKey": map[string]interface{}{"n": n.Text(16), "e": e},
		})
	})
	mux.HandleFunc("POST /anonymous/claim", func(w http.ResponseWriter, r *http.Request) {
		if s.hasClaimed {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "Already claimed this cycle"})
			return
		}
		var req struct {
			Tokens []struct {
				ProfID  int64  `json:"profId"`
				Blinded string `json:"blinded"`
			} `json:"tokens"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		s.hasClaimed = true
		out := make([]map[string]interface{}, 0, len(req.Tokens))
		for _, tok := range req.Tokens {
			blinded, _ := new(big.Int).SetString(tok.Blinded, 16)
			sig, err := s.authority.SignBlinded(blinded)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "Invalid blinded message"})
				return
			}
			out = append(out, map[string]interface{}{"profId": tok.ProfID, "signature": sig.Text(16)})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"cycleId": s.cycleID, "tokens": out})
	})
	mux.HandleFunc("GET /anonymous/encryption-key", func(w http.ResponseWriter, r *http.Request) {
		pem, err := envelope.MarshalPublicKeyPEM(s.encKeys.Public())
		if err != nil {
			s.t.Errorf("failed to marshal key: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"publicKey": string(pem)})
	})
	mux.HandleFunc("POST /anonymous/submit", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			s.t.Error("submission must not carry credentials")
		}
		var req struct {
			TokenUUID     string `json:"tokenUuid"`
			ProfID        int64  `json:"profId"`
			CycleID       string `json:"cycleId"`
			Signature     string `json:"signature"`
			EncryptedBlob string `json:"encryptedBlob"`
			EncryptedKey  string `json:"encryptedKey"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		sig, _ := new(big.Int).SetString(req.Signature, 16)
		message := blindsign.TokenMessage(req.TokenUUID, req.ProfID, req.CycleID)
		if !s.authority.Verify(message, sig) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid signature"})
			return
		}
		if s.spent[req.TokenUUID] {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "Token already used"})
			return
		}
		s.spent[req.TokenUUID] = true

		blob, _ := base64.StdEncoding.DecodeString(req.EncryptedBlob)
		wrappedKey, _ := base64.StdEncoding.DecodeString(req.EncryptedKey)
		plaintext, err := s.encKeys.Open(blob, wrappedKey)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "Undecryptable payload"})
			return
		}
		var payload models.ReviewPayload
		json.Unmarshal(plaintext, &payload)
		s.received = append(s.received, payload)

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"message": "Review accepted for publication"})
	})
	return mux
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	store := tokenstore.New(filepath.Join(t.TempDir(), "wallet.json"))
	return New(srv.URL, "test-jwt", store)
}

func testPayload() *models.ReviewPayload {
	return &models.ReviewPayload{
		RatingOverall:    5,
		RatingClarity:    4,
		RatingDifficulty: 3,
		WouldTakeAgain:   true,
		Comment:          "engaging lectures",
		CourseCode:       "CS101",
		Semester:         "WS25",
		ReviewType:       "lecture",
	}
}

func TestClaimTokensIssuesVerifiedTokens(t *testing.T) {
	stub := newStubServer(t)
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(t, srv)
	tokens, err := c.ClaimTokens([]int64{1, 2, 3})
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}

	// The tokens must be independently verifiable and persisted.
	n, e := stub.authority.PublicComponents()
	for _, tok := range tokens {
		sig, _ := new(big.Int).SetString(tok.Signature, 16)
		message := blindsign.TokenMessage(tok.TokenUUID, tok.ProfID, tok.CycleID)
		if !blindsign.VerifyWithComponents(message, sig, n, e) {
			t.Errorf("token for professor %d carries an invalid signature", tok.ProfID)
		}
	}
	held, err := c.store.Get(2, stub.cycleID)
	if err != nil || held == nil {
		t.Errorf("claimed token not persisted: %v", err)
	}
}

func TestClaimTokensDedupesProfessors(t *testing.T) {
	stub := newStubServer(t)
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(t, srv)
	tokens, err := c.ClaimTokens([]int64{3, 3, 7, 3})
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens for 2 distinct professors, got %d", len(tokens))
	}
	unused, err := c.store.Unused(stub.cycleID)
	if err != nil {
		t.Fatalf("failed to list unused tokens: %v", err)
	}
	if len(unused) != 2 {
		t.Errorf("expected 2 persisted tokens, got %d", len(unused))
	}
}

func TestClaimTokensSecondClaimRejected(t *testing.T) {
	stub := newStubServer(t)
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(t, srv)
	if _, err := c.ClaimTokens([]int64{1}); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if _, err := c.ClaimTokens([]int64{2}); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestSubmitReviewEndToEnd(t *testing.T) {
	stub := newStubServer(t)
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(t, srv)
	if _, err := c.ClaimTokens([]int64{7}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := c.SubmitReview(7, testPayload()); err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	if len(stub.received) != 1 {
		t.Fatalf("expected 1 decrypted review, got %d", len(stub.received))
	}
	if stub.received[0].Comment != "engaging lectures" {
		t.Errorf("payload did not survive the envelope: %+v", stub.received[0])
	}

	// The token is spent locally: a second submission must not even
	// reach the server.
	if err := c.SubmitReview(7, testPayload()); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken on reuse, got %v", err)
	}
}

func TestSubmitReviewWithoutToken(t *testing.T) {
	stub := newStubServer(t)
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(t, srv)
	if err := c.SubmitReview(1, testPayload()); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}
