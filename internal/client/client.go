package client

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/google/uuid"

	"unireview/internal/blindsign"
	"unireview/internal/envelope"
	"unireview/internal/models"
	"unireview/internal/tokenstore"
)

// Device-visible failures of the submission flow.
var (
	ErrAlreadyClaimed  = errors.New("already claimed this cycle")
	ErrNoToken         = errors.New("no unspent token for this professor and cycle")
	ErrBadSignature    = errors.New("server signature failed verification")
	ErrServerRejection = errors.New("server rejected the request")
)

// Client is the reviewer-device engine. It keeps every identifying
// secret local: blinding factors never leave the device, and the
// submission call carries no credentials.
type Client struct {
	baseURL   string
	authToken string
	store     *tokenstore.Store
	http      *http.Client
}

// New creates a reviewer client against the given API base URL, e.g.
// "https://reviews.example/api/v1". The auth token is only attached to
// the status and claim calls.
func New(baseURL, authToken string, store *tokenstore.Store) *Client {
	return &Client{
		baseURL:   baseURL,
		authToken: authToken,
		store:     store,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Status mirrors the server's claim-status response.
type Status struct {
	CycleID    string `json:"cycleId"`
	HasClaimed bool   `json:"hasClaimed"`
	SigningKey struct {
		N string `json:"n"`
		E int    `json:"e"`
	} `json:"signingKey"`
}

// Status fetches the caller's standing for the current cycle.
func (c *Client) Status() (*Status, error) {
	var status Status
	if err := c.doJSON(http.MethodGet, "/anonymous/status", nil, &status, true); err != nil {
		return nil, err
	}
	return &status, nil
}

// ClaimTokens runs the full issuance flow for a set of professors:
// blind one message per professor, spend the cycle's single claim on
// the batch, unblind and verify each returned signature, and persist
// the tokens. Verification failure aborts before anything is saved so
// a misbehaving signer cannot plant unusable tokens.
func (c *Client) ClaimTokens(profIDs []int64) ([]models.ReviewToken, error) {
	if len(profIDs) == 0 {
		return nil, errors.New("no professors selected")
	}
	seen := make(map[int64]bool, len(profIDs))
	deduped := profIDs[:0:0]
	for _, id := range profIDs {
		if !seen[id] {
			seen[id] = true
			deduped = append(deduped, id)
		}
	}
	profIDs = deduped

	status, err := c.Status()
	if err != nil {
		return nil, err
	}
	if status.HasClaimed {
		return nil, ErrAlreadyClaimed
	}
	n, valid := new(big.Int).SetString(status.SigningKey.N, 16)
	if !valid {
		return nil, errors.New("malformed signing key modulus")
	}
	e := status.SigningKey.E

	type draft struct {
		profID    int64
		tokenUUID string
		r         *big.Int
	}
	drafts := make([]draft, 0, len(profIDs))
	reqTokens := make([]map[string]interface{}, 0, len(profIDs))
	for _, profID := range profIDs {
		tokenUUID := uuid.NewString()
		message := blindsign.TokenMessage(tokenUUID, profID, status.CycleID)
		blinded, r, err := blindsign.Blind(message, n, e)
		if err != nil {
			return nil, fmt.Errorf("failed to blind message: %w", err)
		}
		drafts = append(drafts, draft{profID: profID, tokenUUID: tokenUUID, r: r})
		reqTokens = append(reqTokens, map[string]interface{}{
			"profId":  profID,
			"blinded": blinded.Text(16),
		})
	}

	var resp struct {
		CycleID string `json:"cycleId"`
		Tokens  []struct {
			ProfID    int64  `json:"profId"`
			Signature string `json:"signature"`
		} `json:"tokens"`
	}
	body := map[string]interface{}{"cycleId": status.CycleID, "tokens": reqTokens}
	if err := c.doJSON(http.MethodPost, "/anonymous/claim", body, &resp, true); err != nil {
		return nil, err
	}
	if len(resp.Tokens) != len(drafts) {
		return nil, fmt.Errorf("%w: expected %d signatures, got %d", ErrServerRejection, len(drafts), len(resp.Tokens))
	}

	now := time.Now().UTC()
	tokens := make([]models.ReviewToken, 0, len(drafts))
	for i, d := range drafts {
		if resp.Tokens[i].ProfID != d.profID {
			return nil, fmt.Errorf("%w: signature order mismatch", ErrServerRejection)
		}
		blindedSig, valid := new(big.Int).SetString(resp.Tokens[i].Signature, 16)
		if !valid {
			return nil, ErrBadSignature
		}
		sig, err := blindsign.Unblind(blindedSig, d.r, n)
		if err != nil {
			return nil, ErrBadSignature
		}
		message := blindsign.TokenMessage(d.tokenUUID, d.profID, status.CycleID)
		if !blindsign.VerifyWithComponents(message, sig, n, e) {
			return nil, ErrBadSignature
		}
		tokens = append(tokens, models.ReviewToken{
			TokenUUID:      d.tokenUUID,
			ProfID:         d.profID,
			CycleID:        status.CycleID,
			Signature:      sig.Text(16),
			BlindingFactor: d.r.Text(16),
			CreatedAt:      now,
		})
	}

	if err := c.store.SaveBatch(tokens); err != nil {
		return nil, fmt.Errorf("failed to persist tokens: %w", err)
	}
	return tokens, nil
}

// SubmitReview seals a review to the server's envelope key and spends
// the device's token for the professor. The HTTP call is anonymous;
// only the token proves the right to submit.
func (c *Client) SubmitReview(profID int64, payload *models.ReviewPayload) error {
	if err := payload.Validate(); err != nil {
		return err
	}

	status, err := c.Status()
	if err != nil {
		return err
	}
	token, err := c.store.Get(profID, status.CycleID)
	if err != nil {
		return err
	}
	if token == nil || token.Used {
		return ErrNoToken
	}

	var keyResp struct {
		PublicKey string `json:"publicKey"`
	}
	if err := c.doJSON(http.MethodGet, "/anonymous/encryption-key", nil, &keyResp, false); err != nil {
		return err
	}
	pub, err := envelope.ParsePublicKeyPEM([]byte(keyResp.PublicKey))
	if err != nil {
		return fmt.Errorf("failed to parse envelope key: %w", err)
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode review: %w", err)
	}
	blob, wrappedKey, err := envelope.Seal(plaintext, pub)
	if err != nil {
		return fmt.Errorf("failed to seal review: %w", err)
	}

	body := map[string]interface{}{
		"tokenUuid":     token.TokenUUID,
		"profId":        profID,
		"cycleId":       status.CycleID,
		"signature":     token.Signature,
		"encryptedBlob": base64.StdEncoding.EncodeToString(blob),
		"encryptedKey":  base64.StdEncoding.EncodeToString(wrappedKey),
	}
	if err := c.doJSON(http.MethodPost, "/anonymous/submit", body, nil, false); err != nil {
		return err
	}

	return c.store.MarkUsed(token.TokenUUID)
}

// doJSON performs one API round trip. withAuth controls whether the
// bearer token is attached; the submission path must stay without it.
func (c *Client) doJSON(method, path string, body, out interface{}, withAuth bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withAuth {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%w: %s", ErrServerRejection, apiErr.Error)
		}
		return fmt.Errorf("%w: status %d", ErrServerRejection, resp.StatusCode)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
