// Package translate consumes the external natural-language-to-commands
// service: given a user utterance and the current receipt state, it
// returns a batch of structured commands plus an explanation for display.
// Commands come back as raw JSON; the engine's strict decoder is the
// authority on their shape.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tallysplit/tally/internal/models"
)

// Batch is the translation service's response: zero or more commands, an
// explanation string passed through to the caller uninterpreted, and a
// flag requesting a full session reset.
type Batch struct {
	Commands    []json.RawMessage `json:"commands"`
	Explanation string            `json:"explanation"`
	Reset       bool              `json:"reset"`
}

// Translator converts an utterance into a command batch. The service layer
// depends on this interface so tests can stub the external call.
type Translator interface {
	Translate(ctx context.Context, utterance string, state *models.ReceiptState) (Batch, error)
}

// Client calls the translation service over HTTP.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ Translator = (*Client)(nil)

// NewClient builds a client from TRANSLATE_URL and TRANSLATE_API_KEY.
func NewClient() *Client {
	return &Client{
		endpoint: os.Getenv("TRANSLATE_URL"),
		apiKey:   os.Getenv("TRANSLATE_API_KEY"),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type translateRequest struct {
	Utterance string               `json:"utterance"`
	State     *models.ReceiptState `json:"state"`
}

// Translate posts the utterance and current state, returning the command
// batch. Any failure surfaces as an error for the caller to turn into an
// "I couldn't process that" message; nothing here touches receipt state.
func (c *Client) Translate(ctx context.Context, utterance string, state *models.ReceiptState) (Batch, error) {
	if c.endpoint == "" {
		return Batch{}, errors.New("missing TRANSLATE_URL")
	}
	if utterance == "" {
		return Batch{}, errors.New("empty utterance")
	}

	body, err := json.Marshal(translateRequest{Utterance: utterance, State: state})
	if err != nil {
		return Batch{}, fmt.Errorf("failed to encode translate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Batch{}, fmt.Errorf("failed to build translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Batch{}, fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Batch{}, fmt.Errorf("translate service returned %d: %s", resp.StatusCode, msg)
	}

	var batch Batch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return Batch{}, fmt.Errorf("failed to decode translate response: %w", err)
	}
	return batch, nil
}
