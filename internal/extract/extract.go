// Package extract consumes the external receipt-extraction service: given
// a receipt image, it returns structured items and totals, which Hydrate
// turns into a fresh receipt state.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tallysplit/tally/internal/models"
)

// Number is a float64 that also accepts JSON strings ("12.50", "$12.50").
// Extraction backends are not consistent about emitting real numbers.
type Number float64

// UnmarshalJSON implements lenient numeric decoding. Unparseable values
// decode to zero rather than failing the whole payload.
func (n *Number) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*n = 0
		return nil
	}
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£¥")
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// PayloadItem is one extracted line item.
type PayloadItem struct {
	Name  string `json:"name"`
	Price Number `json:"price"`
}

// Payload is the structured result of the extraction service. Missing
// numeric fields default to zero; missing currency symbol defaults to "$".
type Payload struct {
	Items    []PayloadItem `json:"items"`
	Subtotal Number        `json:"subtotal"`
	Tax      Number        `json:"tax"`
	Tip      Number        `json:"tip"`
	Total    Number        `json:"total"`

	MerchantName   string `json:"merchant_name,omitempty"`
	Date           string `json:"date,omitempty"`
	Location       string `json:"location,omitempty"`
	CurrencySymbol string `json:"currency_symbol,omitempty"`
}

// Hydrate turns an extraction payload into a receipt state: every item
// gets a fresh unique id and an empty assignment list.
func Hydrate(p Payload) *models.ReceiptState {
	state := &models.ReceiptState{
		Items:          make([]models.Item, len(p.Items)),
		Subtotal:       float64(p.Subtotal),
		Tax:            float64(p.Tax),
		Tip:            float64(p.Tip),
		Total:          float64(p.Total),
		MerchantName:   p.MerchantName,
		Date:           p.Date,
		Location:       p.Location,
		CurrencySymbol: p.CurrencySymbol,
	}
	if state.CurrencySymbol == "" {
		state.CurrencySymbol = "$"
	}
	for i, item := range p.Items {
		state.Items[i] = models.Item{
			ID:    uuid.NewString(),
			Name:  item.Name,
			Price: float64(item.Price),
		}
	}
	return state
}

// Client calls the extraction service over HTTP.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClient builds a client from EXTRACT_URL and EXTRACT_API_KEY.
func NewClient() *Client {
	return &Client{
		endpoint: os.Getenv("EXTRACT_URL"),
		apiKey:   os.Getenv("EXTRACT_API_KEY"),
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// Extract sends a receipt image and returns the structured payload.
func (c *Client) Extract(ctx context.Context, image []byte, contentType string) (Payload, error) {
	if c.endpoint == "" {
		return Payload{}, errors.New("missing EXTRACT_URL")
	}
	if len(image) == 0 {
		return Payload{}, errors.New("empty image")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(image))
	if err != nil {
		return Payload{}, fmt.Errorf("failed to build extract request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("extract request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Payload{}, fmt.Errorf("extract service returned %d: %s", resp.StatusCode, body)
	}

	var payload Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Payload{}, fmt.Errorf("failed to decode extract response: %w", err)
	}
	return payload, nil
}
