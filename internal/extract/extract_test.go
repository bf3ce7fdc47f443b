package extract

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(url, apiKey string) *Client {
	return &Client{
		endpoint: url,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

func TestExtract(t *testing.T) {
	var gotBody []byte
	var gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [{"name": "Pizza", "price": "$20.00"}],
			"subtotal": 20, "tax": 2, "total": 22,
			"merchant_name": "Luigi's"
		}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "secret-key")
	payload, err := client.Extract(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(payload.Items) != 1 || float64(payload.Items[0].Price) != 20 {
		t.Errorf("items = %+v", payload.Items)
	}
	if float64(payload.Total) != 22 {
		t.Errorf("total = %v, want 22", float64(payload.Total))
	}
	if payload.MerchantName != "Luigi's" {
		t.Errorf("merchant = %q", payload.MerchantName)
	}

	if string(gotBody) != "jpeg-bytes" {
		t.Errorf("sent body = %q", gotBody)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotType != "image/jpeg" {
		t.Errorf("content type = %q", gotType)
	}
}

func TestExtractServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "")
	if _, err := client.Extract(context.Background(), []byte("x"), "image/jpeg"); err == nil {
		t.Error("expected error on 503")
	}
}

func TestExtractRequiresConfig(t *testing.T) {
	client := newTestClient("", "")
	if _, err := client.Extract(context.Background(), []byte("x"), "image/jpeg"); err == nil {
		t.Error("expected error with no endpoint configured")
	}
}

func TestExtractRequiresImage(t *testing.T) {
	client := newTestClient("http://localhost:1", "")
	if _, err := client.Extract(context.Background(), nil, "image/jpeg"); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestHydrate(t *testing.T) {
	payload := Payload{
		Items: []PayloadItem{
			{Name: "Pizza", Price: 20},
			{Name: "Beer", Price: 8},
		},
		Subtotal:     28,
		Tax:          2.5,
		Total:        30.5,
		MerchantName: "Luigi's",
	}

	state := Hydrate(payload)

	if len(state.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(state.Items))
	}
	seen := map[string]bool{}
	for i, item := range state.Items {
		if item.ID == "" {
			t.Errorf("item %d: missing id", i)
		}
		if seen[item.ID] {
			t.Errorf("item %d: duplicate id %s", i, item.ID)
		}
		seen[item.ID] = true
		if len(item.AssignedTo) != 0 {
			t.Errorf("item %d: expected empty assignment", i)
		}
	}
	if state.CurrencySymbol != "$" {
		t.Errorf("currency = %q, want default $", state.CurrencySymbol)
	}
	if state.Tip != 0 {
		t.Errorf("tip = %v, want default 0", state.Tip)
	}
	if state.MerchantName != "Luigi's" {
		t.Errorf("merchant = %q", state.MerchantName)
	}
}

func TestHydrateKeepsCurrencySymbol(t *testing.T) {
	state := Hydrate(Payload{CurrencySymbol: "€"})
	if state.CurrencySymbol != "€" {
		t.Errorf("currency = %q, want €", state.CurrencySymbol)
	}
}

func TestNumberLenientDecoding(t *testing.T) {
	tests := []struct {
		name string
		json string
		want float64
	}{
		{"plain number", `12.5`, 12.5},
		{"numeric string", `"12.50"`, 12.5},
		{"currency prefix", `"$1,234.56"`, 1234.56},
		{"negative", `-3.25`, -3.25},
		{"garbage defaults to zero", `"twelve"`, 0},
		{"null defaults to zero", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			if err := json.Unmarshal([]byte(tt.json), &n); err != nil {
				t.Fatalf("unmarshal error: %v", err)
			}
			if float64(n) != tt.want {
				t.Errorf("got %v, want %v", float64(n), tt.want)
			}
		})
	}
}

func TestPayloadDecoding(t *testing.T) {
	raw := `{
		"items": [{"name": "Pizza", "price": "$20.00"}],
		"subtotal": "20",
		"tax": 2,
		"total": 22,
		"merchant_name": "Luigi's"
	}`

	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(p.Items) != 1 || float64(p.Items[0].Price) != 20 {
		t.Errorf("items = %+v", p.Items)
	}
	if float64(p.Subtotal) != 20 || float64(p.Total) != 22 {
		t.Errorf("subtotal/total = %v/%v", p.Subtotal, p.Total)
	}
}
