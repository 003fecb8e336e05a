package rates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestConvertSendsRequestAndDecodes(t *testing.T) {
	var got convertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/convert" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"convertedAmount":"24.84","rate":"0.92","timestamp":"2026-08-30T10:00:00Z"}`)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, nil)
	conv, err := client.Convert(context.Background(), decimal.RequireFromString("27.00"), "USD", "EUR")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	if got.FromCurrency != "USD" || got.ToCurrency != "EUR" || !got.Amount.Equal(decimal.RequireFromString("27.00")) {
		t.Fatalf("unexpected request body %+v", got)
	}
	if !conv.Amount.Equal(decimal.RequireFromString("24.84")) || !conv.Rate.Equal(decimal.RequireFromString("0.92")) {
		t.Fatalf("unexpected conversion %+v", conv)
	}
	if conv.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}
}

func TestConvertNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate provider down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, nil)
	if _, err := client.Convert(context.Background(), decimal.NewFromInt(1), "USD", "EUR"); err == nil {
		t.Fatalf("expected error on non-200 response")
	}
}
