package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/domespa/digital-store-sub001/internal/checkout"
	"github.com/domespa/digital-store-sub001/internal/domain"
	"github.com/domespa/digital-store-sub001/internal/geo"
	"github.com/domespa/digital-store-sub001/internal/orders"
	"github.com/domespa/digital-store-sub001/internal/rates"
	"github.com/domespa/digital-store-sub001/internal/storage"
)

type stubProductRepo struct {
	products map[string]domain.Product
}

func (r *stubProductRepo) List(context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}

func (r *stubProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *stubProductRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	r.products[p.ID] = p
	return &p, nil
}

type stubSubmitter struct {
	result *checkout.Result
	err    error
}

func (s *stubSubmitter) Submit(context.Context, domain.CheckoutForm, domain.CartState) (*checkout.Result, error) {
	return s.result, s.err
}

type noopCapturer struct{}

func (noopCapturer) CaptureOrder(context.Context, string) (*orders.CaptureResponse, error) {
	return &orders.CaptureResponse{Success: true}, nil
}

type identityConverter struct{}

func (identityConverter) Convert(_ context.Context, amount decimal.Decimal, _, _ string) (*rates.Conversion, error) {
	return &rates.Conversion{Amount: amount, Rate: decimal.NewFromInt(1)}, nil
}

type stubGeo struct {
	loc *geo.Location
	err error
}

func (s *stubGeo) Lookup(context.Context, string) (*geo.Location, error) {
	return s.loc, s.err
}

type testEnv struct {
	router *gin.Engine
	repo   *stubProductRepo
	sub    *stubSubmitter
}

func newTestEnv(geoStub geoLookup) *testEnv {
	logger := log.New(io.Discard, "", 0)
	repo := &stubProductRepo{products: map[string]domain.Product{
		"p1": {ID: "p1", SKU: "EBOOK-01", Name: "Launch Playbook", Price: decimal.RequireFromString("27.00"), Currency: "USD"},
	}}
	sub := &stubSubmitter{}
	sessions := NewSessionManager(storage.NewMemory(), identityConverter{}, sub, noopCapturer{}, logger)
	router := buildRouter(logger, nil, Deps{
		ProductRepo:      repo,
		Sessions:         sessions,
		Geo:              geoStub,
		ReturnTokenParam: "token",
		AllowedOrigins:   []string{"http://localhost:3000"},
	})
	return &testEnv{router: router, repo: repo, sub: sub}
}

// do performs a request carrying the session cookie, returning the
// recorder plus the cookie for follow-up requests.
func (e *testEnv) do(t *testing.T, method, path, body, cookie string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.Header.Set("Cookie", sessionCookie+"="+cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	sid := cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			sid = c.Value
		}
	}
	return rec, sid
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var cart cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cart); err != nil {
		t.Fatalf("decode cart response: %v body=%s", err, rec.Body.String())
	}
	return cart
}

func TestGetCartAssignsSessionCookie(t *testing.T) {
	env := newTestEnv(nil)

	rec, sid := env.do(t, http.MethodGet, "/api/cart", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if sid == "" {
		t.Fatalf("expected a session cookie on first contact")
	}

	cart := decodeCart(t, rec)
	if cart.ItemsCount != 0 || len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
}

func TestAddItemPersistsAcrossRequests(t *testing.T) {
	env := newTestEnv(nil)

	rec, sid := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	cart := decodeCart(t, rec)
	if cart.ItemsCount != 1 || cart.Items[0].ProductID != "p1" {
		t.Fatalf("unexpected cart %+v", cart)
	}
	if !strings.Contains(cart.FormattedTotal, "27.00") {
		t.Fatalf("expected formatted total, got %q", cart.FormattedTotal)
	}

	// Same cookie sees the same cart.
	rec, _ = env.do(t, http.MethodGet, "/api/cart", "", sid)
	if decodeCart(t, rec).ItemsCount != 1 {
		t.Fatalf("cart must survive across requests on the same session")
	}

	// A fresh session starts empty.
	rec, other := env.do(t, http.MethodGet, "/api/cart", "", "")
	if other == sid {
		t.Fatalf("expected a distinct session id")
	}
	if decodeCart(t, rec).ItemsCount != 0 {
		t.Fatalf("new session must not see another shopper's cart")
	}
}

func TestAddUnknownProductIs404(t *testing.T) {
	env := newTestEnv(nil)

	rec, _ := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"nope"}`, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetCartAppliesDetectedCurrencyToEmptyCart(t *testing.T) {
	env := newTestEnv(&stubGeo{loc: &geo.Location{Country: "DE", Currency: "EUR"}})

	rec, _ := env.do(t, http.MethodGet, "/api/cart", "", "")
	cart := decodeCart(t, rec)
	if cart.DisplayCurrency != "EUR" {
		t.Fatalf("expected detected EUR on an empty cart, got %q", cart.DisplayCurrency)
	}
}

func TestGeoFailureKeepsDefaultCurrency(t *testing.T) {
	env := newTestEnv(&stubGeo{err: errors.New("lookup down")})

	rec, _ := env.do(t, http.MethodGet, "/api/cart", "", "")
	if cur := decodeCart(t, rec).DisplayCurrency; cur != "USD" {
		t.Fatalf("expected USD fallback, got %q", cur)
	}
}

func TestUpdateQuantityAndRemove(t *testing.T) {
	env := newTestEnv(nil)

	rec, sid := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`, "")
	lineID := decodeCart(t, rec).Items[0].ID

	rec, _ = env.do(t, http.MethodPatch, "/api/cart/items/"+lineID, `{"quantity":3}`, sid)
	if cart := decodeCart(t, rec); cart.ItemsCount != 3 {
		t.Fatalf("expected quantity 3, got %+v", cart)
	}

	rec, _ = env.do(t, http.MethodDelete, "/api/cart/items/"+lineID, "", sid)
	if decodeCart(t, rec).ItemsCount != 0 {
		t.Fatalf("expected empty cart after removal")
	}
}

func TestBeginCheckoutOnEmptyCartConflicts(t *testing.T) {
	env := newTestEnv(nil)

	_, sid := env.do(t, http.MethodGet, "/api/cart", "", "")
	rec, _ := env.do(t, http.MethodPost, "/api/checkout/begin", "", sid)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on empty cart, got %d", rec.Code)
	}
}

func TestEmbeddedCheckoutOverHTTP(t *testing.T) {
	env := newTestEnv(nil)
	env.sub.result = &checkout.Result{
		Kind:         checkout.ResultEmbeddedPayment,
		ClientSecret: "secret_1",
		Order:        domain.Order{ID: "o1", Status: "pending"},
	}

	_, sid := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`, "")

	rec, _ := env.do(t, http.MethodPost, "/api/checkout/begin", "", sid)
	if rec.Code != http.StatusOK {
		t.Fatalf("begin: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	body := `{"email":"a@b.co","firstName":"Ada","lastName":"Lovelace","paymentProvider":"card"}`
	rec, _ = env.do(t, http.MethodPost, "/api/checkout/submit", body, sid)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var submitResp submitCheckoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &submitResp); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if submitResp.Type != string(checkout.ResultEmbeddedPayment) || submitResp.ClientSecret != "secret_1" {
		t.Fatalf("unexpected submit response %+v", submitResp)
	}

	rec, _ = env.do(t, http.MethodPost, "/api/checkout/payment", `{"success":true}`, sid)
	if rec.Code != http.StatusOK {
		t.Fatalf("payment: expected 200, got %d", rec.Code)
	}
	var state checkoutStateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Step != "success" {
		t.Fatalf("expected success step, got %q", state.Step)
	}

	rec, _ = env.do(t, http.MethodGet, "/api/cart", "", sid)
	if decodeCart(t, rec).ItemsCount != 0 {
		t.Fatalf("cart must be cleared after payment confirmation")
	}
}

func TestSubmitUnknownProviderIs400(t *testing.T) {
	env := newTestEnv(nil)

	_, sid := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`, "")
	env.do(t, http.MethodPost, "/api/checkout/begin", "", sid)

	body := `{"email":"a@b.co","firstName":"A","lastName":"B","paymentProvider":"crypto"}`
	rec, _ := env.do(t, http.MethodPost, "/api/checkout/submit", body, sid)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckoutReturnRedirectsToCleanURL(t *testing.T) {
	env := newTestEnv(nil)

	rec, _ := env.do(t, http.MethodGet, "/checkout/return?token=tok_1", "", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(nil)

	rec, _ := env.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
