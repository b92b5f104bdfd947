package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sweetshop/inventory-api/internal/api/middleware"
	"github.com/sweetshop/inventory-api/internal/core/domain"
	"github.com/sweetshop/inventory-api/internal/core/ports"
)

type stubInventoryService struct {
	sweet  *domain.Sweet
	sweets []domain.Sweet
	err    error

	gotFields map[string]any
	gotInput  ports.SearchInput
	gotID     string
	gotKey    string
	gotClaim  domain.Claim
}

func (s *stubInventoryService) Add(_ context.Context, claim domain.Claim, fields map[string]any) (*domain.Sweet, error) {
	s.gotClaim, s.gotFields = claim, fields
	return s.sweet, s.err
}

func (s *stubInventoryService) List(_ context.Context, claim domain.Claim) ([]domain.Sweet, error) {
	s.gotClaim = claim
	return s.sweets, s.err
}

func (s *stubInventoryService) Search(_ context.Context, claim domain.Claim, input ports.SearchInput) ([]domain.Sweet, error) {
	s.gotClaim, s.gotInput = claim, input
	return s.sweets, s.err
}

func (s *stubInventoryService) Update(_ context.Context, claim domain.Claim, id string, fields map[string]any) (*domain.Sweet, error) {
	s.gotClaim, s.gotID, s.gotFields = claim, id, fields
	return s.sweet, s.err
}

func (s *stubInventoryService) Delete(_ context.Context, claim domain.Claim, id string) error {
	s.gotClaim, s.gotID = claim, id
	return s.err
}

func (s *stubInventoryService) Purchase(_ context.Context, claim domain.Claim, id, idempotencyKey string) (*domain.Sweet, error) {
	s.gotClaim, s.gotID, s.gotKey = claim, id, idempotencyKey
	return s.sweet, s.err
}

func (s *stubInventoryService) Restock(_ context.Context, claim domain.Claim, id string) (*domain.Sweet, error) {
	s.gotClaim, s.gotID = claim, id
	return s.sweet, s.err
}

var testClaim = domain.Claim{Subject: "alice"}

func newSweetCtx(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ClaimKey, testClaim)
	return c, rec
}

func sampleSweet() *domain.Sweet {
	return &domain.Sweet{ID: "s1", Name: "Ladoo", Category: "Indian", Price: 10, Quantity: 5}
}

func TestSweetHandler_Create_Success(t *testing.T) {
	svc := &stubInventoryService{sweet: sampleSweet()}
	h := NewSweetHandler(svc)

	c, rec := newSweetCtx(t, http.MethodPost, "/api/sweets",
		`{"name":"Ladoo","category":"Indian","price":10,"quantity":5}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if svc.gotClaim != testClaim {
		t.Errorf("claim not forwarded: %+v", svc.gotClaim)
	}
	if svc.gotFields["name"] != "Ladoo" {
		t.Errorf("fields not forwarded: %+v", svc.gotFields)
	}

	var resp sweetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.ID != "s1" || resp.Quantity != 5 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSweetHandler_Create_ServiceErrorPassesThrough(t *testing.T) {
	wantErr := domain.NewValidationError("price", "must be a non-negative number")
	h := NewSweetHandler(&stubInventoryService{err: wantErr})

	c, _ := newSweetCtx(t, http.MethodPost, "/api/sweets", `{"name":"Ladoo"}`)
	err := h.Create(c)

	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "price" {
		t.Fatalf("expected validation error to pass through, got %v", err)
	}
}

func TestSweetHandler_Create_MissingClaim(t *testing.T) {
	h := NewSweetHandler(&stubInventoryService{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/sweets", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.Create(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestSweetHandler_List(t *testing.T) {
	svc := &stubInventoryService{sweets: []domain.Sweet{*sampleSweet()}}
	h := NewSweetHandler(svc)

	c, rec := newSweetCtx(t, http.MethodGet, "/api/sweets", "")
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp []sweetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(resp) != 1 || resp[0].Name != "Ladoo" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSweetHandler_List_EmptyIsJSONArray(t *testing.T) {
	h := NewSweetHandler(&stubInventoryService{sweets: []domain.Sweet{}})

	c, rec := newSweetCtx(t, http.MethodGet, "/api/sweets", "")
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestSweetHandler_Search_ForwardsQueryParams(t *testing.T) {
	svc := &stubInventoryService{sweets: []domain.Sweet{}}
	h := NewSweetHandler(svc)

	c, _ := newSweetCtx(t, http.MethodGet, "/api/sweets/search?name=lad&category=Indian&price_min=5&price_max=20", "")
	if err := h.Search(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	want := ports.SearchInput{Name: "lad", Category: "Indian", PriceMin: "5", PriceMax: "20"}
	if svc.gotInput != want {
		t.Errorf("expected %+v, got %+v", want, svc.gotInput)
	}
}

func TestSweetHandler_Search_AcceptsSearchAlias(t *testing.T) {
	svc := &stubInventoryService{sweets: []domain.Sweet{}}
	h := NewSweetHandler(svc)

	c, _ := newSweetCtx(t, http.MethodGet, "/api/sweets/search?search=lad", "")
	if err := h.Search(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if svc.gotInput.Name != "lad" {
		t.Errorf("alias not honoured: %+v", svc.gotInput)
	}
}

func TestSweetHandler_Search_SearchAliasWinsOverName(t *testing.T) {
	svc := &stubInventoryService{sweets: []domain.Sweet{}}
	h := NewSweetHandler(svc)

	c, _ := newSweetCtx(t, http.MethodGet, "/api/sweets/search?name=barfi&search=lad", "")
	if err := h.Search(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if svc.gotInput.Name != "lad" {
		t.Errorf("search must take precedence over name: %+v", svc.gotInput)
	}
}

func TestSweetHandler_Update_ForwardsIDAndFields(t *testing.T) {
	svc := &stubInventoryService{sweet: sampleSweet()}
	h := NewSweetHandler(svc)

	c, rec := newSweetCtx(t, http.MethodPut, "/api/sweets/s1", `{"price":22}`)
	c.SetParamNames("id")
	c.SetParamValues("s1")

	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotID != "s1" {
		t.Errorf("id not forwarded: %q", svc.gotID)
	}
	if svc.gotFields["price"] != 22.0 {
		t.Errorf("fields not forwarded: %+v", svc.gotFields)
	}
}

func TestSweetHandler_Delete_Success(t *testing.T) {
	svc := &stubInventoryService{}
	h := NewSweetHandler(svc)

	c, rec := newSweetCtx(t, http.MethodDelete, "/api/sweets/s1", "")
	c.SetParamNames("id")
	c.SetParamValues("s1")

	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSweetHandler_Delete_ForbiddenPassesThrough(t *testing.T) {
	h := NewSweetHandler(&stubInventoryService{err: domain.ErrForbidden})

	c, _ := newSweetCtx(t, http.MethodDelete, "/api/sweets/s1", "")
	c.SetParamNames("id")
	c.SetParamValues("s1")

	if err := h.Delete(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSweetHandler_Purchase_ForwardsIdempotencyKey(t *testing.T) {
	svc := &stubInventoryService{sweet: sampleSweet()}
	h := NewSweetHandler(svc)

	c, rec := newSweetCtx(t, http.MethodPost, "/api/sweets/s1/purchase", "")
	c.Request().Header.Set("Idempotency-Key", "key-1")
	c.SetParamNames("id")
	c.SetParamValues("s1")

	if err := h.Purchase(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotKey != "key-1" {
		t.Errorf("idempotency key not forwarded: %q", svc.gotKey)
	}
}

func TestSweetHandler_Purchase_OutOfStockPassesThrough(t *testing.T) {
	h := NewSweetHandler(&stubInventoryService{err: domain.ErrOutOfStock})

	c, _ := newSweetCtx(t, http.MethodPost, "/api/sweets/s1/purchase", "")
	c.SetParamNames("id")
	c.SetParamValues("s1")

	if err := h.Purchase(c); !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
}

func TestSweetHandler_Restock_Success(t *testing.T) {
	svc := &stubInventoryService{sweet: sampleSweet()}
	h := NewSweetHandler(svc)

	c, rec := newSweetCtx(t, http.MethodPost, "/api/sweets/s1/restock", "")
	c.SetParamNames("id")
	c.SetParamValues("s1")

	if err := h.Restock(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
