package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"glow-llm/internal/domain"
	"glow-llm/internal/llm"
	"glow-llm/internal/service"
)

// stubCatalog responde todas las consultas con el mismo set de productos,
// o falla todo cuando down es true.
type stubCatalog struct {
	products []domain.Product
	down     bool
}

var errDown = errors.New("catalog down")

func (s *stubCatalog) all() ([]domain.Product, error) {
	if s.down {
		return nil, errDown
	}
	return s.products, nil
}

func (s *stubCatalog) GetByID(context.Context, string) (domain.Product, error) {
	if s.down || len(s.products) == 0 {
		return domain.Product{}, errDown
	}
	return s.products[0], nil
}

func (s *stubCatalog) GetByIDs(context.Context, []string) ([]domain.Product, error) { return s.all() }

func (s *stubCatalog) GetEmbedding(context.Context, string) (pgvector.Vector, error) {
	return pgvector.Vector{}, errDown
}

func (s *stubCatalog) SearchNearest(context.Context, pgvector.Vector, float64, int) ([]domain.ProductMatch, error) {
	return nil, errDown
}

func (s *stubCatalog) FullTextSearch(context.Context, string, int) ([]domain.Product, error) {
	return s.all()
}

func (s *stubCatalog) FindBySkinTypes(context.Context, []string, float64, int) ([]domain.Product, error) {
	return s.all()
}

func (s *stubCatalog) FindByConcerns(context.Context, []string, float64, int) ([]domain.Product, error) {
	return s.all()
}

func (s *stubCatalog) FindByName(context.Context, string, string, int) ([]domain.Product, error) {
	return s.all()
}

func (s *stubCatalog) TopRatedByCategory(context.Context, string, float64, int) ([]domain.Product, error) {
	return s.all()
}

func (s *stubCatalog) TopRatedBySkinType(context.Context, string, []string, int) ([]domain.Product, error) {
	return s.all()
}

type stubCartRepo struct {
	saved []domain.Cart
	err   error
}

func (s *stubCartRepo) Save(_ context.Context, cart domain.Cart) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, cart)
	return nil
}

func newTestRouter(catalog *stubCatalog, carts *stubCartRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	search := service.NewSearchService(catalog, nil, logger, service.DefaultSearchParams())
	resolver := service.NewProductResolver(catalog, logger)
	coverage := service.NewCoverageService(search, logger)
	synthesis := service.NewSynthesisService(
		&llm.MockClient{Unavailable: true}, catalog, search, resolver, coverage, nil, time.Minute, logger)

	return NewRouter(logger, NewInferenceHandler(logger, synthesis), NewCartHandler(logger, carts))
}

func stubProducts() []domain.Product {
	return []domain.Product{
		{ID: "p1", Name: "Gel Cleanser", Category: domain.CategoryCleanser, Price: 10, SkinTypes: []string{"oily"}, Rating: 4.4, Retailer: "GlowMart", PurchaseLink: "https://glowmart.example/p1"},
		{ID: "p2", Name: "Daily Moisturizer", Category: domain.CategoryMoisturizer, Price: 15, SkinTypes: []string{"all"}, Rating: 4.2, Retailer: "GlowMart", PurchaseLink: "https://glowmart.example/p2"},
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&stubCatalog{products: stubProducts()}, &stubCartRepo{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type: %q", ct)
	}
}

func TestModelAvailableEndpoint(t *testing.T) {
	router := newTestRouter(&stubCatalog{products: stubProducts()}, &stubCartRepo{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/model/available", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var body map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["available"] {
		t.Fatalf("mock client is unavailable, endpoint disagrees")
	}
}

func TestInferenceEndpoint(t *testing.T) {
	router := newTestRouter(&stubCatalog{products: stubProducts()}, &stubCartRepo{})

	profile := domain.Profile{SkinType: "oily", Budget: domain.BudgetLow}
	payload, _ := json.Marshal(profile)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/inference", bytes.NewReader(payload)))

	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
	var result domain.InferenceResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Routine.Morning) == 0 {
		t.Fatalf("empty routine in response: %s", w.Body.String())
	}
	if len(result.PersonalizedTips) < 3 {
		t.Fatalf("expected at least 3 tips, got %d", len(result.PersonalizedTips))
	}
}

func TestInferenceEndpointBadRequest(t *testing.T) {
	router := newTestRouter(&stubCatalog{products: stubProducts()}, &stubCartRepo{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/inference", bytes.NewReader([]byte("{not json"))))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestInferenceEndpointCatalogDown(t *testing.T) {
	router := newTestRouter(&stubCatalog{down: true}, &stubCartRepo{})

	payload, _ := json.Marshal(domain.Profile{SkinType: "oily", Budget: domain.BudgetLow})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/inference", bytes.NewReader(payload)))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
}

func TestCartEndpoint(t *testing.T) {
	carts := &stubCartRepo{}
	router := newTestRouter(&stubCatalog{products: stubProducts()}, carts)

	products := stubProducts()
	routine := domain.Routine{
		Morning: []domain.RoutineStep{
			{Name: "Cleanse", ProductID: "p1", Product: &domain.ProductMatch{Product: products[0], Similarity: 0.9}},
			{Name: "Moisturize", ProductID: "p2", Product: &domain.ProductMatch{Product: products[1], Similarity: 0.85}},
		},
	}
	payload, _ := json.Marshal(routine)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cart", bytes.NewReader(payload)))

	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
	var body struct {
		Cart domain.Cart `json:"cart"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Cart.Items) != 2 {
		t.Fatalf("cart items: %d", len(body.Cart.Items))
	}
	if len(carts.saved) != 1 {
		t.Fatalf("cart not persisted")
	}
}

func TestCartEndpointSaveFailureStillReturnsCart(t *testing.T) {
	router := newTestRouter(&stubCatalog{products: stubProducts()}, &stubCartRepo{err: errors.New("db down")})

	payload, _ := json.Marshal(domain.Routine{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cart", bytes.NewReader(payload)))

	if w.Code != http.StatusOK {
		t.Fatalf("save failure should not fail the request: %d", w.Code)
	}
}
