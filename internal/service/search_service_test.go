package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"glow-llm/internal/domain"
)

// mockCatalog implementa CatalogRepository sobre un slice en memoria.
type mockCatalog struct {
	products   []domain.Product
	embeddings map[string]pgvector.Vector
	nearest    []domain.ProductMatch
	failAll    bool
}

var errCatalogDown = errors.New("catalog down")

func (m *mockCatalog) GetByID(_ context.Context, id string) (domain.Product, error) {
	if m.failAll {
		return domain.Product{}, errCatalogDown
	}
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("product %s not found", id)
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	if m.failAll {
		return nil, errCatalogDown
	}
	var out []domain.Product
	for _, p := range m.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (m *mockCatalog) GetEmbedding(_ context.Context, id string) (pgvector.Vector, error) {
	if m.failAll {
		return pgvector.Vector{}, errCatalogDown
	}
	if v, ok := m.embeddings[id]; ok {
		return v, nil
	}
	return pgvector.Vector{}, fmt.Errorf("no embedding for %s", id)
}

func (m *mockCatalog) SearchNearest(_ context.Context, _ pgvector.Vector, floor float64, limit int) ([]domain.ProductMatch, error) {
	if m.failAll {
		return nil, errCatalogDown
	}
	var out []domain.ProductMatch
	for _, match := range m.nearest {
		if match.Similarity >= floor && len(out) < limit {
			out = append(out, match)
		}
	}
	return out, nil
}

func (m *mockCatalog) FullTextSearch(_ context.Context, query string, limit int) ([]domain.Product, error) {
	if m.failAll {
		return nil, errCatalogDown
	}
	words := strings.Fields(strings.ToLower(query))
	var out []domain.Product
	for _, p := range m.products {
		if len(out) >= limit {
			break
		}
		text := strings.ToLower(p.Name + " " + p.Brand + " " + p.Description)
		for _, w := range words {
			if strings.Contains(text, w) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (m *mockCatalog) FindBySkinTypes(_ context.Context, skinTypes []string, maxPrice float64, limit int) ([]domain.Product, error) {
	if m.failAll {
		return nil, errCatalogDown
	}
	var out []domain.Product
	for _, p := range m.products {
		if len(out) >= limit || p.Price > maxPrice {
			continue
		}
		if overlapCount(p.SkinTypes, skinTypes) > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) FindByConcerns(_ context.Context, concerns []string, maxPrice float64, limit int) ([]domain.Product, error) {
	if m.failAll {
		return nil, errCatalogDown
	}
	var out []domain.Product
	for _, p := range m.products {
		if len(out) >= limit || p.Price > maxPrice {
			continue
		}
		if overlapCount(p.Concerns, concerns) > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) FindByName(_ context.Context, name, brand string, limit int) ([]domain.Product, error) {
	if m.failAll {
		return nil, errCatalogDown
	}
	needle := strings.ToLower(name)
	var out []domain.Product
	for _, p := range m.products {
		if len(out) >= limit {
			break
		}
		text := strings.ToLower(p.Name + " " + p.Brand + " " + p.Description)
		if !strings.Contains(text, needle) {
			continue
		}
		if brand != "" && !strings.Contains(strings.ToLower(p.Brand), strings.ToLower(brand)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockCatalog) TopRatedByCategory(_ context.Context, category string, maxPrice float64, limit int) ([]domain.Product, error) {
	if m.failAll {
		return nil, errCatalogDown
	}
	var out []domain.Product
	for _, p := range m.products {
		if strings.EqualFold(p.Category, category) && p.Price <= maxPrice {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockCatalog) TopRatedBySkinType(_ context.Context, skinType string, categories []string, limit int) ([]domain.Product, error) {
	if m.failAll {
		return nil, errCatalogDown
	}
	var out []domain.Product
	for _, p := range m.products {
		if overlapCount(p.SkinTypes, []string{skinType}) == 0 {
			continue
		}
		for _, c := range categories {
			if strings.EqualFold(p.Category, c) {
				out = append(out, p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func testProducts() []domain.Product {
	return []domain.Product{
		{ID: "p1", Name: "Clear Start Gel Cleanser", Brand: "DermaLab", Category: domain.CategoryCleanser, Price: 12, SkinTypes: []string{"oily", "combination"}, Concerns: []string{"acne", "pore"}, Description: "Foaming gel cleanser with salicylic acid for acne-prone skin", Rating: 4.5, Retailer: "GlowMart", PurchaseLink: "https://glowmart.example/p1"},
		{ID: "p2", Name: "Hydra Boost Serum", Brand: "AquaSkin", Category: domain.CategorySerum, Price: 19, SkinTypes: []string{"dry", "all"}, Concerns: []string{"dryness", "hydration"}, Description: "Hyaluronic acid serum for deep hydration", Rating: 4.7, Retailer: "GlowMart", PurchaseLink: "https://glowmart.example/p2"},
		{ID: "p3", Name: "Matte Shield Sunscreen SPF50", Brand: "SunCo", Category: domain.CategorySunscreen, Price: 22, SkinTypes: []string{"oily", "all"}, Concerns: []string{"oil control"}, Description: "Lightweight mattifying sunscreen", Rating: 4.2, Retailer: "SunShop", PurchaseLink: "https://sunshop.example/p3"},
		{ID: "p4", Name: "Night Repair Retinol Treatment", Brand: "AgeWell", Category: domain.CategoryTreatment, Price: 24, SkinTypes: []string{"all"}, Concerns: []string{"aging", "acne", "blemish"}, Description: "Retinol treatment for blemishes and fine lines", Rating: 4.8, Retailer: "GlowMart", PurchaseLink: "https://glowmart.example/p4"},
		{ID: "p5", Name: "Velvet Cloud Moisturizer", Brand: "DermaLab", Category: domain.CategoryMoisturizer, Price: 17, SkinTypes: []string{"oily", "combination", "all"}, Concerns: []string{"dryness"}, Description: "Oil-free gel moisturizer", Rating: 4.1, Retailer: "SunShop", PurchaseLink: "https://sunshop.example/p5"},
		{ID: "p6", Name: "Luxe Caviar Cream", Brand: "Opulence", Category: domain.CategoryMoisturizer, Price: 180, SkinTypes: []string{"dry"}, Concerns: []string{"aging"}, Description: "Ultra premium anti-aging cream", Rating: 4.9, Retailer: "LuxStore", PurchaseLink: "https://luxstore.example/p6"},
		{ID: "p7", Name: "Glow AHA Exfoliant", Brand: "BrightLab", Category: domain.CategoryExfoliant, Price: 15, SkinTypes: []string{"all"}, Concerns: []string{"dullness", "glow"}, Description: "Weekly AHA exfoliant for dull skin", Rating: 4.3, Retailer: "GlowMart", PurchaseLink: "https://glowmart.example/p7"},
	}
}

func newTestSearchService(catalog *mockCatalog) *SearchService {
	return NewSearchService(catalog, nil, zap.NewNop(), DefaultSearchParams())
}

func oilyLowBudgetProfile() domain.Profile {
	return domain.Profile{
		SkinType:     "oily",
		Budget:       domain.BudgetLow,
		SkinConcerns: []string{"acne"},
	}
}

func TestSearchRespectsBudgetCeiling(t *testing.T) {
	profile := oilyLowBudgetProfile()
	if got := profile.MaxPrice(); got != 25 {
		t.Fatalf("low budget max price: got %v want 25", got)
	}

	svc := newTestSearchService(&mockCatalog{products: testProducts()})
	matches, err := svc.Search(context.Background(), profile, profile.MaxPrice(), 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("expected matches for oily low-budget profile")
	}

	for _, m := range matches {
		if m.Price > 25 && m.Reason != "essential category backfill" {
			t.Fatalf("product %s priced %.2f exceeds budget ceiling", m.ID, m.Price)
		}
	}
}

func TestSearchDeduplicatesAndSorts(t *testing.T) {
	svc := newTestSearchService(&mockCatalog{products: testProducts()})
	matches, err := svc.Search(context.Background(), oilyLowBudgetProfile(), 25, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	seen := make(map[string]bool)
	for i, m := range matches {
		if seen[m.ID] {
			t.Fatalf("duplicate product id %s in results", m.ID)
		}
		seen[m.ID] = true
		if m.Similarity < 0 || m.Similarity > 1 {
			t.Fatalf("similarity %v out of [0,1] for %s", m.Similarity, m.ID)
		}
		if i > 0 && matches[i-1].Similarity < m.Similarity {
			t.Fatalf("results not sorted by similarity descending at index %d", i)
		}
	}
}

func TestSearchIsIdempotent(t *testing.T) {
	svc := newTestSearchService(&mockCatalog{products: testProducts()})
	profile := oilyLowBudgetProfile()

	first, err := svc.Search(context.Background(), profile, 25, 10)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := svc.Search(context.Background(), profile, 25, 10)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("result counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("order differs at index %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if first[i].Similarity != second[i].Similarity {
			t.Fatalf("similarity differs for %s", first[i].ID)
		}
	}
}

func TestSearchBackfillsEssentialCategories(t *testing.T) {
	svc := newTestSearchService(&mockCatalog{products: testProducts()})
	matches, err := svc.Search(context.Background(), oilyLowBudgetProfile(), 25, 20)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	categories := make(map[string]bool)
	for _, m := range matches {
		categories[m.Category] = true
	}
	for _, essential := range []string{domain.CategoryCleanser, domain.CategoryMoisturizer, domain.CategorySunscreen} {
		if !categories[essential] {
			t.Fatalf("essential category %s missing from results", essential)
		}
	}
}

func TestSearchCatalogOutageReturnsError(t *testing.T) {
	svc := newTestSearchService(&mockCatalog{failAll: true})
	if _, err := svc.Search(context.Background(), oilyLowBudgetProfile(), 25, 10); err == nil {
		t.Fatalf("expected error on total catalog outage")
	}
}

func TestAttributeSearchScopedToCategory(t *testing.T) {
	svc := newTestSearchService(&mockCatalog{products: testProducts()})
	matches, err := svc.AttributeSearch(context.Background(), oilyLowBudgetProfile(), []string{"acne"}, domain.CategoryTreatment, 25, 3)
	if err != nil {
		t.Fatalf("attribute search: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("expected treatment matches for acne")
	}
	for _, m := range matches {
		if m.Category != domain.CategoryTreatment {
			t.Fatalf("scoped search leaked category %s", m.Category)
		}
		if m.Similarity > 0.98 {
			t.Fatalf("attribute score %v above cap", m.Similarity)
		}
	}
}

func TestSemanticStrategySoftFailsWithoutEmbedder(t *testing.T) {
	// Sin servicio de embeddings el cascade sigue funcionando con los
	// niveles que no lo requieren.
	svc := newTestSearchService(&mockCatalog{products: testProducts()})
	matches, err := svc.Search(context.Background(), oilyLowBudgetProfile(), 25, 10)
	if err != nil {
		t.Fatalf("search without embedder: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("expected attribute strategy results without embedder")
	}
}
