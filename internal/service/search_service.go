package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"glow-llm/internal/domain"
	"glow-llm/internal/repository"
)

// SearchParams agrupa las constantes de scoring del cascade. Son valores
// ajustados empiricamente; se exponen como parametros para recalibrarlos
// contra datos reales del catalogo en vez de fijarlos como invariantes.
type SearchParams struct {
	CoverageThreshold  int
	SimilarityFloor    float64
	KeywordBoost       float64
	FullTextBase       float64
	AttrBase           float64
	SkinTypeBoost      float64
	ConcernBoost       float64
	RatingWeight       float64
	BudgetPenalty      float64
	BudgetPenaltyRatio float64
	AttrCap            float64
	BackfillSimilarity float64
	SeedLimit          int
}

// DefaultSearchParams devuelve las perillas con sus valores de origen.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		CoverageThreshold:  6,
		SimilarityFloor:    0.3,
		KeywordBoost:       0.1,
		FullTextBase:       0.5,
		AttrBase:           0.6,
		SkinTypeBoost:      0.1,
		ConcernBoost:       0.08,
		RatingWeight:       0.05,
		BudgetPenalty:      0.05,
		BudgetPenaltyRatio: 0.8,
		AttrCap:            0.98,
		BackfillSimilarity: 0.7,
		SeedLimit:          5,
	}
}

// embedder es el unico pedazo del cliente LLM que necesita el cascade.
type embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// searchStrategy es un nivel del cascade; se evaluan en orden con early-exit.
type searchStrategy interface {
	name() string
	search(ctx context.Context, profile domain.Profile, maxPrice float64, limit int) ([]domain.ProductMatch, error)
}

// SearchService implementa el cascade de busqueda de catalogo en tres niveles:
// semantico, similitud por semillas y atributos/keywords.
type SearchService struct {
	catalog    repository.CatalogRepository
	logger     *zap.Logger
	params     SearchParams
	tables     *lookupTables
	strategies []searchStrategy
}

func NewSearchService(catalog repository.CatalogRepository, emb embedder, logger *zap.Logger, params SearchParams) *SearchService {
	tables := newLookupTables()
	s := &SearchService{
		catalog: catalog,
		logger:  logger,
		params:  params,
		tables:  tables,
	}
	s.strategies = []searchStrategy{
		&semanticStrategy{catalog: catalog, embedder: emb, tables: tables, params: params, logger: logger},
		&seedStrategy{catalog: catalog, tables: tables, params: params},
		&attributeStrategy{catalog: catalog, tables: tables, params: params},
	}
	return s
}

// Search corre las estrategias en orden hasta juntar suficientes matches
// distintos, aplica el backfill de categorias esenciales y devuelve hasta
// limit resultados ordenados por similitud descendente.
// Solo devuelve error ante una caida total del catalogo (cero resultados y
// todas las llamadas fallidas).
func (s *SearchService) Search(ctx context.Context, profile domain.Profile, maxPrice float64, limit int) ([]domain.ProductMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	accum := make(map[string]domain.ProductMatch)
	attempts, failures := 0, 0

	for _, strat := range s.strategies {
		if len(accum) >= s.params.CoverageThreshold {
			break
		}
		attempts++
		matches, err := strat.search(ctx, profile, maxPrice, limit)
		if err != nil {
			failures++
			s.logger.Warn("search strategy failed",
				zap.String("strategy", strat.name()), zap.Error(err))
			continue
		}
		mergeMatches(accum, matches)
	}

	backfilled, err := s.backfillEssentials(ctx, accum, maxPrice)
	attempts++
	if err != nil {
		failures++
		s.logger.Warn("essential backfill failed", zap.Error(err))
	}
	mergeMatches(accum, backfilled)

	if len(accum) == 0 && failures == attempts {
		return nil, fmt.Errorf("catalog unavailable: all search strategies failed")
	}

	results := sortedMatches(accum)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// AttributeSearch expone la estrategia de atributos acotada a una categoria,
// usada por la reparacion de cobertura.
func (s *SearchService) AttributeSearch(ctx context.Context, profile domain.Profile, terms []string, category string, maxPrice float64, limit int) ([]domain.ProductMatch, error) {
	strat := &attributeStrategy{catalog: s.catalog, tables: s.tables, params: s.params}
	matches, err := strat.searchScoped(ctx, profile, terms, category, maxPrice, limit)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *SearchService) backfillEssentials(ctx context.Context, accum map[string]domain.ProductMatch, maxPrice float64) ([]domain.ProductMatch, error) {
	present := make(map[string]bool)
	for _, m := range accum {
		present[strings.ToLower(m.Category)] = true
	}

	var added []domain.ProductMatch
	var lastErr error
	for _, category := range s.tables.essentialCategories {
		if present[category] {
			continue
		}
		products, err := s.catalog.TopRatedByCategory(ctx, category, maxPrice, 1)
		if err != nil {
			lastErr = err
			continue
		}
		if len(products) == 0 {
			continue
		}
		added = append(added, domain.ProductMatch{
			Product:    products[0],
			Similarity: s.params.BackfillSimilarity,
			Reason:     "essential category backfill",
		})
	}
	if len(added) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return added, nil
}

// mergeMatches une por id conservando la similitud mas alta.
func mergeMatches(accum map[string]domain.ProductMatch, matches []domain.ProductMatch) {
	for _, m := range matches {
		if m.ID == "" {
			continue
		}
		if existing, ok := accum[m.ID]; !ok || m.Similarity > existing.Similarity {
			accum[m.ID] = m
		}
	}
}

// sortedMatches ordena por similitud descendente con desempate por id para
// mantener resultados deterministas.
func sortedMatches(accum map[string]domain.ProductMatch) []domain.ProductMatch {
	results := make([]domain.ProductMatch, 0, len(accum))
	for _, m := range accum {
		results = append(results, m)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
	return results
}

// containsFold reporta substring case-insensitive.
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// overlapCount cuenta cuantos tags de b aparecen en a (case-insensitive).
func overlapCount(a, b []string) int {
	count := 0
	for _, x := range a {
		for _, y := range b {
			if strings.EqualFold(x, y) {
				count++
				break
			}
		}
	}
	return count
}
