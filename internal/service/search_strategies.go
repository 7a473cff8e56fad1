package service

import (
	"context"
	"fmt"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"glow-llm/internal/domain"
	"glow-llm/internal/repository"
)

// semanticStrategy vectoriza la consulta del perfil y combina el vecino mas
// cercano con un pase de full-text. Falla suave si no hay embeddings.
type semanticStrategy struct {
	catalog  repository.CatalogRepository
	embedder embedder
	tables   *lookupTables
	params   SearchParams
	logger   *zap.Logger
}

func (s *semanticStrategy) name() string { return "semantic" }

func (s *semanticStrategy) search(ctx context.Context, profile domain.Profile, maxPrice float64, limit int) ([]domain.ProductMatch, error) {
	keywords := ExtractKeywords(profile)
	accum := make(map[string]domain.ProductMatch)

	if s.embedder != nil {
		embedding, err := s.embedder.CreateEmbedding(ctx, BuildProfileQuery(profile))
		if err != nil {
			// Sin servicio de embeddings seguimos solo con full-text.
			s.logger.Warn("embedding unavailable", zap.Error(err))
		} else {
			nearest, err := s.catalog.SearchNearest(ctx, pgvector.NewVector(embedding), s.params.SimilarityFloor, limit)
			if err != nil {
				return nil, fmt.Errorf("nearest neighbor search: %w", err)
			}
			mergeMatches(accum, nearest)
		}
	}

	textHits, err := s.catalog.FullTextSearch(ctx, strings.Join(keywords, " "), limit)
	if err != nil {
		if len(accum) == 0 {
			return nil, fmt.Errorf("full text search: %w", err)
		}
	} else {
		for _, p := range textHits {
			mergeMatches(accum, []domain.ProductMatch{{Product: p, Similarity: s.params.FullTextBase}})
		}
	}

	var results []domain.ProductMatch
	for _, m := range accum {
		if m.Price > maxPrice || !s.tables.isSkincareCategory(m.Category) {
			continue
		}
		haystack := strings.ToLower(m.Name + " " + m.Brand + " " + m.Description)
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				m.Similarity += s.params.KeywordBoost
			}
		}
		m.Similarity = domain.ClampSimilarity(m.Similarity)
		results = append(results, m)
	}
	return results, nil
}

// seedStrategy usa el embedding precalculado del mejor producto para el tipo
// de piel como consulta de vecino mas cercano.
type seedStrategy struct {
	catalog repository.CatalogRepository
	tables  *lookupTables
	params  SearchParams
}

func (s *seedStrategy) name() string { return "seed-similarity" }

func (s *seedStrategy) search(ctx context.Context, profile domain.Profile, maxPrice float64, limit int) ([]domain.ProductMatch, error) {
	seeds, err := s.catalog.TopRatedBySkinType(ctx, strings.ToLower(profile.SkinType), s.tables.skincareCategories, s.params.SeedLimit)
	if err != nil {
		return nil, fmt.Errorf("seed lookup: %w", err)
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	seedIDs := make(map[string]bool, len(seeds))
	for _, seed := range seeds {
		seedIDs[seed.ID] = true
	}

	embedding, err := s.catalog.GetEmbedding(ctx, seeds[0].ID)
	if err != nil {
		return nil, fmt.Errorf("seed embedding: %w", err)
	}

	nearest, err := s.catalog.SearchNearest(ctx, embedding, s.params.SimilarityFloor, limit+len(seeds))
	if err != nil {
		return nil, fmt.Errorf("seed nearest neighbor: %w", err)
	}

	var results []domain.ProductMatch
	for _, m := range nearest {
		if seedIDs[m.ID] || m.Price > maxPrice || !s.tables.isSkincareCategory(m.Category) {
			continue
		}
		m.Reason = "similar to top-rated picks for your skin type"
		results = append(results, m)
	}
	return results, nil
}

// attributeStrategy es el nivel sin dependencia de embeddings: traduce el
// perfil via tablas fijas y puntua heuristicamente cada hit.
type attributeStrategy struct {
	catalog repository.CatalogRepository
	tables  *lookupTables
	params  SearchParams
}

func (s *attributeStrategy) name() string { return "attribute-keyword" }

func (s *attributeStrategy) search(ctx context.Context, profile domain.Profile, maxPrice float64, limit int) ([]domain.ProductMatch, error) {
	return s.searchScoped(ctx, profile, nil, "", maxPrice, limit)
}

// searchScoped corre hasta cuatro sub-consultas (overlap de tipo de piel,
// overlap de preocupaciones, substring por keywords y full-text), une por id
// y puntua. extraTerms y category acotan la busqueda para cobertura dirigida.
func (s *attributeStrategy) searchScoped(ctx context.Context, profile domain.Profile, extraTerms []string, category string, maxPrice float64, limit int) ([]domain.ProductMatch, error) {
	keywords := ExtractKeywords(profile)
	compatTypes := s.tables.compatSkinTypes(profile.SkinType)
	concernTags := s.tables.concernTags(profile.SkinConcerns)
	concernTags = append(concernTags, extraTerms...)

	hits := make(map[string]domain.Product)
	collect := func(products []domain.Product, err error) error {
		if err != nil {
			return err
		}
		for _, p := range products {
			if _, ok := hits[p.ID]; !ok {
				hits[p.ID] = p
			}
		}
		return nil
	}

	errs := 0
	queries := 0

	queries++
	if err := collect(s.catalog.FindBySkinTypes(ctx, compatTypes, maxPrice, limit)); err != nil {
		errs++
	}
	if len(concernTags) > 0 {
		queries++
		if err := collect(s.catalog.FindByConcerns(ctx, concernTags, maxPrice, limit)); err != nil {
			errs++
		}
	}
	topKeywords := keywords
	if len(topKeywords) > 3 {
		topKeywords = topKeywords[:3]
	}
	for _, kw := range topKeywords {
		queries++
		if err := collect(s.catalog.FindByName(ctx, kw, "", 5)); err != nil {
			errs++
		}
	}
	queries++
	if err := collect(s.catalog.FullTextSearch(ctx, strings.Join(keywords, " "), limit)); err != nil {
		errs++
	}

	if len(hits) == 0 && errs == queries {
		return nil, fmt.Errorf("attribute search: all sub-queries failed")
	}

	var results []domain.ProductMatch
	for _, p := range hits {
		if p.Price > maxPrice {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		results = append(results, domain.ProductMatch{
			Product:    p,
			Similarity: s.score(p, compatTypes, concernTags, maxPrice),
			Reason:     "matched your skin profile attributes",
		})
	}
	return sortedMatches(toMatchMap(results)), nil
}

// score arranca en la base y suma ajustes por overlap de tags, rating y
// castigo por acercarse al techo de presupuesto.
func (s *attributeStrategy) score(p domain.Product, compatTypes, concernTags []string, maxPrice float64) float64 {
	score := s.params.AttrBase
	if overlapCount(p.SkinTypes, compatTypes) > 0 {
		score += s.params.SkinTypeBoost
	}
	score += s.params.ConcernBoost * float64(overlapCount(p.Concerns, concernTags))
	score += (p.Rating - 3.5) * s.params.RatingWeight
	if p.Price > maxPrice*s.params.BudgetPenaltyRatio {
		score -= s.params.BudgetPenalty
	}
	if score > s.params.AttrCap {
		score = s.params.AttrCap
	}
	return domain.ClampSimilarity(score)
}

func toMatchMap(matches []domain.ProductMatch) map[string]domain.ProductMatch {
	m := make(map[string]domain.ProductMatch, len(matches))
	mergeMatches(m, matches)
	return m
}
