package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"glow-llm/internal/domain"
	"glow-llm/internal/llm"
	"glow-llm/internal/repository"
)

// Tope duro de rondas de tool calls por corrida de sintesis.
const maxToolRounds = 6

const preSearchLimit = 12

const synthesisSystemPrompt = `You are a dermatology-informed personal care advisor. You design daily skincare and hair care routines using ONLY products found through the tools available to you.

Rules:
- Before answering you MUST look products up with the search_products tool; use get_product_details to confirm anything you are unsure about.
- Never invent product ids or names. Every step must reference a product you saw in a tool result or in the candidate list.
- Respect the user's budget ceiling per product.
- When you are done, reply with ONLY a JSON object of this exact shape:
{"morning":[{"step":"...","product_id":"...","product_name":"...","instructions":"...","frequency":"daily"}],"evening":[...],"weekly":[...],"summary":"...","tips":["..."]}`

// SynthesisService orquesta el protocolo de sintesis de rutina: conversacion
// acotada con el modelo, resolucion de productos, reparacion de cobertura y
// cache de resultados.
type SynthesisService struct {
	llmClient llm.Client
	catalog   repository.CatalogRepository
	search    *SearchService
	resolver  *ProductResolver
	coverage  *CoverageService
	cache     RoutineCache
	cacheTTL  time.Duration
	logger    *zap.Logger
}

func NewSynthesisService(
	llmClient llm.Client,
	catalog repository.CatalogRepository,
	search *SearchService,
	resolver *ProductResolver,
	coverage *CoverageService,
	cache RoutineCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *SynthesisService {
	return &SynthesisService{
		llmClient: llmClient,
		catalog:   catalog,
		search:    search,
		resolver:  resolver,
		coverage:  coverage,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// IsModelAvailable reporta si el modelo generativo esta configurado.
func (s *SynthesisService) IsModelAvailable() bool {
	return s.llmClient != nil && s.llmClient.Available()
}

// RunInference produce la rutina completa para un perfil. Solo devuelve error
// ante una caida total del catalogo; cualquier falla del modelo se recupera
// con el fallback deterministico.
func (s *SynthesisService) RunInference(ctx context.Context, profile domain.Profile) (domain.InferenceResult, error) {
	cacheKey := ProfileCacheKey(profile)
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
			return cached, nil
		}
	}

	maxPrice := profile.MaxPrice()
	preSearched, err := s.search.Search(ctx, profile, maxPrice, preSearchLimit)
	if err != nil {
		return domain.InferenceResult{}, fmt.Errorf("catalog search: %w", err)
	}

	session := NewSessionProducts()
	routine, ok := s.runProtocol(ctx, profile, preSearched, session)
	if !ok {
		routine = BuildFallbackRoutine(profile, preSearched)
	}

	s.resolver.ResolveRoutine(ctx, &routine, session, preSearched, maxPrice)
	s.coverage.EnsureFocusCoverage(ctx, profile, &routine, preSearched)
	routine.Renumber()

	if len(routine.Tips) < 3 {
		routine.Tips = padTips(routine.Tips, profile)
	}
	if strings.TrimSpace(routine.Summary) == "" {
		routine.Summary = fallbackSummary(profile)
	}

	result := domain.InferenceResult{
		Products:         boundProducts(routine),
		Routine:          routine,
		Summary:          routine.Summary,
		PersonalizedTips: routine.Tips,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn("routine cache set failed", zap.Error(err))
		}
	}
	return result, nil
}

// runProtocol corre la maquina de estados de rondas. Devuelve ok=false cuando
// cualquier condicion manda al fallback: modelo no disponible, ronda 0 sin
// tool call, salida terminal no parseable o tope de rondas agotado.
func (s *SynthesisService) runProtocol(ctx context.Context, profile domain.Profile, preSearched []domain.ProductMatch, session *SessionProducts) (domain.Routine, bool) {
	if !s.IsModelAvailable() {
		s.logger.Info("model unavailable, using rule-based fallback")
		return domain.Routine{}, false
	}

	messages := []llm.Message{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: buildSynthesisPrompt(profile, preSearched)},
	}
	tools := routineTools()

	for round := 0; round < maxToolRounds; round++ {
		result, err := s.llmClient.Chat(ctx, messages, tools)
		if err != nil {
			s.logger.Warn("model call failed", zap.Int("round", round), zap.Error(err))
			return domain.Routine{}, false
		}

		if len(result.ToolCalls) > 0 {
			messages = append(messages, llm.Message{Role: "assistant", ToolCalls: result.ToolCalls})
			messages = append(messages, s.executeToolCalls(ctx, result.ToolCalls, profile, session)...)
			continue
		}

		// La ronda 0 exige al menos una tool call; una respuesta directa
		// sin consultar el catalogo no es confiable.
		if round == 0 {
			s.logger.Warn("model answered without tool calls at round 0")
			return domain.Routine{}, false
		}

		routine, err := ParseRoutineDocument(result.Content)
		if err != nil {
			s.logger.Warn("terminal routine unparsable", zap.Error(err))
			return domain.Routine{}, false
		}
		return routine, true
	}

	s.logger.Warn("tool round cap exhausted without terminal answer", zap.Int("cap", maxToolRounds))
	return domain.Routine{}, false
}

// executeToolCalls ejecuta las tool calls de una ronda como grupo concurrente;
// cada resultado se escribe en su propio indice.
func (s *SynthesisService) executeToolCalls(ctx context.Context, calls []llm.ToolCall, profile domain.Profile, session *SessionProducts) []llm.Message {
	outputs := make([]llm.Message, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, call llm.ToolCall) {
			defer wg.Done()
			outputs[idx] = llm.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    s.executeToolCall(ctx, call, profile, session),
			}
		}(i, call)
	}
	wg.Wait()
	return outputs
}

func (s *SynthesisService) executeToolCall(ctx context.Context, call llm.ToolCall, profile domain.Profile, session *SessionProducts) string {
	switch call.Name {
	case "search_products":
		return s.toolSearchProducts(ctx, call.Arguments, profile, session)
	case "get_product_details":
		return s.toolProductDetails(ctx, call.Arguments, session)
	default:
		return fmt.Sprintf(`{"error":"unknown tool %q"}`, call.Name)
	}
}

func (s *SynthesisService) toolSearchProducts(ctx context.Context, arguments string, profile domain.Profile, session *SessionProducts) string {
	var args struct {
		Query    string  `json:"query"`
		Category string  `json:"category"`
		MaxPrice float64 `json:"max_price"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return `{"error":"invalid search_products arguments"}`
	}
	maxPrice := args.MaxPrice
	if maxPrice <= 0 {
		maxPrice = profile.MaxPrice()
	}

	found := make(map[string]domain.Product)
	if args.Category != "" {
		if products, err := s.catalog.TopRatedByCategory(ctx, strings.ToLower(args.Category), maxPrice, 5); err == nil {
			for _, p := range products {
				found[p.ID] = p
			}
		} else {
			s.logger.Warn("tool category search failed", zap.Error(err))
		}
	}
	if args.Query != "" {
		if products, err := s.catalog.FullTextSearch(ctx, args.Query, 5); err == nil {
			for _, p := range products {
				if p.Price <= maxPrice {
					found[p.ID] = p
				}
			}
		} else {
			s.logger.Warn("tool text search failed", zap.Error(err))
		}
	}

	summaries := make([]toolProductSummary, 0, len(found))
	for _, p := range found {
		session.Remember(p)
		summaries = append(summaries, summarizeProduct(p))
	}
	payload, err := json.Marshal(map[string]any{"products": summaries})
	if err != nil {
		return `{"products":[]}`
	}
	return string(payload)
}

func (s *SynthesisService) toolProductDetails(ctx context.Context, arguments string, session *SessionProducts) string {
	var args struct {
		ProductID string `json:"product_id"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || args.ProductID == "" {
		return `{"error":"invalid get_product_details arguments"}`
	}
	product, err := s.catalog.GetByID(ctx, args.ProductID)
	if err != nil {
		return fmt.Sprintf(`{"error":"product %s not found"}`, args.ProductID)
	}
	session.Remember(product)
	payload, err := json.Marshal(product)
	if err != nil {
		return `{"error":"could not encode product"}`
	}
	return string(payload)
}

type toolProductSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Rating      float64 `json:"rating"`
	Description string  `json:"description,omitempty"`
}

func summarizeProduct(p domain.Product) toolProductSummary {
	description := p.Description
	if len(description) > 160 {
		description = description[:160]
	}
	return toolProductSummary{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		Category:    p.Category,
		Price:       p.Price,
		Rating:      p.Rating,
		Description: description,
	}
}

// routineTools declara las herramientas que el modelo puede invocar.
func routineTools() []llm.ToolDef {
	return []llm.ToolDef{
		{
			Name:        "search_products",
			Description: "Search the product catalog by free-text query and/or category, limited to a max price per product.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Free-text search over product names and descriptions"},
					"category": {"type": "string", "description": "Optional category filter: cleanser, toner, essence, serum, treatment, moisturizer, sunscreen, exfoliant, mask, shampoo, conditioner"},
					"max_price": {"type": "number", "description": "Maximum price per product"}
				}
			}`),
		},
		{
			Name:        "get_product_details",
			Description: "Fetch the full catalog record for one product by its id.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"product_id": {"type": "string", "description": "Catalog product id"}
				},
				"required": ["product_id"]
			}`),
		},
	}
}

func buildSynthesisPrompt(profile domain.Profile, preSearched []domain.ProductMatch) string {
	var sb strings.Builder

	sb.WriteString("Build a personal care routine for this profile:\n")
	sb.WriteString(fmt.Sprintf("- Skin type: %s\n", orDefault(profile.SkinType, "unspecified")))
	if len(profile.SkinConcerns) > 0 {
		sb.WriteString(fmt.Sprintf("- Skin concerns: %s\n", strings.Join(profile.SkinConcerns, ", ")))
	}
	if len(profile.SkinGoals) > 0 {
		sb.WriteString(fmt.Sprintf("- Skin goals: %s\n", strings.Join(profile.SkinGoals, ", ")))
	}
	if profile.HairType != "" {
		sb.WriteString(fmt.Sprintf("- Hair type: %s", profile.HairType))
		if len(profile.HairConcerns) > 0 {
			sb.WriteString(fmt.Sprintf(" (concerns: %s)", strings.Join(profile.HairConcerns, ", ")))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("- Budget ceiling per product: $%.0f\n", profile.MaxPrice()))
	if profile.SkinTone >= 0.6 {
		sb.WriteString("- Deeper skin tone: avoid actives known to trigger hyperpigmentation\n")
	}
	if profile.FragranceFree {
		sb.WriteString("- Products must be fragrance-free\n")
	}

	if len(preSearched) > 0 {
		sb.WriteString("\nPre-fetched catalog candidates (use their exact ids):\n")
		for _, m := range preSearched {
			sb.WriteString(fmt.Sprintf("- %s | %s by %s | %s | $%.2f | rating %.1f\n",
				m.ID, m.Name, m.Brand, m.Category, m.Price, m.Rating))
		}
	}

	sb.WriteString("\nSearch the catalog for anything missing, then reply with the JSON routine document only.")
	return sb.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// padTips completa los tips del modelo con los derivados del perfil hasta
// llegar al minimo de 3.
func padTips(tips []string, profile domain.Profile) []string {
	for _, t := range buildProfileTips(profile) {
		if len(tips) >= 3 {
			break
		}
		duplicate := false
		for _, existing := range tips {
			if strings.EqualFold(existing, t) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			tips = append(tips, t)
		}
	}
	return tips
}

// boundProducts junta los productos ligados, uno por id.
func boundProducts(routine domain.Routine) []domain.ProductMatch {
	seen := make(map[string]bool)
	var products []domain.ProductMatch
	for _, step := range routine.AllSteps() {
		if step.Product == nil || seen[step.Product.ID] {
			continue
		}
		seen[step.Product.ID] = true
		products = append(products, *step.Product)
	}
	return products
}
