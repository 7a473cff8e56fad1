package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"glow-llm/internal/domain"
	"glow-llm/internal/repository"
)

// resolveRequest lleva todo lo que una estrategia de resolucion puede consultar.
type resolveRequest struct {
	step        domain.RoutineStep
	session     *SessionProducts
	preSearched []domain.ProductMatch
	maxPrice    float64
	used        map[string]bool
}

// resolverStrategy es un nivel de la cadena de resolucion; el primero que
// encuentra producto gana. La confianza baja con la profundidad (0.95 -> 0.8).
type resolverStrategy interface {
	name() string
	confidence() float64
	resolve(ctx context.Context, req resolveRequest) (domain.Product, bool)
}

// ProductResolver liga cada paso de rutina a un registro verificado del
// catalogo. Nunca falla: si toda estrategia se agota, el paso queda sin producto.
type ProductResolver struct {
	catalog    repository.CatalogRepository
	logger     *zap.Logger
	tables     *lookupTables
	strategies []resolverStrategy
	lastResort resolverStrategy
}

func NewProductResolver(catalog repository.CatalogRepository, logger *zap.Logger) *ProductResolver {
	tables := newLookupTables()
	return &ProductResolver{
		catalog: catalog,
		logger:  logger,
		tables:  tables,
		strategies: []resolverStrategy{
			sessionIDStrategy{},
			sessionNameStrategy{},
			preSearchedNameStrategy{},
			catalogNameStrategy{catalog: catalog},
			catalogIDStrategy{catalog: catalog},
		},
		lastResort: categoryStrategy{catalog: catalog, tables: tables},
	}
}

// ResolveStep corre la cadena completa, incluido el ultimo recurso por categoria.
func (r *ProductResolver) ResolveStep(ctx context.Context, step domain.RoutineStep, session *SessionProducts, preSearched []domain.ProductMatch, maxPrice float64, used map[string]bool) domain.RoutineStep {
	req := resolveRequest{step: step, session: session, preSearched: preSearched, maxPrice: maxPrice, used: used}
	if resolved, ok := r.tryStrategies(ctx, step, req, true); ok {
		return resolved
	}
	return step
}

// ResolveRoutine resuelve todos los pasos: primero las estrategias de sesion y
// catalogo como grupo paralelo (solo lectura), despues un pase secuencial de
// ultimo recurso por categoria que respeta los productos ya usados.
func (r *ProductResolver) ResolveRoutine(ctx context.Context, routine *domain.Routine, session *SessionProducts, preSearched []domain.ProductMatch, maxPrice float64) {
	sequences := [][]domain.RoutineStep{routine.Morning, routine.Evening, routine.Weekly}

	var wg sync.WaitGroup
	for _, seq := range sequences {
		for i := range seq {
			if seq[i].Product != nil {
				continue
			}
			wg.Add(1)
			go func(steps []domain.RoutineStep, idx int) {
				defer wg.Done()
				req := resolveRequest{step: steps[idx], session: session, preSearched: preSearched, maxPrice: maxPrice}
				if resolved, ok := r.tryStrategies(ctx, steps[idx], req, false); ok {
					steps[idx] = resolved
				}
			}(seq, i)
		}
	}
	wg.Wait()

	used := make(map[string]bool)
	for _, seq := range sequences {
		for i := range seq {
			if seq[i].Product != nil {
				used[seq[i].Product.ID] = true
			}
		}
	}
	for _, seq := range sequences {
		for i := range seq {
			if seq[i].Product != nil {
				continue
			}
			req := resolveRequest{step: seq[i], session: session, preSearched: preSearched, maxPrice: maxPrice, used: used}
			if product, ok := r.lastResort.resolve(ctx, req); ok {
				seq[i] = bindProduct(seq[i], product, r.lastResort.confidence())
				used[product.ID] = true
			} else {
				r.logger.Warn("step left unresolved",
					zap.String("step", seq[i].Name),
					zap.String("product_name", seq[i].ProductName))
			}
		}
	}
}

func (r *ProductResolver) tryStrategies(ctx context.Context, step domain.RoutineStep, req resolveRequest, includeLastResort bool) (domain.RoutineStep, bool) {
	for _, strat := range r.strategies {
		if product, ok := strat.resolve(ctx, req); ok {
			return bindProduct(step, product, strat.confidence()), true
		}
	}
	if includeLastResort {
		if product, ok := r.lastResort.resolve(ctx, req); ok {
			return bindProduct(step, product, r.lastResort.confidence()), true
		}
	}
	return step, false
}

// bindProduct normaliza el registro resuelto como ProductMatch con la
// confianza de la estrategia que lo encontro.
func bindProduct(step domain.RoutineStep, product domain.Product, confidence float64) domain.RoutineStep {
	step.Product = &domain.ProductMatch{
		Product:    product,
		Similarity: domain.ClampSimilarity(confidence),
	}
	step.ProductID = product.ID
	if step.ProductName == "" {
		step.ProductName = product.Name
	}
	return step
}

// 1. Id exacto en el mapa de productos descubiertos por tool calls.
type sessionIDStrategy struct{}

func (sessionIDStrategy) name() string        { return "session-id" }
func (sessionIDStrategy) confidence() float64 { return 0.95 }
func (sessionIDStrategy) resolve(_ context.Context, req resolveRequest) (domain.Product, bool) {
	if req.step.ProductID == "" || req.session == nil {
		return domain.Product{}, false
	}
	return req.session.ByID(req.step.ProductID)
}

// 2. Nombre (exacto, luego substring en ambas direcciones) contra la sesion.
type sessionNameStrategy struct{}

func (sessionNameStrategy) name() string        { return "session-name" }
func (sessionNameStrategy) confidence() float64 { return 0.92 }
func (sessionNameStrategy) resolve(_ context.Context, req resolveRequest) (domain.Product, bool) {
	if req.session == nil {
		return domain.Product{}, false
	}
	name := req.step.ProductName
	if name == "" {
		return domain.Product{}, false
	}
	return req.session.ByName(name)
}

// 3. Nombre contra los candidatos pre-buscados del cascade.
type preSearchedNameStrategy struct{}

func (preSearchedNameStrategy) name() string        { return "presearched-name" }
func (preSearchedNameStrategy) confidence() float64 { return 0.89 }
func (preSearchedNameStrategy) resolve(_ context.Context, req resolveRequest) (domain.Product, bool) {
	needle := strings.ToLower(strings.TrimSpace(req.step.ProductName))
	if needle == "" {
		return domain.Product{}, false
	}
	for _, m := range req.preSearched {
		stored := strings.ToLower(m.Name)
		if stored == needle || strings.Contains(stored, needle) || strings.Contains(needle, stored) {
			return m.Product, true
		}
	}
	return domain.Product{}, false
}

// 4. Busqueda difusa por nombre directa al catalogo: nombre completo primero,
// luego las primeras tres palabras.
type catalogNameStrategy struct {
	catalog repository.CatalogRepository
}

func (catalogNameStrategy) name() string        { return "catalog-name" }
func (catalogNameStrategy) confidence() float64 { return 0.86 }
func (s catalogNameStrategy) resolve(ctx context.Context, req resolveRequest) (domain.Product, bool) {
	name := strings.TrimSpace(req.step.ProductName)
	if name == "" {
		return domain.Product{}, false
	}

	products, err := s.catalog.FindByName(ctx, name, "", 1)
	if err == nil && len(products) > 0 {
		return products[0], true
	}

	words := strings.Fields(name)
	if len(words) > 3 {
		prefix := strings.Join(words[:3], " ")
		products, err = s.catalog.FindByName(ctx, prefix, "", 1)
		if err == nil && len(products) > 0 {
			return products[0], true
		}
	}
	return domain.Product{}, false
}

// 5. Lookup directo por id que el modelo entrego pero la sesion no conoce.
// El registro sale del catalogo, asi que queda verificado de origen.
type catalogIDStrategy struct {
	catalog repository.CatalogRepository
}

func (catalogIDStrategy) name() string        { return "catalog-id" }
func (catalogIDStrategy) confidence() float64 { return 0.83 }
func (s catalogIDStrategy) resolve(ctx context.Context, req resolveRequest) (domain.Product, bool) {
	if req.step.ProductID == "" {
		return domain.Product{}, false
	}
	product, err := s.catalog.GetByID(ctx, req.step.ProductID)
	if err != nil {
		return domain.Product{}, false
	}
	return product, true
}

// 6. Ultimo recurso: inferir categoria desde la etiqueta del paso y tomar el
// primer top-rated dentro de presupuesto que no este usado en la rutina.
type categoryStrategy struct {
	catalog repository.CatalogRepository
	tables  *lookupTables
}

func (categoryStrategy) name() string        { return "label-category" }
func (categoryStrategy) confidence() float64 { return 0.8 }
func (s categoryStrategy) resolve(ctx context.Context, req resolveRequest) (domain.Product, bool) {
	category := s.tables.inferCategoryFromLabel(req.step.Name)
	if category == "" {
		category = s.tables.inferCategoryFromLabel(req.step.ProductName)
	}
	if category == "" {
		return domain.Product{}, false
	}

	products, err := s.catalog.TopRatedByCategory(ctx, category, req.maxPrice, 3)
	if err != nil {
		return domain.Product{}, false
	}
	for _, p := range products {
		if req.used != nil && req.used[p.ID] {
			continue
		}
		return p, true
	}
	return domain.Product{}, false
}
