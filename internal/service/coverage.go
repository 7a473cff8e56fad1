package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"glow-llm/internal/domain"
)

// Topes de pasos por secuencia al inyectar cobertura.
const (
	maxMorningSteps = 5
	maxEveningSteps = 5
	maxWeeklySteps  = 3
)

// CoverageService garantiza que cada preocupacion o meta declarada quede
// cubierta por al menos un paso de la rutina.
type CoverageService struct {
	search *SearchService
	logger *zap.Logger
	tables *lookupTables
}

func NewCoverageService(search *SearchService, logger *zap.Logger) *CoverageService {
	return &CoverageService{
		search: search,
		logger: logger,
		tables: newLookupTables(),
	}
}

// EnsureFocusCoverage revisa los focos derivados del perfil e inyecta pasos
// extra para los que no esten cubiertos. Devuelve las etiquetas agregadas.
// Debe correr despues de que todos los pasos esten resueltos.
func (s *CoverageService) EnsureFocusCoverage(ctx context.Context, profile domain.Profile, routine *domain.Routine, candidates []domain.ProductMatch) []string {
	targets := s.tables.deriveFocusTargets(profile, 3)
	if len(targets) == 0 {
		return nil
	}

	usedIDs := make(map[string]bool)
	for _, step := range routine.AllSteps() {
		if step.Product != nil {
			usedIDs[step.Product.ID] = true
		}
	}

	var added []string
	for _, target := range targets {
		if s.isCovered(routine, target) {
			continue
		}

		match, ok := s.pickFromCandidates(candidates, target, usedIDs)
		if !ok {
			match, ok = s.searchForTarget(ctx, profile, target, usedIDs)
		}
		if !ok {
			s.logger.Warn("focus target left uncovered", zap.String("target", target.key))
			continue
		}

		if s.appendToSequence(routine, target, match) {
			usedIDs[match.ID] = true
			added = append(added, target.label)
		}
	}

	if len(added) > 0 {
		routine.Renumber()
		s.logger.Info("coverage repair added steps", zap.Strings("labels", added))
	}
	return added
}

// isCovered busca cualquiera de los terminos del foco en el texto de todos los
// pasos existentes: nombre, instrucciones y producto ligado.
func (s *CoverageService) isCovered(routine *domain.Routine, target focusTarget) bool {
	for _, step := range routine.AllSteps() {
		text := step.Name + " " + step.Instructions + " " + step.ProductName
		if step.Product != nil {
			text += " " + step.Product.Name + " " + step.Product.Description
		}
		lower := strings.ToLower(text)
		for _, term := range target.terms {
			if strings.Contains(lower, strings.ToLower(term)) {
				return true
			}
		}
	}
	return false
}

func (s *CoverageService) pickFromCandidates(candidates []domain.ProductMatch, target focusTarget, usedIDs map[string]bool) (domain.ProductMatch, bool) {
	for _, m := range candidates {
		if usedIDs[m.ID] {
			continue
		}
		if strings.EqualFold(m.Category, target.category) {
			return m, true
		}
		text := strings.ToLower(m.Name + " " + m.Description)
		for _, term := range target.terms {
			if strings.Contains(text, strings.ToLower(term)) {
				return m, true
			}
		}
	}
	return domain.ProductMatch{}, false
}

func (s *CoverageService) searchForTarget(ctx context.Context, profile domain.Profile, target focusTarget, usedIDs map[string]bool) (domain.ProductMatch, bool) {
	matches, err := s.search.AttributeSearch(ctx, profile, target.terms, target.category, profile.MaxPrice(), 3)
	if err != nil {
		s.logger.Warn("targeted coverage search failed",
			zap.String("target", target.key), zap.Error(err))
		return domain.ProductMatch{}, false
	}
	for _, m := range matches {
		if !usedIDs[m.ID] {
			return m, true
		}
	}
	return domain.ProductMatch{}, false
}

// appendToSequence agrega el paso al final de la secuencia del foco si esta
// por debajo de su tope.
func (s *CoverageService) appendToSequence(routine *domain.Routine, target focusTarget, match domain.ProductMatch) bool {
	step := domain.RoutineStep{
		Name:         target.label,
		Product:      &match,
		ProductID:    match.ID,
		ProductName:  match.Name,
		Instructions: target.instruction,
		Frequency:    domain.FrequencyDaily,
	}

	switch target.sequence {
	case "morning":
		if len(routine.Morning) >= maxMorningSteps {
			return false
		}
		routine.Morning = append(routine.Morning, step)
	case "evening":
		if len(routine.Evening) >= maxEveningSteps {
			return false
		}
		routine.Evening = append(routine.Evening, step)
	default:
		if len(routine.Weekly) >= maxWeeklySteps {
			return false
		}
		step.Frequency = domain.FrequencyWeekly
		routine.Weekly = append(routine.Weekly, step)
	}
	return true
}
