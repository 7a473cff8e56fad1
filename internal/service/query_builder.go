package service

import (
	"fmt"
	"strings"

	"glow-llm/internal/domain"
)

// BuildProfileQuery convierte el perfil en una consulta en lenguaje natural
// para la busqueda semantica de skincare. Funcion pura, sin fallas.
func BuildProfileQuery(p domain.Profile) string {
	var sb strings.Builder

	skinType := strings.ToLower(strings.TrimSpace(p.SkinType))
	if skinType == "" {
		skinType = "all"
	}
	sb.WriteString(fmt.Sprintf("Skincare products for %s skin.", skinType))

	if len(p.SkinGoals) > 0 {
		sb.WriteString(fmt.Sprintf(" Goals: %s.", strings.ToLower(strings.Join(p.SkinGoals, ", "))))
	}
	if len(p.SkinConcerns) > 0 {
		sb.WriteString(fmt.Sprintf(" Concerns: %s.", strings.ToLower(strings.Join(p.SkinConcerns, ", "))))
	}

	if p.SkinTone >= 0.6 {
		sb.WriteString(" Avoid actives known to trigger hyperpigmentation on deeper skin tones.")
	}

	switch strings.ToLower(p.Budget) {
	case domain.BudgetLow:
		sb.WriteString(" Prefer affordable, price-conscious options.")
	case domain.BudgetHigh:
		sb.WriteString(" Premium formulations are welcome.")
	}

	if p.FragranceFree {
		sb.WriteString(" Must be fragrance-free and hypoallergenic.")
	}

	return sb.String()
}

// BuildHairQuery convierte el perfil en una consulta para productos capilares.
func BuildHairQuery(p domain.Profile) string {
	var sb strings.Builder

	hairType := strings.ToLower(strings.TrimSpace(p.HairType))
	if hairType == "" {
		hairType = "all"
	}
	sb.WriteString(fmt.Sprintf("Hair care products for %s hair.", hairType))

	if len(p.HairConcerns) > 0 {
		sb.WriteString(fmt.Sprintf(" Concerns: %s.", strings.ToLower(strings.Join(p.HairConcerns, ", "))))
	}
	if p.WashFrequency != "" {
		sb.WriteString(fmt.Sprintf(" Washed %s.", strings.ToLower(p.WashFrequency)))
	}

	switch strings.ToLower(p.Budget) {
	case domain.BudgetLow:
		sb.WriteString(" Prefer affordable, price-conscious options.")
	case domain.BudgetHigh:
		sb.WriteString(" Premium formulations are welcome.")
	}

	if p.FragranceFree {
		sb.WriteString(" Must be fragrance-free and hypoallergenic.")
	}

	return sb.String()
}

// ExtractKeywords aplana tipo de piel, preocupaciones y metas en keywords
// unicos en minusculas, mas un token fragrance-free cuando aplica.
func ExtractKeywords(p domain.Profile) []string {
	var keywords []string
	seen := make(map[string]bool)

	add := func(raw string) {
		kw := strings.ToLower(strings.TrimSpace(raw))
		if kw == "" || seen[kw] {
			return
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}

	add(p.SkinType)
	for _, c := range p.SkinConcerns {
		add(c)
	}
	for _, g := range p.SkinGoals {
		add(g)
	}
	if p.FragranceFree {
		add("fragrance-free")
	}

	return keywords
}
