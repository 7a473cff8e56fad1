package domain

import "strings"

// Tiers de presupuesto soportados en el perfil.
const (
	BudgetLow    = "low"
	BudgetMedium = "medium"
	BudgetHigh   = "high"
)

// Profile es la entrada inmutable de una corrida de inferencia.
type Profile struct {
	SkinType      string   `json:"skin_type"`
	SkinTone      float64  `json:"skin_tone"` // 0 (claro) a 1 (oscuro)
	SkinGoals     []string `json:"skin_goals"`
	SkinConcerns  []string `json:"skin_concerns"`
	HairType      string   `json:"hair_type"`
	HairConcerns  []string `json:"hair_concerns"`
	WashFrequency string   `json:"wash_frequency"`
	UsesSunscreen bool     `json:"uses_sunscreen"`
	Budget        string   `json:"budget"`
	FragranceFree bool     `json:"fragrance_free"`
}

// MaxPrice traduce el tier de presupuesto a un techo de precio por producto.
func (p Profile) MaxPrice() float64 {
	switch strings.ToLower(strings.TrimSpace(p.Budget)) {
	case BudgetLow:
		return 25
	case BudgetHigh:
		return 120
	default:
		return 60
	}
}

// HasConcern indica si el perfil declara la preocupacion (case-insensitive).
func (p Profile) HasConcern(concern string) bool {
	for _, c := range p.SkinConcerns {
		if strings.EqualFold(c, concern) {
			return true
		}
	}
	return false
}

// HasGoal indica si el perfil declara la meta (case-insensitive).
func (p Profile) HasGoal(goal string) bool {
	for _, g := range p.SkinGoals {
		if strings.EqualFold(g, goal) {
			return true
		}
	}
	return false
}
