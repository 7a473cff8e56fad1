package service

import (
	"strings"

	"glow-llm/internal/domain"
)

// lookupTables agrupa la configuracion estatica del motor: compatibilidad de
// tipos de piel, sinonimos de preocupaciones y focos de cobertura.
// Se construye una vez en el arranque y es inmutable.
type lookupTables struct {
	skinTypeCompat      map[string][]string
	concernSynonyms     map[string][]string
	skincareCategories  []string
	essentialCategories []string
	focusTargets        []focusTarget
	labelCategories     []labelCategory
}

// focusTarget describe una preocupacion o meta que exige cobertura garantizada.
type focusTarget struct {
	key         string
	terms       []string
	category    string
	sequence    string // morning | evening | weekly
	label       string
	instruction string
}

// labelCategory infiere la categoria de un paso a partir de su etiqueta.
type labelCategory struct {
	substr   string
	category string
}

func newLookupTables() *lookupTables {
	return &lookupTables{
		skinTypeCompat: map[string][]string{
			"oily":        {"oily", "combination", "all"},
			"dry":         {"dry", "normal", "all"},
			"combination": {"combination", "oily", "normal", "all"},
			"sensitive":   {"sensitive", "all"},
			"normal":      {"normal", "combination", "all"},
		},
		concernSynonyms: map[string][]string{
			"acne":              {"acne", "blemish", "breakout", "pore", "salicylic"},
			"dryness":           {"dryness", "dehydration", "hydration", "hyaluronic", "moisture"},
			"aging":             {"aging", "wrinkle", "fine lines", "retinol", "firming"},
			"hyperpigmentation": {"hyperpigmentation", "dark spot", "brightening", "vitamin c", "niacinamide"},
			"redness":           {"redness", "soothing", "calming", "centella"},
			"dullness":          {"dullness", "glow", "brightening", "exfoliant"},
			"sensitivity":       {"sensitive", "gentle", "calming"},
			"oiliness":          {"oil control", "mattifying", "sebum"},
			"dandruff":          {"dandruff", "scalp", "flaking"},
			"frizz":             {"frizz", "smoothing", "anti-frizz"},
		},
		skincareCategories: []string{
			domain.CategoryCleanser, domain.CategoryToner, domain.CategoryEssence,
			domain.CategorySerum, domain.CategoryTreatment, domain.CategoryMoisturizer,
			domain.CategorySunscreen, domain.CategoryExfoliant, domain.CategoryMask,
		},
		essentialCategories: []string{
			domain.CategoryCleanser, domain.CategoryMoisturizer, domain.CategorySunscreen,
			domain.CategoryTreatment, domain.CategorySerum,
		},
		focusTargets: []focusTarget{
			{
				key:         "acne",
				terms:       []string{"acne", "salicylic", "blemish", "breakout"},
				category:    domain.CategoryTreatment,
				sequence:    "evening",
				label:       "Acne Treatment",
				instruction: "Apply a thin layer of this acne treatment to blemish-prone areas after cleansing.",
			},
			{
				key:         "dryness",
				terms:       []string{"hydration", "hyaluronic", "dryness", "moisture"},
				category:    domain.CategorySerum,
				sequence:    "morning",
				label:       "Hydrating Serum",
				instruction: "Press a hydration serum into damp skin to lock in moisture against dryness.",
			},
			{
				key:         "aging",
				terms:       []string{"retinol", "wrinkle", "anti-aging", "firming"},
				category:    domain.CategorySerum,
				sequence:    "evening",
				label:       "Anti-Aging Serum",
				instruction: "Smooth an anti-aging serum over face and neck; start two nights per week with retinol.",
			},
			{
				key:         "hyperpigmentation",
				terms:       []string{"vitamin c", "dark spot", "brightening", "niacinamide"},
				category:    domain.CategorySerum,
				sequence:    "morning",
				label:       "Brightening Serum",
				instruction: "Apply a brightening serum to even tone and fade dark spots before sunscreen.",
			},
			{
				key:         "redness",
				terms:       []string{"centella", "soothing", "calming", "redness"},
				category:    domain.CategoryMoisturizer,
				sequence:    "evening",
				label:       "Soothing Moisturizer",
				instruction: "Finish with a calming moisturizer to reduce redness overnight.",
			},
			{
				key:         "dullness",
				terms:       []string{"exfoliant", "glow", "aha", "brightening"},
				category:    domain.CategoryExfoliant,
				sequence:    "weekly",
				label:       "Weekly Exfoliation",
				instruction: "Exfoliate once a week to restore glow; avoid pairing with strong actives the same night.",
			},
			{
				key:         "dandruff",
				terms:       []string{"dandruff", "scalp", "zinc"},
				category:    domain.CategoryShampoo,
				sequence:    "weekly",
				label:       "Scalp Treatment Wash",
				instruction: "Work a dandruff shampoo into the scalp and leave on for a few minutes before rinsing.",
			},
		},
		labelCategories: []labelCategory{
			{"cleanse", domain.CategoryCleanser},
			{"moistur", domain.CategoryMoisturizer},
			{"sunscreen", domain.CategorySunscreen},
			{"spf", domain.CategorySunscreen},
			{"serum", domain.CategorySerum},
			{"toner", domain.CategoryToner},
			{"essence", domain.CategoryEssence},
			{"exfoli", domain.CategoryExfoliant},
			{"mask", domain.CategoryMask},
			{"treatment", domain.CategoryTreatment},
			{"shampoo", domain.CategoryShampoo},
			{"conditioner", domain.CategoryConditioner},
		},
	}
}

// compatSkinTypes devuelve los tags de piel compatibles con el tipo declarado.
func (t *lookupTables) compatSkinTypes(skinType string) []string {
	if tags, ok := t.skinTypeCompat[strings.ToLower(strings.TrimSpace(skinType))]; ok {
		return tags
	}
	return []string{"all"}
}

// concernTags expande cada preocupacion a sus sinonimos de tag.
func (t *lookupTables) concernTags(concerns []string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, c := range concerns {
		key := strings.ToLower(strings.TrimSpace(c))
		expanded, ok := t.concernSynonyms[key]
		if !ok {
			expanded = []string{key}
		}
		for _, tag := range expanded {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// deriveFocusTargets devuelve hasta max focos activados por las preocupaciones
// y metas del perfil, en el orden fijo de la tabla.
func (t *lookupTables) deriveFocusTargets(profile domain.Profile, max int) []focusTarget {
	var targets []focusTarget
	for _, ft := range t.focusTargets {
		if len(targets) >= max {
			break
		}
		if profile.HasConcern(ft.key) || profile.HasGoal(ft.key) {
			targets = append(targets, ft)
			continue
		}
		// Las preocupaciones capilares tambien activan focos (ej. dandruff).
		for _, hc := range profile.HairConcerns {
			if strings.EqualFold(hc, ft.key) {
				targets = append(targets, ft)
				break
			}
		}
	}
	return targets
}

// inferCategoryFromLabel deduce la categoria de producto desde la etiqueta del paso.
func (t *lookupTables) inferCategoryFromLabel(label string) string {
	lower := strings.ToLower(label)
	for _, lc := range t.labelCategories {
		if strings.Contains(lower, lc.substr) {
			return lc.category
		}
	}
	return ""
}

// isSkincareCategory indica si la categoria pertenece al set de skincare.
func (t *lookupTables) isSkincareCategory(category string) bool {
	for _, c := range t.skincareCategories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}
