package service

import (
	"fmt"
	"strings"

	"glow-llm/internal/domain"
)

// BuildFallbackRoutine arma una rutina deterministica a partir de los matches
// ya reunidos, sin depender del modelo. Siempre produce una rutina.
func BuildFallbackRoutine(profile domain.Profile, matches []domain.ProductMatch) domain.Routine {
	used := make(map[string]bool)
	pick := func(categories ...string) *domain.ProductMatch {
		for _, category := range categories {
			for i := range matches {
				m := matches[i]
				if used[m.ID] || !strings.EqualFold(m.Category, category) {
					continue
				}
				used[m.ID] = true
				return &m
			}
		}
		return nil
	}

	routine := domain.Routine{
		Summary: fallbackSummary(profile),
		Tips:    buildProfileTips(profile),
	}

	// Morning: cleanser, toner/essence si hay candidato, moisturizer, sunscreen.
	routine.Morning = appendStep(routine.Morning, "Cleanser", pick(domain.CategoryCleanser), instructionFor(domain.CategoryCleanser, profile), domain.FrequencyDaily, true)
	routine.Morning = appendStep(routine.Morning, "Toner", pick(domain.CategoryToner, domain.CategoryEssence), instructionFor(domain.CategoryToner, profile), domain.FrequencyDaily, false)
	routine.Morning = appendStep(routine.Morning, "Moisturizer", pick(domain.CategoryMoisturizer), instructionFor(domain.CategoryMoisturizer, profile), domain.FrequencyDaily, true)
	routine.Morning = appendStep(routine.Morning, "Sunscreen", pick(domain.CategorySunscreen), instructionFor(domain.CategorySunscreen, profile), domain.FrequencyDaily, true)

	// Evening: cleanser, serum/treatment si hay candidato, moisturizer.
	routine.Evening = appendStep(routine.Evening, "Cleanser", pick(domain.CategoryCleanser), instructionFor(domain.CategoryCleanser, profile), domain.FrequencyDaily, true)
	routine.Evening = appendStep(routine.Evening, "Treatment", pick(domain.CategorySerum, domain.CategoryTreatment), eveningTreatmentInstruction(profile), domain.FrequencyDaily, false)
	routine.Evening = appendStep(routine.Evening, "Moisturizer", pick(domain.CategoryMoisturizer), instructionFor(domain.CategoryMoisturizer, profile), domain.FrequencyDaily, true)

	// Weekly: un par exfoliante/mascarilla.
	routine.Weekly = appendStep(routine.Weekly, "Exfoliation", pick(domain.CategoryExfoliant), instructionFor(domain.CategoryExfoliant, profile), domain.FrequencyWeekly, false)
	routine.Weekly = appendStep(routine.Weekly, "Mask", pick(domain.CategoryMask), instructionFor(domain.CategoryMask, profile), domain.FrequencyWeekly, false)
	if len(routine.Weekly) == 0 {
		// La rutina semanal nunca queda vacia; el resolver intenta ligar producto despues.
		routine.Weekly = appendStep(routine.Weekly, "Exfoliation", nil, instructionFor(domain.CategoryExfoliant, profile), domain.FrequencyWeekly, true)
	}

	routine.Renumber()
	return routine
}

// appendStep agrega el paso cuando hay producto o cuando el paso es obligatorio.
func appendStep(seq []domain.RoutineStep, name string, product *domain.ProductMatch, instruction, frequency string, required bool) []domain.RoutineStep {
	if product == nil && !required {
		return seq
	}
	step := domain.RoutineStep{
		Name:         name,
		Product:      product,
		Instructions: instruction,
		Frequency:    frequency,
	}
	if product != nil {
		step.ProductID = product.ID
		step.ProductName = product.Name
	}
	return append(seq, step)
}

func fallbackSummary(profile domain.Profile) string {
	skinType := strings.ToLower(strings.TrimSpace(profile.SkinType))
	if skinType == "" {
		skinType = "your"
	} else {
		skinType += " "
	}
	return fmt.Sprintf("A simple, consistent routine built for %sskin: cleanse, protect in the morning, repair at night, and reset weekly.", skinType)
}

// instructionFor templatea la instruccion por categoria segun tipo de piel.
func instructionFor(category string, profile domain.Profile) string {
	skinType := strings.ToLower(profile.SkinType)
	switch category {
	case domain.CategoryCleanser:
		switch skinType {
		case "oily", "combination":
			return "Massage a gel cleanser over damp skin for 60 seconds, then rinse with lukewarm water."
		case "dry", "sensitive":
			return "Use a gentle cream cleanser with lukewarm water; pat dry without rubbing."
		default:
			return "Cleanse with lukewarm water for about a minute and pat dry."
		}
	case domain.CategoryToner:
		return "Sweep toner over the face with a cotton pad or clean hands after cleansing."
	case domain.CategoryMoisturizer:
		if skinType == "oily" {
			return "Apply a light layer of oil-free moisturizer while skin is still damp."
		}
		return "Apply moisturizer to face and neck while skin is still slightly damp."
	case domain.CategorySunscreen:
		return "Finish the morning with two finger-lengths of sunscreen; reapply if outdoors past midday."
	case domain.CategoryExfoliant:
		return "Exfoliate once a week on a night without other actives; follow with moisturizer."
	case domain.CategoryMask:
		return "Apply the mask once a week for 10-15 minutes, then rinse and moisturize."
	default:
		return "Use as directed on the packaging."
	}
}

// eveningTreatmentInstruction ajusta el paso de tratamiento nocturno a las metas.
func eveningTreatmentInstruction(profile domain.Profile) string {
	if profile.HasGoal("anti-aging") || profile.HasGoal("aging") || profile.HasConcern("aging") {
		return "Apply a pea-sized amount of retinol treatment at night; build up from twice a week."
	}
	if profile.HasConcern("acne") {
		return "Apply the treatment to blemish-prone areas after cleansing; let it absorb before moisturizer."
	}
	return "Apply the serum or treatment to clean, dry skin before moisturizer."
}

// buildProfileTips genera tips personalizados y rellena con genericos hasta
// tener al menos 3.
func buildProfileTips(profile domain.Profile) []string {
	var tips []string

	if !profile.UsesSunscreen {
		tips = append(tips, "Daily sunscreen is the single highest-impact habit; make it non-negotiable.")
	}
	if profile.SkinTone >= 0.6 {
		tips = append(tips, "Introduce strong actives slowly; deeper skin tones are more prone to post-inflammatory hyperpigmentation.")
	}
	if profile.FragranceFree {
		tips = append(tips, "Check ingredient lists for hidden fragrance terms like parfum or linalool.")
	}
	if profile.HasConcern("acne") {
		tips = append(tips, "Change pillowcases twice a week and avoid picking at breakouts.")
	}
	if profile.HasConcern("dryness") {
		tips = append(tips, "Apply hydrating products to damp skin and seal with moisturizer within a minute.")
	}
	if strings.EqualFold(profile.Budget, domain.BudgetLow) {
		tips = append(tips, "Spend on sunscreen and treatment first; cleansers can stay budget-friendly.")
	}

	generic := []string{
		"Introduce one new product at a time and give it two weeks before judging results.",
		"Consistency beats intensity: a simple routine done daily outperforms an elaborate one done sometimes.",
		"Patch test new actives on your inner arm for a couple of days before using them on your face.",
	}
	for _, g := range generic {
		if len(tips) >= 3 {
			break
		}
		tips = append(tips, g)
	}
	return tips
}
