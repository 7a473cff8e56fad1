package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"glow-llm/internal/config"
	"glow-llm/internal/db"
	"glow-llm/internal/domain"
	"glow-llm/internal/repository"
	"glow-llm/internal/service"
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

// Scenario valida que la reparacion de cobertura inyecte pasos para las
// preocupaciones declaradas contra el catalogo real, sin usar el modelo.
type Scenario struct {
	Name          string
	Profile       domain.Profile
	ExpectedTerms []string
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		log.Fatalf("db ping: %v", err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	catalogRepo := repository.NewPgCatalogRepository(pool)
	searchSvc := service.NewSearchService(catalogRepo, nil, logger, service.DefaultSearchParams())
	coverageSvc := service.NewCoverageService(searchSvc, logger)

	scenarios := []Scenario{
		{
			Name: "Acne y resequedad",
			Profile: domain.Profile{
				SkinType:     "oily",
				Budget:       domain.BudgetLow,
				SkinConcerns: []string{"acne", "dryness"},
			},
			ExpectedTerms: []string{"acne", "hydration"},
		},
		{
			Name: "Anti-edad premium",
			Profile: domain.Profile{
				SkinType:     "normal",
				Budget:       domain.BudgetHigh,
				SkinConcerns: []string{"aging"},
				SkinGoals:    []string{"anti-aging"},
			},
			ExpectedTerms: []string{"retinol"},
		},
		{
			Name: "Manchas en tono profundo",
			Profile: domain.Profile{
				SkinType:     "combination",
				SkinTone:     0.8,
				Budget:       domain.BudgetMedium,
				SkinConcerns: []string{"hyperpigmentation"},
			},
			ExpectedTerms: []string{"brightening"},
		},
	}

	passed := 0
	for _, sc := range scenarios {
		matches, err := searchSvc.Search(ctx, sc.Profile, sc.Profile.MaxPrice(), 12)
		if err != nil {
			fmt.Printf("%s[FAIL]%s %s: search: %v\n", colorRed, colorReset, sc.Name, err)
			continue
		}

		routine := domain.Routine{
			Morning: []domain.RoutineStep{{Name: "Cleanser", Instructions: "Wash your face."}},
		}
		added := coverageSvc.EnsureFocusCoverage(ctx, sc.Profile, &routine, matches)

		if checkTerms(routine, sc.ExpectedTerms) {
			passed++
			fmt.Printf("%s[PASS]%s %s (added: %s)\n", colorGreen, colorReset, sc.Name, strings.Join(added, ", "))
		} else {
			fmt.Printf("%s[FAIL]%s %s: expected terms %v not covered (added: %v)\n",
				colorRed, colorReset, sc.Name, sc.ExpectedTerms, added)
		}
	}

	fmt.Printf("\n%d/%d scenarios passed\n", passed, len(scenarios))
}

func checkTerms(routine domain.Routine, terms []string) bool {
	var sb strings.Builder
	for _, step := range routine.AllSteps() {
		sb.WriteString(step.Name)
		sb.WriteString(" ")
		sb.WriteString(step.Instructions)
		sb.WriteString(" ")
		if step.Product != nil {
			sb.WriteString(step.Product.Name)
			sb.WriteString(" ")
			sb.WriteString(step.Product.Description)
			sb.WriteString(" ")
		}
	}
	text := strings.ToLower(sb.String())
	for _, term := range terms {
		if !strings.Contains(text, strings.ToLower(term)) {
			return false
		}
	}
	return true
}
