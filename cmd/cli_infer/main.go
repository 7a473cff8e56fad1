package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"glow-llm/internal/config"
	"glow-llm/internal/db"
	"glow-llm/internal/domain"
	"glow-llm/internal/llm"
	"glow-llm/internal/repository"
	"glow-llm/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	catalogRepo := repository.NewPgCatalogRepository(pool)
	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbeddingModel, logger)

	searchSvc := service.NewSearchService(catalogRepo, llmClient, logger, service.DefaultSearchParams())
	resolver := service.NewProductResolver(catalogRepo, logger)
	coverageSvc := service.NewCoverageService(searchSvc, logger)
	synthesisSvc := service.NewSynthesisService(
		llmClient, catalogRepo, searchSvc, resolver, coverageSvc,
		service.NewMemoryRoutineCache(), 30*time.Minute, logger,
	)

	fmt.Println("===== Routine Builder =====")
	profile := readProfile(reader)

	start := time.Now()
	result, err := synthesisSvc.RunInference(ctx, profile)
	if err != nil {
		log.Fatalf("inference: %v", err)
	}

	fmt.Printf("\nDone in %s\n\n", time.Since(start).Round(time.Millisecond))
	fmt.Println(result.Summary)
	printSequence("Morning", result.Routine.Morning)
	printSequence("Evening", result.Routine.Evening)
	printSequence("Weekly", result.Routine.Weekly)

	fmt.Println("\nTips:")
	for _, tip := range result.PersonalizedTips {
		fmt.Printf("  - %s\n", tip)
	}

	cart := service.BuildCart(result.Routine)
	fmt.Printf("\nCart: %d products, total $%.2f\n", len(cart.Items), cart.TotalPrice)
}

func readProfile(reader *bufio.Reader) domain.Profile {
	profile := domain.Profile{
		SkinType: ask(reader, "Skin type (oily/dry/combination/sensitive/normal)", "normal"),
		Budget:   ask(reader, "Budget (low/medium/high)", "medium"),
	}

	if concerns := ask(reader, "Skin concerns (comma separated)", ""); concerns != "" {
		profile.SkinConcerns = splitList(concerns)
	}
	if goals := ask(reader, "Skin goals (comma separated)", ""); goals != "" {
		profile.SkinGoals = splitList(goals)
	}
	if tone := ask(reader, "Skin tone 0-1", "0.5"); tone != "" {
		if v, err := strconv.ParseFloat(tone, 64); err == nil {
			profile.SkinTone = v
		}
	}
	profile.FragranceFree = strings.EqualFold(ask(reader, "Fragrance-free only? (y/n)", "n"), "y")
	profile.UsesSunscreen = strings.EqualFold(ask(reader, "Already using sunscreen daily? (y/n)", "n"), "y")

	return profile
}

func ask(reader *bufio.Reader, prompt, fallback string) string {
	fmt.Printf("%s [%s]: ", prompt, fallback)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fallback
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback
	}
	return line
}

func splitList(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func printSequence(name string, steps []domain.RoutineStep) {
	if len(steps) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", name)
	for _, step := range steps {
		line := fmt.Sprintf("  %d. %s", step.Order, step.Name)
		if step.Product != nil {
			line += fmt.Sprintf(" -> %s by %s ($%.2f)", step.Product.Name, step.Product.Brand, step.Product.Price)
		}
		fmt.Println(line)
		if step.Instructions != "" {
			fmt.Printf("     %s\n", step.Instructions)
		}
	}
}
