package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort          string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL       string `env:"DATABASE_URL,required"`
	LLMAPIKey         string `env:"LLM_API_KEY"`
	LLMBaseURL        string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel          string `env:"LLM_MODEL" envDefault:"gpt-5.1"`
	LLMEmbeddingModel string `env:"LLM_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	RedisAddr         string `env:"REDIS_ADDR"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	DBMaxConns        int32  `env:"DB_MAX_CONNS" envDefault:"10"`

	// Perillas del motor de busqueda; ver service.SearchParams.
	SearchCoverageThreshold int     `env:"SEARCH_COVERAGE_THRESHOLD" envDefault:"6"`
	SearchSimilarityFloor   float64 `env:"SEARCH_SIMILARITY_FLOOR" envDefault:"0.3"`
	RoutineCacheTTLMinutes  int     `env:"ROUTINE_CACHE_TTL_MINUTES" envDefault:"30"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
