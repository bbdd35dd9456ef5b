package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default filter values, tuned for the documentation corpus this was first built for.
const (
	DefaultLegalNotice     = `Legal Notice.*Cloudera.*Disclaimer.*OR COVENANT BASED ON COURSE OF DEALING OR USAGE IN TRADE.`
	DefaultTableOfContents = `Contents.*\.\.\. [0-9]+`
	DefaultNumericNoise    = `^[0-9\. ]*$`
)

// DefaultIgnoreSentences are boilerplate lines dropped from every document.
var DefaultIgnoreSentences = []string{
	"Cloudera Docs",
	"Cloudera Manager",
	"https://docs.cloudera.com/",
}

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Store connection resilience
	DBConnectTimeout  time.Duration
	DBConnectAttempts int
	DBConnectBackoff  time.Duration

	// "postgres" or "memory"
	StoreDriver string

	// Embedding model (OpenAI-compatible endpoint)
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	EmbeddingDim     int

	// Answer generation
	LLMBaseURL   string
	LLMAPIKey    string
	LLMModel     string
	LLMMaxTokens int

	// Chunking and retrieval
	ChunkMaxTokens      int
	MaxSimilarChunks    int
	ChunkFlushRemainder bool

	// Staging trees
	InputDir         string
	ProcessedDir     string
	TextDir          string
	TextProcessedDir string

	Filters Filters

	ServerPort string
	ServerHost string

	// Observability
	TracingEnabled   bool
	JaegerEndpoint   string
	TraceSampleRatio float64
}

// Filters holds the text-cleaning configuration.
type Filters struct {
	IgnoreSentences []string `yaml:"ignore_sentences"`
	LegalNotice     string   `yaml:"legal_notice"`
	TableOfContents string   `yaml:"table_of_contents"`
	NumericNoise    string   `yaml:"numeric_noise"`
}

// DefaultFilters returns a fresh copy of the built-in filters.
func DefaultFilters() Filters {
	return Filters{
		IgnoreSentences: append([]string(nil), DefaultIgnoreSentences...),
		LegalNotice:     DefaultLegalNotice,
		TableOfContents: DefaultTableOfContents,
		NumericNoise:    DefaultNumericNoise,
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "docrag"),
		DBSSLMode:  getEnv("DB_SSLMODE", "prefer"),

		DBConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", 2*time.Second),
		DBConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 6),
		DBConnectBackoff:  getEnvDuration("DB_CONNECT_BACKOFF", 3*time.Second),

		StoreDriver: getEnv("STORE_DRIVER", "postgres"),

		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "http://localhost:8081/v1"),
		EmbeddingAPIKey:  getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "bge-small-en-v1.5"),
		EmbeddingDim:     getEnvInt("EMBEDDING_DIM", 384),

		LLMBaseURL:   getEnv("LLM_BASE_URL", "http://localhost:8082/v1"),
		LLMAPIKey:    getEnv("LLM_API_KEY", ""),
		LLMModel:     getEnv("LLM_MODEL", "zephyr-7b-beta"),
		LLMMaxTokens: getEnvInt("LLM_MAX_TOKENS", 256),

		ChunkMaxTokens:      getEnvInt("CHUNK_MAX_TOKENS", 120),
		MaxSimilarChunks:    getEnvInt("MAX_SIMILAR_CHUNKS", 4),
		ChunkFlushRemainder: getEnvBool("CHUNK_FLUSH_REMAINDER", false),

		InputDir:         getEnv("INPUT_DIR", "docs_input"),
		ProcessedDir:     getEnv("PROCESSED_DIR", "docs_processed"),
		TextDir:          getEnv("TEXT_DIR", "texts_input"),
		TextProcessedDir: getEnv("TEXT_PROCESSED_DIR", "texts_processed"),

		Filters: DefaultFilters(),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "localhost"),

		TracingEnabled:   getEnvBool("TRACING_ENABLED", false),
		JaegerEndpoint:   getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		TraceSampleRatio: getEnvFloat("TRACE_SAMPLE_RATIO", 1),
	}

	if path := os.Getenv("FILTERS_FILE"); path != "" {
		filters, err := LoadFilters(path)
		if err != nil {
			return nil, err
		}
		cfg.Filters = filters
	}

	return cfg, cfg.Validate()
}

// LoadFilters reads a YAML filters file. Fields left out keep their defaults.
func LoadFilters(path string) (Filters, error) {
	filters := DefaultFilters()

	data, err := os.ReadFile(path)
	if err != nil {
		return filters, fmt.Errorf("failed to read filters file: %w", err)
	}
	if err := yaml.Unmarshal(data, &filters); err != nil {
		return filters, fmt.Errorf("failed to parse filters file %s: %w", path, err)
	}
	return filters, nil
}

// Validate checks bounds and that every filter pattern compiles.
func (c *Config) Validate() error {
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
	}
	if c.ChunkMaxTokens <= 0 {
		return fmt.Errorf("CHUNK_MAX_TOKENS must be positive, got %d", c.ChunkMaxTokens)
	}
	if c.MaxSimilarChunks <= 0 {
		return fmt.Errorf("MAX_SIMILAR_CHUNKS must be positive, got %d", c.MaxSimilarChunks)
	}
	if c.DBConnectAttempts < 1 || c.DBConnectAttempts > 20 {
		return fmt.Errorf("DB_CONNECT_ATTEMPTS must be 1-20, got %d", c.DBConnectAttempts)
	}
	if c.StoreDriver != "postgres" && c.StoreDriver != "memory" {
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.StoreDriver)
	}

	patterns := map[string]string{
		"legal_notice":      c.Filters.LegalNotice,
		"table_of_contents": c.Filters.TableOfContents,
		"numeric_noise":     c.Filters.NumericNoise,
	}
	for name, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid %s pattern: %w", name, err)
		}
	}
	return nil
}

// RetrievalBudget is the word budget for an assembled context.
func (c *Config) RetrievalBudget() int {
	return c.ChunkMaxTokens * c.MaxSimilarChunks
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode, int(c.DBConnectTimeout.Seconds()))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1"
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
