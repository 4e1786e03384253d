package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel string

	LLMProvider          string
	GeminiAPIKey         string
	GeminiModel          string
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIBaseURL        string
	OpenAIEmbeddingModel string
	LLMTimeout           time.Duration

	OpenTripMapAPIKey string
	POITimeout        time.Duration
	POIRetries        int
	POIRadiusMeters   int
	POILimit          int
	POICacheTTL       time.Duration
	RedisURL          string
	PostgresURL       string
	MapboxToken       string

	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	ClarificationCap     int
	DefaultDestination   string
	DayStart             string
	DayEnd               string
	GroundingPatterns    []string

	ExportWebhookURL string
	ExportTimeout    time.Duration
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any key lookup, which keeps tests off the
// process environment.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	r := reader{lookup: lookup}
	cfg := &Config{
		Port:     r.str("PORT", "8080"),
		LogLevel: r.str("LOG_LEVEL", "info"),

		LLMProvider:          strings.ToLower(r.str("LLM_PROVIDER", "none")),
		GeminiAPIKey:         r.str("GEMINI_API_KEY", ""),
		GeminiModel:          r.str("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey:         r.str("OPENAI_API_KEY", ""),
		OpenAIModel:          r.str("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:        r.str("OPENAI_BASE_URL", ""),
		OpenAIEmbeddingModel: r.str("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		LLMTimeout:           r.duration("LLM_TIMEOUT", 30*time.Second),

		OpenTripMapAPIKey: r.str("OPENTRIPMAP_API_KEY", ""),
		POITimeout:        r.duration("POI_TIMEOUT", 10*time.Second),
		POIRetries:        r.integer("POI_RETRIES", 2),
		POIRadiusMeters:   r.integer("POI_RADIUS_METERS", 5000),
		POILimit:          r.integer("POI_LIMIT", 40),
		POICacheTTL:       r.duration("POI_CACHE_TTL", 30*time.Minute),
		RedisURL:          r.str("REDIS_URL", ""),
		PostgresURL:       r.str("POSTGRES_URL", ""),
		MapboxToken:       r.str("MAPBOX_ACCESS_TOKEN", ""),

		SessionTTL:           r.duration("SESSION_TTL", 2*time.Hour),
		SessionSweepInterval: r.duration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		ClarificationCap:     r.integer("CLARIFICATION_CAP", 6),
		DefaultDestination:   r.str("DEFAULT_DESTINATION", "Paris"),
		DayStart:             r.str("DAY_START", "09:00"),
		DayEnd:               r.str("DAY_END", "21:00"),
		GroundingPatterns:    r.list("GROUNDING_PATTERNS", nil),

		ExportWebhookURL: r.str("EXPORT_WEBHOOK_URL", ""),
		ExportTimeout:    r.duration("EXPORT_TIMEOUT", 15*time.Second),
	}
	if r.err != nil {
		return nil, r.err
	}
	if cfg.ClarificationCap < 1 {
		return nil, fmt.Errorf("CLARIFICATION_CAP must be positive, got %d", cfg.ClarificationCap)
	}
	return cfg, nil
}

type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	if err != nil {
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		if r.err == nil {
			r.err = fmt.Errorf("%s: %w", key, err)
		}
		return def
	}
	return d
}

func (r *reader) list(key string, def []string) []string {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
