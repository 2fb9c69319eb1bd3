package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Credit ledger backends.
const (
	LedgerClerk    = "clerk"
	LedgerPostgres = "postgres"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string
	DefaultLocale  string
	GeoIPDBPath    string

	ClerkSecretKey string
	ClerkAPIURL    string
	ClerkJWKSURL   string

	ReplicateAPIToken string
	ReplicateModel    string
	ReplicateBaseURL  string

	OOTDSpaceURL     string
	HuggingFaceToken string

	GeminiAPIKey string
	GeminiModel  string

	CreditLedger string
	DatabaseURL  string
	FreeCredits  int

	ProviderTimeout  time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. Provider attempts run sequentially inside one
// request, so the write timeout must cover two provider calls plus the
// result fetch; the defaults keep that headroom.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		DefaultLocale:  getEnv("DEFAULT_LOCALE", "en"),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),

		ClerkSecretKey: os.Getenv("CLERK_SECRET_KEY"),
		ClerkAPIURL:    getEnv("CLERK_API_URL", "https://api.clerk.com/v1"),
		ClerkJWKSURL:   os.Getenv("CLERK_JWKS_URL"),

		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateModel:    getEnv("REPLICATE_MODEL", "google/nano-banana-pro"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),

		OOTDSpaceURL:     getEnv("OOTD_SPACE_URL", "https://levihsu-ootdiffusion.hf.space"),
		HuggingFaceToken: os.Getenv("HUGGING_FACE_TOKEN"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		CreditLedger: getEnv("CREDIT_LEDGER", LedgerClerk),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		FreeCredits:  getEnvInt("FREE_CREDITS", 3),

		ProviderTimeout:  time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 60)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.ClerkSecretKey == "" {
		return nil, fmt.Errorf("CLERK_SECRET_KEY is required")
	}
	if cfg.ReplicateAPIToken == "" {
		return nil, fmt.Errorf("REPLICATE_API_TOKEN is required")
	}
	if cfg.ClerkJWKSURL == "" {
		cfg.ClerkJWKSURL = strings.TrimRight(cfg.ClerkAPIURL, "/") + "/jwks"
	}

	switch cfg.CreditLedger {
	case LedgerClerk:
	case LedgerPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when CREDIT_LEDGER=postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported CREDIT_LEDGER %q", cfg.CreditLedger)
	}

	if cfg.FreeCredits < 0 {
		cfg.FreeCredits = 0
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
