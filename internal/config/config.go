// Package config defines the global configuration structure for the snowbrief
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup (fail fast).
package config

import "time"

// Config is the top-level configuration struct for the snowbrief service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Forecast ForecastConfig
	Weather  WeatherConfig
	AI       AIConfig
	Briefing BriefingConfig
	Security SecurityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"90s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// RedisConfig holds the weather snapshot cache connection settings.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// ForecastConfig holds avalanche.org upstream settings.
type ForecastConfig struct {
	BaseURL   string        `envconfig:"AVALANCHE_API_BASE_URL" default:"https://api.avalanche.org/v2/public" validate:"required,url"`
	UserAgent string        `envconfig:"AVALANCHE_API_USER_AGENT" default:"snowbrief (contact@snowbrief.app)"`
	Timeout   time.Duration `envconfig:"AVALANCHE_API_TIMEOUT" default:"15s"`
}

// WeatherConfig holds Open-Meteo upstream settings and the snapshot cache TTL.
type WeatherConfig struct {
	BaseURL  string        `envconfig:"OPENMETEO_BASE_URL" default:"https://api.open-meteo.com/v1" validate:"required,url"`
	Timeout  time.Duration `envconfig:"OPENMETEO_TIMEOUT" default:"15s"`
	CacheTTL time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"6h"`
}

// AIConfig holds the generative-language upstream settings.
type AIConfig struct {
	BaseURL string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta" validate:"required,url"`
	APIKey  string        `envconfig:"GEMINI_API_KEY" validate:"required"`
	Model   string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash-exp"`
	Timeout time.Duration `envconfig:"GEMINI_TIMEOUT" default:"60s"`
}

// BriefingConfig holds the synthesis pipeline policy knobs.
type BriefingConfig struct {
	// PromptStyle selects the prompt contract variant: "standard" is the
	// friendly summary contract, "mentor" adds mandatory citations, a
	// disclaimer and a source URL to the oracle's output contract.
	PromptStyle string `envconfig:"BRIEFING_PROMPT_STYLE" default:"mentor" validate:"oneof=standard mentor"`

	// StalenessThreshold is the age beyond which forecast publish times and
	// cached briefings are flagged as stale.
	StalenessThreshold time.Duration `envconfig:"BRIEFING_STALENESS_THRESHOLD" default:"24h"`
}

// SecurityConfig holds cross-cutting HTTP security settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// PromptStyle values for BriefingConfig.PromptStyle.
const (
	PromptStyleStandard = "standard"
	PromptStyleMentor   = "mentor"
)
