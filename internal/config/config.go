package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable read by LoadConfig.
const EnvPrefix = "ROJGAR_"

// insecureJWTSecret is the development default; Validate refuses it elsewhere.
const insecureJWTSecret = "supersecretkey"

type Config struct {
	Env           string        `yaml:"env" env:"ENV" envDefault:"development"`
	Addr          string        `yaml:"addr" env:"ADDR" envDefault:":8080"`
	JWTSecret     string        `yaml:"jwt_secret" env:"JWT_SECRET" envDefault:"supersecretkey"`
	APITimeout    time.Duration `yaml:"timeout" env:"TIMEOUT" envDefault:"15s"`
	DatabasePath  string        `yaml:"database_path" env:"DATABASE_PATH" envDefault:"rojgar.db"`
	TokenDuration time.Duration `yaml:"token_duration" env:"TOKEN_DURATION" envDefault:"1h"`
	RedisURL      string        `yaml:"redis_url" env:"REDIS_URL"`
	Workers       int           `yaml:"workers" env:"WORKERS" envDefault:"2"`
	LogLevel      string        `yaml:"log_level" env:"LOG_LEVEL" envDefault:"info"`

	MigrateOnStart bool `yaml:"migrate_on_start" env:"MIGRATE_ON_START" envDefault:"true"`

	// AdminEmails lists the accounts allowed on /admin/ai. Empty closes it.
	AdminEmails []string `yaml:"admin_emails" env:"ADMIN_EMAILS"`

	// APIURL is the base URL the web views and the CLI use to reach the API.
	APIURL string `yaml:"api_url" env:"API_URL" envDefault:"http://localhost:8080"`

	EngineConfig EngineConfig    `yaml:"engine" envPrefix:"ENGINE_"`
	Ollama       OllamaConfig    `yaml:"ollama" envPrefix:"OLLAMA_"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	Web          WebConfig       `yaml:"web" envPrefix:"WEB_"`
}

type EngineConfig struct {
	Model           string        `yaml:"model" env:"MODEL" envDefault:"llama3"`
	TemplateName    string        `yaml:"template_name" env:"TEMPLATE_NAME" envDefault:"questions"`
	TemplateVersion string        `yaml:"template_version" env:"TEMPLATE_VERSION" envDefault:"v1"`
	QuestionCount   int           `yaml:"question_count" env:"QUESTION_COUNT" envDefault:"5"`
	Timeout         time.Duration `yaml:"timeout" env:"TIMEOUT" envDefault:"60s"`
}

type OllamaConfig struct {
	BaseURL           string        `yaml:"base_url" env:"BASE_URL"`
	DefaultModelNames []string      `yaml:"models" env:"MODELS"`
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// Retries is the number of extra attempts after a failed call. Zero
	// means the default; a negative value disables retries.
	Retries                 int           `yaml:"retries" env:"RETRIES"`
	Backoff                 time.Duration `yaml:"backoff" env:"BACKOFF"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold" env:"CIRCUIT_FAILURE_THRESHOLD"`
	CircuitReset            time.Duration `yaml:"circuit_reset" env:"CIRCUIT_RESET"`
}

// RateLimitConfig applies to question generation only; it needs Redis.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED" envDefault:"true"`
	RPS     int  `yaml:"rps" env:"RPS" envDefault:"1"`
	Burst   int  `yaml:"burst" env:"BURST" envDefault:"5"`
}

type WebConfig struct {
	Addr         string        `yaml:"addr" env:"ADDR" envDefault:":3000"`
	CookieSecure bool          `yaml:"cookie_secure" env:"COOKIE_SECURE"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT" envDefault:"90s"`
	ChatHistory  int           `yaml:"chat_history" env:"CHAT_HISTORY" envDefault:"20"`
	ChatIdle     time.Duration `yaml:"chat_idle" env:"CHAT_IDLE" envDefault:"30m"`
	ChatSessions int           `yaml:"chat_sessions" env:"CHAT_SESSIONS" envDefault:"1000"`
}

// LoadConfig builds a Config from defaults and ROJGAR_* environment variables,
// then overlays the YAML file at path when one is given.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	return cfg, nil
}

// IsAdmin reports whether email belongs to a configured admin, ignoring case
// and surrounding space.
func (c *Config) IsAdmin(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, a := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(a), email) {
			return true
		}
	}
	return false
}

// IsDevelopment reports whether the process runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || strings.EqualFold(c.Env, "development")
}

// Validate checks server settings and fills Ollama defaults left unset.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	} else if c.JWTSecret == insecureJWTSecret && !c.IsDevelopment() {
		errs = append(errs, fmt.Errorf("jwt_secret uses the insecure default in %q environment", c.Env))
	}
	if c.TokenDuration <= 0 {
		errs = append(errs, errors.New("token_duration must be positive"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if strings.TrimSpace(c.EngineConfig.Model) == "" {
		errs = append(errs, errors.New("engine.model is required"))
	}
	if c.EngineConfig.QuestionCount <= 0 {
		c.EngineConfig.QuestionCount = 5
	}

	c.Ollama = c.Ollama.WithDefaults()

	return errors.Join(errs...)
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (o OllamaConfig) WithDefaults() OllamaConfig {
	if o.BaseURL == "" {
		o.BaseURL = "http://localhost:11434"
	}
	if len(o.DefaultModelNames) == 0 {
		o.DefaultModelNames = []string{"llama3"}
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	switch {
	case o.Retries == 0:
		o.Retries = 2
	case o.Retries < 0:
		o.Retries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = 500 * time.Millisecond
	}
	if o.CircuitFailureThreshold <= 0 {
		o.CircuitFailureThreshold = 5
	}
	if o.CircuitReset <= 0 {
		o.CircuitReset = 30 * time.Second
	}

	return o
}
