package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	SMTP       SMTPConfig
	LLM        LLMConfig
	Engine     EngineConfig
	Render     RenderConfig
	Confluence ConfluenceConfig
	Tracing    TracingConfig
}

type AppConfig struct {
	Name               string
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	// LogStore selects the session log backend: "postgres", "sqlite" or "none"
	LogStore   string
	Connection string
	SQLitePath string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
	NotifyTo   []string
}

// Enabled reports whether document-ready mails can be sent
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && len(c.NotifyTo) > 0
}

type LLMConfig struct {
	Provider         string // "ollama", "gemini", "groq", "openrouter", "mistral", "huggingface"
	FallbackProvider string
	RouterModel      string
	AssistantModel   string
	BaseURL          string
	OllamaBaseURL    string
	APIKeys          map[string]string
}

// APIKey returns the key configured for a provider
func (c LLMConfig) APIKey(provider string) string {
	return c.APIKeys[provider]
}

type EngineConfig struct {
	TurnTimeout    time.Duration
	PublishTimeout time.Duration
	LockWait       time.Duration
	SessionTTL     time.Duration
	SweepInterval  time.Duration
	TemplatesPath  string
}

type RenderConfig struct {
	OutputDir string
	Format    string // "md" or "html"
}

type ConfluenceConfig struct {
	URL      string
	Username string
	APIToken string
	SpaceKey string
	ParentID string
	Async    bool
}

// Enabled reports whether wiki publishing is configured
func (c ConfluenceConfig) Enabled() bool {
	return c.URL != "" && c.Username != "" && c.APIToken != ""
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Name:               getEnv("APP_NAME", "BA Assistant"),
			Port:               getEnv("APP_PORT", "8000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			LogStore:   getEnv("LOG_STORE", "sqlite"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			SQLitePath: getEnv("SQLITE_PATH", "data/sessions.db"),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "BA Assistant"),
			NotifyTo:   getEnvAsList("NOTIFY_RECIPIENTS"),
		},
		LLM: LLMConfig{
			Provider:         getEnv("LLM_PROVIDER", "groq"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			RouterModel:      getEnv("LLM_ROUTER_MODEL", ""),
			AssistantModel:   getEnv("LLM_ASSISTANT_MODEL", ""),
			BaseURL:          getEnv("LLM_BASE_URL", ""),
			OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			APIKeys: map[string]string{
				"gemini":      getEnv("GEMINI_API_KEY", ""),
				"groq":        getEnv("GROQ_API_KEY", ""),
				"openrouter":  getEnv("OPENROUTER_API_KEY", ""),
				"mistral":     getEnv("MISTRAL_API_KEY", ""),
				"huggingface": getEnv("HUGGINGFACE_API_KEY", ""),
			},
		},
		Engine: EngineConfig{
			TurnTimeout:    getEnvAsDuration("TURN_TIMEOUT", 3*time.Minute),
			PublishTimeout: getEnvAsDuration("PUBLISH_TIMEOUT", time.Minute),
			LockWait:       getEnvAsDuration("SESSION_LOCK_WAIT", 5*time.Minute),
			SessionTTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			SweepInterval:  getEnvAsDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
			TemplatesPath:  getEnv("TEMPLATES_PATH", ""),
		},
		Render: RenderConfig{
			OutputDir: getEnv("DOCS_DIR", "docs"),
			Format:    getEnv("DOCS_FORMAT", "md"),
		},
		Confluence: ConfluenceConfig{
			URL:      strings.TrimRight(getEnv("CONFLUENCE_URL", ""), "/"),
			Username: getEnv("CONFLUENCE_USERNAME", ""),
			APIToken: getEnv("CONFLUENCE_API_TOKEN", ""),
			SpaceKey: getEnv("CONFLUENCE_SPACE_KEY", "AI"),
			ParentID: getEnv("CONFLUENCE_PARENT_PAGE_ID", ""),
			Async:    getEnvAsBool("CONFLUENCE_ASYNC", false),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
