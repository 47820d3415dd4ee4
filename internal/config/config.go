package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultOpenAIModel = "gpt-5-mini"
	DefaultGeminiModel = "gemini-1.5-flash-latest"
)

// DBSettings holds the connection parameters of one external database vendor.
// For Oracle, Database carries the service name.
type DBSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Driver   string
}

type ExternalDBConfig struct {
	Type           string
	MySQL          DBSettings
	Postgres       DBSettings
	Oracle         DBSettings
	SQLServer      DBSettings
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

// NormalizeDBType maps TYPE_DB spellings to mysql, postgresql, oracle or
// sqlserver. Unknown values are returned lowercased.
func NormalizeDBType(s string) string {
	switch t := strings.ToLower(strings.TrimSpace(s)); t {
	case "postgres", "pg":
		return "postgresql"
	case "mssql":
		return "sqlserver"
	default:
		return t
	}
}

// Settings returns the parameters for the configured vendor.
func (c ExternalDBConfig) Settings() DBSettings {
	switch NormalizeDBType(c.Type) {
	case "postgresql":
		return c.Postgres
	case "oracle":
		return c.Oracle
	case "sqlserver":
		return c.SQLServer
	default:
		return c.MySQL
	}
}

type LLMConfig struct {
	Provider      string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiAPIKey  string
	GeminiModel   string
	// Temperature is nil unless LLM_TEMPERATURE is set.
	Temperature *float32
	Timeout     time.Duration
}

type PromptConfig struct {
	BusinessRules    string
	AnswerStyle      string
	SchemaFilterJSON string
}

type HistoryConfig struct {
	DatabaseURL    string
	MaxHistoryRows int
	MaxSessions    int
	KeepLastPairs  int
}

type Config struct {
	HTTPPort  string
	LogLevel  string
	LogMode   string
	AskToken  string
	JWTSecret string

	LLM            LLMConfig
	Prompts        PromptConfig
	ExternalDB     ExternalDBConfig
	History        HistoryConfig
	SchemaCacheTTL time.Duration

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

// LoadConfig reads the optional .env file and the process environment once
// and validates the result.
func LoadConfig() (*Config, error) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration without validating it.
func Load() *Config {
	envErr := godotenv.Load()

	return &Config{
		HTTPPort:  getEnv("HTTP_PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogMode:   getEnv("LOG_MODE", "development"),
		AskToken:  getEnv("ASK_BEARER_TOKEN", ""),
		JWTSecret: getEnv("JWT_SECRET", ""),
		LLM: LLMConfig{
			Provider:      strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", DefaultOpenAIModel),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", DefaultGeminiModel),
			Temperature:   getEnvAsFloat32Ptr("LLM_TEMPERATURE"),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 0),
		},
		Prompts: PromptConfig{
			BusinessRules:    strings.TrimSpace(getEnv("BUSINESS_RULES_PROMPT", "")),
			AnswerStyle:      strings.TrimSpace(getEnv("ANSWER_PROMPT", "")),
			SchemaFilterJSON: strings.TrimSpace(getEnv("SCHEMA_FILTER_JSON", "")),
		},
		ExternalDB: ExternalDBConfig{
			Type: NormalizeDBType(getEnv("TYPE_DB", "mysql")),
			MySQL: DBSettings{
				Host:     getEnv("EXT_MYSQL_HOST", ""),
				Port:     getEnvAsInt("EXT_MYSQL_PORT", 3306),
				User:     getEnv("EXT_MYSQL_USER", ""),
				Password: getEnv("EXT_MYSQL_PASSWORD", ""),
				Database: getEnv("EXT_MYSQL_DB", ""),
				Driver:   "mysql",
			},
			Postgres: DBSettings{
				Host:     getEnv("EXT_PG_HOST", ""),
				Port:     getEnvAsInt("EXT_PG_PORT", 5432),
				User:     getEnv("EXT_PG_USER", ""),
				Password: getEnv("EXT_PG_PASSWORD", ""),
				Database: getEnv("EXT_PG_DB", ""),
				Driver:   "pgx",
			},
			Oracle: DBSettings{
				Host:     getEnv("EXT_ORACLE_HOST", ""),
				Port:     getEnvAsInt("EXT_ORACLE_PORT", 1521),
				User:     getEnv("EXT_ORACLE_USER", ""),
				Password: getEnv("EXT_ORACLE_PASSWORD", ""),
				Database: getEnv("EXT_ORACLE_SERVICE", ""),
				Driver:   "oracle",
			},
			SQLServer: DBSettings{
				Host:     getEnv("EXT_MSSQL_HOST", ""),
				Port:     getEnvAsInt("EXT_MSSQL_PORT", 1433),
				User:     getEnv("EXT_MSSQL_USER", ""),
				Password: getEnv("EXT_MSSQL_PASSWORD", ""),
				Database: getEnv("EXT_MSSQL_DB", ""),
				Driver:   getEnv("EXT_MSSQL_DRIVER", "sqlserver"),
			},
			ConnectTimeout: getEnvAsDuration("EXT_CONNECT_TIMEOUT", 5*time.Second),
			QueryTimeout:   getEnvAsDuration("QUERY_TIMEOUT", 0),
		},
		History: HistoryConfig{
			DatabaseURL:    getEnv("HISTORY_DATABASE_URL", "askdb_history.db"),
			MaxHistoryRows: getEnvAsInt("MAX_HISTORY_ROWS", 500),
			MaxSessions:    getEnvAsInt("MAX_SESSIONS", 100),
			KeepLastPairs:  getEnvAsInt("HISTORY_KEEP_LAST_PAIRS", 5),
		},
		SchemaCacheTTL: getEnvAsDuration("SCHEMA_CACHE_TTL", 5*time.Minute),
		EnvFileLoaded:  envErr == nil,
	}
}

// Validate checks the settings that would otherwise fail on the first request.
func (c *Config) Validate() error {
	switch NormalizeDBType(c.ExternalDB.Type) {
	case "mysql", "postgresql", "oracle", "sqlserver":
	default:
		return fmt.Errorf("unsupported TYPE_DB %q", c.ExternalDB.Type)
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable is required")
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable is required")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLM.Provider)
	}
	return nil
}

// Model returns the model name of the selected LLM provider.
func (c LLMConfig) Model() string {
	if c.Provider == "gemini" {
		return c.GeminiModel
	}
	return c.OpenAIModel
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("30s") and bare seconds ("30").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsFloat32Ptr(key string) *float32 {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return nil
	}
	value, err := strconv.ParseFloat(valueStr, 32)
	if err != nil {
		return nil
	}
	f := float32(value)
	return &f
}
