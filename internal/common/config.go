package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/doc-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Upload     UploadConfig
	LLM        LLMConfig
	Extraction ExtractionConfig
	Log        LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            int
	GRPCHealthAddr  string
	CORSAllowOrigin string
	ShutdownTimeout time.Duration
}

// UploadConfig holds document staging configuration
type UploadConfig struct {
	Dir         string
	MaxUploadMB int
}

// MaxBytes is the upload limit in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxUploadMB) << 20
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	ProjectID       string
	Location        string
	APIKey          string
	ExtractionModel string
	AnalysisModel   string
	ThinkingBudget  int32
	Temperature     float32
	MaxAttempts     int
	RetryDelay      time.Duration
	AttemptTimeout  time.Duration
}

// ExtractionConfig holds orchestration toggles
type ExtractionConfig struct {
	ConfidenceReporting bool
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string
	Format string
}

const defaultModel = "gemini-2.5-flash"

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("PORT", 3001),
			GRPCHealthAddr:  getEnv("GRPC_HEALTH_ADDR", ""),
			CORSAllowOrigin: getEnv("CORS_ALLOW_ORIGIN", "*"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Upload: UploadConfig{
			Dir:         getEnv("UPLOAD_DIR", "uploads"),
			MaxUploadMB: getEnvAsInt("MAX_UPLOAD_MB", constants.MaxUploadMBDefault),
		},
		LLM: LLMConfig{
			ProjectID:       getEnv("GOOGLE_PROJECT_ID", ""),
			Location:        getEnv("GOOGLE_CLOUD_LOCATION", "global"),
			APIKey:          getEnv("GEMINI_API_KEY", ""),
			ExtractionModel: getEnv("GEMINI_EXTRACTION_MODEL", defaultModel),
			AnalysisModel:   getEnv("GEMINI_ANALYSIS_MODEL", defaultModel),
			ThinkingBudget:  getEnvAsInt32("GEMINI_THINKING_BUDGET", 0),
			Temperature:     getEnvAsFloat32("GEMINI_TEMPERATURE", 0.0),
			MaxAttempts:     getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
			RetryDelay:      getEnvAsDuration("LLM_RETRY_DELAY", time.Second),
			AttemptTimeout:  getEnvAsDuration("LLM_ATTEMPT_TIMEOUT", 60*time.Second),
		},
		Extraction: ExtractionConfig{
			ConfidenceReporting: getEnvAsBool("CONFIDENCE_REPORTING", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.ProjectID == "" && c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GOOGLE_PROJECT_ID or GEMINI_API_KEY is required", ErrInvalidInput)
	}
	if c.LLM.ExtractionModel == "" || c.LLM.AnalysisModel == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_EXTRACTION_MODEL and GEMINI_ANALYSIS_MODEL must not be empty", ErrInvalidInput)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewAppError("CONFIG_ERROR", "PORT must be between 1 and 65535", ErrInvalidInput)
	}
	if c.Upload.MaxUploadMB <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_UPLOAD_MB must be positive", ErrInvalidInput)
	}
	if c.LLM.MaxAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "LLM_MAX_ATTEMPTS must be at least 1", ErrInvalidInput)
	}
	if c.LLM.RetryDelay < 0 || c.LLM.AttemptTimeout < 0 {
		return NewAppError("CONFIG_ERROR", "LLM_RETRY_DELAY and LLM_ATTEMPT_TIMEOUT must not be negative", ErrInvalidInput)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "console":
	default:
		return NewAppError("CONFIG_ERROR", "LOG_FORMAT must be one of json, text, console", ErrInvalidInput)
	}
	return nil
}

// UsesVertex reports whether requests go through Vertex AI rather than the Gemini API.
func (c LLMConfig) UsesVertex() bool {
	return c.ProjectID != ""
}
