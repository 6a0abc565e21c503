package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SDKGenAI  = "genai"
	SDKLegacy = "legacy"
)

type Config struct {
	GeminiAPIKey    string
	GeminiSDK       string
	ProModel        string
	FlashModel      string
	ClassifierModel string
	ThinkingBudget  int32
	DatabaseURL     string
	HTTPPort        string
	LogLevel        string
	LogFormat       string
	JWTSecret       string
	SessionTTL      time.Duration
	PhaseDelays     [3]time.Duration // before COLLECTION, ANALYSIS, SYNTHESIS
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	AppConfig = cfg
}

// FromEnv reads the configuration from the process environment and validates it.
func FromEnv() (Config, error) {
	delays, err := parsePhaseDelays(getEnv("PHASE_DELAYS_MS", "1000,1200,1000"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiSDK:       strings.ToLower(getEnv("GEMINI_SDK", SDKGenAI)),
		ProModel:        getEnv("PRO_MODEL", "gemini-3-pro-preview"),
		FlashModel:      getEnv("FLASH_MODEL", "gemini-3-flash-preview"),
		ClassifierModel: getEnv("CLASSIFIER_MODEL", "gemini-3-flash-preview"),
		ThinkingBudget:  int32(getEnvAsInt("THINKING_BUDGET", 4096)),
		DatabaseURL:     getEnv("DATABASE_URL", "nexus_artifacts.db"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		SessionTTL:      time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		PhaseDelays:     delays,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.GeminiSDK != SDKGenAI && c.GeminiSDK != SDKLegacy {
		return fmt.Errorf("GEMINI_SDK must be %q or %q, got %q", SDKGenAI, SDKLegacy, c.GeminiSDK)
	}
	if c.ThinkingBudget < 0 {
		return fmt.Errorf("THINKING_BUDGET must not be negative")
	}
	return nil
}

func parsePhaseDelays(raw string) ([3]time.Duration, error) {
	var delays [3]time.Duration
	parts := strings.Split(raw, ",")
	if len(parts) != len(delays) {
		return delays, fmt.Errorf("PHASE_DELAYS_MS needs %d comma separated values, got %q", len(delays), raw)
	}
	for i, p := range parts {
		ms, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || ms < 0 {
			return delays, fmt.Errorf("invalid phase delay %q", p)
		}
		delays[i] = time.Duration(ms) * time.Millisecond
	}
	return delays, nil
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
