// Package config provides application-wide configuration loaded from env vars.
// All fields have safe defaults so the binaries run locally without any env setup.
package config

import (
	"os"
	"strconv"
)

// Config holds runtime configuration for the finbench services.
type Config struct {
	// Service bind addresses
	Host            string // FINBENCH_HOST — default: "127.0.0.1"
	ToolsPort       int    // TOOLS_PORT — default: 7001
	EvaluatorPort   int    // GREEN_PORT — default: 7002
	ParticipantPort int    // PURPLE_PORT — default: 7003

	// Cross-service addresses
	ToolsBaseURL string // TOOLS_BASE_URL — default: "http://127.0.0.1:7001"

	// Tool hub
	SerpAPIKey string // SERPAPI_KEY — empty means the free fallback backend is used

	// Evaluator artifacts
	OutputDir string // AB_OUTPUT_DIR — default: "/outputs"
	DBPath    string // FINBENCH_DB_PATH — empty disables the run history store

	// Optional object-storage artifact upload (disabled unless endpoint is set)
	S3Endpoint  string // FINBENCH_S3_ENDPOINT
	S3AccessKey string // FINBENCH_S3_ACCESS_KEY
	S3SecretKey string // FINBENCH_S3_SECRET_KEY
	S3Bucket    string // FINBENCH_S3_BUCKET
	S3Prefix    string // FINBENCH_S3_PREFIX
}

const (
	envKeyHost            = "FINBENCH_HOST"
	envKeyToolsPort       = "TOOLS_PORT"
	envKeyEvaluatorPort   = "GREEN_PORT"
	envKeyParticipantPort = "PURPLE_PORT"
	envKeyToolsBaseURL    = "TOOLS_BASE_URL"
	envKeySerpAPIKey      = "SERPAPI_KEY"
	envKeyOutputDir       = "AB_OUTPUT_DIR"
	envKeyDBPath          = "FINBENCH_DB_PATH"
	envKeyS3Endpoint      = "FINBENCH_S3_ENDPOINT"
	envKeyS3AccessKey     = "FINBENCH_S3_ACCESS_KEY"
	envKeyS3SecretKey     = "FINBENCH_S3_SECRET_KEY"
	envKeyS3Bucket        = "FINBENCH_S3_BUCKET"
	envKeyS3Prefix        = "FINBENCH_S3_PREFIX"
)

// Load reads configuration from environment variables, applying defaults for missing values.
func Load() Config {
	return Config{
		Host:            envOr(envKeyHost, "127.0.0.1"),
		ToolsPort:       envIntOr(envKeyToolsPort, 7001),
		EvaluatorPort:   envIntOr(envKeyEvaluatorPort, 7002),
		ParticipantPort: envIntOr(envKeyParticipantPort, 7003),
		ToolsBaseURL:    envOr(envKeyToolsBaseURL, "http://127.0.0.1:7001"),
		SerpAPIKey:      os.Getenv(envKeySerpAPIKey),
		OutputDir:       envOr(envKeyOutputDir, "/outputs"),
		DBPath:          os.Getenv(envKeyDBPath),
		S3Endpoint:      os.Getenv(envKeyS3Endpoint),
		S3AccessKey:     os.Getenv(envKeyS3AccessKey),
		S3SecretKey:     os.Getenv(envKeyS3SecretKey),
		S3Bucket:        os.Getenv(envKeyS3Bucket),
		S3Prefix:        os.Getenv(envKeyS3Prefix),
	}
}

// UploadEnabled reports whether object-storage artifact upload is configured.
func (c Config) UploadEnabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr returns the value of the environment variable key parsed as a
// positive integer, or fallback if not set or invalid.
func envIntOr(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}
