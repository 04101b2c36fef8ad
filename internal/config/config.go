package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings read from the environment.
type Config struct {
	FFmpegPath   string
	FFprobePath  string
	Workers      int
	StageTimeout time.Duration
	ProbeTimeout time.Duration
	TempDir      string
	LogLevel     string
	LogFile      string
	Development  bool

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MinioPrefix    string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// DefaultWorkers is NumCPU capped at 4; each worker runs one ffmpeg process.
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n > 4 {
		n = 4
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Load reads envFiles (".env" when none are given) and then the environment.
// A missing env file is not an error; existing variables are never
// overridden by file values.
func Load(envFiles ...string) *Config {
	_ = godotenv.Load(envFiles...)
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	workers := getEnvInt("VOICEPREP_WORKERS", DefaultWorkers())
	if workers < 1 {
		workers = DefaultWorkers()
	}

	return &Config{
		FFmpegPath:   getEnv("VOICEPREP_FFMPEG", ""),
		FFprobePath:  getEnv("VOICEPREP_FFPROBE", ""),
		Workers:      workers,
		StageTimeout: getEnvDuration("VOICEPREP_STAGE_TIMEOUT", 10*time.Minute),
		ProbeTimeout: getEnvDuration("VOICEPREP_PROBE_TIMEOUT", 30*time.Second),
		TempDir:      getEnv("VOICEPREP_TEMP_DIR", ""),
		LogLevel:     getEnv("VOICEPREP_LOG_LEVEL", "warn"),
		LogFile:      getEnv("VOICEPREP_LOG_FILE", ""),
		Development:  getEnvBool("VOICEPREP_DEV", false),

		MinioEndpoint:  getEnv("VOICEPREP_MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("VOICEPREP_MINIO_ACCESS_KEY", ""),
		MinioSecretKey: os.Getenv("VOICEPREP_MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("VOICEPREP_MINIO_BUCKET", "voiceprep"),
		MinioRegion:    getEnv("VOICEPREP_MINIO_REGION", ""),
		MinioUseSSL:    getEnvBool("VOICEPREP_MINIO_USE_SSL", false),
		MinioPrefix:    getEnv("VOICEPREP_MINIO_PREFIX", "processed"),
	}
}
