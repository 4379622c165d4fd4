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

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Gemini   GeminiConfig
	Storage  StorageConfig
	Worker   WorkerConfig
	Batch    BatchConfig
	Export   ExportConfig
	Broker   BrokerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig selects where uploads and runs are kept. Driver is "memory"
// (default) or "postgres".
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type GeminiConfig struct {
	APIKey          string
	DefaultModel    string
	Temperature     float32
	MaxOutputTokens int32
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type WorkerConfig struct {
	Concurrency int
	QueueSize   int
}

type BatchConfig struct {
	CandidateCooldown time.Duration
	RecruiterCooldown time.Duration
	ModelCooldown     time.Duration
	RetryMaxAttempts  int
	RetryBaseDelay    time.Duration
	RetryFinalDelay   time.Duration
}

// ExportConfig controls where exported shortlists are archived. With no
// bucket, exports go to LocalDir; with neither, they are only downloaded.
type ExportConfig struct {
	LocalDir  string
	Bucket    string
	Region    string
	Endpoint  string
	AccountID string
	AccessKey string
	SecretKey string
	PathStyle bool
}

type BrokerConfig struct {
	URL      string
	Exchange string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "memory")),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "fresalyzer"),
		},
		Gemini: GeminiConfig{
			APIKey:          getEnv("GEMINI_API_KEY", ""),
			DefaultModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Temperature:     getEnvAsFloat32("GEMINI_TEMPERATURE", 0.3),
			MaxOutputTokens: int32(getEnvAsInt("GEMINI_MAX_OUTPUT_TOKENS", 8192)),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 1),
			QueueSize:   getEnvAsInt("WORKER_QUEUE_SIZE", 100),
		},
		Batch: BatchConfig{
			CandidateCooldown: getEnvAsDuration("CANDIDATE_COOLDOWN", "60s"),
			RecruiterCooldown: getEnvAsDuration("RECRUITER_COOLDOWN", "5s"),
			ModelCooldown:     getEnvAsDuration("MODEL_COOLDOWN", "0s"),
			RetryMaxAttempts:  getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryBaseDelay:    getEnvAsDuration("RETRY_BASE_DELAY", "15s"),
			RetryFinalDelay:   getEnvAsDuration("RETRY_FINAL_DELAY", "60s"),
		},
		Export: ExportConfig{
			LocalDir:  getEnv("EXPORT_DIR", ""),
			Bucket:    getEnv("EXPORT_BUCKET", ""),
			Region:    getEnv("EXPORT_REGION", "auto"),
			Endpoint:  getEnv("EXPORT_ENDPOINT", ""),
			AccountID: getEnv("R2_ACCOUNT_ID", ""),
			AccessKey: getEnv("EXPORT_ACCESS_KEY", ""),
			SecretKey: getEnv("EXPORT_SECRET_KEY", ""),
			PathStyle: getEnvAsBool("EXPORT_PATH_STYLE", false),
		},
		Broker: BrokerConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "fresalyzer.progress"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func (c *Config) UsePostgres() bool {
	return c.Database.Driver == "postgres"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 32); err == nil {
		return float32(value)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
