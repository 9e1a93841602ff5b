package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel  string
	LogFormat string

	// Remote code runner (Piston-compatible API).
	ExecutorURL             string
	ExecutorTimeout         time.Duration
	ExecutorRatePerSecond   float64
	ExecutorBurst           int
	ExecutorThrottleRetries int
	ExecutorRetryDelay      time.Duration

	SubmitLockTTL        time.Duration
	LocalStateTTL        time.Duration
	ExpirySweepInterval  time.Duration
	ExpirySweepBatchSize int
	LeaderboardCacheTTL  time.Duration
}

var AppConfig *Config

// Load reads envFile (if present) and then the process environment.
func Load(envFile string) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("No %s file found, relying on environment variables", envFile)
	}

	AppConfig = &Config{
		APIPort:    getEnv("API_PORT", "8080"),
		JWTKey:     []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:     time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "quiz_app_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		ExecutorURL:             getEnv("EXECUTOR_URL", "https://emkc.org/api/v2/piston"),
		ExecutorTimeout:         getEnvAsDuration("EXECUTOR_TIMEOUT_SECONDS", 15, time.Second),
		ExecutorRatePerSecond:   getEnvAsFloat("EXECUTOR_RATE_PER_SECOND", 1),
		ExecutorBurst:           getEnvAsInt("EXECUTOR_BURST", 1),
		ExecutorThrottleRetries: getEnvAsInt("EXECUTOR_THROTTLE_RETRIES", 3),
		ExecutorRetryDelay:      getEnvAsDuration("EXECUTOR_RETRY_DELAY_MS", 1000, time.Millisecond),

		SubmitLockTTL:        getEnvAsDuration("SUBMIT_LOCK_TTL_SECONDS", 300, time.Second),
		LocalStateTTL:        getEnvAsDuration("LOCAL_STATE_TTL_HOURS", 7*24, time.Hour),
		ExpirySweepInterval:  getEnvAsDuration("EXPIRY_SWEEP_INTERVAL_MS", 1000, time.Millisecond),
		ExpirySweepBatchSize: getEnvAsInt("EXPIRY_SWEEP_BATCH_SIZE", 50),
		LeaderboardCacheTTL:  getEnvAsDuration("LEADERBOARD_CACHE_TTL_SECONDS", 30, time.Second),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration reads an integer count of unit.
func getEnvAsDuration(key string, fallback int, unit time.Duration) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * unit
}
