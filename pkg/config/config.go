package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Admin      AdminConfig
	CORS       CORSConfig
	Log        LogConfig
	Engine     EngineConfig
	Attendance AttendanceConfig
	Notify     NotifyConfig
	Reports    ReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// AdminConfig holds the single operator credential guarding enrollment,
// reporting, and settings endpoints.
type AdminConfig struct {
	Email        string
	PasswordHash string
	Password     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig points at the external face detection/recognition service.
type EngineConfig struct {
	BaseURL     string
	Timeout     time.Duration
	TrainingDir string
	ModelPath   string
	SampleSize  int
}

// AttendanceConfig tunes the recognition-to-ledger pipeline.
type AttendanceConfig struct {
	MatchThreshold   float64
	DebounceWindow   time.Duration
	NotifyOnCheckout bool
}

// NotifyConfig controls the WhatsApp notification sink.
type NotifyConfig struct {
	Simulate          bool
	APIBaseURL        string
	Timeout           time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// ReportsConfig controls report export behaviour.
type ReportsConfig struct {
	StorageDir string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.Admin = AdminConfig{
		Email:        v.GetString("ADMIN_EMAIL"),
		PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		Password:     v.GetString("ADMIN_PASSWORD"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Engine = EngineConfig{
		BaseURL:     v.GetString("ENGINE_BASE_URL"),
		Timeout:     parseDuration(v.GetString("ENGINE_TIMEOUT"), 30*time.Second),
		TrainingDir: v.GetString("ENGINE_TRAINING_DIR"),
		ModelPath:   v.GetString("ENGINE_MODEL_PATH"),
		SampleSize:  v.GetInt("ENGINE_SAMPLE_SIZE"),
	}

	cfg.Attendance = AttendanceConfig{
		MatchThreshold:   v.GetFloat64("ATTENDANCE_MATCH_THRESHOLD"),
		DebounceWindow:   parseDuration(v.GetString("ATTENDANCE_DEBOUNCE_WINDOW"), 10*time.Second),
		NotifyOnCheckout: v.GetBool("NOTIFY_ON_CHECKOUT"),
	}

	cfg.Notify = NotifyConfig{
		Simulate:          v.GetBool("NOTIFY_SIMULATE"),
		APIBaseURL:        v.GetString("NOTIFY_API_BASE_URL"),
		Timeout:           parseDuration(v.GetString("NOTIFY_TIMEOUT"), 10*time.Second),
		WorkerConcurrency: v.GetInt("NOTIFY_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("NOTIFY_WORKER_RETRIES"),
	}

	cfg.Reports = ReportsConfig{
		StorageDir: v.GetString("REPORTS_STORAGE_DIR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "face_attendance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ADMIN_EMAIL", "admin")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")
	v.SetDefault("ADMIN_PASSWORD", "admin123")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENGINE_BASE_URL", "http://localhost:5001")
	v.SetDefault("ENGINE_TIMEOUT", "30s")
	v.SetDefault("ENGINE_TRAINING_DIR", "./training_data")
	v.SetDefault("ENGINE_MODEL_PATH", "./models/recognizer.model")
	v.SetDefault("ENGINE_SAMPLE_SIZE", 200)

	v.SetDefault("ATTENDANCE_MATCH_THRESHOLD", 80.0)
	v.SetDefault("ATTENDANCE_DEBOUNCE_WINDOW", "10s")
	v.SetDefault("NOTIFY_ON_CHECKOUT", false)

	v.SetDefault("NOTIFY_SIMULATE", true)
	v.SetDefault("NOTIFY_API_BASE_URL", "https://graph.facebook.com/v17.0")
	v.SetDefault("NOTIFY_TIMEOUT", "10s")
	v.SetDefault("NOTIFY_WORKER_CONCURRENCY", 1)
	v.SetDefault("NOTIFY_WORKER_RETRIES", 3)

	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
