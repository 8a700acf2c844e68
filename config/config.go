package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"telereach/models"
)

var (
	DB        *gorm.DB
	RDB       *redis.Client
	AppConfig Config
)

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type Config struct {
	Environment       string      `json:"environment"`
	ServerPort        string      `json:"server_port"`
	DBHost            string      `json:"db_host"`
	DBPort            string      `json:"db_port"`
	DBUser            string      `json:"db_user"`
	DBPassword        string      `json:"-"`
	DBName            string      `json:"db_name"`
	DBSSLMode         string      `json:"db_ssl_mode"`
	DBMaxIdleConns    int         `json:"db_max_idle_conns"`
	DBMaxOpenConns    int         `json:"db_max_open_conns"`
	Redis             RedisConfig `json:"redis"`
	EncryptionKey     string      `json:"-"`
	SentryDSN         string      `json:"-"`
	GatewayURL        string      `json:"gateway_url"`
	GatewayTimeout    time.Duration
	StreamKey         string `json:"stream_key"`
	ConsumerGroup     string `json:"consumer_group"`
	WorkerCount       int    `json:"worker_count"`
	SchedulerEnabled  bool   `json:"scheduler_enabled"`
	SchedulerInterval time.Duration
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		ServerPort:        getEnv("SERVER_PORT", "8000"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "telereach"),
		DBSSLMode:         getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		EncryptionKey:     getEnv("ENCRYPTION_KEY", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		GatewayURL:        getEnv("GATEWAY_URL", "http://localhost:8081"),
		GatewayTimeout:    time.Duration(getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
		StreamKey:         getEnv("STREAM_KEY", "telereach:events"),
		ConsumerGroup:     getEnv("CONSUMER_GROUP", "campaign_workers"),
		WorkerCount:       getEnvAsInt("WORKER_COUNT", 1),
		SchedulerEnabled:  getEnvAsBool("SCHEDULER_ENABLED", true),
		SchedulerInterval: time.Duration(getEnvAsInt("SCHEDULER_INTERVAL_SECONDS", 60)) * time.Second,
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
	}

	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}

	return nil
}

func ConnectDB() error {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)

	if err := models.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	DB = db
	log.Println("Database connected and migrated")
	return nil
}

func ConnectRedis() error {
	RDB = redis.NewClient(&redis.Options{
		Addr:     AppConfig.Redis.Address,
		Password: AppConfig.Redis.Password,
		DB:       AppConfig.Redis.DB,
	})
	return nil
}

func getEnv(key, defaultValue string) string {
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
