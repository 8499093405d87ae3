package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Queue configuration
	Queue QueueConfig

	// NATS configuration
	NATS NATSConfig

	// Kafka configuration
	Kafka KafkaConfig

	// Importer configuration
	Importer ImporterConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Environment  string
	ServiceName  string
	LogLevel     string
	ShutdownTime time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// QueueConfig selects the job queue backend
type QueueConfig struct {
	Backend string // nats, kafka or memory
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL           string
	ClientID      string
	ConsumerName  string
	MaxReconnect  int
	ReconnectWait time.Duration
	AckWait       time.Duration
	MaxDeliver    int
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// ImporterConfig holds importer pipeline configuration
type ImporterConfig struct {
	Concurrency    int
	StaleThreshold time.Duration
	SweepInterval  time.Duration
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			ShutdownTime: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "beluga"),
			Password:     getEnv("DB_PASSWORD", "beluga"),
			Database:     getEnv("DB_NAME", "beluga"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Queue: QueueConfig{
			Backend: getEnv("QUEUE_BACKEND", "nats"),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			ClientID:      fmt.Sprintf("%s-%s", serviceName, getEnv("HOSTNAME", "local")),
			ConsumerName:  fmt.Sprintf("%s-durable", serviceName),
			MaxReconnect:  getEnvAsInt("NATS_MAX_RECONNECT", 60),
			ReconnectWait: getEnvAsDuration("NATS_RECONNECT_WAIT", 2*time.Second),
			AckWait:       getEnvAsDuration("NATS_ACK_WAIT", 5*time.Minute),
			MaxDeliver:    getEnvAsInt("NATS_MAX_DELIVER", 5),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Topic:   getEnv("KAFKA_TOPIC", "import-jobs"),
			GroupID: getEnv("KAFKA_GROUP_ID", fmt.Sprintf("%s-group", serviceName)),
		},
		Importer: ImporterConfig{
			Concurrency:    getEnvAsInt("IMPORTER_CONCURRENCY", 4),
			StaleThreshold: getEnvAsDuration("IMPORTER_STALE_THRESHOLD", 24*time.Hour),
			SweepInterval:  getEnvAsDuration("IMPORTER_SWEEP_INTERVAL", time.Hour),
		},
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return defaultValue
}

// DSN returns the database connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}
