package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/gorm/logger"

	importerrepo "github.com/belugamedia/beluga/internal/importer/repository"
	mediarepo "github.com/belugamedia/beluga/internal/media/repository"
	"github.com/belugamedia/beluga/pkg/database"
)

func main() {
	var (
		host     = flag.String("host", getEnv("DB_HOST", "localhost"), "Database host")
		port     = flag.Int("port", getEnvAsInt("DB_PORT", 5432), "Database port")
		user     = flag.String("user", getEnv("DB_USER", "beluga"), "Database user")
		password = flag.String("password", getEnv("DB_PASSWORD", "beluga_dev"), "Database password")
		dbname   = flag.String("dbname", getEnv("DB_NAME", "beluga_dev"), "Database name")
		sslmode  = flag.String("sslmode", getEnv("DB_SSLMODE", "disable"), "SSL mode")
	)
	flag.Parse()

	// Create database configuration
	cfg := &database.PostgresConfig{
		Host:     *host,
		Port:     *port,
		User:     *user,
		Password: *password,
		Database: *dbname,
		SSLMode:  *sslmode,
		LogLevel: logger.Info,
	}

	// Connect to database
	db, err := database.NewGormDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	fmt.Println("Running database migrations...")

	err = database.MigrateDatabase(db,
		&importerrepo.ImportReportModel{},
		&mediarepo.MetadataModel{},
		&mediarepo.SeenModel{},
		&mediarepo.ReviewModel{},
		&mediarepo.CollectionModel{},
		&mediarepo.CollectionEntryModel{},
		&mediarepo.SummaryJobModel{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	fmt.Println("Migrations completed successfully!")
}

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
