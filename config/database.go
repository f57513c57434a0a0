package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// DatabaseDSN builds the MySQL DSN from DB_HOST, DB_PORT, DB_DATABASE,
// DB_USERNAME and DB_PASSWORD.
func DatabaseDSN() string {
	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		os.Getenv("DB_USERNAME"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		dbPort,
		os.Getenv("DB_DATABASE"),
	)
}

// SQLLogLevel is Info, or Warn in production unless DEBUG_SQL=true.
func SQLLogLevel() logger.LogLevel {
	environment := strings.ToLower(os.Getenv("ENVIRONMENT"))
	debugSQL := strings.ToLower(os.Getenv("DEBUG_SQL"))
	if environment == "production" && debugSQL != "true" {
		return logger.Warn
	}
	return logger.Info
}

func InitDB() {
	var err error

	cfg := &gorm.Config{
		Logger: logger.New(
			log.New(LogWriter, "\r\n", log.LstdFlags),
			logger.Config{LogLevel: SQLLogLevel(), SlowThreshold: 500 * time.Millisecond},
		),
	}

	DB, err = gorm.Open(mysql.Open(DatabaseDSN()), cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("Failed to access database pool:", err)
	}
	sqlDB.SetMaxOpenConns(intEnv("DB_MAX_OPEN_CONNS", 25))
	sqlDB.SetMaxIdleConns(intEnv("DB_MAX_IDLE_CONNS", 5))
	sqlDB.SetConnMaxLifetime(durationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute))

	log.Println("Database connected successfully")
}

func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("config: invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return v
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("config: invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return v
}

func boolEnv(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	log.Printf("config: invalid %s=%q, using %t", key, os.Getenv(key), fallback)
	return fallback
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
