package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	JWTSecret       string
	ServerPort      string
	CORSOrigin      string
	TokenTTL        time.Duration
	SessionTokenTTL time.Duration
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", "postgres"),
		DBName:          getEnv("DB_NAME", "traintrack"),
		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		TokenTTL:        getEnvHours("TOKEN_TTL_HOURS", 72),
		SessionTokenTTL: getEnvHours("SESSION_TOKEN_TTL_HOURS", 4),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvHours(key string, defaultHours int) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if h, err := strconv.Atoi(value); err == nil {
			return time.Duration(h) * time.Hour
		}
	}
	return time.Duration(defaultHours) * time.Hour
}
