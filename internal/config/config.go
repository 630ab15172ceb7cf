// Package config loads application configuration from environment
// variables.  A .env file in the working directory, when present, is
// loaded first and never overrides variables already set.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration of the floor layout service.
type Config struct {
	Env            string        // APP_ENV (dev, test, prod)
	Port           string        // APP_PORT
	DBUser         string        // DB_USER
	DBPass         string        // DB_PASS, may be empty
	DBHost         string        // DB_HOST
	DBPort         string        // DB_PORT
	DBName         string        // DB_NAME
	JWTSecret      string        // JWT_SECRET
	RabbitMQURL    string        // RABBITMQ_URL, empty disables event fan-out
	LogLevel       string        // LOG_LEVEL
	LogFormat      string        // LOG_FORMAT: json or console
	RequestTimeout time.Duration // REQUEST_TIMEOUT
}

// Load reads the configuration.  Missing required variables are fatal.
func Load() Config {
	LoadDotEnv()
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		LogFormat:      envStr("LOG_FORMAT", "json"),
		RequestTimeout: envDur("REQUEST_TIMEOUT", 5*time.Second),
	}
}

// LoadDotEnv loads ./.env if it exists.
func LoadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("config: .env not loaded: %v", err)
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
