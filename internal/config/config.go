package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DevSecret signs tokens when JWT_SECRET is unset and ENV is explicitly
// development.
const DevSecret = "mwas-insecure-development-secret"

type Config struct {
	Env            string
	Port           string
	GRPCPort       string
	DBType         string
	MongoURI       string
	DatabaseURL    string
	RedisURL       string
	JWTSecret      string
	BcryptCost     int
	AllowedOrigins []string
	TrustedProxies []string
	AuthRateRPS    float64
	AuthRateBurst  int

	// InsecureSecret is set when the development fallback secret is in use.
	InsecureSecret bool
}

func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("ENV", "production"),
		Port:        getEnv("PORT", "3000"),
		GRPCPort:    getEnv("GRPC_PORT", "50051"),
		DBType:      strings.ToLower(getEnv("DB_TYPE", "mongo")),
		MongoURI:    getEnv("MONGODB_URI", "mongodb://localhost:27017/mwas"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}

	var err error
	if cfg.BcryptCost, err = getEnvInt("BCRYPT_COST", 10); err != nil {
		return nil, err
	}
	if cfg.AuthRateRPS, err = getEnvFloat("AUTH_RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.AuthRateBurst, err = getEnvInt("AUTH_RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}

	cfg.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", "*")
	cfg.TrustedProxies = getEnvList("TRUSTED_PROXIES", "")

	switch cfg.DBType {
	case "mongo", "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when DB_TYPE=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown DB_TYPE %q", cfg.DBType)
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("JWT_SECRET is required")
		}
		cfg.JWTSecret = DevSecret
		cfg.InsecureSecret = true
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, defaultValue), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
