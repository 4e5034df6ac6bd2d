package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// devEncryptionKeyHex is only ever used outside production, when
// ENCRYPTION_KEY is unset. It is deliberately well-known and useless for
// protecting real data.
const devEncryptionKeyHex = "6465762d6f6e6c792d696e7365637572652d6b65792d646f2d6e6f742d757365"

// Config holds application configuration.
type Config struct {
	DatabaseURL       string
	Port              string
	IsProduction      bool
	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	// EncryptionKeyHex is the 64-hex-char AES-256 key protecting sensitive
	// loan fields at rest. Mandatory in production.
	EncryptionKeyHex string

	// Rate limit expressed in ulule/limiter format, e.g. "100-M".
	RateLimit string

	MigrationsPath string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "expense-tracker")
	viper.SetDefault("ENCRYPTION_KEY", "")
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiryDuration, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiryDuration = time.Hour
		log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiryDuration.String())
	}
	cfg.JWTExpiryDuration = jwtExpiryDuration
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.EncryptionKeyHex = viper.GetString("ENCRYPTION_KEY")
	if cfg.EncryptionKeyHex == "" {
		if cfg.IsProduction {
			// Key absence in production is a fatal configuration error: the
			// sealed bundles would be unreadable or written with a known key.
			return nil, fmt.Errorf("ENCRYPTION_KEY must be set in production")
		}
		log.Println("Warning: ENCRYPTION_KEY not set. Using the built-in development key. THIS IS NOT FOR PRODUCTION.")
		cfg.EncryptionKeyHex = devEncryptionKeyHex
	}

	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")

	return cfg, nil
}
