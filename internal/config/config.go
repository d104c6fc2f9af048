package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"meaktask-api/internal/jwt"
	"meaktask-api/internal/password"
	"meaktask-api/internal/service"
)

// ErrConfiguration is returned by Validate for any unusable setting
var ErrConfiguration = errors.New("invalid configuration")

// Store backends
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

type Config struct {
	Port    string
	GinMode string

	AuthBackend  string // local or identity
	StoreBackend string // postgres, mongo or memory

	DatabaseURL    string
	MigrateOnStart bool // Apply goose migrations when serving with the postgres backend
	MongoURI       string
	MongoDatabase  string
	StoreTimeout   time.Duration // Bound on every credential store call

	RedisURL string        // Optional; enables the profile cache
	CacheTTL time.Duration // Lifetime of cached profiles

	JWTSecret string        // HS256 signing key
	JWTTTL    time.Duration // Token lifetime, from JWT_EXPIRE

	PasswordHasher string // bcrypt or argon2id
	BcryptCost     int

	IdentityURL    string
	IdentityAPIKey string

	RateLimitAuthRPS   float64 // Rate limit for auth endpoints (requests per second)
	RateLimitAuthBurst int     // Burst size for auth endpoints

	CORSOrigins []string

	LogFormat string
	LogLevel  string

	problems []string
}

// Load reads an optional .env file and then the environment. Values that fail
// to parse are reported by Validate.
func Load() *Config {
	cfg := &Config{}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		cfg.problems = append(cfg.problems, fmt.Sprintf(".env: %v", err))
	}

	cfg.Port = getEnv("PORT", "5000")
	cfg.GinMode = getEnv("GIN_MODE", "release")
	cfg.AuthBackend = strings.ToLower(getEnv("AUTH_BACKEND", service.BackendLocal))
	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", StorePostgres))
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.MigrateOnStart = cfg.getEnvBool("MIGRATE_ON_START", true)
	cfg.MongoURI = getEnv("MONGO_URI", "")
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", "meaktask")
	cfg.StoreTimeout = cfg.getEnvDuration("STORE_TIMEOUT", 5*time.Second)
	cfg.RedisURL = getEnv("REDIS_URL", "")
	cfg.CacheTTL = cfg.getEnvDuration("CACHE_TTL", 60*time.Second)
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTTTL = cfg.getEnvDuration("JWT_EXPIRE", 0) // required, no default
	cfg.PasswordHasher = strings.ToLower(getEnv("PASSWORD_HASHER", password.AlgorithmBcrypt))
	cfg.BcryptCost = cfg.getEnvInt("BCRYPT_COST", 10)
	cfg.IdentityURL = getEnv("IDENTITY_URL", "")
	cfg.IdentityAPIKey = getEnv("IDENTITY_API_KEY", "")
	cfg.RateLimitAuthRPS = cfg.getEnvFloat("RATE_LIMIT_AUTH_RPS", 5)
	cfg.RateLimitAuthBurst = cfg.getEnvInt("RATE_LIMIT_AUTH_BURST", 10)
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))
	cfg.LogFormat = getEnv("LOG_FORMAT", "json")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	return cfg
}

// Validate reports every problem at once, wrapped in ErrConfiguration
func (c *Config) Validate() error {
	problems := append([]string(nil), c.problems...)

	switch c.AuthBackend {
	case service.BackendLocal:
		if c.JWTSecret == "" {
			problems = append(problems, "JWT_SECRET is required")
		} else if len(c.JWTSecret) < jwt.MinSecretLength {
			problems = append(problems, fmt.Sprintf("JWT_SECRET must be at least %d bytes", jwt.MinSecretLength))
		}
		if c.JWTTTL <= 0 {
			problems = append(problems, "JWT_EXPIRE is required and must be positive")
		}

		switch c.StoreBackend {
		case StorePostgres:
			if c.DatabaseURL == "" {
				problems = append(problems, "DATABASE_URL is required for the postgres store")
			}
		case StoreMongo:
			if c.MongoURI == "" {
				problems = append(problems, "MONGO_URI is required for the mongo store")
			}
		case StoreMemory:
		default:
			problems = append(problems, fmt.Sprintf("STORE_BACKEND %q is not one of postgres, mongo, memory", c.StoreBackend))
		}

		switch c.PasswordHasher {
		case password.AlgorithmBcrypt, password.AlgorithmArgon2id:
		default:
			problems = append(problems, fmt.Sprintf("PASSWORD_HASHER %q is not one of bcrypt, argon2id", c.PasswordHasher))
		}
		if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
			problems = append(problems, fmt.Sprintf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
		}
	case service.BackendIdentity:
		if c.IdentityURL == "" {
			problems = append(problems, "IDENTITY_URL is required for the identity backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("AUTH_BACKEND %q is not one of local, identity", c.AuthBackend))
	}

	switch c.GinMode {
	case "debug", "release", "test":
	default:
		problems = append(problems, fmt.Sprintf("GIN_MODE %q is not one of debug, release, test", c.GinMode))
	}
	if c.StoreTimeout <= 0 {
		problems = append(problems, "STORE_TIMEOUT must be positive")
	}
	if c.RedisURL != "" && c.CacheTTL <= 0 {
		problems = append(problems, "CACHE_TTL must be positive")
	}
	if c.RateLimitAuthRPS <= 0 || c.RateLimitAuthBurst <= 0 {
		problems = append(problems, "RATE_LIMIT_AUTH_RPS and RATE_LIMIT_AUTH_BURST must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// ParseDuration accepts Go durations ("12h"), whole days ("30d") and bare seconds ("3600")
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", value)
		}
		return scale(n, 24*time.Hour, value)
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return scale(seconds, time.Second, value)
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return d, nil
}

// scale multiplies n by unit, rejecting results that do not fit in a Duration
func scale(n int, unit time.Duration, value string) (time.Duration, error) {
	limit := int64(math.MaxInt64 / unit)
	if int64(n) > limit || int64(n) < -limit {
		return 0, fmt.Errorf("duration %q is out of range", value)
	}
	return time.Duration(n) * unit, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("%s must be an integer", key))
		return defaultValue
	}
	return intValue
}

func (c *Config) getEnvFloat(key string, defaultValue float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("%s must be a number", key))
		return defaultValue
	}
	return floatValue
}

func (c *Config) getEnvBool(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("%s must be true or false", key))
		return defaultValue
	}
	return boolValue
}

func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := ParseDuration(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("%s: %v", key, err))
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
