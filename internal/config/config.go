package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type RateRule struct {
	Ceiling int64
	Window  time.Duration
}

type Config struct {
	ServerPort int
	LogLevel   string

	DatabaseURL string
	RedisAddr   string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	TokenLeeway      time.Duration

	PasswordMinLength int

	RateLogin         RateRule
	RateRegister      RateRule
	RatePasswordReset RateRule

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found, using system environment")
	}

	return &Config{
		ServerPort: envIntDefault("SERVER_PORT", 8080),
		LogLevel:   envDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   envDefault("REDIS_ADDR", "localhost:6379"),

		DBMaxOpenConns:    envIntDefault("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:    envIntDefault("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: envDurationDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		DBConnMaxIdleTime: envDurationDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		AccessTTL:        envDurationDefault("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:       envDurationDefault("REFRESH_TTL", 7*24*time.Hour),
		TokenLeeway:      envDurationDefault("TOKEN_LEEWAY", 0),

		PasswordMinLength: envIntDefault("PASSWORD_MIN_LENGTH", 12),

		RateLogin:         rateRule("LOGIN", 5, time.Minute),
		RateRegister:      rateRule("REGISTER", 3, time.Minute),
		RatePasswordReset: rateRule("PASSWORD_RESET", 3, time.Hour),

		KafkaBrokers: csv(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
	}
}

// MustValidate fails fast on missing secrets so a misconfigured process never
// starts issuing unsigned tokens.
func (c *Config) MustValidate() {
	mustNonEmpty(c.DatabaseURL, "DATABASE_URL")
	mustNonEmptyBytes(c.JWTAccessSecret, "JWT_SECRET")
	mustNonEmptyBytes(c.JWTRefreshSecret, "JWT_REFRESH_SECRET")
}

func rateRule(prefix string, defCeiling int64, defWindow time.Duration) RateRule {
	return RateRule{
		Ceiling: int64(envIntDefault("RATE_"+prefix+"_CEILING", int(defCeiling))),
		Window:  envDurationDefault("RATE_"+prefix+"_WINDOW", defWindow),
	}
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func mustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func mustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
