package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the server configuration.
type Config struct {
	Host         string
	Port         string
	SQLiteDBPath string
	PostgresDSN  string
	NodeEnv      string

	CalendarConfigPath string
	CalendarLocation   string

	JWTSecret               string
	JWTAccessTokenExpirySec int

	RegenerateLockRedisAddr string
	RegenerateLockTTLSec    int

	AMQPURL            string
	AMQPExchange       string
	InvariantSweepCron string
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	host := envString("HOST", "0.0.0.0")
	port := envString("PORT", "9000")
	sqlitePath := envString("SQLITE_DB_PATH", "./data/scheduler.db")
	postgresDSN := envString("POSTGRES_DSN", "")
	nodeEnv := envString("NODE_ENV", "development")

	calendarConfigPath := envString("CALENDAR_CONFIG_PATH", "")
	calendarLocation := envString("CALENDAR_LOCATION", "Local")

	jwtSecret := envString("JWT_SECRET", "")
	jwtAccessExpiry := envInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)

	regenLockRedisAddr := envString("REGENERATE_LOCK_REDIS_ADDR", "")
	regenLockTTL := envInt("REGENERATE_LOCK_TTL_SECONDS", 300)

	amqpURL := envString("AMQP_URL", "")
	amqpExchange := envString("AMQP_EXCHANGE", "scheduler.events")
	sweepCron := envString("INVARIANT_SWEEP_CRON", "0 2 * * *")

	if len(strings.TrimSpace(jwtSecret)) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	return Config{
		Host:                    host,
		Port:                    port,
		SQLiteDBPath:            sqlitePath,
		PostgresDSN:             postgresDSN,
		NodeEnv:                 nodeEnv,
		CalendarConfigPath:      calendarConfigPath,
		CalendarLocation:        calendarLocation,
		JWTSecret:               jwtSecret,
		JWTAccessTokenExpirySec: jwtAccessExpiry,
		RegenerateLockRedisAddr: regenLockRedisAddr,
		RegenerateLockTTLSec:    regenLockTTL,
		AMQPURL:                 amqpURL,
		AMQPExchange:            amqpExchange,
		InvariantSweepCron:      sweepCron,
	}, nil
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.EqualFold(val, "true")
}
