package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Business BusinessConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Path     string
	SeedData bool
}

// BusinessConfig holds the venue rules the ledger applies.
type BusinessConfig struct {
	Timezone      string
	AdminIDs      []int64
	SignupBonus   int64
	ReferralBonus int64
	BotUsername   string
}

// RedisConfig is optional: an empty Addr keeps the shift lock in-process.
type RedisConfig struct {
	Addr         string
	ShiftLockTTL time.Duration
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
	Enabled     bool
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Path:     getEnv("DB_PATH", "hookah_lounge.db"),
			SeedData: getEnvBool("DB_SEED_DATA", true),
		},
		Business: BusinessConfig{
			Timezone:      getEnv("BUSINESS_TIMEZONE", "Europe/Moscow"),
			AdminIDs:      getEnvIDs("ADMIN_IDS"),
			SignupBonus:   int64(getEnvInt("SIGNUP_BONUS", 100)),
			ReferralBonus: int64(getEnvInt("REFERRAL_BONUS", 100)),
			BotUsername:   getEnv("BOT_USERNAME", "hookah_lounge_bot"),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", ""),
			ShiftLockTTL: time.Duration(getEnvInt("SHIFT_LOCK_TTL_SECONDS", 10)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "lounge"),
			Enabled:     getEnvBool("KAFKA_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  time.Duration(getEnvInt("JWT_TTL_HOURS", 12)) * time.Hour,
		},
	}
}

// IsAdmin reports whether the chat-platform id is in ADMIN_IDS.
func (b BusinessConfig) IsAdmin(externalID int64) bool {
	for _, id := range b.AdminIDs {
		if id == externalID {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvIDs parses a comma separated id list, skipping malformed entries.
func getEnvIDs(key string) []int64 {
	var ids []int64
	for _, part := range getEnvList(key, nil) {
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
