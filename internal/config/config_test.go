package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "SIGNUP_BONUS", "REFERRAL_BONUS", "ADMIN_IDS", "REDIS_ADDR", "KAFKA_ENABLED", "KAFKA_BROKERS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "hookah_lounge.db", cfg.Database.Path)
	assert.Equal(t, int64(100), cfg.Business.SignupBonus)
	assert.Equal(t, int64(100), cfg.Business.ReferralBonus)
	assert.Equal(t, "Europe/Moscow", cfg.Business.Timezone)
	assert.Empty(t, cfg.Business.AdminIDs)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 10*time.Second, cfg.Redis.ShiftLockTTL)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ADMIN_IDS", "111, 222,bogus,,333")
	t.Setenv("SIGNUP_BONUS", "50")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("SHIFT_LOCK_TTL_SECONDS", "3")

	cfg := Load()

	assert.Equal(t, []int64{111, 222, 333}, cfg.Business.AdminIDs)
	assert.Equal(t, int64(50), cfg.Business.SignupBonus)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Redis.ShiftLockTTL)
	assert.True(t, cfg.Business.IsAdmin(222))
	assert.False(t, cfg.Business.IsAdmin(444))
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("REFERRAL_BONUS", "lots")
	t.Setenv("DB_SEED_DATA", "maybe")

	cfg := Load()

	assert.Equal(t, int64(100), cfg.Business.ReferralBonus)
	assert.True(t, cfg.Database.SeedData)
}
