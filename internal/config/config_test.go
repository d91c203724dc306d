package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	t.Setenv("RATE_LIMIT_MAX", "")
	t.Setenv("PORT", "")

	cfg := Load()
	assert.Equal(t, EnvDevelopment, cfg.NodeEnv)
	assert.Equal(t, 200, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.EqualValues(t, 5*1024*1024, cfg.UploadMaxBytes)
	assert.Equal(t, "8080", cfg.Port)
}

func TestMongoURIByMode(t *testing.T) {
	cfg := &Config{
		NodeEnv:             EnvDevelopment,
		MongoDevelopmentURI: "mongodb://dev",
		MongoProductionURI:  "mongodb://prod",
	}
	assert.Equal(t, "mongodb://dev", cfg.MongoURI())

	cfg.NodeEnv = EnvProduction
	assert.Equal(t, "mongodb://prod", cfg.MongoURI())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnvIntFallback(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 7, getEnvInt("SOME_INT", 7))

	t.Setenv("SOME_INT", "42")
	assert.Equal(t, 42, getEnvInt("SOME_INT", 7))
}
