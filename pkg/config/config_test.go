package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StorageDriverLocal, cfg.Storage.Driver)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, DefaultObservationBounds(), cfg.Observations)
	assert.Contains(t, cfg.Files.AllowedMIMEs, "application/pdf")
	assert.Equal(t, int64(25*1024*1024), cfg.Files.MaxFileSizeBytes)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OBS_SYSTOLIC_MAX", "220")
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, 220.0, cfg.Observations.Systolic.Max)
	assert.Equal(t, 50.0, cfg.Observations.Systolic.Min)
	assert.Equal(t, StorageDriverS3, cfg.Storage.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	require.Len(t, cfg.CORS.AllowedOrigins, 2)
}

func TestRangeContains(t *testing.T) {
	r := Range{Min: 30, Max: 45}
	assert.True(t, r.Contains(30))
	assert.True(t, r.Contains(45))
	assert.False(t, r.Contains(45.1))
	assert.False(t, r.Contains(29.9))
}
