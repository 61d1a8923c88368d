package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "http://localhost:3000/animaux", cfg.TargetURL)
	assert.Equal(t, "https://api.gbif.org/v1", cfg.GBIFURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.GBIFRateLimit)
	assert.Equal(t, "data/raw", cfg.RawDir)
	assert.Equal(t, "data/processed", cfg.ProcessedDir)
	assert.Equal(t, 100, cfg.MaxPerClass)
	assert.Equal(t, 500, cfg.MaxRecords)
	assert.False(t, cfg.Production)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ANIMALIA_TARGET_URL", "http://api.example.com/animaux")
	t.Setenv("ANIMALIA_HTTP_TIMEOUT", "5s")
	t.Setenv("ANIMALIA_MAX_PER_CLASS", "25")
	t.Setenv("ANIMALIA_PRODUCTION", "true")

	cfg := Load()

	assert.Equal(t, "http://api.example.com/animaux", cfg.TargetURL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 25, cfg.MaxPerClass)
	assert.True(t, cfg.Production)
}

func TestDisplay(t *testing.T) {
	var buf bytes.Buffer
	Load().Display(&buf)

	out := buf.String()
	assert.Contains(t, out, "target_url")
	assert.Contains(t, out, "https://api.gbif.org/v1")
}
