package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries every tunable of the pipeline and the target API server.
// Values come from ANIMALIA_* environment variables with sensible local
// defaults, e.g. ANIMALIA_TARGET_URL, ANIMALIA_HTTP_TIMEOUT.
type Config struct {
	// Target API (write side)
	TargetURL string // POST endpoint for validated records

	// GBIF (read side)
	GBIFURL       string        // GBIF API base URL
	GBIFRateLimit time.Duration // delay between paginated GBIF requests

	// Shared HTTP behaviour
	HTTPTimeout time.Duration // per-request timeout, both directions

	// Staging area
	RawDir       string // raw GBIF payloads
	ProcessedDir string // transformed / validated / rejected outputs

	// Bulk fetch bounds
	MaxPerClass int // species kept per taxonomic class
	MaxRecords  int // records scanned per class before giving up

	// Logging
	LogLevel   string
	Production bool // suppress verbose output, JSON logs

	// api-server
	DBPath     string
	ListenAddr string
}

// Load reads configuration from the environment.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("ANIMALIA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("target_url", "http://localhost:3000/animaux")
	v.SetDefault("gbif_url", "https://api.gbif.org/v1")
	v.SetDefault("gbif_rate_limit", 200*time.Millisecond)
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("raw_dir", "data/raw")
	v.SetDefault("processed_dir", "data/processed")
	v.SetDefault("max_per_class", 100)
	v.SetDefault("max_records", 500)
	v.SetDefault("log_level", "info")
	v.SetDefault("production", false)
	v.SetDefault("db_path", "")
	v.SetDefault("listen_addr", ":3000")

	return &Config{
		TargetURL:     v.GetString("target_url"),
		GBIFURL:       v.GetString("gbif_url"),
		GBIFRateLimit: v.GetDuration("gbif_rate_limit"),
		HTTPTimeout:   v.GetDuration("http_timeout"),
		RawDir:        v.GetString("raw_dir"),
		ProcessedDir:  v.GetString("processed_dir"),
		MaxPerClass:   v.GetInt("max_per_class"),
		MaxRecords:    v.GetInt("max_records"),
		LogLevel:      v.GetString("log_level"),
		Production:    v.GetBool("production"),
		DBPath:        v.GetString("db_path"),
		ListenAddr:    v.GetString("listen_addr"),
	}
}

// Display prints the active configuration, used at startup outside
// production mode so a run can be diagnosed from its output alone.
func (c *Config) Display(w io.Writer) {
	fmt.Fprintln(w, "animalia pipeline configuration:")
	fmt.Fprintf(w, "  target_url:      %s\n", c.TargetURL)
	fmt.Fprintf(w, "  gbif_url:        %s\n", c.GBIFURL)
	fmt.Fprintf(w, "  gbif_rate_limit: %s\n", c.GBIFRateLimit)
	fmt.Fprintf(w, "  http_timeout:    %s\n", c.HTTPTimeout)
	fmt.Fprintf(w, "  raw_dir:         %s\n", c.RawDir)
	fmt.Fprintf(w, "  processed_dir:   %s\n", c.ProcessedDir)
	fmt.Fprintf(w, "  max_per_class:   %d\n", c.MaxPerClass)
	fmt.Fprintf(w, "  max_records:     %d\n", c.MaxRecords)
	fmt.Fprintf(w, "  log_level:       %s\n", c.LogLevel)
	fmt.Fprintf(w, "  production:      %t\n", c.Production)
}
