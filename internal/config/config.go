// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server settings,
// logging, database paths, geofencing bounds, the consensus and scoring
// tunables, and observability switches.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// BoundsConfig is the municipal bounding region. Coordinates outside it are
// rejected at ingestion before any zone lookup happens.
type BoundsConfig struct {
	MinLat float64 // GEO_MIN_LAT
	MaxLat float64 // GEO_MAX_LAT
	MinLng float64 // GEO_MIN_LNG
	MaxLng float64 // GEO_MAX_LNG
}

// ConsensusConfig holds the status-aggregation tunables. A report's weight is
// 0.5^(age/HalfLife) while age < Window and exactly zero outside the window.
type ConsensusConfig struct {
	HalfLife          time.Duration // DECAY_HALF_LIFE
	Window            time.Duration // CONSENSUS_WINDOW
	ReconcileInterval time.Duration // RECONCILE_INTERVAL
}

// ScoringConfig holds the priority-score weights. The defaults are carried
// over from production as-is; they are empirically chosen and deliberately
// kept as configuration rather than hard-coded business rules.
type ScoringConfig struct {
	WVotes           float64       // SCORE_W_VOTES
	WReports         float64       // SCORE_W_REPORTS
	BonusStopped     float64       // SCORE_BONUS_STOPPED
	BonusMaintenance float64       // SCORE_BONUS_MAINTENANCE
	WAge             float64       // SCORE_W_AGE (per day since creation)
	Interval         time.Duration // SCORE_INTERVAL (full recompute cadence)
}

// QueueConfig holds client-side submission queue settings.
type QueueConfig struct {
	DBPath        string        // QUEUE_DB_PATH (device-local SQLite file)
	UploadTimeout time.Duration // QUEUE_UPLOAD_TIMEOUT (per-item deadline)
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool
	APIBasePath string

	// App
	DBPath            string // server SQLite path
	ZonesPath         string // GeoJSON file with zone geometries
	MaxDescriptionRunes int  // MAX_DESCRIPTION_RUNES

	// Domain tunables
	Bounds    BoundsConfig
	Consensus ConsensusConfig
	Scoring   ScoringConfig
	Queue     QueueConfig

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:              getenv("DB_PATH", "app.db"),
		ZonesPath:           getenv("ZONES_PATH", "data/zones.geojson"),
		MaxDescriptionRunes: getint("MAX_DESCRIPTION_RUNES", 2000),

		// Geofence: defaults cover the Darayya municipal area.
		Bounds: BoundsConfig{
			MinLat: getfloat("GEO_MIN_LAT", 33.40),
			MaxLat: getfloat("GEO_MAX_LAT", 33.50),
			MinLng: getfloat("GEO_MIN_LNG", 36.20),
			MaxLng: getfloat("GEO_MAX_LNG", 36.32),
		},

		Consensus: ConsensusConfig{
			HalfLife:          getdur("DECAY_HALF_LIFE", time.Hour),
			Window:            getdur("CONSENSUS_WINDOW", 2*time.Hour),
			ReconcileInterval: getdur("RECONCILE_INTERVAL", 10*time.Minute),
		},

		Scoring: ScoringConfig{
			WVotes:           getfloat("SCORE_W_VOTES", 0.5),
			WReports:         getfloat("SCORE_W_REPORTS", 10),
			BonusStopped:     getfloat("SCORE_BONUS_STOPPED", 50),
			BonusMaintenance: getfloat("SCORE_BONUS_MAINTENANCE", 20),
			WAge:             getfloat("SCORE_W_AGE", 1),
			Interval:         getdur("SCORE_INTERVAL", 24*time.Hour),
		},

		Queue: QueueConfig{
			DBPath:        getenv("QUEUE_DB_PATH", "queue.db"),
			UploadTimeout: getdur("QUEUE_UPLOAD_TIMEOUT", 10*time.Second),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "darayyaconnect-core"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.ZonesPath) == "" {
		return cfg, errors.New("ZONES_PATH must not be empty")
	}
	if cfg.MaxDescriptionRunes <= 0 {
		return cfg, errors.New("MAX_DESCRIPTION_RUNES must be > 0")
	}
	if cfg.Bounds.MinLat >= cfg.Bounds.MaxLat || cfg.Bounds.MinLng >= cfg.Bounds.MaxLng {
		return cfg, errors.New("GEO bounds must describe a non-empty region")
	}
	if cfg.Consensus.HalfLife <= 0 {
		return cfg, errors.New("DECAY_HALF_LIFE must be > 0")
	}
	if cfg.Consensus.Window <= 0 {
		return cfg, errors.New("CONSENSUS_WINDOW must be > 0")
	}
	if cfg.Consensus.ReconcileInterval <= 0 {
		return cfg, errors.New("RECONCILE_INTERVAL must be > 0")
	}
	if cfg.Scoring.Interval <= 0 {
		return cfg, errors.New("SCORE_INTERVAL must be > 0")
	}
	if cfg.Queue.UploadTimeout <= 0 {
		return cfg, errors.New("QUEUE_UPLOAD_TIMEOUT must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
