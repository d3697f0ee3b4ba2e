package app

import (
	"os"
	"strconv"
	"time"
)

// Config collects the env-driven policy knobs. Everything has a default so a
// bare environment still boots for local development.
type Config struct {
	MaxShift          time.Duration
	AccuracyCeilingM  float64
	IdempotencyWindow time.Duration
	SweepInterval     time.Duration
	JobCacheTTL       time.Duration
	AttestationSecret string
}

func LoadConfig() Config {
	return Config{
		MaxShift:          time.Duration(envInt("MAX_SHIFT_HOURS", 12)) * time.Hour,
		AccuracyCeilingM:  envFloat("GPS_ACCURACY_MAX_METERS", 50),
		IdempotencyWindow: time.Duration(envInt("IDEMPOTENCY_WINDOW_HOURS", 24)) * time.Hour,
		SweepInterval:     time.Duration(envInt("SWEEP_INTERVAL_MINUTES", 15)) * time.Minute,
		JobCacheTTL:       time.Duration(envInt("JOB_CACHE_TTL_SECONDS", 300)) * time.Second,
		AttestationSecret: os.Getenv("ATTESTATION_SECRET"),
	}
}

func envInt(key string, def int) int {
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

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
