// Package config loads and holds all pipeline configuration.
// Settings are layered: defaults → corpus-config.json → environment variables (env vars win).
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// Config holds tunables shared across the filter, dedup, minhash, tokenize,
// and fetch subcommands. Not every field applies to every subcommand; unused
// fields are simply ignored by the stage that doesn't need them.
type Config struct {
	LogLevel string `json:"logLevel"`

	// C5 filter orchestrator
	FilterWorkers  int `json:"filterWorkers"`  // 0 = min(NumCPU, ceil(shards/2))
	MaxShards      int `json:"maxShards"`      // 0 = unlimited
	NSFWThreshold  float64 `json:"nsfwThreshold"`
	ToxicThreshold float64 `json:"toxicThreshold"`

	// C6 exact-line dedup
	TableSize    int64 `json:"tableSize"`    // N, number of counter slots
	SaturationCap int  `json:"saturationCap"` // C
	DedupWorkers int   `json:"dedupWorkers"`

	// C7 MinHash
	NumHashes        int     `json:"numHashes"`        // H
	NumBands         int     `json:"numBands"`         // B
	NgramSize        int     `json:"ngramSize"`         // k
	JaccardThreshold float64 `json:"jaccardThreshold"`

	// C8 tokenizer
	TokenizeParallel bool `json:"tokenizeParallel"`

	// C9 fetcher
	FetchConcurrency int     `json:"fetchConcurrency"`
	FetchRatePerSec  float64 `json:"fetchRatePerSec"` // 0 = unlimited
	FetchTimeoutSecs int     `json:"fetchTimeoutSecs"`
	FetchConnectSecs int     `json:"fetchConnectSecs"`
	FetchMaxAttempts int     `json:"fetchMaxAttempts"`

	// Predictor registry
	ModelDir string `json:"modelDir"`
}

// Load returns config with defaults overridden by corpus-config.json and env vars.
func Load() *Config {
	cfg := defaults()
	loadFile(cfg, "corpus-config.json")
	loadEnv(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		LogLevel:         "info",
		FilterWorkers:    0,
		MaxShards:        0,
		NSFWThreshold:    0.8,
		ToxicThreshold:   0.8,
		TableSize:        1_000_000_000,
		SaturationCap:    10,
		DedupWorkers:     0,
		NumHashes:        100,
		NumBands:         20,
		NgramSize:        5,
		JaccardThreshold: 0.8,
		TokenizeParallel: false,
		FetchConcurrency: 32,
		FetchRatePerSec:  0,
		FetchTimeoutSecs: 10,
		FetchConnectSecs: 5,
		FetchMaxAttempts: 3,
		ModelDir:         "models",
	}
}

// ApplyFile re-reads path, if present, and overlays its fields onto cfg.
// Exported so the CLI's --config persistent flag can point at a file other
// than the default corpus-config.json without re-deriving defaults and env
// from scratch.
func ApplyFile(cfg *Config, path string) {
	loadFile(cfg, path)
}

func loadFile(cfg *Config, path string) {
	data, err := os.ReadFile(path) //nolint:gosec // controlled config file path, not user input
	if err != nil {
		return // file is optional
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("[CONFIG] Warning: could not parse %s: %v", path, err)
	} else {
		log.Printf("[CONFIG] Loaded %s", path)
	}
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FILTER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FilterWorkers = n
		}
	}
	if v := os.Getenv("MAX_SHARDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxShards = n
		}
	}
	if v := os.Getenv("TABLE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TableSize = n
		}
	}
	if v := os.Getenv("SATURATION_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 2 {
			cfg.SaturationCap = n
		}
	}
	if v := os.Getenv("DEDUP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DedupWorkers = n
		}
	}
	if v := os.Getenv("NUM_HASHES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NumHashes = n
		}
	}
	if v := os.Getenv("NUM_BANDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NumBands = n
		}
	}
	if v := os.Getenv("NGRAM_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NgramSize = n
		}
	}
	if v := os.Getenv("JACCARD_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.JaccardThreshold = f
		}
	}
	if v := os.Getenv("FETCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FetchConcurrency = n
		}
	}
	if v := os.Getenv("FETCH_RATE_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FetchRatePerSec = f
		}
	}
	if v := os.Getenv("MODEL_DIR"); v != "" {
		cfg.ModelDir = v
	}
}
