// Package config holds the run configuration for the preprocessing batch.
// Defaults come from the environment (optionally a .env file); the CLI flags
// in cmd/bertprep override them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultSampleSources caps the sample TSV at the first N distinct report
// sources encountered.
const DefaultSampleSources = 200

// Config holds all knobs for one preprocessing run.
type Config struct {
	VocabPath     string   // BERT vocab.txt
	DataDir       string   // directory holding <split>1.0.json inputs
	OutDir        string   // directory receiving the TSV (and optional) outputs
	Splits        []string // splits to process, run concurrently
	SampleSources int      // distinct-source cap for the sample output
	Workers       int      // encode workers per split; 0 means NumCPU
	WriteArrow    bool     // also emit <split>.arrow (Arrow IPC)
	WriteCBOR     bool     // also emit <split>.cbor
	MetricsAddr   string   // optional Prometheus listen address
	EnableOTel    bool     // stdout trace exporter
}

// Load builds a Config from the environment. A .env file in the working
// directory is honored when present; a missing one is not an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		VocabPath:     getEnvWithDefault("BERTPREP_VOCAB", "vocab.txt"),
		DataDir:       getEnvWithDefault("BERTPREP_DATA_DIR", "."),
		OutDir:        getEnvWithDefault("BERTPREP_OUT_DIR", "."),
		Splits:        SplitList(getEnvWithDefault("BERTPREP_SPLITS", "train,test,dev")),
		SampleSources: getIntEnvWithDefault("BERTPREP_SAMPLE_SOURCES", DefaultSampleSources),
		Workers:       getIntEnvWithDefault("BERTPREP_WORKERS", 0),
		MetricsAddr:   getEnvWithDefault("BERTPREP_METRICS_ADDR", ""),
	}
}

// Validate checks the configuration before the run starts.
func (c *Config) Validate() error {
	if c.VocabPath == "" {
		return fmt.Errorf("vocab path must be set")
	}
	if len(c.Splits) == 0 {
		return fmt.Errorf("at least one split must be configured")
	}
	for _, s := range c.Splits {
		if s == "" {
			return fmt.Errorf("split names must be non-empty")
		}
	}
	if c.SampleSources <= 0 {
		return fmt.Errorf("sample source cap must be positive, got %d", c.SampleSources)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// InputPath returns the dataset file for a split, following the upstream
// corpus naming scheme (<split>1.0.json).
func (c *Config) InputPath(split string) string {
	return fmt.Sprintf("%s/%s1.0.json", strings.TrimRight(c.DataDir, "/"), split)
}

// SplitList parses a comma-separated split list, trimming blanks.
func SplitList(s string) []string {
	var splits []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			splits = append(splits, part)
		}
	}
	return splits
}

func getEnvWithDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getIntEnvWithDefault(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
