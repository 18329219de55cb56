// Package config provides configuration management for the corpus auditor.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file. Defaults come from the `default` struct tags of
// each partial configuration.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Pipeline: target directory and artifact names (PIPELINE_DIR, PIPELINE_GAP_FILE, ...)
//   - Sort: external sort buffer, fan-in, spill codec, workers (SORT_BUFFER_SIZE, ...)
//   - Shard: handle pool size and partition parallelism (SHARD_MAX_OPEN, ...)
//   - Log: logging level and format
//   - Metrics: optional Prometheus textfile path
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
