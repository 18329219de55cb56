package shard

import "fmt"

// Config holds the partition stage tunables.
type Config struct {
	// MaxOpen is the maximum number of shard files held open during
	// partitioning. It is further capped by the process file limit.
	MaxOpen int `mapstructure:"max_open" default:"256"`
	// PartitionWorkers is the number of corpus files partitioned in parallel.
	PartitionWorkers int `mapstructure:"partition_workers" default:"1"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxOpen < 1 {
		return fmt.Errorf("max_open must be at least 1, got %d", c.MaxOpen)
	}
	if c.PartitionWorkers < 1 {
		return fmt.Errorf("partition_workers must be at least 1, got %d", c.PartitionWorkers)
	}
	return nil
}
