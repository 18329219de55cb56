package metrics

// Config holds configuration for metrics export.
type Config struct {
	// Textfile is the path the registry is written to after each run. Empty disables export.
	Textfile string `mapstructure:"textfile" default:""`
}
