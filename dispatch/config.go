package dispatch

import "time"

type Config struct {
	DefaultVersion string `mapstructure:"default_version" validate:"required"`
	// Versions restricts the served versions. Empty means every registered
	// stack.
	Versions              []string      `mapstructure:"versions"`
	MetadataDir           string        `mapstructure:"metadata_dir" validate:"required"`
	CategorySpecificFirst bool          `mapstructure:"category_specific_first"`
	Timeout               time.Duration `mapstructure:"timeout"`
	Watch                 bool          `mapstructure:"watch"`
}

func DefaultConfig() Config {
	return Config{
		DefaultVersion:        "v1",
		MetadataDir:           "api",
		CategorySpecificFirst: true,
		Timeout:               30 * time.Second,
	}
}
