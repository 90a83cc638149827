package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		problems = append(problems, "paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		problems = append(problems, "paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must be set")
	}
	if c.Downloads.MaxConcurrent < 1 {
		problems = append(problems, "downloads.max_concurrent must be at least 1")
	}
	if c.Subtitles.SyncTolerance <= 0 {
		problems = append(problems, "subtitles.sync_tolerance must be positive")
	}
	if strings.EqualFold(c.Subtitles.PrimaryLanguage, c.Subtitles.SecondaryLanguage) {
		problems = append(problems, "subtitles.primary_language and secondary_language must differ")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
