package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the pipeline cannot run with.
// Violations are configuration errors and fatal at startup.
func (c *Config) Validate() error {
	var problems []string

	if _, err := c.APIBaseURL(); err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		problems = append(problems, "paths.output_dir must be set")
	}
	if strings.TrimSpace(c.OutputCSV) == "" {
		problems = append(problems, "paths.output_csv must be set")
	}
	if c.Platform.RequestTimeout <= 0 {
		problems = append(problems, "platform.request_timeout must be positive")
	}
	if c.Platform.RetryAttempts < 1 {
		problems = append(problems, "platform.retry_attempts must be at least 1")
	}
	if c.Workflow.MaxTasks < 0 {
		problems = append(problems, "workflow.max_tasks must not be negative")
	}
	if c.Albums.PerPage < 1 {
		problems = append(problems, "albums.per_page must be at least 1")
	}
	if c.Media.SampleRate <= 0 {
		problems = append(problems, "media.sample_rate must be positive")
	}
	if strings.TrimSpace(c.Albums.Origin) == "" {
		problems = append(problems, "albums.origin must be set")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// RequireToken verifies a bearer credential is available for platform writes.
func (c *Config) RequireToken() error {
	if strings.TrimSpace(c.Platform.Token) == "" {
		return errors.New("no platform token: pass --token or set AUTH_OVERRIDE")
	}
	return nil
}
