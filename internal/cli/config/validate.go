package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapcheck/internal/source"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

var validOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if c.OutputFormat != "" && !contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (want one of %s)", c.OutputFormat, strings.Join(validOutputs, ", "))
	}

	switch strings.ToLower(c.Source.Type) {
	case "", source.TypeXLSX, source.TypeCSV, source.TypeSQL:
	default:
		return fmt.Errorf("unknown source type %q", c.Source.Type)
	}

	if c.Source.HeaderRow < 0 {
		return fmt.Errorf("source.header_row must not be negative")
	}

	if _, err := c.SeverityPolicy(); err != nil {
		return err
	}
	if _, err := c.FailOnSeverity(); err != nil {
		return err
	}

	if c.Serve.MaxUploadMB < 1 {
		return fmt.Errorf("serve.max_upload_mb must be at least 1")
	}
	return nil
}

// SeverityPolicy builds the finding-kind severity policy.
// Unset entries keep their default severity.
func (c *Config) SeverityPolicy() (core.SeverityPolicy, error) {
	policy := core.DefaultSeverityPolicy()
	for kind, value := range map[core.FindingKind]string{
		core.FindingEmpty:           c.Severity.Empty,
		core.FindingNotInDictionary: c.Severity.NotInDictionary,
		core.FindingGroupMismatch:   c.Severity.GroupMismatch,
	} {
		if value == "" {
			continue
		}
		sev, ok := core.ParseSeverity(value)
		if !ok {
			return nil, fmt.Errorf("invalid severity %q for %s (want error, warning or info)", value, kind)
		}
		policy[kind] = sev
	}
	return policy, nil
}

// FailOnSeverity returns the least severe level that fails a validation.
func (c *Config) FailOnSeverity() (core.Severity, error) {
	if c.FailOn == "" {
		return core.SeverityError, nil
	}
	sev, ok := core.ParseSeverity(c.FailOn)
	if !ok {
		return core.SeverityError, fmt.Errorf("invalid fail_on severity %q (want error, warning or info)", c.FailOn)
	}
	return sev, nil
}

// SourceConfig converts the source section for the source package.
func (c *Config) SourceConfig() source.Config {
	return source.Config{
		Type:      c.Source.Type,
		Path:      c.Source.Path,
		Sheet:     c.Source.Sheet,
		HeaderRow: c.Source.HeaderRow,
		Encoding:  c.Source.Encoding,
		Driver:    c.Source.Driver,
		DSN:       c.Source.DSN,
		Query:     c.Source.Query,
		Table:     c.Source.Table,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
