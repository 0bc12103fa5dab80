package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadFile opens a rule source and parses it by extension: .yaml and .yml
// use ParseYAML, anything else is read as a markdown outline.
func LoadFile(path string, opts ...Option) (*Dictionary, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no rule source configured", ErrRuleSourceUnreadable)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuleSourceUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f, opts...)
	default:
		return Parse(f, opts...)
	}
}
