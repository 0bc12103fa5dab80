package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapcheck/pkg/dictionary"
)

// LoadDictionary reads a rule source. A structured source that fails to
// decode degrades to an empty dictionary with a warning; an unreadable
// source is an error.
func LoadDictionary(path, sentinel string, logger *slog.Logger) (*dictionary.Dictionary, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dict, err := dictionary.LoadFile(path, dictionary.WithSentinel(sentinel))
	switch {
	case errors.Is(err, dictionary.ErrMalformedRuleSource):
		logger.Warn("rule source could not be decoded, continuing without field rules",
			slog.String("path", path), slog.String("error", err.Error()))
		return dictionary.New(), nil
	case err != nil:
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	if dict.Len() == 0 {
		logger.Warn("rule source defines no fields", slog.String("path", path))
	} else {
		logger.Debug("loaded rules", slog.String("path", path), slog.Int("fields", dict.Len()))
	}
	return dict, nil
}
