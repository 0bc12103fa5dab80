package core

import (
	"fmt"
	"strings"
)

// =============================================================================
// Severity
// =============================================================================

// Severity indicates the importance of a validation finding.
type Severity int

// Severity levels for findings.
const (
	// SeverityError indicates a data issue that must be fixed.
	SeverityError Severity = iota
	// SeverityWarning indicates a data issue that should be reviewed.
	SeverityWarning
	// SeverityInfo indicates informational feedback.
	SeverityInfo
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// AtLeast reports whether s is as severe as threshold or more.
func (s Severity) AtLeast(threshold Severity) bool {
	return s <= threshold
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	sev, ok := ParseSeverity(string(text))
	if !ok {
		return fmt.Errorf("unknown severity %q", text)
	}
	*s = sev
	return nil
}

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityWarning and false if invalid.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	default:
		return SeverityWarning, false
	}
}

// =============================================================================
// Finding kinds
// =============================================================================

// FindingKind classifies a data-quality finding.
type FindingKind string

// Finding kinds produced by the validators.
const (
	// FindingEmpty is a required field whose value normalizes to empty.
	FindingEmpty FindingKind = "empty"
	// FindingNotInDictionary is a value outside the field's enumeration.
	FindingNotInDictionary FindingKind = "not_in_dictionary"
	// FindingGroupMismatch is a value that disagrees with its group's majority.
	FindingGroupMismatch FindingKind = "group_mismatch"
)

// AllFindingKinds lists every finding kind in reporting order.
func AllFindingKinds() []FindingKind {
	return []FindingKind{FindingEmpty, FindingNotInDictionary, FindingGroupMismatch}
}

// Label returns a short human-readable label.
func (k FindingKind) Label() string {
	switch k {
	case FindingEmpty:
		return "empty"
	case FindingNotInDictionary:
		return "not in dictionary"
	case FindingGroupMismatch:
		return "group mismatch"
	default:
		return string(k)
	}
}

// DefaultSeverity returns the severity used when no policy override exists.
func (k FindingKind) DefaultSeverity() Severity {
	if k == FindingGroupMismatch {
		return SeverityWarning
	}
	return SeverityError
}

// SeverityPolicy maps finding kinds to severities.
// A nil policy yields the default severity for every kind.
type SeverityPolicy map[FindingKind]Severity

// DefaultSeverityPolicy returns the built-in severities.
func DefaultSeverityPolicy() SeverityPolicy {
	p := make(SeverityPolicy)
	for _, k := range AllFindingKinds() {
		p[k] = k.DefaultSeverity()
	}
	return p
}

// For returns the severity for a finding kind, applying any override.
func (p SeverityPolicy) For(k FindingKind) Severity {
	if p != nil {
		if sev, ok := p[k]; ok {
			return sev
		}
	}
	return k.DefaultSeverity()
}
