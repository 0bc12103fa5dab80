// Package core defines the shared language of the LeapCheck system.
//
// This package contains:
//   - Tabular data entities (Row, Dataset)
//   - Finding kinds and severities (FindingKind, Severity, SeverityPolicy)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
