// Package constants provides shared constants used throughout the budgetmap codebase.
// This includes matching thresholds, layout tolerances, file permissions, and other
// values that must stay consistent between the extractors, the resolver and the
// merge engine.
package constants

import "time"

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Matching thresholds, all on the 0-100 confidence scale.
const (
	// ScoreExactCode is the confidence of a stable org code match.
	ScoreExactCode = 100

	// ScoreExactName is the confidence of a case-insensitive name match.
	ScoreExactName = 95

	// ScoreExactNameCodeConflict applies when the named entity carries a different code.
	ScoreExactNameCodeConflict = 70

	// ScoreAlias is the confidence of a case-insensitive alias match.
	ScoreAlias = 85

	// ScoreAliasCodeConflict applies when the aliased entity carries a different code.
	ScoreAliasCodeConflict = 60

	// ScoreNormalized is the confidence of a normalized-name match.
	ScoreNormalized = 80

	// ScoreNormalizedCodeConflict applies when the normalized match carries a different code.
	ScoreNormalizedCodeConflict = 55

	// AutoMatchThreshold is the minimum score for a confident, automatic match.
	AutoMatchThreshold = 80.0

	// CandidateThreshold is the minimum fuzzy score surfaced to the operator.
	CandidateThreshold = 60.0

	// DescriptionSimilarityThreshold gates description updates: existing text at or
	// above this similarity to the proposal is kept without asking.
	DescriptionSimilarityThreshold = 85.0

	// MaxCandidates caps the numbered list shown to the operator.
	MaxCandidates = 10
)

// Layout constants for positional text.
const (
	// HeaderLookback is how many lines the segmenter walks back from a marker
	// looking for a department header.
	HeaderLookback = 20

	// ClusterGap is the x distance that starts a new coordinate cluster.
	ClusterGap = 15.0

	// LeftMarginTolerance is how far right of the leftmost cluster median a token
	// may sit and still count as left-margin.
	LeftMarginTolerance = 25.0

	// HeaderColumnTolerance is how far a program header may drift from the
	// canonical header column.
	HeaderColumnTolerance = 2.0

	// FiscalYearColumns is the number of fiscal year columns in a budget table.
	FiscalYearColumns = 3
)

// Registry defaults
const (
	// DefaultRegistryPath is the default directory of the canonical registry
	DefaultRegistryPath = "./registry"

	// DefaultLogDir is the default directory for session logs
	DefaultLogDir = "./logs"

	// DefaultFundGroup is assigned to funds created from budget tables
	DefaultFundGroup = "Unclassified"

	// DefaultWorkforceDelimiter separates payroll table columns
	DefaultWorkforceDelimiter = ','
)

// Format constants
const (
	// TimeFormatISO8601 is the ISO 8601 time format
	TimeFormatISO8601 = time.RFC3339

	// TimeFormatFilename is the format used in generated filenames
	TimeFormatFilename = "20060102-150405"
)
