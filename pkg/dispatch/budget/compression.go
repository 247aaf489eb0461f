package budget

import (
	"strings"

	"github.com/pkg/errors"
)

// CompressionMode is one step on the fixed ladder of summarization densities
// applied to past-subject summaries. Higher modes are denser and lossier.
type CompressionMode int

const (
	CompressionRich CompressionMode = iota
	CompressionBalanced
	CompressionMinimal
	CompressionExtreme
)

// Per-mode character ceilings for a single subject summary.
const (
	balancedSummaryChars = 240
	minimalSummaryChars  = 120
	extremeSummaryChars  = 60
)

func (m CompressionMode) String() string {
	switch m {
	case CompressionRich:
		return "rich"
	case CompressionBalanced:
		return "balanced"
	case CompressionMinimal:
		return "minimal"
	case CompressionExtreme:
		return "extreme"
	default:
		return "unknown"
	}
}

// ParseCompressionMode maps a mode name to its CompressionMode.
func ParseCompressionMode(s string) (CompressionMode, error) {
	switch s {
	case "rich":
		return CompressionRich, nil
	case "balanced", "":
		return CompressionBalanced, nil
	case "minimal":
		return CompressionMinimal, nil
	case "extreme":
		return CompressionExtreme, nil
	default:
		return CompressionBalanced, errors.Errorf("unknown compression mode %q", s)
	}
}

// Next advances one step along the ladder. Extreme is terminal: requesting
// the next mode from extreme stays at extreme.
func (m CompressionMode) Next() CompressionMode {
	if m >= CompressionExtreme {
		return CompressionExtreme
	}
	return m + 1
}

// Subject is one past-conversation summary eligible for inclusion in part 2.
type Subject struct {
	ID      string
	Summary string
}

// CompressSummary renders a subject summary at the given density. Truncation
// prefers a sentence boundary, then a word boundary, before a hard cut.
func CompressSummary(summary string, mode CompressionMode) string {
	summary = strings.TrimSpace(summary)
	switch mode {
	case CompressionRich:
		return summary
	case CompressionBalanced:
		return truncateAtBoundary(summary, balancedSummaryChars)
	case CompressionMinimal:
		return truncateAtBoundary(summary, minimalSummaryChars)
	default:
		return truncateAtBoundary(summary, extremeSummaryChars)
	}
}

func truncateAtBoundary(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if idx := strings.LastIndex(cut, ". "); idx > limit/2 {
		return cut[:idx+1]
	}
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		return cut[:idx] + "…"
	}
	return cut + "…"
}
