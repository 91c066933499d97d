// types.go - Canonical audit analysis shape produced by the normalizer

package analysis

// Status values for a completed analysis. "pending" exists only on audit
// results created by batch ingestion before analysis runs; the normalizer
// never emits it.
const (
	StatusCompliant    = "compliant"
	StatusNeedsReview  = "needs_review"
	StatusNonCompliant = "non_compliant"
)

// Scoring policy. The status derivation thresholds and the theme-mismatch cap
// are fixed policy, embedded in both the prompt and the normalizer.
const (
	ScoreCompliantMin     = 90
	ScoreNeedsReviewMin   = 70
	ThemeMismatchMaxScore = 20
)

// UnspecifiedText is the sentinel for textual fields the AI omitted.
const UnspecifiedText = "unspecified"

// ThemeMatch reports whether the seasonal/promotional theme of the actual
// display matches the standard's theme.
type ThemeMatch struct {
	Standard string `json:"standard"`
	Actual   string `json:"actual"`
	Match    bool   `json:"match"`
	Comment  string `json:"comment"`
}

// ShelfTray is one horizontal tier within a shelf unit, numbered top-to-bottom
// starting at 1.
type ShelfTray struct {
	TrayNumber       int    `json:"trayNumber"`
	StandardCategory string `json:"standardCategory"`
	ActualCategory   string `json:"actualCategory"`
	Match            bool   `json:"match"`
	Note             string `json:"note,omitempty"`
}

// ShelfUnit is one physical shelving structure in the display.
type ShelfUnit struct {
	ShelfID           string      `json:"shelfId"`
	ShelfName         string      `json:"shelfName"`
	StandardTrayCount int         `json:"standardTrayCount"`
	ActualTrayCount   int         `json:"actualTrayCount"`
	TrayCountMatch    bool        `json:"trayCountMatch"`
	Trays             []ShelfTray `json:"trays"`
	OverallMatch      bool        `json:"overallMatch"`
}

// ShelfComparison is the structured shelf-by-shelf comparison.
type ShelfComparison struct {
	StandardShelfCount int         `json:"standardShelfCount"`
	ActualShelfCount   int         `json:"actualShelfCount"`
	ShelfCountMatch    bool        `json:"shelfCountMatch"`
	Shelves            []ShelfUnit `json:"shelves"`
}

// AuditAnalysis is the fully-populated, internally consistent analysis the
// normalizer guarantees for any input. It is serialized into the audit
// result's aiAnalysis field.
type AuditAnalysis struct {
	ThemeMatch      *ThemeMatch      `json:"themeMatch,omitempty"`
	Score           int              `json:"score"`
	Status          string           `json:"status"`
	Summary         string           `json:"summary,omitempty"`
	Issues          []string         `json:"issues"`
	ShelfComparison *ShelfComparison `json:"shelfComparison,omitempty"`
}

// DeriveStatus maps a compliance score to a status using the fixed
// thresholds. This is the canonical scoring rule.
func DeriveStatus(score int) string {
	switch {
	case score >= ScoreCompliantMin:
		return StatusCompliant
	case score >= ScoreNeedsReviewMin:
		return StatusNeedsReview
	default:
		return StatusNonCompliant
	}
}

// ValidStatus reports whether s is one of the three non-pending statuses.
func ValidStatus(s string) bool {
	return s == StatusCompliant || s == StatusNeedsReview || s == StatusNonCompliant
}
