// normalize.go - Total coercion of raw AI output into AuditAnalysis

package analysis

import (
	"fmt"
	"strconv"
)

// ParseFailedIssue is the synthetic issue recorded when the model's reply
// could not be parsed at all.
const ParseFailedIssue = "AI analysis failed: response could not be parsed"

// DefaultAnalysis is the conservative fallback used when extraction fails:
// the upload and the AI cost have already been spent, so a low-confidence
// record is preferred over an HTTP error.
func DefaultAnalysis() AuditAnalysis {
	return AuditAnalysis{
		Score:  0,
		Status: StatusNonCompliant,
		Issues: []string{ParseFailedIssue},
	}
}

// Normalize turns the extractor's loosely-typed object into a fully-populated
// AuditAnalysis. Every branch has a default; no input can make it fail.
func Normalize(raw map[string]interface{}) AuditAnalysis {
	if raw == nil {
		return DefaultAnalysis()
	}

	out := AuditAnalysis{
		Issues: []string{},
	}

	out.Score = clampScore(raw["score"])

	// Keep the AI's status only when it is one of the valid values; otherwise
	// derive it from the score. The derivation is the canonical scoring rule.
	if s, ok := raw["status"].(string); ok && ValidStatus(s) {
		out.Status = s
	} else {
		out.Status = DeriveStatus(out.Score)
	}

	if s, ok := raw["summary"].(string); ok {
		out.Summary = s
	}

	out.Issues = coerceIssues(raw["issues"])
	out.ThemeMatch = coerceThemeMatch(raw["themeMatch"])

	if sc, ok := raw["shelfComparison"].(map[string]interface{}); ok {
		comparison := coerceShelfComparison(sc)
		out.ShelfComparison = &comparison
	} else if zones, ok := raw["productComparison"].([]interface{}); ok {
		// Older model replies used a flat per-zone comparison. Upgrade it to a
		// single synthetic shelf unit so downstream consumers only ever see
		// the shelf/tray shape.
		comparison := convertLegacyZones(zones)
		out.ShelfComparison = &comparison
	}

	// Theme override, applied last and unconditionally: a theme mismatch is an
	// automatic severe failure that a high shelf-level score must not mask.
	if out.ThemeMatch != nil && !out.ThemeMatch.Match {
		if out.Score > ThemeMismatchMaxScore {
			out.Score = ThemeMismatchMaxScore
		}
		out.Status = StatusNonCompliant
	}

	return out
}

// clampScore coerces any value into an integer score in [0,100].
func clampScore(v interface{}) int {
	score, ok := asInt(v)
	if !ok {
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func coerceIssues(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	// Order is preserved as reported; issues are not sorted or truncated.
	issues := make([]string, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case string:
			issues = append(issues, t)
		case float64, int, bool:
			issues = append(issues, fmt.Sprintf("%v", t))
		}
	}
	return issues
}

// coerceThemeMatch accepts the theme record only when it carries a boolean
// match flag. A fabricated match=false would wrongly trigger the score
// override, so an ill-typed record is dropped instead of defaulted.
func coerceThemeMatch(v interface{}) *ThemeMatch {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	match, ok := m["match"].(bool)
	if !ok {
		return nil
	}
	return &ThemeMatch{
		Standard: asStringOr(m["standard"], ""),
		Actual:   asStringOr(m["actual"], ""),
		Match:    match,
		Comment:  asStringOr(m["comment"], ""),
	}
}

func coerceShelfComparison(m map[string]interface{}) ShelfComparison {
	out := ShelfComparison{
		StandardShelfCount: asIntOr(m["standardShelfCount"], 0),
		ActualShelfCount:   asIntOr(m["actualShelfCount"], 0),
		Shelves:            []ShelfUnit{},
	}
	// Never trust the AI's own match booleans; recompute from the counts.
	out.ShelfCountMatch = out.StandardShelfCount == out.ActualShelfCount

	shelves, _ := m["shelves"].([]interface{})
	for i, raw := range shelves {
		sm, ok := raw.(map[string]interface{})
		if !ok {
			sm = map[string]interface{}{}
		}
		out.Shelves = append(out.Shelves, coerceShelfUnit(sm, i+1))
	}
	return out
}

func coerceShelfUnit(m map[string]interface{}, position int) ShelfUnit {
	unit := ShelfUnit{
		ShelfID:           asStringOr(m["shelfId"], fmt.Sprintf("shelf_%d", position)),
		ShelfName:         asStringOr(m["shelfName"], fmt.Sprintf("Shelf %d", position)),
		StandardTrayCount: asIntOr(m["standardTrayCount"], 0),
		ActualTrayCount:   asIntOr(m["actualTrayCount"], 0),
		Trays:             []ShelfTray{},
		OverallMatch:      asBoolOr(m["overallMatch"], false),
	}
	unit.TrayCountMatch = unit.StandardTrayCount == unit.ActualTrayCount

	trays, _ := m["trays"].([]interface{})
	for _, raw := range trays {
		tm, ok := raw.(map[string]interface{})
		if !ok {
			tm = map[string]interface{}{}
		}
		unit.Trays = append(unit.Trays, ShelfTray{
			TrayNumber:       asIntOr(tm["trayNumber"], 0),
			StandardCategory: asStringOr(tm["standardCategory"], UnspecifiedText),
			ActualCategory:   asStringOr(tm["actualCategory"], UnspecifiedText),
			Match:            asBoolOr(tm["match"], false),
			Note:             asStringOr(tm["note"], ""),
		})
	}
	return unit
}

// convertLegacyZones upgrades the flat productComparison shape into one
// synthetic shelf unit whose trays are the zones. OverallMatch is the AND of
// the zone matches, except that an empty zone list reports no agreement:
// OverallMatch stays false rather than vacuously true.
func convertLegacyZones(zones []interface{}) ShelfComparison {
	unit := ShelfUnit{
		ShelfID:           "shelf_1",
		ShelfName:         "Shelf 1",
		StandardTrayCount: len(zones),
		ActualTrayCount:   len(zones),
		TrayCountMatch:    true,
		Trays:             []ShelfTray{},
		OverallMatch:      len(zones) > 0,
	}

	for i, raw := range zones {
		zm, ok := raw.(map[string]interface{})
		if !ok {
			zm = map[string]interface{}{}
		}
		tray := ShelfTray{
			TrayNumber:       i + 1,
			StandardCategory: asStringOr(zm["standard"], UnspecifiedText),
			ActualCategory:   asStringOr(zm["actual"], UnspecifiedText),
			Match:            asBoolOr(zm["match"], false),
			Note:             asStringOr(zm["note"], ""),
		}
		unit.Trays = append(unit.Trays, tray)
		if !tray.Match {
			unit.OverallMatch = false
		}
	}

	return ShelfComparison{
		StandardShelfCount: 1,
		ActualShelfCount:   1,
		ShelfCountMatch:    true,
		Shelves:            []ShelfUnit{unit},
	}
}

// --- loose typing helpers ---

func asInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case string:
		if n, err := strconv.ParseFloat(t, 64); err == nil {
			return int(n), true
		}
	}
	return 0, false
}

func asIntOr(v interface{}, def int) int {
	if n, ok := asInt(v); ok {
		return n
	}
	return def
}

func asStringOr(v interface{}, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func asBoolOr(v interface{}, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}
