package sim

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/medsim/shlavbet/internal/model"
)

// The extraction contract is deliberately grammar-lite: the first
// integer following a case-insensitive "score" token, and the first
// line of text following a case-insensitive "verdict" token. The two
// extractions are independent and order-insensitive; absent tokens
// resolve to the documented defaults (0 and "N/A").
var (
	scoreRe   = regexp.MustCompile(`(?i)score\s*[:\-]?\s*(\d+)`)
	verdictRe = regexp.MustCompile(`(?i)verdict\s*[:\-]?\s*(.+)`)
)

// ParseReport extracts score and verdict from the examiner's free
// text. It never fails; missing matches fall back to defaults.
func ParseReport(text string) model.EvaluationReport {
	report := model.EvaluationReport{
		FullText: text,
		Score:    0,
		Verdict:  "N/A",
	}
	if m := scoreRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			report.Score = n
		}
	}
	if m := verdictRe.FindStringSubmatch(text); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			report.Verdict = v
		}
	}
	return report
}
