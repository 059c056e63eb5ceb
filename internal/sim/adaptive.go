package sim

import (
	"strings"

	"github.com/medsim/shlavbet/internal/model"
)

// NextProfile derives the profile for the next case from the most
// recent case log entry. With an empty log the profile is returned
// unchanged. Exactly one branch fires, first match wins:
//
//  1. a failed case (score below 60, or a verdict mentioning
//     "incorrect" or "missed") demotes to Easy and, when the resident
//     stated weak areas, redirects the topic to them;
//  2. a strong case (score above 80) promotes to Hard;
//  3. anything else leaves difficulty and topic untouched.
//
// All other profile fields pass through unchanged.
//
// The verdict substring check is a known weak point: free-text wording
// such as "not incorrect" also matches. The heuristic is kept as-is
// for parity with the established scoring behavior.
func NextProfile(p model.Profile, log *CaseLog) model.Profile {
	last, ok := log.Last()
	if !ok {
		return p
	}
	verdict := strings.ToLower(last.Verdict)
	switch {
	case last.Score < 60 || strings.Contains(verdict, "incorrect") || strings.Contains(verdict, "missed"):
		p.Difficulty = model.DifficultyEasy
		if p.Weaknesses != "" {
			p.Topic = p.Weaknesses
		}
	case last.Score > 80:
		p.Difficulty = model.DifficultyHard
	}
	return p
}
