package model

import (
	"fmt"
	"time"
)

// ResidencyYear is the resident's postgraduate year.
type ResidencyYear string

const (
	PGY1 ResidencyYear = "PGY1"
	PGY2 ResidencyYear = "PGY2"
	PGY3 ResidencyYear = "PGY3"
	PGY4 ResidencyYear = "PGY4"
)

// Difficulty represents case difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Profile holds the resident metadata a case is personalized with.
// It is created from user input and replaced wholesale by the adaptive
// controller between cases; it is never partially updated.
type Profile struct {
	ResidencyYear   ResidencyYear `json:"residency_year"`
	RecentRotations []string      `json:"recent_rotations"`
	Strengths       string        `json:"strengths"`
	Weaknesses      string        `json:"weaknesses"`
	LearningGoals   string        `json:"learning_goals"`
	Difficulty      Difficulty    `json:"difficulty"`
	Topic           string        `json:"topic"`
}

// Validate checks the enum fields. Empty rotations are permitted.
func (p Profile) Validate() error {
	switch p.ResidencyYear {
	case PGY1, PGY2, PGY3, PGY4:
	default:
		return fmt.Errorf("invalid residency year %q", p.ResidencyYear)
	}
	switch p.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return fmt.Errorf("invalid difficulty %q", p.Difficulty)
	}
	if p.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	return nil
}

// Case is a generated clinical vignette together with the profile it
// was generated from. Immutable once created.
type Case struct {
	Text    string  `json:"text"`
	Profile Profile `json:"profile"`
}

// DialogueTurn is one resident question paired with the simulated
// patient's reply. ImageURL is set when the question ordered a
// recognized diagnostic test and an illustrative image was found.
type DialogueTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	ImageURL string `json:"image_url,omitempty"`
}

// EvaluationReport is the examiner's free-text report plus the score
// and verdict extracted from it. Score and Verdict are best-effort
// parses and default to 0 and "N/A" when the tokens are absent.
type EvaluationReport struct {
	FullText string `json:"full_text"`
	Score    int    `json:"score"`
	Verdict  string `json:"verdict"`
}

// CaseLogEntry records one completed, evaluated case.
// CaseNumber is 1-based and equals the entry's position in the log.
type CaseLogEntry struct {
	CaseNumber int    `json:"case_number"`
	Topic      string `json:"topic"`
	Score      int    `json:"score"`
	Verdict    string `json:"verdict"`
}

// CaseLogRow is the analytics projection of a log entry.
type CaseLogRow struct {
	Topic   string `json:"topic"`
	Score   int    `json:"score"`
	Verdict string `json:"verdict"`
}

// Phase is a session state machine phase.
type Phase string

const (
	// PhaseNoProfile is the initial phase before a profile is submitted.
	PhaseNoProfile Phase = "no_profile"
	// PhaseProfileSet means a profile exists but no case is active.
	PhaseProfileSet Phase = "profile_set"
	// PhaseCaseActive means a case is in progress and accepts dialogue turns.
	PhaseCaseActive Phase = "case_active"
	// PhaseEvaluated means the active case has been evaluated.
	PhaseEvaluated Phase = "evaluated"
)

// SessionRecord is the persisted summary of a session.
type SessionRecord struct {
	ID            string        `json:"id"`
	ResidencyYear ResidencyYear `json:"residency_year"`
	Difficulty    Difficulty    `json:"difficulty"`
	Topic         string        `json:"topic"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Analytics summarizes a session's completed cases: the projection
// rows, the running mean of scores, and the score trend in case order.
type Analytics struct {
	Rows      []CaseLogRow `json:"rows"`
	MeanScore float64      `json:"mean_score"`
	Trend     []int        `json:"trend"`
}
