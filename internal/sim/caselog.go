package sim

import "github.com/medsim/shlavbet/internal/model"

// CaseLog is the append-only record of completed cases within one
// session. It never shrinks; there is no delete or mutate operation.
type CaseLog struct {
	entries []model.CaseLogEntry
}

// Append records a completed case. The case number is always the
// current length plus one, so numbers are strictly increasing and
// equal each entry's 1-based position.
func (l *CaseLog) Append(topic string, score int, verdict string) model.CaseLogEntry {
	entry := model.CaseLogEntry{
		CaseNumber: len(l.entries) + 1,
		Topic:      topic,
		Score:      score,
		Verdict:    verdict,
	}
	l.entries = append(l.entries, entry)
	return entry
}

// Last returns the most recent entry, if any.
func (l *CaseLog) Last() (model.CaseLogEntry, bool) {
	if len(l.entries) == 0 {
		return model.CaseLogEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Len returns the number of completed cases.
func (l *CaseLog) Len() int { return len(l.entries) }

// Entries returns a copy of the log in append order.
func (l *CaseLog) Entries() []model.CaseLogEntry {
	out := make([]model.CaseLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Rows returns the read-only analytics projection.
func (l *CaseLog) Rows() []model.CaseLogRow {
	rows := make([]model.CaseLogRow, 0, len(l.entries))
	for _, e := range l.entries {
		rows = append(rows, model.CaseLogRow{Topic: e.Topic, Score: e.Score, Verdict: e.Verdict})
	}
	return rows
}

// Scores returns the scores in case order.
func (l *CaseLog) Scores() []int {
	scores := make([]int, 0, len(l.entries))
	for _, e := range l.entries {
		scores = append(scores, e.Score)
	}
	return scores
}

// MeanScore returns the running mean of scores, 0 for an empty log.
func (l *CaseLog) MeanScore() float64 {
	if len(l.entries) == 0 {
		return 0
	}
	sum := 0
	for _, e := range l.entries {
		sum += e.Score
	}
	return float64(sum) / float64(len(l.entries))
}
