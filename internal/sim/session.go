package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medsim/shlavbet/internal/llm/prompts"
	"github.com/medsim/shlavbet/internal/metrics"
	"github.com/medsim/shlavbet/internal/model"
)

// Completer is the text generation collaborator. A transport, auth, or
// rate-limit error is fatal for the calling step and must leave session
// state unmutated.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ImageFinder is the illustrative image lookup collaborator. Failures
// are non-fatal and degrade to "no image".
type ImageFinder interface {
	FindImage(ctx context.Context, query string) (string, error)
}

// Guard violations of the session state machine.
var (
	ErrNoProfile        = errors.New("no profile submitted")
	ErrCaseInProgress   = errors.New("a case is already active")
	ErrNoActiveCase     = errors.New("no active case")
	ErrAlreadyEvaluated = errors.New("case already evaluated")
	ErrNotEvaluated     = errors.New("active case not evaluated yet")
	ErrEmptyUtterance   = errors.New("utterance is empty")
)

// Fixed vocabulary of recognized diagnostic test orders.
var testOrderRe = regexp.MustCompile(`(?i)\b(ecg|ekg|ct|mri|x-?ray|eeg)\b`)

// Session holds all state for one resident's exam session. Every
// mutating step runs under the session mutex, so no two operations
// interleave on the same session.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	phase   model.Phase
	profile model.Profile
	current *model.Case
	history []model.DialogueTurn
	eval    *model.EvaluationReport
	log     CaseLog
}

// NewSession creates an empty session awaiting a profile.
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		phase:     model.PhaseNoProfile,
	}
}

// Snapshot is a read-only view of a session for display.
type Snapshot struct {
	ID         string                  `json:"id"`
	Phase      model.Phase             `json:"phase"`
	Profile    model.Profile           `json:"profile"`
	Case       *model.Case             `json:"case,omitempty"`
	History    []model.DialogueTurn    `json:"history"`
	Evaluation *model.EvaluationReport `json:"evaluation,omitempty"`
	CaseCount  int                     `json:"case_count"`
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]model.DialogueTurn, len(s.history))
	copy(history, s.history)

	snap := Snapshot{
		ID:        s.ID,
		Phase:     s.phase,
		Profile:   s.profile,
		History:   history,
		CaseCount: s.log.Len(),
	}
	if s.current != nil {
		c := *s.current
		snap.Case = &c
	}
	if s.eval != nil {
		e := *s.eval
		snap.Evaluation = &e
	}
	return snap
}

// Analytics returns the session log projection, running mean, and
// score trend.
func (s *Session) Analytics() model.Analytics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Analytics{
		Rows:      s.log.Rows(),
		MeanScore: s.log.MeanScore(),
		Trend:     s.log.Scores(),
	}
}

// LogEntries returns a copy of the completed-case log.
func (s *Session) LogEntries() []model.CaseLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Entries()
}

// Profile returns the current profile.
func (s *Session) Profile() model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Engine runs exam sessions against the generation and image lookup
// collaborators. Provider selection is a construction-time choice.
type Engine struct {
	completer Completer
	images    ImageFinder
	variant   prompts.Variant
	logger    *slog.Logger
}

// NewEngine creates an engine. images may be nil to disable the image
// side channel.
func NewEngine(completer Completer, images ImageFinder, variant prompts.Variant, logger *slog.Logger) (*Engine, error) {
	if err := prompts.Load(prompts.Files); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	if !prompts.IsValidVariant(string(variant)) {
		return nil, fmt.Errorf("invalid prompt variant %q", variant)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		completer: completer,
		images:    images,
		variant:   variant,
		logger:    logger,
	}, nil
}

// SetProfile submits the resident profile. The profile is replaced
// wholesale; resubmission is rejected while a case is in flight.
func (e *Engine) SetProfile(s *Session, p model.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == model.PhaseCaseActive || s.phase == model.PhaseEvaluated {
		return ErrCaseInProgress
	}
	s.profile = p
	s.phase = model.PhaseProfileSet
	return nil
}

// StartCase generates a new personalized case from the current
// profile. On success the dialogue history and any previous evaluation
// are cleared; on failure session state is unchanged.
func (e *Engine) StartCase(ctx context.Context, s *Session) (*model.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case model.PhaseNoProfile:
		return nil, ErrNoProfile
	case model.PhaseCaseActive, model.PhaseEvaluated:
		return nil, ErrCaseInProgress
	}

	system := prompts.BuildCaseSystemPrompt(s.profile)
	start := time.Now()
	text, err := e.completer.Complete(ctx, system, "Generate the case now.")
	metrics.RecordLLMRequest("generate_case", time.Since(start), err == nil)
	if err != nil {
		return nil, fmt.Errorf("generate case: %w", err)
	}

	c := &model.Case{Text: text, Profile: s.profile}
	s.current = c
	s.history = nil
	s.eval = nil
	s.phase = model.PhaseCaseActive
	metrics.RecordCaseGenerated(string(s.profile.Difficulty))
	e.logger.Info("case generated", "session_id", s.ID, "topic", s.profile.Topic, "difficulty", s.profile.Difficulty)
	return c, nil
}

// Ask routes a resident utterance to the patient simulator and appends
// exactly one dialogue turn, in the order (utterance, reply). A failed
// call leaves the history untouched. When the utterance orders a
// recognized diagnostic test, an illustrative image is looked up as a
// non-fatal side channel.
func (e *Engine) Ask(ctx context.Context, s *Session, utterance, extraData string) (model.DialogueTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseCaseActive {
		if s.phase == model.PhaseEvaluated {
			return model.DialogueTurn{}, ErrAlreadyEvaluated
		}
		return model.DialogueTurn{}, ErrNoActiveCase
	}
	if strings.TrimSpace(utterance) == "" {
		return model.DialogueTurn{}, ErrEmptyUtterance
	}

	system := prompts.BuildPatientSystemPrompt(s.current.Profile.Difficulty)
	user := prompts.PatientUserPrompt(s.current.Text, s.history, utterance, extraData)
	start := time.Now()
	answer, err := e.completer.Complete(ctx, system, user)
	metrics.RecordLLMRequest("patient_reply", time.Since(start), err == nil)
	if err != nil {
		return model.DialogueTurn{}, fmt.Errorf("patient response: %w", err)
	}

	turn := model.DialogueTurn{Question: utterance, Answer: answer}
	if test, ok := orderedTest(utterance); ok {
		turn.ImageURL = e.lookupImage(ctx, test, s.current.Profile.Topic)
	}
	s.history = append(s.history, turn)
	metrics.RecordDialogueTurn()
	return turn, nil
}

// Evaluate summarizes the full dialogue into an examiner report,
// extracts score and verdict, and appends a case log entry. On
// generation failure no state changes; re-evaluation of an already
// evaluated case is rejected.
func (e *Engine) Evaluate(ctx context.Context, s *Session) (model.EvaluationReport, model.CaseLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseCaseActive {
		if s.phase == model.PhaseEvaluated {
			return model.EvaluationReport{}, model.CaseLogEntry{}, ErrAlreadyEvaluated
		}
		return model.EvaluationReport{}, model.CaseLogEntry{}, ErrNoActiveCase
	}

	system, err := prompts.BuildEvalSystemPrompt(e.variant, prompts.EvalData{
		Topic:      s.current.Profile.Topic,
		Difficulty: s.current.Profile.Difficulty,
	})
	if err != nil {
		return model.EvaluationReport{}, model.CaseLogEntry{}, fmt.Errorf("build evaluator prompt: %w", err)
	}
	start := time.Now()
	text, err := e.completer.Complete(ctx, system, prompts.EvalUserPrompt(s.current.Text, s.history))
	metrics.RecordLLMRequest("evaluate", time.Since(start), err == nil)
	if err != nil {
		return model.EvaluationReport{}, model.CaseLogEntry{}, fmt.Errorf("evaluate case: %w", err)
	}

	report := ParseReport(text)
	entry := s.log.Append(s.current.Profile.Topic, report.Score, report.Verdict)
	s.eval = &report
	s.phase = model.PhaseEvaluated
	metrics.RecordEvaluation(report.Score)
	e.logger.Info("case evaluated", "session_id", s.ID, "case_number", entry.CaseNumber, "score", report.Score)
	return report, entry, nil
}

// NextCase applies the adaptive rule to derive the next profile, then
// clears the case, history, and evaluation. The session returns to the
// profile-set phase ready for a new case.
func (e *Engine) NextCase(s *Session) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseEvaluated {
		if s.phase == model.PhaseCaseActive {
			return model.Profile{}, ErrNotEvaluated
		}
		return model.Profile{}, ErrNoActiveCase
	}

	s.profile = NextProfile(s.profile, &s.log)
	s.current = nil
	s.history = nil
	s.eval = nil
	s.phase = model.PhaseProfileSet
	e.logger.Info("adaptive restart", "session_id", s.ID, "difficulty", s.profile.Difficulty, "topic", s.profile.Topic)
	return s.profile, nil
}

// orderedTest reports the first recognized diagnostic test named in
// the utterance, normalized (EKG folds into ECG).
func orderedTest(utterance string) (string, bool) {
	m := testOrderRe.FindString(utterance)
	if m == "" {
		return "", false
	}
	test := strings.ToUpper(m)
	switch test {
	case "EKG":
		test = "ECG"
	case "XRAY":
		test = "X-RAY"
	}
	return test, true
}

// lookupImage queries the image collaborator keyed by test and topic.
// Any failure silently degrades to no image.
func (e *Engine) lookupImage(ctx context.Context, test, topic string) string {
	if e.images == nil {
		return ""
	}
	url, err := e.images.FindImage(ctx, test+" "+topic)
	if err != nil {
		e.logger.Debug("image lookup failed", "test", test, "topic", topic, "error", err)
		metrics.RecordImageLookup("error")
		return ""
	}
	if url == "" {
		metrics.RecordImageLookup("miss")
		return ""
	}
	metrics.RecordImageLookup("hit")
	return url
}
