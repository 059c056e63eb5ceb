package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"text/template"

	"github.com/medsim/shlavbet/internal/model"
)

//go:embed prompts/*.txt
var Files embed.FS

// Variant selects the examiner's scoring temperament.
type Variant string

const (
	// VariantStrict carries the original scoring policy: a score below 60
	// whenever no diagnosis was made or the diagnosis is incorrect.
	VariantStrict Variant = "strict"
	// VariantStandard is a balanced examiner.
	VariantStandard Variant = "standard"
	// VariantLenient is a formative, encouragement-first examiner.
	VariantLenient Variant = "lenient"
)

var validVariants = map[Variant]bool{
	VariantStrict:   true,
	VariantStandard: true,
	VariantLenient:  true,
}

// IsValidVariant checks if a variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

var (
	loadOnce      sync.Once
	loadErr       error
	evalTemplates map[Variant]*template.Template
)

// EvalData holds template data for evaluator prompts.
type EvalData struct {
	Topic      string
	Difficulty model.Difficulty
}

// Load parses the embedded evaluator prompt templates. It uses
// sync.Once so templates are loaded only once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		evalTemplates = make(map[Variant]*template.Template)
		for v := range validVariants {
			name := "prompts/eval_" + string(v) + ".txt"
			content, err := fs.ReadFile(fsys, name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New("eval").Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			evalTemplates[v] = tmpl
		}
	})
	return loadErr
}

// BuildEvalSystemPrompt renders the examiner system instruction for
// the given variant.
func BuildEvalSystemPrompt(variant Variant, data EvalData) (string, error) {
	if evalTemplates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := evalTemplates[variant]
	if !ok {
		return "", fmt.Errorf("invalid prompt variant %q", variant)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildCaseSystemPrompt builds the case generator instruction. Every
// profile field is embedded verbatim so the case can be personalized;
// the case is bounded to history and vitals only.
func BuildCaseSystemPrompt(p model.Profile) string {
	var sb strings.Builder
	sb.WriteString("You are a board-certified internal medicine specialist.\n")
	sb.WriteString("Generate a realistic, concise oral exam case for the Israeli 'Shlav Bet'.\n\n")
	sb.WriteString("Customize for this resident:\n")
	sb.WriteString("- Year: " + string(p.ResidencyYear) + "\n")
	sb.WriteString("- Rotations: " + strings.Join(p.RecentRotations, ", ") + "\n")
	sb.WriteString("- Strengths: " + p.Strengths + "\n")
	sb.WriteString("- Weak Areas: " + p.Weaknesses + "\n")
	sb.WriteString("- Learning Goal: " + p.LearningGoals + "\n")
	sb.WriteString("- Difficulty: " + string(p.Difficulty) + "\n")
	sb.WriteString("- Topic: " + p.Topic + "\n\n")
	sb.WriteString("Include ONLY:\n")
	sb.WriteString("1. Chief complaint and history (max 3-4 sentences)\n")
	sb.WriteString("2. Vital signs\n\n")
	sb.WriteString("Do not include exam findings or lab results.\n")
	sb.WriteString("Keep the case brief and focused. Only output the case text.\n")
	return sb.String()
}

// BuildPatientSystemPrompt builds the patient simulator instruction.
// At Medium and Hard difficulty, raw diagnostic findings must be
// reported without interpretive commentary.
func BuildPatientSystemPrompt(d model.Difficulty) string {
	var sb strings.Builder
	sb.WriteString("You are a simulated patient case for a residency exam.\n")
	sb.WriteString("Respond ONLY in a clinical, third-person style (e.g., 'The CT scan shows...', 'The CO2 levels are...').\n")
	sb.WriteString("Do NOT use first person (do not say 'I', 'my', 'me').\n")
	sb.WriteString("Respond only with what the case allows: history, vitals, results of tests that have been ordered.\n")
	sb.WriteString("Do not give away the diagnosis. Keep it realistic.\n")
	if d == model.DifficultyMedium || d == model.DifficultyHard {
		sb.WriteString("Report raw findings only (imaging, labs) without any interpretive commentary.\n")
	}
	return sb.String()
}

// PatientUserPrompt renders the case, the dialogue so far, and the new
// utterance into the user message for the patient simulator.
func PatientUserPrompt(caseText string, history []model.DialogueTurn, utterance, extraData string) string {
	if extraData != "" {
		utterance = utterance + "\n\nAdditional data provided: " + extraData
	}
	var sb strings.Builder
	sb.WriteString("Case: " + caseText + "\n\n")
	sb.WriteString("History so far:\n" + Transcript(history) + "\n")
	sb.WriteString("User: " + utterance)
	return sb.String()
}

// EvalUserPrompt renders the case and the full transcript into the
// user message for the examiner.
func EvalUserPrompt(caseText string, history []model.DialogueTurn) string {
	var sb strings.Builder
	sb.WriteString("Case: " + caseText + "\n\n")
	sb.WriteString("Resident-Patient Dialogue:\n" + Transcript(history))
	return sb.String()
}

// Transcript renders the dialogue history in call order.
func Transcript(history []model.DialogueTurn) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, "User: "+turn.Question+"\nPatient: "+turn.Answer)
	}
	return strings.Join(lines, "\n")
}
