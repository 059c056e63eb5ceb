package prompts

import (
	"strings"
	"testing"

	"github.com/medsim/shlavbet/internal/model"
)

func loadTemplates(t *testing.T) {
	t.Helper()
	if err := Load(Files); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestBuildCaseSystemPromptEmbedsProfile(t *testing.T) {
	p := model.Profile{
		ResidencyYear:   model.PGY3,
		RecentRotations: []string{"ICU", "cardiology"},
		Strengths:       "acute management",
		Weaknesses:      "renal disorders",
		LearningGoals:   "pass the oral exam",
		Difficulty:      model.DifficultyHard,
		Topic:           "acute kidney injury",
	}
	got := BuildCaseSystemPrompt(p)

	for _, want := range []string{
		"PGY3",
		"ICU, cardiology",
		"acute management",
		"renal disorders",
		"pass the oral exam",
		"Hard",
		"acute kidney injury",
		"Chief complaint and history",
		"Vital signs",
		"Do not include exam findings or lab results",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("case prompt missing %q", want)
		}
	}
}

func TestBuildCaseSystemPromptEmptyOptionalFields(t *testing.T) {
	p := model.Profile{
		ResidencyYear: model.PGY1,
		Difficulty:    model.DifficultyEasy,
		Topic:         "sepsis",
	}
	got := BuildCaseSystemPrompt(p)
	if !strings.Contains(got, "- Rotations: \n") {
		t.Errorf("empty rotations line missing:\n%s", got)
	}
	if !strings.Contains(got, "sepsis") {
		t.Error("topic missing")
	}
}

func TestBuildPatientSystemPromptDifficulty(t *testing.T) {
	rawOnly := "Report raw findings only"

	easy := BuildPatientSystemPrompt(model.DifficultyEasy)
	if strings.Contains(easy, rawOnly) {
		t.Error("Easy prompt restricts interpretation")
	}
	for _, d := range []model.Difficulty{model.DifficultyMedium, model.DifficultyHard} {
		got := BuildPatientSystemPrompt(d)
		if !strings.Contains(got, rawOnly) {
			t.Errorf("%s prompt missing raw-findings instruction", d)
		}
	}

	for _, want := range []string{"third-person", "Do not give away the diagnosis"} {
		if !strings.Contains(easy, want) {
			t.Errorf("patient prompt missing %q", want)
		}
	}
}

func TestTranscriptOrder(t *testing.T) {
	history := []model.DialogueTurn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	}
	got := Transcript(history)
	want := "User: q1\nPatient: a1\nUser: q2\nPatient: a2"
	if got != want {
		t.Errorf("Transcript = %q, want %q", got, want)
	}
	if Transcript(nil) != "" {
		t.Error("Transcript(nil) not empty")
	}
}

func TestPatientUserPromptExtraData(t *testing.T) {
	got := PatientUserPrompt("case", nil, "order labs", "K+ 6.2")
	if !strings.Contains(got, "Additional data provided: K+ 6.2") {
		t.Errorf("extra data missing:\n%s", got)
	}
	plain := PatientUserPrompt("case", nil, "order labs", "")
	if strings.Contains(plain, "Additional data provided") {
		t.Error("extra data marker present without extra data")
	}
}

func TestBuildEvalSystemPromptVariants(t *testing.T) {
	loadTemplates(t)

	data := EvalData{Topic: "chest pain", Difficulty: model.DifficultyMedium}
	for _, v := range []Variant{VariantStrict, VariantStandard, VariantLenient} {
		got, err := BuildEvalSystemPrompt(v, data)
		if err != nil {
			t.Fatalf("BuildEvalSystemPrompt(%s): %v", v, err)
		}
		for _, want := range []string{"chest pain", "Correct Answer", "Recommended Treatment"} {
			if !strings.Contains(got, want) {
				t.Errorf("%s prompt missing %q", v, want)
			}
		}
	}

	strict, err := BuildEvalSystemPrompt(VariantStrict, data)
	if err != nil {
		t.Fatalf("BuildEvalSystemPrompt(strict): %v", err)
	}
	if !strings.Contains(strict, "below 60") {
		t.Error("strict prompt missing the failing-score policy")
	}

	if _, err := BuildEvalSystemPrompt("harsh", data); err == nil {
		t.Error("unknown variant accepted")
	}
}

func TestIsValidVariant(t *testing.T) {
	for _, v := range []string{"strict", "standard", "lenient"} {
		if !IsValidVariant(v) {
			t.Errorf("IsValidVariant(%q) = false", v)
		}
	}
	for _, v := range []string{"", "Strict", "harsh"} {
		if IsValidVariant(v) {
			t.Errorf("IsValidVariant(%q) = true", v)
		}
	}
}
