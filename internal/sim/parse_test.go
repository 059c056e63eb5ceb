package sim

import "testing"

func TestParseReport(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantScore   int
		wantVerdict string
	}{
		{
			name: "typical report",
			text: "Strengths: good history taking.\nWeaknesses: slow to order imaging.\n" +
				"Score: 72\nFinal Verdict: Correct diagnosis made, but treatment plan incomplete.\n" +
				"Correct Answer: Pulmonary embolism\nRecommended Treatment: Anticoagulation",
			wantScore:   72,
			wantVerdict: "Correct diagnosis made, but treatment plan incomplete.",
		},
		{
			name:        "dash separators",
			text:        "score - 85\nverdict - excellent work",
			wantScore:   85,
			wantVerdict: "excellent work",
		},
		{
			name:        "no score token",
			text:        "The resident did well overall.\nFinal Verdict: adequate",
			wantScore:   0,
			wantVerdict: "adequate",
		},
		{
			name:        "no verdict token",
			text:        "Score: 55\nThe diagnosis was missed entirely.",
			wantScore:   55,
			wantVerdict: "N/A",
		},
		{
			name:        "empty text",
			text:        "",
			wantScore:   0,
			wantVerdict: "N/A",
		},
		{
			name:        "case insensitive tokens",
			text:        "SCORE: 90\nVERDICT: outstanding",
			wantScore:   90,
			wantVerdict: "outstanding",
		},
		{
			name:        "verdict before score",
			text:        "Final verdict: incorrect diagnosis\nOverall score: 40",
			wantScore:   40,
			wantVerdict: "incorrect diagnosis",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := ParseReport(tt.text)
			if report.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", report.Score, tt.wantScore)
			}
			if report.Verdict != tt.wantVerdict {
				t.Errorf("Verdict = %q, want %q", report.Verdict, tt.wantVerdict)
			}
			if report.FullText != tt.text {
				t.Errorf("FullText not preserved")
			}
		})
	}
}
