package stylist

import (
	"testing"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantFit int
		wantErr bool
	}{
		{
			name:    "plain json",
			input:   `{"fitScore": 85, "colorScore": 90, "styleGrade": "A", "tips": ["tuck it in"]}`,
			want:    "A",
			wantFit: 85,
		},
		{
			name:    "fenced json",
			input:   "```json\n{\"fitScore\": 70, \"colorScore\": 60, \"styleGrade\": \"B-\", \"tips\": []}\n```",
			want:    "B-",
			wantFit: 70,
		},
		{
			name:    "bare fence",
			input:   "```\n{\"fitScore\": 50, \"colorScore\": 50, \"styleGrade\": \"C\", \"tips\": []}\n```",
			want:    "C",
			wantFit: 50,
		},
		{
			name:    "scores clamped",
			input:   `{"fitScore": 150, "colorScore": -5, "styleGrade": "A"}`,
			want:    "A",
			wantFit: 100,
		},
		{name: "not json", input: "the outfit looks great", wantErr: true},
		{name: "missing grade", input: `{"fitScore": 85, "colorScore": 90}`, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseAnalysis(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got.StyleGrade != tc.want {
				t.Fatalf("styleGrade = %q, want %q", got.StyleGrade, tc.want)
			}
			if got.FitScore != tc.wantFit {
				t.Fatalf("fitScore = %d, want %d", got.FitScore, tc.wantFit)
			}
		})
	}
}

func TestSuccessDefault(t *testing.T) {
	en := SuccessDefault("replicate", "en")
	if en.FitScore != 99 || en.ColorScore != 98 || en.StyleGrade != "A++" {
		t.Fatalf("english default = %+v", en)
	}
	if len(en.Tips) != 3 {
		t.Fatalf("tips len = %d, want 3", len(en.Tips))
	}
	if en.Tips[1] != "Generated by replicate" {
		t.Fatalf("provider tip = %q", en.Tips[1])
	}

	ar := SuccessDefault("ootdiffusion", "ar")
	if ar.StyleGrade != "A++" {
		t.Fatalf("arabic default grade = %q", ar.StyleGrade)
	}
	if ar.Tips[0] == en.Tips[0] {
		t.Fatalf("arabic tips must be localized")
	}
}

func TestDegradedDefault(t *testing.T) {
	got := DegradedDefault("en")
	if got.FitScore != 0 || got.ColorScore != 0 || got.StyleGrade != "Error" {
		t.Fatalf("degraded default = %+v", got)
	}
	if len(got.Tips) != 3 {
		t.Fatalf("tips len = %d, want 3", len(got.Tips))
	}
	ar := DegradedDefault("ar")
	if ar.Tips[0] == got.Tips[0] {
		t.Fatalf("arabic degraded tips must be localized")
	}
}
