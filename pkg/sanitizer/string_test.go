package sanitizer

import "testing"

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim spaces", "  Sprint Review  ", "Sprint Review"},
		{"multiple spaces between words", "Sprint    Review", "Sprint Review"},
		{"tabs and newlines", "Sprint\t\nReview", "Sprint Review"},
		{"empty string", "", ""},
		{"only whitespace", "   \t\n  ", ""},
		{"control characters", "Sprint\x00 Review\x07", "Sprint Review"},
		{"preserve case and symbols", " Q3 Budget & Plan™ ", "Q3 Budget & Plan™"},
		{"hebrew characters", " ישיבת צוות ", "ישיבת צוות"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeTitle(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := SanitizeTitle(got); again != got {
				t.Errorf("SanitizeTitle is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestPipeline_AppliesInOrder(t *testing.T) {
	p := Pipeline{
		func(s string) string { return s + "a" },
		func(s string) string { return s + "b" },
	}
	if got := p.Apply("x"); got != "xab" {
		t.Errorf("Apply() = %q, want xab", got)
	}
}
