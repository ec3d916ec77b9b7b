package pipeline

import (
	"strings"
	"testing"

	"supportbot/internal/domain"
)

func TestPromptBuild(t *testing.T) {
	b := NewPromptBuilder("Acme", "warm and direct")
	brand := &domain.BrandContext{Text: "Acme ships widgets worldwide."}

	got := b.Build(brand, "do you ship to Japan?")

	for _, want := range []string{
		"customer success assistant for Acme",
		"Tone: warm and direct",
		"Acme ships widgets worldwide.",
		"under 150 words",
		"do you ship to Japan?",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}

	// The question must come after the brand context so instructions
	// cannot be overridden by earlier text.
	if strings.Index(got, "Acme ships widgets") > strings.Index(got, "do you ship to Japan?") {
		t.Fatal("brand context should precede the question")
	}
}
