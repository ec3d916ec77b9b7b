package pipeline

import (
	"fmt"
	"strings"

	"supportbot/internal/domain"
)

// PromptBuilder assembles the grounded prompt sent to the model. The brand
// snapshot is passed in per call so one pipeline run never mixes two
// versions of the context.
type PromptBuilder struct {
	brandName string
	tone      string
}

func NewPromptBuilder(brandName, tone string) *PromptBuilder {
	return &PromptBuilder{brandName: brandName, tone: tone}
}

// Build renders the full prompt for one customer question. The question
// must already be redacted and trimmed by the caller.
func (b *PromptBuilder) Build(brand *domain.BrandContext, question string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a customer success assistant for %s.\n", b.brandName)
	fmt.Fprintf(&sb, "Tone: %s\n\n", b.tone)
	sb.WriteString("Brand context:\n")
	sb.WriteString(brand.Text)
	sb.WriteString("\n\nInstructions:\n")
	sb.WriteString("1. Answer only using the brand context above.\n")
	sb.WriteString("2. If the context does not cover the question, say so and suggest contacting the support team.\n")
	sb.WriteString("3. Never invent prices, dates, or policies.\n")
	sb.WriteString("4. Keep the answer under 150 words.\n")
	sb.WriteString("\nCustomer question:\n")
	sb.WriteString(question)
	return sb.String()
}
