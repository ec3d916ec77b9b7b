package domain

import (
	"context"
	"time"
)

// ModelDescriptor is the validated view of a provider-reported model.
// Entries that cannot be mapped to this shape are discarded rather than
// carried around half-populated.
type ModelDescriptor struct {
	Name        string
	DisplayName string
	Actions     []string // provider-reported generation actions
}

// SupportsGeneration reports whether the model can serve text generation.
func (d ModelDescriptor) SupportsGeneration() bool {
	for _, a := range d.Actions {
		if a == "generateContent" {
			return true
		}
	}
	return false
}

// Answer is a single generated reply. Produced once, never mutated.
type Answer struct {
	Text    string
	ModelID string
	Latency time.Duration
}

// ModelProvider is the interface to the hosted language-model API.
type ModelProvider interface {
	ListModels(ctx context.Context) ([]ModelDescriptor, error)
	Generate(ctx context.Context, prompt, modelID string) (*Answer, error)
}
