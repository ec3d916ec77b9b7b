package model

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"supportbot/internal/domain"
	"supportbot/internal/metrics"
)

// Cascade turns one prompt into one answer by walking an ordered list of
// candidate models. Transient failures are retried on the same model with
// backoff; hard failures move on to the next model; safety refusals stop
// the walk entirely.
type Cascade struct {
	provider   domain.ModelProvider
	preferred  []string
	limiter    *RateLimiter
	logger     *slog.Logger
	maxRetries int

	// OnFallback, when set, is called whenever a non-primary model ends up
	// serving a request. Set before the cascade starts taking traffic.
	OnFallback func(modelID string)

	mu         sync.Mutex
	candidates []domain.ModelDescriptor
}

func NewCascade(provider domain.ModelProvider, preferred []string, limiter *RateLimiter, maxRetries int, logger *slog.Logger) *Cascade {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Cascade{
		provider:   provider,
		preferred:  preferred,
		limiter:    limiter,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Refresh re-lists the provider's models and rebuilds the candidate order.
// Returns the selected candidates.
func (c *Cascade) Refresh(ctx context.Context) ([]domain.ModelDescriptor, error) {
	models, err := c.provider.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh model list: %w", err)
	}
	selected := Select(models, c.preferred)

	c.mu.Lock()
	c.candidates = selected
	c.mu.Unlock()

	if len(selected) == 0 {
		return nil, ErrNoEligibleModel
	}
	c.logger.Info("model cascade refreshed",
		"available", len(models),
		"selected", len(selected),
		"primary", selected[0].Name,
	)
	return selected, nil
}

// Candidates returns the current cascade order, refreshing lazily on
// first use.
func (c *Cascade) Candidates(ctx context.Context) ([]domain.ModelDescriptor, error) {
	c.mu.Lock()
	cached := c.candidates
	c.mu.Unlock()
	if len(cached) > 0 {
		return cached, nil
	}
	return c.Refresh(ctx)
}

// Answer generates a reply for the prompt, falling through the candidate
// cascade as needed. A *BlockedError from any model is returned as-is:
// switching models would just resubmit the refused content.
func (c *Cascade) Answer(ctx context.Context, prompt string) (*domain.Answer, error) {
	candidates, err := c.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for i, m := range candidates {
		answer, err := c.tryModel(ctx, prompt, m.Name)
		if err == nil {
			if i > 0 {
				metrics.ModelFallbackTotal.Inc()
				c.logger.Info("cascade: used fallback model",
					"model", m.Name,
					"position", i+1,
				)
				if c.OnFallback != nil {
					c.OnFallback(m.Name)
				}
			}
			return answer, nil
		}
		if IsBlocked(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		c.logger.Warn("cascade: model failed, trying next",
			"model", m.Name,
			"position", i+1,
			"error", err,
		)
	}
	return nil, fmt.Errorf("all %d models in cascade failed: %w", len(candidates), lastErr)
}

// tryModel runs one model with exponential backoff retry for transient
// errors (429, 5xx, timeouts).
func (c *Cascade) tryModel(ctx context.Context, prompt, modelID string) (*domain.Answer, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with jitter to prevent thundering herd.
			base := time.Duration(attempt*attempt) * time.Second
			jitter := time.Duration(rand.Int64N(int64(base/2 + 1)))
			backoff := base + jitter
			c.logger.Warn("retrying model", "model", modelID, "attempt", attempt+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		answer, err := c.provider.Generate(ctx, prompt, modelID)
		if err == nil {
			return answer, nil
		}
		if IsBlocked(err) || !isTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("model %s failed after %d retries: %w", modelID, c.maxRetries, lastErr)
}
