package insight

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/tententen/internal/domain"
)

// Requester turns a completed session into one generation call.
type Requester struct {
	gen    Generator
	logger *slog.Logger
}

// NewRequester creates a Requester backed by gen.
func NewRequester(gen Generator, logger *slog.Logger) *Requester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Requester{gen: gen, logger: logger}
}

// Generate builds the prompt for s and sends it. Missing answers yield
// *domain.IncompleteStateError without any outbound call; a failed call or an
// empty reply yields *domain.GenerationError.
func (r *Requester) Generate(ctx context.Context, s *domain.SessionState) (string, error) {
	prompt, err := BuildPrompt(s)
	if err != nil {
		return "", err
	}

	start := time.Now()
	text, err := r.gen.Generate(ctx, Request{
		Prompt:    prompt,
		UserID:    s.UserID,
		SessionID: s.SessionID,
	})
	if err != nil {
		r.logger.Warn("Insight generation failed",
			"user_id", s.UserID,
			"session_id", s.SessionID,
			"duration", time.Since(start),
			"error", err,
		)
		var gerr *domain.GenerationError
		if errors.As(err, &gerr) {
			return "", gerr
		}
		return "", &domain.GenerationError{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &domain.GenerationError{Err: domain.ErrEmptyInsight}
	}

	r.logger.Info("Insight generated",
		"user_id", s.UserID,
		"session_id", s.SessionID,
		"prompt_length", len(prompt),
		"insight_length", len(text),
		"duration", time.Since(start),
	)
	return text, nil
}

// Close releases the underlying generator.
func (r *Requester) Close() error {
	if r.gen == nil {
		return nil
	}
	return r.gen.Close()
}
