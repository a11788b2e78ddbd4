// Package generate runs the prompt-to-artifact pipeline: one completion
// call, artifact extraction, then a single session insert.
package generate

import (
	"context"
	"fmt"
	"time"

	"uicraft/internal/extract"
	"uicraft/internal/models"
	"uicraft/internal/service/studio"
)

// DefaultTimeout bounds the completion call when config leaves it unset.
const DefaultTimeout = 60 * time.Second

// CompletionClient issues a single completion request for a prompt.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Service composes the completion client, the extractor, and the session
// store. It holds no per-request state.
type Service struct {
	llm     CompletionClient
	studio  *studio.Service
	timeout time.Duration
}

// NewService constructs the orchestrator.
func NewService(llm CompletionClient, store *studio.Service, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{llm: llm, studio: store, timeout: timeout}
}

// Generate turns a prompt into raw completion text and a persisted session.
// The steps run sequentially: extraction needs the completion result and
// persistence needs the extracted artifacts. A store failure fails the whole
// request; nothing is persisted on a completion failure.
func (s *Service) Generate(ctx context.Context, userID int64, prompt string) (string, *models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", nil, err
	}

	markup, stylesheet := extract.Artifacts(raw)

	session, err := s.studio.CreateSession(ctx, userID, prompt, markup, stylesheet)
	if err != nil {
		return "", nil, fmt.Errorf("persist session: %w", err)
	}
	return raw, session, nil
}
