package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsdeck/opsdeck/internal/adapters/llm"
	"github.com/opsdeck/opsdeck/internal/domain/decide"
)

// ProposerService turns a tenant context snapshot into a structured Decision
// by way of the generation service. Transport failures propagate to the
// caller (the run fails); unparseable output does not, it degrades via
// decide.ParseOrFallback so the run still produces at least one action.
type ProposerService struct {
	completer llm.Completer
	logger    *slog.Logger
}

// ProposerServiceOptions holds the dependencies for creating a ProposerService.
type ProposerServiceOptions struct {
	Completer llm.Completer
	Logger    *slog.Logger
}

// NewProposerService creates a new ProposerService with the given dependencies.
func NewProposerService(opts ProposerServiceOptions) *ProposerService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ProposerService{completer: opts.Completer, logger: opts.Logger}
}

// ProposeParams groups parameters for Propose.
type ProposeParams struct {
	// Instruction is the job-type system framing.
	Instruction string
	// Context is the aggregated tenant snapshot.
	Context string
}

// Propose calls the generation service and parses its output into a Decision.
func (s *ProposerService) Propose(ctx context.Context, p ProposeParams) (decide.Decision, error) {
	raw, err := s.completer.Complete(ctx, llm.CompleteRequest{
		System: p.Instruction,
		Prompt: p.Context,
	})
	if err != nil {
		return decide.Decision{}, fmt.Errorf("generation service call: %w", err)
	}

	d := decide.ParseOrFallback(raw)
	if _, parseErr := decide.Parse(raw); parseErr != nil {
		s.logger.WarnContext(ctx, "generation output not parseable, using fallback",
			"error", parseErr,
			"raw_len", len(raw),
		)
	}
	return d, nil
}
