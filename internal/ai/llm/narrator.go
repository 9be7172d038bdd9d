package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"sevenms-engine/internal/engine"
)

// ErrNotConfigured means no LLM API key is present. Narration is an
// optional layer; callers treat this as "skip", not as a failure.
var ErrNotConfigured = errors.New("llm narrator not configured")

// Narrator turns analysis results into short plain-language summaries
type Narrator struct {
	client *Client
	logger zerolog.Logger
}

// NewNarrator creates a narrator. client may be nil.
func NewNarrator(client *Client, logger zerolog.Logger) *Narrator {
	return &Narrator{
		client: client,
		logger: logger.With().Str("component", "narrator").Logger(),
	}
}

// Enabled reports whether narration requests will be sent
func (n *Narrator) Enabled() bool {
	return n.client != nil && n.client.IsConfigured()
}

// NarrateRun produces commentary for one analysis result. The result
// is read only; nothing the model says changes detection or sizing.
func (n *Narrator) NarrateRun(ctx context.Context, res *engine.Result) (string, error) {
	if !n.Enabled() {
		return "", ErrNotConfigured
	}

	text, err := n.client.Complete(ctx, SystemPromptNarration, BuildRunPrompt(res))
	if err != nil {
		n.logger.Warn().Err(err).Str("run_id", res.RunID).Msg("Narration request failed")
		return "", err
	}

	narration := strings.TrimSpace(text)
	n.logger.Debug().Str("run_id", res.RunID).Int("chars", len(narration)).Msg("Narration generated")
	return narration, nil
}
