package proposal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sevenms-engine/internal/events"
	"sevenms-engine/internal/plan"
)

// Store persists proposals across restarts. The gate works without one;
// persistence failures are logged and never block the review flow.
type Store interface {
	SaveProposal(ctx context.Context, p *Proposal) error
	UpdateProposal(ctx context.Context, p *Proposal) error
	LoadPending(ctx context.Context) ([]*Proposal, error)
}

// Gate is the approval checkpoint between the analysis engine and the
// broker. Every plan enters as a pending proposal and only an explicit
// reviewer decision moves it on.
type Gate struct {
	mu        sync.RWMutex
	proposals map[string]*Proposal
	store     Store
	bus       *events.EventBus
	logger    zerolog.Logger
}

// NewGate creates a proposal gate. store may be nil for memory-only
// operation.
func NewGate(store Store, bus *events.EventBus, logger zerolog.Logger) *Gate {
	return &Gate{
		proposals: make(map[string]*Proposal),
		store:     store,
		bus:       bus,
		logger:    logger.With().Str("component", "proposal_gate").Logger(),
	}
}

// Submit registers a new pending proposal for the given plan
func (g *Gate) Submit(ctx context.Context, runID string, tp *plan.TradePlan) (*Proposal, error) {
	if tp == nil {
		return nil, fmt.Errorf("%w: nil plan", ErrInvalidState)
	}

	p := &Proposal{
		ID:        uuid.New().String(),
		RunID:     runID,
		Plan:      tp,
		Status:    StatusPending,
		ZeroSize:  tp.ZeroSize(),
		CreatedAt: time.Now().UTC(),
	}

	g.mu.Lock()
	g.proposals[p.ID] = p
	snap := p.clone()
	g.mu.Unlock()

	g.persist(ctx, snap, true)

	g.logger.Info().
		Str("proposal_id", snap.ID).
		Str("symbol", tp.Symbol).
		Str("direction", string(tp.Direction)).
		Float64("entry", tp.Entry).
		Float64("size", tp.Size).
		Bool("zero_size", snap.ZeroSize).
		Msg("proposal submitted for review")

	if g.bus != nil {
		g.bus.PublishProposalCreated(snap.ID, runID, tp.Symbol, string(tp.Direction), tp.Entry, tp.Size, snap.ZeroSize)
	}
	return snap, nil
}

// Get returns a proposal by ID
func (g *Gate) Get(id string) (*Proposal, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.proposals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.clone(), nil
}

// List returns proposals, newest first, optionally filtered by status.
// An empty status returns everything.
func (g *Gate) List(status Status) []*Proposal {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Proposal, 0, len(g.proposals))
	for _, p := range g.proposals {
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Counts returns the number of proposals per status
func (g *Gate) Counts() map[Status]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	counts := make(map[Status]int)
	for _, p := range g.proposals {
		counts[p.Status]++
	}
	return counts
}

// Decide applies a reviewer decision to a pending proposal. Approve and
// reject return the decided proposal. Edit marks the original as
// superseded, spawns a pending revision carrying the overrides, and
// returns the revision. Deciding a proposal twice is an invalid state
// error, not a silent overwrite.
func (g *Gate) Decide(ctx context.Context, id string, decision Decision, note string, edit *PlanEdit) (*Proposal, error) {
	g.mu.Lock()

	p, ok := g.proposals[id]
	if !ok {
		g.mu.Unlock()
		return nil, ErrNotFound
	}
	if p.Status != StatusPending {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: proposal %s is %s", ErrInvalidState, id, p.Status)
	}

	now := time.Now().UTC()
	var revision *Proposal

	switch decision {
	case DecisionApprove:
		p.Status = StatusApproved
	case DecisionReject:
		p.Status = StatusRejected
	case DecisionEdit:
		if edit == nil {
			edit = &PlanEdit{}
		}
		p.Status = StatusEdited
		revised := edit.Apply(p.Plan)
		revision = &Proposal{
			ID:         uuid.New().String(),
			RunID:      p.RunID,
			Plan:       revised,
			Status:     StatusPending,
			RevisionOf: p.ID,
			ZeroSize:   revised.ZeroSize(),
			CreatedAt:  now,
		}
		g.proposals[revision.ID] = revision
	default:
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidState, decision)
	}

	p.Note = note
	p.DecidedAt = &now
	snap := p.clone()
	var revSnap *Proposal
	if revision != nil {
		revSnap = revision.clone()
	}
	g.mu.Unlock()

	g.persist(ctx, snap, false)
	if revSnap != nil {
		g.persist(ctx, revSnap, true)
	}

	g.logger.Info().
		Str("proposal_id", snap.ID).
		Str("decision", string(decision)).
		Str("status", string(snap.Status)).
		Msg("proposal decided")

	if g.bus != nil {
		g.bus.PublishProposalDecided(snap.ID, string(decision), string(snap.Status))
		if revSnap != nil {
			g.bus.PublishProposalCreated(revSnap.ID, revSnap.RunID, revSnap.Plan.Symbol,
				string(revSnap.Plan.Direction), revSnap.Plan.Entry, revSnap.Plan.Size, revSnap.ZeroSize)
		}
	}

	if revSnap != nil {
		return revSnap, nil
	}
	return snap, nil
}

// MarkExecuted moves an approved or edited proposal to executed,
// recording the broker order ID
func (g *Gate) MarkExecuted(ctx context.Context, id, orderID string) (*Proposal, error) {
	g.mu.Lock()

	p, ok := g.proposals[id]
	if !ok {
		g.mu.Unlock()
		return nil, ErrNotFound
	}
	if !canTransition(p.Status, StatusExecuted) {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: proposal %s is %s", ErrInvalidState, id, p.Status)
	}

	now := time.Now().UTC()
	p.Status = StatusExecuted
	p.OrderID = orderID
	p.ExecutedAt = &now
	snap := p.clone()
	g.mu.Unlock()

	g.persist(ctx, snap, false)

	g.logger.Info().
		Str("proposal_id", snap.ID).
		Str("order_id", orderID).
		Msg("proposal executed")

	if g.bus != nil {
		g.bus.PublishProposalExecuted(snap.ID, orderID, snap.Plan.Symbol, snap.Plan.Size)
	}
	return snap, nil
}

// MarkClosed moves an executed proposal to closed
func (g *Gate) MarkClosed(ctx context.Context, id string) (*Proposal, error) {
	g.mu.Lock()

	p, ok := g.proposals[id]
	if !ok {
		g.mu.Unlock()
		return nil, ErrNotFound
	}
	if !canTransition(p.Status, StatusClosed) {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: proposal %s is %s", ErrInvalidState, id, p.Status)
	}

	now := time.Now().UTC()
	p.Status = StatusClosed
	p.ClosedAt = &now
	snap := p.clone()
	g.mu.Unlock()

	g.persist(ctx, snap, false)

	g.logger.Info().Str("proposal_id", snap.ID).Msg("proposal closed")

	if g.bus != nil {
		g.bus.PublishProposalClosed(snap.ID, snap.OrderID)
	}
	return snap, nil
}

// DiscardPending retires every pending proposal, returning how many
// were discarded. Used on shutdown so stale setups are never acted on
// after a restart.
func (g *Gate) DiscardPending(ctx context.Context, reason string) int {
	g.mu.Lock()
	var discarded []*Proposal
	for _, p := range g.proposals {
		if p.Status != StatusPending {
			continue
		}
		now := time.Now().UTC()
		p.Status = StatusDiscarded
		p.Note = reason
		p.DecidedAt = &now
		discarded = append(discarded, p.clone())
	}
	g.mu.Unlock()

	for _, p := range discarded {
		g.persist(ctx, p, false)
		if g.bus != nil {
			g.bus.PublishProposalDiscarded(p.ID, reason)
		}
	}

	if len(discarded) > 0 {
		g.logger.Info().Int("count", len(discarded)).Str("reason", reason).Msg("pending proposals discarded")
	}
	return len(discarded)
}

// Restore loads pending proposals from the store into memory. Called
// once at startup, before the engine produces new work.
func (g *Gate) Restore(ctx context.Context) (int, error) {
	if g.store == nil {
		return 0, nil
	}

	pending, err := g.store.LoadPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore pending proposals: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	restored := 0
	for _, p := range pending {
		if _, exists := g.proposals[p.ID]; exists {
			continue
		}
		g.proposals[p.ID] = p
		restored++
	}
	if restored > 0 {
		g.logger.Info().Int("count", restored).Msg("pending proposals restored")
	}
	return restored, nil
}

func (g *Gate) persist(ctx context.Context, p *Proposal, create bool) {
	if g.store == nil {
		return
	}
	var err error
	if create {
		err = g.store.SaveProposal(ctx, p)
	} else {
		err = g.store.UpdateProposal(ctx, p)
	}
	if err != nil {
		g.logger.Error().Err(err).Str("proposal_id", p.ID).Msg("failed to persist proposal")
	}
}

func (p *Proposal) clone() *Proposal {
	c := *p
	return &c
}
