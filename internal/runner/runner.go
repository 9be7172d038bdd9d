package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"sevenms-engine/internal/ai/llm"
	"sevenms-engine/internal/api"
	"sevenms-engine/internal/database"
	"sevenms-engine/internal/engine"
	"sevenms-engine/internal/events"
	"sevenms-engine/internal/execution"
	"sevenms-engine/internal/feed"
	"sevenms-engine/internal/market"
	"sevenms-engine/internal/notification"
	"sevenms-engine/internal/proposal"
)

const (
	batchTimeout = 2 * time.Minute
	orderTimeout = 45 * time.Second
)

// Config drives the scheduled analysis loop.
type Config struct {
	Instruments     []string
	Schedules       map[market.Timeframe]string // cron spec per timeframe, six field with seconds
	DefaultEquity   float64
	InstrumentSpecs map[string]market.Instrument // used when the feed has no metadata for a symbol
}

// Runner owns the scheduled analysis loop and routes approved
// proposals to the broker.
type Runner struct {
	cfg      Config
	engine   *engine.Engine
	gate     *proposal.Gate
	provider feed.Provider
	executor execution.Executor
	bus      *events.EventBus
	cron     *cron.Cron
	logger   zerolog.Logger

	repo     *database.Repository
	notifier *notification.Manager
	narrator *llm.Narrator

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	runs      int64
	lastRun   time.Time
}

var _ api.EngineAPI = (*Runner)(nil)

// NewRunner creates a runner. Optional collaborators (persistence,
// notifications, narration) are attached with the Set methods before
// Start.
func NewRunner(
	cfg Config,
	eng *engine.Engine,
	gate *proposal.Gate,
	provider feed.Provider,
	executor execution.Executor,
	bus *events.EventBus,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		cfg:      cfg,
		engine:   eng,
		gate:     gate,
		provider: provider,
		executor: executor,
		bus:      bus,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With().Str("component", "runner").Logger(),
	}
}

// SetRepository attaches the run history store
func (r *Runner) SetRepository(repo *database.Repository) {
	r.repo = repo
}

// SetNotifier attaches the notification manager
func (r *Runner) SetNotifier(m *notification.Manager) {
	r.notifier = m
}

// SetNarrator attaches the LLM run narrator
func (r *Runner) SetNarrator(n *llm.Narrator) {
	r.narrator = n
}

// Start registers the cron schedules and begins executing approved
// proposals as review decisions arrive.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("runner already started")
	}

	for timeframe, spec := range r.cfg.Schedules {
		tf := timeframe
		if _, err := r.cron.AddFunc(spec, func() { r.runBatch(tf) }); err != nil {
			return fmt.Errorf("register %s schedule: %w", tf, err)
		}
		r.logger.Info().
			Str("timeframe", string(tf)).
			Str("schedule", spec).
			Msg("Scheduled analysis")
	}
	r.cron.Start()

	if r.bus != nil {
		r.bus.Subscribe(events.EventProposalDecided, r.onProposalDecided)
		r.bus.Publish(events.Event{
			Type: events.EventEngineStarted,
			Data: map[string]interface{}{
				"instruments": r.cfg.Instruments,
			},
		})
	}

	r.running = true
	r.startedAt = time.Now()
	r.logger.Info().
		Strs("instruments", r.cfg.Instruments).
		Int("schedules", len(r.cfg.Schedules)).
		Msg("Runner started")
	return nil
}

// Stop halts the schedule, waits for in-flight batches, and discards
// any proposals still awaiting review. Executed positions stay open.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	stopCtx := r.cron.Stop()
	<-stopCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if n := r.gate.DiscardPending(ctx, "engine stopped"); n > 0 {
		r.logger.Info().Int("count", n).Msg("Discarded pending proposals on shutdown")
	}

	if r.bus != nil {
		r.bus.Publish(events.Event{Type: events.EventEngineStopped})
	}
	r.logger.Info().Msg("Runner stopped")
}

// runBatch analyzes every configured instrument on one timeframe
func (r *Runner) runBatch(timeframe market.Timeframe) {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	for _, symbol := range r.cfg.Instruments {
		if _, err := r.RunOnce(ctx, symbol, timeframe); err != nil {
			r.logger.Error().Err(err).
				Str("symbol", symbol).
				Str("timeframe", string(timeframe)).
				Msg("Scheduled run failed")
		}
	}
}

// RunOnce analyzes one symbol on one timeframe, persists the outcome,
// and notifies the reviewer when a setup reached the gate.
func (r *Runner) RunOnce(ctx context.Context, symbol string, timeframe market.Timeframe) (*engine.Result, error) {
	inst := r.resolveInstrument(ctx, symbol)
	equity := r.resolveEquity(ctx)

	runID := uuid.New().String()
	if r.bus != nil {
		r.bus.PublishRunStarted(runID, symbol, string(timeframe))
	}

	res, err := r.engine.AnalyzeRun(ctx, runID, inst, timeframe, equity)
	if err != nil {
		if r.bus != nil {
			r.bus.PublishError("runner", fmt.Sprintf("analysis failed for %s %s", symbol, timeframe), err)
		}
		return nil, err
	}

	r.mu.Lock()
	r.runs++
	r.lastRun = time.Now()
	r.mu.Unlock()

	if r.repo != nil {
		if err := r.repo.SaveRun(ctx, res); err != nil {
			r.logger.Warn().Err(err).Str("run_id", res.RunID).Msg("Failed to persist run")
		}
	}

	if res.Proposal != nil && r.notifier != nil {
		tp := res.Proposal.Plan
		if err := r.notifier.SendProposal(tp.Symbol, string(tp.Direction), tp.Entry, tp.StopLoss, tp.Size, tp.ZeroSize(), tp.Reason); err != nil {
			r.logger.Warn().Err(err).Str("proposal_id", res.Proposal.ID).Msg("Proposal notification failed")
		}
	}

	if r.narrator != nil && r.narrator.Enabled() {
		// Narration runs on a copy so the HTTP response is not
		// mutated mid-flight.
		snap := *res
		go r.narrate(&snap)
	}

	if r.bus != nil {
		r.bus.PublishRunCompleted(res.RunID, symbol, string(timeframe), string(res.Verdict),
			res.FinishedAt.Sub(res.StartedAt).Milliseconds())
	}

	return res, nil
}

// narrate asks the LLM for a run summary and stores it on the run row
func (r *Runner) narrate(res *engine.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	text, err := r.narrator.NarrateRun(ctx, res)
	if err != nil {
		return
	}
	if r.repo != nil {
		if err := r.repo.UpdateRunNarration(ctx, res.RunID, text); err != nil {
			r.logger.Warn().Err(err).Str("run_id", res.RunID).Msg("Failed to store narration")
		}
	}
}

// resolveInstrument asks the feed for symbol metadata and falls back
// to the configured spec when the feed cannot provide it
func (r *Runner) resolveInstrument(ctx context.Context, symbol string) market.Instrument {
	inst, err := r.provider.GetInstrument(ctx, symbol)
	if err == nil && inst != nil {
		return *inst
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("symbol", symbol).Msg("Instrument metadata unavailable")
	}
	if spec, ok := r.cfg.InstrumentSpecs[symbol]; ok {
		return spec
	}
	return market.Instrument{Symbol: symbol, PointSize: 0.00001, Digits: 5, MinLot: 0.01, LotStep: 0.01}
}

// resolveEquity prefers the live account equity over the configured
// default
func (r *Runner) resolveEquity(ctx context.Context) float64 {
	acct, err := r.executor.AccountInfo(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Account info unavailable, using configured equity")
		return r.cfg.DefaultEquity
	}
	if acct == nil || acct.Equity <= 0 {
		return r.cfg.DefaultEquity
	}
	return acct.Equity
}

// onProposalDecided reacts to review decisions from the gate
func (r *Runner) onProposalDecided(ev events.Event) {
	status, _ := ev.Data["status"].(string)
	if status != string(proposal.StatusApproved) {
		return
	}
	id, _ := ev.Data["proposal_id"].(string)
	if id == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), orderTimeout)
	defer cancel()
	r.executeProposal(ctx, id)
}

// executeProposal submits an approved proposal to the broker. Orders
// are submitted exactly once; a failed submit leaves the proposal
// APPROVED so the reviewer can re-decide or discard it.
func (r *Runner) executeProposal(ctx context.Context, id string) {
	p, err := r.gate.Get(id)
	if err != nil {
		r.logger.Error().Err(err).Str("proposal_id", id).Msg("Approved proposal not found")
		return
	}
	if p.Status != proposal.StatusApproved || p.Plan == nil {
		return
	}
	if p.Plan.ZeroSize() {
		r.logger.Warn().Str("proposal_id", id).Msg("Approved plan has zero size, not submitting")
		if r.bus != nil {
			r.bus.PublishOrderFailed(id, p.Plan.Symbol, "plan has zero size")
		}
		return
	}

	orderID, err := r.executor.SubmitOrder(ctx, p.Plan)
	if err != nil {
		r.logger.Error().Err(err).
			Str("proposal_id", id).
			Str("symbol", p.Plan.Symbol).
			Msg("Order submission failed")
		if r.bus != nil {
			r.bus.PublishOrderFailed(id, p.Plan.Symbol, err.Error())
		}
		if r.notifier != nil {
			r.notifier.SendError("execution", fmt.Sprintf("Order for %s failed: %v", p.Plan.Symbol, err))
		}
		return
	}

	if _, err := r.gate.MarkExecuted(ctx, id, orderID); err != nil {
		r.logger.Error().Err(err).
			Str("proposal_id", id).
			Str("order_id", orderID).
			Msg("Order placed but proposal state not updated")
		return
	}

	if r.bus != nil {
		r.bus.PublishOrderSubmitted(id, orderID, p.Plan.Symbol, p.Plan.Size)
	}
	if r.notifier != nil {
		r.notifier.SendExecuted(p.Plan.Symbol, string(p.Plan.Direction), p.Plan.Entry, p.Plan.Size, orderID)
	}
	r.logger.Info().
		Str("proposal_id", id).
		Str("order_id", orderID).
		Str("symbol", p.Plan.Symbol).
		Float64("size", p.Plan.Size).
		Msg("Order submitted")
}

// ============================================================================
// HTTP API SURFACE
// ============================================================================

// TriggerRun runs one analysis on demand
func (r *Runner) TriggerRun(ctx context.Context, symbol string, timeframe market.Timeframe) (*engine.Result, error) {
	return r.RunOnce(ctx, symbol, timeframe)
}

// Instruments returns the configured instrument list
func (r *Runner) Instruments() []string {
	out := make([]string, len(r.cfg.Instruments))
	copy(out, r.cfg.Instruments)
	return out
}

// OpenPositions returns the broker's open positions
func (r *Runner) OpenPositions(ctx context.Context) ([]execution.Position, error) {
	return r.executor.OpenPositions(ctx)
}

// AccountInfo returns the broker account snapshot
func (r *Runner) AccountInfo(ctx context.Context) (*execution.Account, error) {
	return r.executor.AccountInfo(ctx)
}

// CloseProposal closes the broker position behind an executed proposal
// and marks the proposal CLOSED.
func (r *Runner) CloseProposal(ctx context.Context, proposalID string) (*proposal.Proposal, error) {
	p, err := r.gate.Get(proposalID)
	if err != nil {
		return nil, err
	}
	if p.Status != proposal.StatusExecuted || p.OrderID == "" {
		return nil, fmt.Errorf("%w: only executed proposals can be closed", proposal.ErrInvalidState)
	}

	if err := r.executor.ClosePosition(ctx, p.OrderID); err != nil {
		return nil, err
	}
	return r.gate.MarkClosed(ctx, proposalID)
}

// Status reports the runner state for the dashboard
func (r *Runner) Status() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	schedules := make(map[string]string, len(r.cfg.Schedules))
	for tf, spec := range r.cfg.Schedules {
		schedules[string(tf)] = spec
	}

	status := map[string]interface{}{
		"running":     r.running,
		"instruments": r.cfg.Instruments,
		"schedules":   schedules,
		"runs":        r.runs,
	}
	if r.running {
		status["started_at"] = r.startedAt.Format(time.RFC3339)
		status["uptime_seconds"] = int64(time.Since(r.startedAt).Seconds())
	}
	if !r.lastRun.IsZero() {
		status["last_run_at"] = r.lastRun.Format(time.RFC3339)
	}
	return status
}
