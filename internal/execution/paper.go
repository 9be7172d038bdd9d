package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"sevenms-engine/internal/plan"
)

// PaperExecutor simulates order placement in memory. It accepts every
// well formed order and tracks the resulting positions, which keeps
// the review flow usable without a broker connection.
type PaperExecutor struct {
	mu         sync.Mutex
	equity     float64
	positions  map[string]Position
	nextTicket int64
	logger     zerolog.Logger
}

// NewPaperExecutor creates a paper trading executor with the given
// starting equity (10000 when non-positive)
func NewPaperExecutor(equity float64, logger zerolog.Logger) *PaperExecutor {
	if equity <= 0 {
		equity = 10000
	}
	return &PaperExecutor{
		equity:    equity,
		positions: make(map[string]Position),
		logger:    logger.With().Str("component", "paper_executor").Logger(),
	}
}

var _ Executor = (*PaperExecutor)(nil)

// SubmitOrder records a simulated position and returns its ticket
func (pe *PaperExecutor) SubmitOrder(ctx context.Context, p *plan.TradePlan) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: no plan", ErrExecutionFailure)
	}
	if p.Size <= 0 {
		return "", fmt.Errorf("%w: %s", ErrExecutionFailure, RetcodeDescription(RetcodeInvalidVolume))
	}

	pe.mu.Lock()
	defer pe.mu.Unlock()

	pe.nextTicket++
	ticket := fmt.Sprintf("paper-%d", pe.nextTicket)

	var takeProfit float64
	if len(p.TakeProfits) > 0 {
		takeProfit = p.TakeProfits[0]
	}

	pe.positions[ticket] = Position{
		Ticket:     ticket,
		Symbol:     p.Symbol,
		Direction:  p.Direction,
		Volume:     p.Size,
		OpenPrice:  p.Entry,
		StopLoss:   p.StopLoss,
		TakeProfit: takeProfit,
		OpenedAt:   p.CreatedAt.Unix(),
	}

	pe.logger.Info().
		Str("symbol", p.Symbol).
		Str("direction", string(p.Direction)).
		Float64("volume", p.Size).
		Float64("price", p.Entry).
		Str("ticket", ticket).
		Msg("Paper order placed")

	return ticket, nil
}

// ClosePosition removes a simulated position
func (pe *PaperExecutor) ClosePosition(ctx context.Context, orderID string) error {
	pe.mu.Lock()
	defer pe.mu.Unlock()

	if _, ok := pe.positions[orderID]; !ok {
		return fmt.Errorf("%w: position %s not found", ErrExecutionFailure, orderID)
	}
	delete(pe.positions, orderID)

	pe.logger.Info().Str("ticket", orderID).Msg("Paper position closed")
	return nil
}

// OpenPositions lists the simulated open positions
func (pe *PaperExecutor) OpenPositions(ctx context.Context) ([]Position, error) {
	pe.mu.Lock()
	defer pe.mu.Unlock()

	out := make([]Position, 0, len(pe.positions))
	for _, pos := range pe.positions {
		out = append(out, pos)
	}
	return out, nil
}

// AccountInfo reports the simulated account
func (pe *PaperExecutor) AccountInfo(ctx context.Context) (*Account, error) {
	pe.mu.Lock()
	defer pe.mu.Unlock()

	return &Account{
		Login:      "paper",
		Balance:    pe.equity,
		Equity:     pe.equity,
		FreeMargin: pe.equity,
		Currency:   "USD",
	}, nil
}
