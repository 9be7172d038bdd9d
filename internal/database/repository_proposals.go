package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sevenms-engine/internal/plan"
	"sevenms-engine/internal/proposal"
)

// SaveProposal inserts a new proposal row
func (r *Repository) SaveProposal(ctx context.Context, p *proposal.Proposal) error {
	if p.Plan == nil {
		return fmt.Errorf("proposal %s has no plan", p.ID)
	}

	planJSON, err := json.Marshal(p.Plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}

	query := `
		INSERT INTO trade_proposals (id, run_id, symbol, timeframe, direction, status, revision_of,
		                             note, zero_size, order_id, plan, created_at, decided_at, executed_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.db.Pool.Exec(
		ctx, query,
		p.ID, p.RunID, p.Plan.Symbol, string(p.Plan.Timeframe), string(p.Plan.Direction),
		string(p.Status), p.RevisionOf, p.Note, p.ZeroSize, p.OrderID, planJSON,
		p.CreatedAt, p.DecidedAt, p.ExecutedAt, p.ClosedAt,
	)
	return err
}

// UpdateProposal updates the mutable review fields of a proposal
func (r *Repository) UpdateProposal(ctx context.Context, p *proposal.Proposal) error {
	query := `
		UPDATE trade_proposals
		SET status = $2, note = $3, order_id = $4, decided_at = $5, executed_at = $6, closed_at = $7
		WHERE id = $1
	`
	_, err := r.db.Pool.Exec(
		ctx, query,
		p.ID, string(p.Status), p.Note, p.OrderID, p.DecidedAt, p.ExecutedAt, p.ClosedAt,
	)
	return err
}

const proposalColumns = `id, run_id, status, COALESCE(revision_of, ''), COALESCE(note, ''),
       zero_size, COALESCE(order_id, ''), plan, created_at, decided_at, executed_at, closed_at`

func scanProposal(row pgx.Row) (*proposal.Proposal, error) {
	p := &proposal.Proposal{}
	var status string
	var planJSON []byte

	err := row.Scan(
		&p.ID, &p.RunID, &status, &p.RevisionOf, &p.Note,
		&p.ZeroSize, &p.OrderID, &planJSON, &p.CreatedAt, &p.DecidedAt, &p.ExecutedAt, &p.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = proposal.Status(status)
	p.Plan = &plan.TradePlan{}
	if err := json.Unmarshal(planJSON, p.Plan); err != nil {
		return nil, fmt.Errorf("decode plan for proposal %s: %w", p.ID, err)
	}
	return p, nil
}

// GetProposalByID retrieves a proposal. Returns nil without error when
// it does not exist.
func (r *Repository) GetProposalByID(ctx context.Context, id string) (*proposal.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM trade_proposals WHERE id = $1`

	p, err := scanProposal(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListProposals retrieves proposals newest first, optionally filtered
// by status
func (r *Repository) ListProposals(ctx context.Context, status string, limit int) ([]*proposal.Proposal, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + proposalColumns + `
		FROM trade_proposals
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposals []*proposal.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// PendingProposals retrieves every proposal still awaiting review
func (r *Repository) PendingProposals(ctx context.Context) ([]*proposal.Proposal, error) {
	return r.ListProposals(ctx, string(proposal.StatusPending), 500)
}
