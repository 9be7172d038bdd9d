package proposal

import (
	"errors"
	"time"

	"sevenms-engine/internal/plan"
)

// Status is a proposal's position in the review lifecycle
type Status string

const (
	StatusPending   Status = "PENDING"   // Awaiting reviewer decision
	StatusApproved  Status = "APPROVED"  // Cleared for submission
	StatusRejected  Status = "REJECTED"  // Declined, terminal
	StatusEdited    Status = "EDITED"    // Superseded by a revision
	StatusExecuted  Status = "EXECUTED"  // Order submitted to the broker
	StatusClosed    Status = "CLOSED"    // Position closed
	StatusDiscarded Status = "DISCARDED" // Dropped without review, terminal
)

// Decision is a reviewer's verdict on a pending proposal
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
	DecisionEdit    Decision = "EDIT"
)

// ParseDecision validates a decision string
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApprove, DecisionReject, DecisionEdit:
		return Decision(s), nil
	default:
		return "", errors.New("decision must be APPROVE, REJECT or EDIT")
	}
}

// Errors for proposal handling
var (
	ErrNotFound     = errors.New("proposal not found")
	ErrInvalidState = errors.New("proposal is not in a state that allows this")
)

// Proposal wraps a trade plan with its review state. Nothing reaches
// the broker without one of these passing through an explicit approval.
type Proposal struct {
	ID         string          `json:"id"`
	RunID      string          `json:"run_id"`
	Plan       *plan.TradePlan `json:"plan"`
	Status     Status          `json:"status"`
	RevisionOf string          `json:"revision_of,omitempty"`
	Note       string          `json:"note,omitempty"`
	ZeroSize   bool            `json:"zero_size"`
	OrderID    string          `json:"order_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	DecidedAt  *time.Time      `json:"decided_at,omitempty"`
	ExecutedAt *time.Time      `json:"executed_at,omitempty"`
	ClosedAt   *time.Time      `json:"closed_at,omitempty"`
}

// Terminal reports whether the proposal can no longer change state
func (p *Proposal) Terminal() bool {
	switch p.Status {
	case StatusRejected, StatusDiscarded, StatusClosed:
		return true
	}
	return false
}

// PlanEdit carries reviewer overrides applied when a proposal is edited.
// Nil fields keep the original value.
type PlanEdit struct {
	Entry       *float64  `json:"entry,omitempty"`
	StopLoss    *float64  `json:"stop_loss,omitempty"`
	TakeProfits []float64 `json:"take_profits,omitempty"`
	Size        *float64  `json:"size,omitempty"`
}

// Apply produces the revised plan for an edit
func (e *PlanEdit) Apply(p *plan.TradePlan) *plan.TradePlan {
	revised := p.Revise()
	if e == nil {
		return revised
	}
	if e.Entry != nil {
		revised.Entry = *e.Entry
	}
	if e.StopLoss != nil {
		revised.StopLoss = *e.StopLoss
	}
	if len(e.TakeProfits) > 0 {
		revised.TakeProfits = append([]float64(nil), e.TakeProfits...)
	}
	if e.Size != nil {
		revised.Size = *e.Size
	}
	// Reprice the risk for the overridden levels
	rpu := revised.Entry - revised.StopLoss
	if rpu < 0 {
		rpu = -rpu
	}
	revised.RiskPerUnit = rpu
	revised.RiskAmount = revised.Size * rpu
	return revised
}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusEdited, StatusDiscarded},
	StatusApproved: {StatusExecuted},
	StatusEdited:   {StatusExecuted},
	StatusExecuted: {StatusClosed},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
