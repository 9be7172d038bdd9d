package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sevenms-engine/internal/execution"
	"sevenms-engine/internal/feed"
	"sevenms-engine/internal/market"
	"sevenms-engine/internal/proposal"
)

// ============================================================================
// ENGINE HANDLERS
// ============================================================================

// handleStatus returns the runner status snapshot
func (s *Server) handleStatus(c *gin.Context) {
	successResponse(c, s.engineAPI.Status())
}

// handleInstruments returns the configured instrument list
func (s *Server) handleInstruments(c *gin.Context) {
	successResponse(c, gin.H{"instruments": s.engineAPI.Instruments()})
}

type runRequest struct {
	Symbol    string `json:"symbol" binding:"required"`
	Timeframe string `json:"timeframe" binding:"required"`
}

// handleTriggerRun runs the analysis pipeline once on demand
func (s *Server) handleTriggerRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "symbol and timeframe are required")
		return
	}

	timeframe, err := market.ParseTimeframe(req.Timeframe)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engineAPI.TriggerRun(c.Request.Context(), req.Symbol, timeframe)
	if err != nil {
		if errors.Is(err, feed.ErrDataUnavailable) {
			errorResponse(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, result)
}

// ============================================================================
// RUN HISTORY HANDLERS
// ============================================================================

// handleListRuns returns recent analysis runs from the database
func (s *Server) handleListRuns(c *gin.Context) {
	if s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "run history requires the database")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.repo.ListRuns(c.Request.Context(), c.Query("symbol"), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, runs)
}

// handleGetRun returns one stored run with its full payload
func (s *Server) handleGetRun(c *gin.Context) {
	if s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "run history requires the database")
		return
	}

	rec, err := s.repo.GetRunByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		errorResponse(c, http.StatusNotFound, "run not found")
		return
	}

	result, err := rec.Result()
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, gin.H{"run": rec, "result": result})
}

// ============================================================================
// PROPOSAL HANDLERS
// ============================================================================

// handleListProposals returns proposals from the gate, optionally
// filtered by status
func (s *Server) handleListProposals(c *gin.Context) {
	var status proposal.Status
	if raw := c.Query("status"); raw != "" {
		status = proposal.Status(raw)
	}
	successResponse(c, s.gate.List(status))
}

// handleProposalCounts returns how many proposals sit in each status
func (s *Server) handleProposalCounts(c *gin.Context) {
	successResponse(c, s.gate.Counts())
}

// handleGetProposal returns one proposal
func (s *Server) handleGetProposal(c *gin.Context) {
	p, err := s.gate.Get(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusNotFound, "proposal not found")
		return
	}
	successResponse(c, p)
}

type editRequest struct {
	Entry       *float64  `json:"entry"`
	StopLoss    *float64  `json:"stop_loss"`
	TakeProfits []float64 `json:"take_profits"`
	Size        *float64  `json:"size"`
}

type decideRequest struct {
	Decision string       `json:"decision" binding:"required"`
	Note     string       `json:"note"`
	Edit     *editRequest `json:"edit"`
}

// handleDecideProposal applies a review decision. An EDIT decision
// returns the pending revision; other decisions return the decided
// proposal.
func (s *Server) handleDecideProposal(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "decision is required")
		return
	}

	decision, err := proposal.ParseDecision(req.Decision)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var edit *proposal.PlanEdit
	if req.Edit != nil {
		edit = &proposal.PlanEdit{
			Entry:       req.Edit.Entry,
			StopLoss:    req.Edit.StopLoss,
			TakeProfits: req.Edit.TakeProfits,
			Size:        req.Edit.Size,
		}
	}
	if decision == proposal.DecisionEdit && edit == nil {
		errorResponse(c, http.StatusBadRequest, "an EDIT decision requires an edit body")
		return
	}

	p, err := s.gate.Decide(c.Request.Context(), c.Param("id"), decision, req.Note, edit)
	if err != nil {
		writeProposalError(c, err)
		return
	}
	successResponse(c, p)
}

// handleCloseProposal closes the position behind an executed proposal
func (s *Server) handleCloseProposal(c *gin.Context) {
	p, err := s.engineAPI.CloseProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, execution.ErrExecutionFailure) {
			errorResponse(c, http.StatusBadGateway, err.Error())
			return
		}
		writeProposalError(c, err)
		return
	}
	successResponse(c, p)
}

func writeProposalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, proposal.ErrNotFound):
		errorResponse(c, http.StatusNotFound, "proposal not found")
	case errors.Is(err, proposal.ErrInvalidState):
		errorResponse(c, http.StatusConflict, err.Error())
	default:
		errorResponse(c, http.StatusInternalServerError, err.Error())
	}
}

// ============================================================================
// BROKER HANDLERS
// ============================================================================

// handlePositions returns open positions from the executor
func (s *Server) handlePositions(c *gin.Context) {
	positions, err := s.engineAPI.OpenPositions(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusBadGateway, err.Error())
		return
	}
	successResponse(c, gin.H{"positions": positions})
}

// handleAccount returns the broker account snapshot
func (s *Server) handleAccount(c *gin.Context) {
	account, err := s.engineAPI.AccountInfo(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusBadGateway, err.Error())
		return
	}
	successResponse(c, account)
}
