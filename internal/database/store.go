package database

import (
	"context"

	"github.com/rs/zerolog"

	"sevenms-engine/internal/proposal"
)

// ProposalStore backs the proposal gate with PostgreSQL as the source
// of truth and Redis as a restart cache. Either layer may be absent.
type ProposalStore struct {
	repo   *Repository
	cache  *RedisProposalCache
	logger zerolog.Logger
}

// NewProposalStore combines the available persistence layers. repo and
// cache may each be nil.
func NewProposalStore(repo *Repository, cache *RedisProposalCache, logger zerolog.Logger) *ProposalStore {
	return &ProposalStore{
		repo:   repo,
		cache:  cache,
		logger: logger.With().Str("component", "proposal_store").Logger(),
	}
}

var _ proposal.Store = (*ProposalStore)(nil)

// SaveProposal writes a new proposal to every configured layer. The
// cache write is best effort.
func (s *ProposalStore) SaveProposal(ctx context.Context, p *proposal.Proposal) error {
	if s.cache != nil {
		if err := s.cache.Save(ctx, p); err != nil {
			s.logger.Warn().Err(err).Str("proposal_id", p.ID).Msg("Cache write failed")
		}
	}
	if s.repo == nil {
		return nil
	}
	return s.repo.SaveProposal(ctx, p)
}

// UpdateProposal writes a changed proposal to every configured layer
func (s *ProposalStore) UpdateProposal(ctx context.Context, p *proposal.Proposal) error {
	if s.cache != nil {
		if err := s.cache.Save(ctx, p); err != nil {
			s.logger.Warn().Err(err).Str("proposal_id", p.ID).Msg("Cache write failed")
		}
	}
	if s.repo == nil {
		return nil
	}
	return s.repo.UpdateProposal(ctx, p)
}

// LoadPending restores pending proposals, preferring PostgreSQL and
// falling back to the Redis cache
func (s *ProposalStore) LoadPending(ctx context.Context) ([]*proposal.Proposal, error) {
	if s.repo != nil {
		pending, err := s.repo.PendingProposals(ctx)
		if err == nil {
			return pending, nil
		}
		s.logger.Warn().Err(err).Msg("Loading pending proposals from database failed, trying cache")
	}

	if s.cache != nil {
		return s.cache.LoadPending(ctx)
	}
	return nil, nil
}
