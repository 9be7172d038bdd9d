package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sevenms-engine/internal/proposal"
)

const (
	// ProposalKeyPrefix is the prefix for individual proposal keys.
	// Format: sevenms:proposal:{id}
	ProposalKeyPrefix = "sevenms:proposal"

	// PendingSetKey holds the ids of proposals still awaiting review
	PendingSetKey = "sevenms:proposals:pending"

	// ProposalTTL keeps decided proposals around for a week of review
	// history before Redis expires them
	ProposalTTL = 7 * 24 * time.Hour
)

// RedisProposalCache mirrors proposals into Redis so pending reviews
// survive restarts even when PostgreSQL is disabled. Writes are best
// effort: a Redis outage flips the availability flag and the engine
// keeps running on its in-memory state.
type RedisProposalCache struct {
	client    *redis.Client
	available atomic.Bool
	logger    zerolog.Logger
}

// NewRedisProposalCache creates a cache around an existing client.
// A nil client yields a disabled cache.
func NewRedisProposalCache(client *redis.Client, logger zerolog.Logger) *RedisProposalCache {
	cache := &RedisProposalCache{
		client: client,
		logger: logger.With().Str("component", "redis_cache").Logger(),
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			cache.logger.Warn().Err(err).Msg("Redis unavailable at startup")
		} else {
			cache.available.Store(true)
			cache.logger.Info().Msg("Redis connected")
		}
	}

	return cache
}

// Available reports whether the last Redis operation succeeded
func (c *RedisProposalCache) Available() bool {
	return c.client != nil && c.available.Load()
}

func proposalKey(id string) string {
	return fmt.Sprintf("%s:%s", ProposalKeyPrefix, id)
}

// Save writes a proposal and keeps the pending set in sync with its
// status
func (c *RedisProposalCache) Save(ctx context.Context, p *proposal.Proposal) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal proposal: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, proposalKey(p.ID), data, ProposalTTL)
	if p.Status == proposal.StatusPending {
		pipe.SAdd(ctx, PendingSetKey, p.ID)
		pipe.Expire(ctx, PendingSetKey, ProposalTTL)
	} else {
		pipe.SRem(ctx, PendingSetKey, p.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.available.Store(false)
		return fmt.Errorf("redis save: %w", err)
	}

	c.available.Store(true)
	return nil
}

// LoadPending returns every proposal in the pending set. Stale set
// members whose keys expired are removed along the way.
func (c *RedisProposalCache) LoadPending(ctx context.Context) ([]*proposal.Proposal, error) {
	if c.client == nil {
		return nil, nil
	}

	ids, err := c.client.SMembers(ctx, PendingSetKey).Result()
	if err != nil {
		c.available.Store(false)
		return nil, fmt.Errorf("redis pending set: %w", err)
	}
	c.available.Store(true)

	var pending []*proposal.Proposal
	for _, id := range ids {
		data, err := c.client.Get(ctx, proposalKey(id)).Result()
		if err != nil {
			if err == redis.Nil {
				c.client.SRem(ctx, PendingSetKey, id)
				continue
			}
			return nil, fmt.Errorf("redis get %s: %w", id, err)
		}

		var p proposal.Proposal
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			c.logger.Warn().Err(err).Str("proposal_id", id).Msg("Dropping undecodable cached proposal")
			continue
		}
		if p.Status != proposal.StatusPending {
			c.client.SRem(ctx, PendingSetKey, id)
			continue
		}
		pending = append(pending, &p)
	}

	return pending, nil
}
