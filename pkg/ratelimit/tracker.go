package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream block tracking.
var (
	upstreamBlocked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meli_upstream_blocked",
		Help: "1 while upstream requests are suspended after a block, 0 otherwise",
	})

	upstreamBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meli_upstream_blocks_total",
		Help: "Total number of upstream block responses recorded (CloudFront 403, 429)",
	})

	upstreamRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meli_upstream_rejections_total",
		Help: "Total number of requests rejected locally while blocked",
	})
)

// Tracker records upstream blocks and gates requests during the cooldown.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a new block tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
	}
}

// GetState retrieves the current block state from Redis.
// Returns a healthy state if nothing is stored.
func (t *Tracker) GetState(ctx context.Context) (*BlockState, error) {
	pipe := t.redis.Pipeline()
	untilCmd := pipe.Get(ctx, RedisKeyBlockedUntil)
	consecutiveCmd := pipe.Get(ctx, RedisKeyConsecutive)
	lastUpdateCmd := pipe.Get(ctx, RedisKeyLastUpdate)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get block state: %w", err)
	}

	now := t.now()
	state := &BlockState{LastUpdate: now}

	if ms, err := untilCmd.Int64(); err == nil {
		state.BlockedUntil = time.UnixMilli(ms)
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("parse blocked until: %w", err)
	}

	if n, err := consecutiveCmd.Int(); err == nil {
		state.ConsecutiveBlocks = n
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("parse consecutive blocks: %w", err)
	}

	if ms, err := lastUpdateCmd.Int64(); err == nil {
		state.LastUpdate = time.UnixMilli(ms)
	}

	state.UpdateHealth(now)
	return state, nil
}

// RecordBlock registers an upstream block and starts (or extends) the cooldown.
// retryAfter is the upstream Retry-After hint, 0 if none.
func (t *Tracker) RecordBlock(ctx context.Context, retryAfter time.Duration) (*BlockState, error) {
	n, err := t.redis.Incr(ctx, RedisKeyConsecutive).Result()
	if err != nil {
		return nil, fmt.Errorf("increment block streak: %w", err)
	}

	now := t.now()
	cooldown := Cooldown(int(n), retryAfter)
	state := &BlockState{
		BlockedUntil:      now.Add(cooldown),
		ConsecutiveBlocks: int(n),
		LastUpdate:        now,
	}
	state.UpdateHealth(now)

	pipe := t.redis.TxPipeline()
	pipe.Expire(ctx, RedisKeyConsecutive, ConsecutiveWindow)
	pipe.Set(ctx, RedisKeyBlockedUntil, state.BlockedUntil.UnixMilli(), cooldown)
	pipe.Set(ctx, RedisKeyLastUpdate, now.UnixMilli(), ConsecutiveWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store block state in redis: %w", err)
	}

	upstreamBlocksTotal.Inc()
	upstreamBlocked.Set(1)

	t.logger.Warn().
		Int("consecutive_blocks", state.ConsecutiveBlocks).
		Dur("cooldown", cooldown).
		Time("blocked_until", state.BlockedUntil).
		Msg("Upstream blocked - suspending requests")

	return state, nil
}

// RecordSuccess closes any open block streak.
func (t *Tracker) RecordSuccess(ctx context.Context) error {
	n, err := t.redis.Del(ctx, RedisKeyConsecutive, RedisKeyBlockedUntil).Result()
	if err != nil {
		return fmt.Errorf("clear block state: %w", err)
	}
	if n > 0 {
		upstreamBlocked.Set(0)
		t.logger.Info().Msg("Upstream block cleared")
	}
	return nil
}

// ShouldAllowRequest reports whether an upstream request may be sent now.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get block state: %w", err)
	}

	now := t.now()
	if state.IsBlocked(now) {
		t.logger.Debug().
			Int("consecutive_blocks", state.ConsecutiveBlocks).
			Dur("wait_duration", state.TimeUntilUnblock(now)).
			Msg("Upstream blocked - rejecting request")

		upstreamRejectionsTotal.Inc()
		return false, nil
	}

	upstreamBlocked.Set(0)
	return true, nil
}
