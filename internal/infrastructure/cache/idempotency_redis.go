package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/complyvault/evidence-ledger-backend/internal/idempotency"
	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/config"
)

const idempotencyKeyPrefix = "elb:idem:"

// redisRecord is the JSON value stored per (tenant, command_id).
type redisRecord struct {
	Fingerprint string                    `json:"fingerprint"`
	Committed   bool                      `json:"committed"`
	Result      *idempotency.StoredResult `json:"result,omitempty"`
}

// RedisIdempotencyStore implements idempotency.Store on Redis. The atomic
// reserve is a single SET NX; duplicate retries racing on the same
// command_id resolve against the stored record.
type RedisIdempotencyStore struct {
	client     *redis.Client
	logger     *zap.Logger
	pendingTTL time.Duration
	resultTTL  time.Duration
}

// NewRedisIdempotencyStore connects to Redis and verifies the connection.
func NewRedisIdempotencyStore(cfg *config.RedisConfig, logger *zap.Logger) (*RedisIdempotencyStore, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.URL,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("redis idempotency store initialized",
		zap.String("addr", cfg.URL),
		zap.Int("db", cfg.DB))

	return &RedisIdempotencyStore{
		client:     client,
		logger:     logger,
		pendingTTL: cfg.PendingTTL,
		resultTTL:  cfg.ResultTTL,
	}, nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client (tests).
func NewRedisIdempotencyStoreWithClient(client *redis.Client, logger *zap.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client:     client,
		logger:     logger,
		pendingTTL: time.Minute,
		resultTTL:  24 * time.Hour,
	}
}

func (s *RedisIdempotencyStore) key(tenantID, commandID string) string {
	return idempotencyKeyPrefix + tenantID + ":" + commandID
}

// CheckOrReserve reserves via SET NX; on a lost race it classifies against
// the winner's record. The pending record can expire between the failed SET
// and the read, so the lookup retries a bounded number of times.
func (s *RedisIdempotencyStore) CheckOrReserve(ctx context.Context, tenantID, commandID, fingerprint string) (idempotency.CheckResult, error) {
	key := s.key(tenantID, commandID)

	pending, err := json.Marshal(redisRecord{Fingerprint: fingerprint})
	if err != nil {
		return idempotency.CheckResult{}, fmt.Errorf("marshal pending record: %w", err)
	}

	for attempt := 0; attempt < 3; attempt++ {
		ok, err := s.client.SetNX(ctx, key, pending, s.pendingTTL).Result()
		if err != nil {
			return idempotency.CheckResult{}, fmt.Errorf("idempotency reserve: %w", err)
		}
		if ok {
			return idempotency.CheckResult{Status: idempotency.StatusNew}, nil
		}

		raw, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			// Reservation expired between SET and GET; try again.
			continue
		}
		if err != nil {
			return idempotency.CheckResult{}, fmt.Errorf("idempotency lookup: %w", err)
		}

		var rec redisRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return idempotency.CheckResult{}, fmt.Errorf("decode idempotency record: %w", err)
		}

		if rec.Fingerprint != fingerprint {
			out := idempotency.CheckResult{Status: idempotency.StatusConflict}
			if rec.Committed {
				out.Previous = rec.Result
			}
			return out, nil
		}
		if !rec.Committed {
			return idempotency.CheckResult{Status: idempotency.StatusInFlight}, nil
		}
		return idempotency.CheckResult{Status: idempotency.StatusReplay, Previous: rec.Result}, nil
	}

	return idempotency.CheckResult{}, fmt.Errorf("idempotency reserve for %s did not settle", commandID)
}

// Commit overwrites the reservation with the applied result.
func (s *RedisIdempotencyStore) Commit(ctx context.Context, tenantID, commandID string, result idempotency.StoredResult) error {
	rec := redisRecord{
		Fingerprint: result.Fingerprint,
		Committed:   true,
		Result:      &result,
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal committed record: %w", err)
	}

	if err := s.client.Set(ctx, s.key(tenantID, commandID), raw, s.resultTTL).Err(); err != nil {
		return fmt.Errorf("idempotency commit: %w", err)
	}
	return nil
}

// Release drops an uncommitted reservation after a rejection.
func (s *RedisIdempotencyStore) Release(ctx context.Context, tenantID, commandID string) error {
	key := s.key(tenantID, commandID)

	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("idempotency release lookup: %w", err)
	}

	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("decode idempotency record: %w", err)
	}
	if rec.Committed {
		// Never release an applied result.
		return nil
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}
