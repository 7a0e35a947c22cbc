// Package redislist implements the remote list backend: one Redis list per
// user, used when multiple processes or machines share the memory engine.
// The whole list carries a retention TTL refreshed on each successful
// append, so a continuously active user never expires while a fully
// inactive user's history expires together. Fine-grained retention goes
// through explicit Clear, not TTL.
package redislist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"memoryd/domain/memory"
	"memoryd/infrastructure/persistence/abstractions"
	"memoryd/pkg/errors"
)

const keyPrefix = "memory:user:"

// deleteRetries bounds the optimistic retry loop in Delete
const deleteRetries = 3

// Options configures the Redis-backed store
type Options struct {
	Host          string
	Port          int
	DB            int
	Password      string
	RetentionDays int
}

// Store is the Redis-backed implementation of abstractions.Store
type Store struct {
	client    *redis.Client
	retention time.Duration
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// New creates a Redis-backed store. The connection is lazy; reachability is
// checked by Ping, not here.
func New(opts Options, logger *zap.Logger) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		DB:       opts.DB,
		Password: opts.Password,
	})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis-memory",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Store{
		client:    client,
		retention: time.Duration(opts.RetentionDays) * 24 * time.Hour,
		breaker:   breaker,
		logger:    logger,
	}
}

// Name identifies the backend in logs and errors
func (s *Store) Name() string { return "redis" }

// Close releases the underlying connection pool
func (s *Store) Close() error {
	return s.client.Close()
}

// Append pushes one entry onto the tail of the user's list and refreshes
// the list-level retention TTL
func (s *Store) Append(ctx context.Context, entry *memory.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshal entry")
	}

	key := userKey(entry.UserID)
	return s.exec(func() error {
		if err := s.client.RPush(ctx, key, data).Err(); err != nil {
			return err
		}
		// TTL refresh is best-effort retention, not part of the append's
		// all-or-nothing guarantee
		if err := s.client.Expire(ctx, key, s.retention).Err(); err != nil {
			s.logger.Warn("failed to refresh retention TTL",
				zap.String("user_id", entry.UserID),
				zap.Error(err),
			)
		}
		return nil
	})
}

// Load reads the user's whole list in insertion order, skipping elements
// that no longer parse
func (s *Store) Load(ctx context.Context, userID string) ([]*memory.Entry, int, error) {
	var raw []string
	err := s.exec(func() error {
		var err error
		raw, err = s.client.LRange(ctx, userKey(userID), 0, -1).Result()
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	entries := make([]*memory.Entry, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		var entry memory.Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			skipped++
			continue
		}
		entries = append(entries, &entry)
	}
	if skipped > 0 {
		s.logger.Warn("skipped malformed memory records",
			zap.String("user_id", userID),
			zap.Int("skipped", skipped),
		)
	}
	return entries, skipped, nil
}

// Delete rebuilds the user's list with only the entries the keep function
// accepts. The read and the rebuild run under WATCH, so an append landing
// between them invalidates the transaction and the rebuild retries; a
// concurrent append is never silently dropped.
func (s *Store) Delete(ctx context.Context, userID string, keep abstractions.KeepFunc) (int, error) {
	key := userKey(userID)
	var removed int
	err := s.exec(func() error {
		for attempt := 0; attempt < deleteRetries; attempt++ {
			err := s.client.Watch(ctx, func(tx *redis.Tx) error {
				raw, err := tx.LRange(ctx, key, 0, -1).Result()
				if err != nil {
					return err
				}

				survivors, n := rebuild(raw, keep)
				removed = n
				if removed == 0 {
					return nil
				}

				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					if len(survivors) > 0 {
						pipe.RPush(ctx, key, survivors...)
						pipe.Expire(ctx, key, s.retention)
					}
					return nil
				})
				return err
			}, key)
			if err != redis.TxFailedErr {
				return err
			}
		}
		return redis.TxFailedErr
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// rebuild partitions the stored items by the keep function. Survivors keep
// their stored bytes, so a rebuild never re-encodes an entry. Items that no
// longer parse are dropped without counting as removed.
func rebuild(raw []string, keep abstractions.KeepFunc) (survivors []interface{}, removed int) {
	parsed := 0
	survivors = make([]interface{}, 0, len(raw))
	for _, item := range raw {
		var entry memory.Entry
		if json.Unmarshal([]byte(item), &entry) != nil {
			continue
		}
		parsed++
		if keep(&entry) {
			survivors = append(survivors, item)
		}
	}
	return survivors, parsed - len(survivors)
}

// Ping checks reachability of the Redis instance
func (s *Store) Ping(ctx context.Context) error {
	return s.exec(func() error {
		return s.client.Ping(ctx).Err()
	})
}

// exec runs an operation through the circuit breaker, mapping breaker and
// transport failures to a storage-unavailable error
func (s *Store) exec(fn func() error) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		return errors.NewUnavailableError(s.Name(), err)
	}
	return nil
}

func userKey(userID string) string {
	return keyPrefix + userID
}
