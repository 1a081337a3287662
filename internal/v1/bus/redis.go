// Package bus provides an optional distributed pub/sub hook so a future
// multi-instance deployment has a channel to plug into. A nil *Service
// keeps the server in single-instance mode: every method is a no-op on a
// nil receiver so callers never need to check whether a bus is configured.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/metrics"
	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// Service handles all interaction with the Redis cluster. It implements
// types.Bus.
type Service struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

// Client returns the underlying Redis client.
func (s *Service) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

// NewService creates a robust Redis connection with automatic retries.
func NewService(addr, password string) (*Service, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	st := gobreaker.Settings{
		Name:        "bus",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     15 * time.Second,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues("bus").Set(stateVal)
		},
	}

	slog.Info("connected to Redis bus", "addr", addr)
	return &Service{
		client: rdb,
		cb:     gobreaker.NewCircuitBreaker(st),
	}, nil
}

func busOperation(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.BusOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.BusOperationsTotal.WithLabelValues(op, status).Inc()
	return err
}

// Publish broadcasts a room event to every other instance watching this
// room. senderID lets subscribers drop their own echoed events.
func (s *Service) Publish(ctx context.Context, roomID string, event string, payload any, senderID string) error {
	if s == nil || s.client == nil {
		return nil
	}

	return busOperation("publish", func() error {
		_, err := s.cb.Execute(func() (interface{}, error) {
			innerBytes, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal inner payload: %w", err)
			}

			msg := types.BusPayload{
				RoomID:   roomID,
				Event:    event,
				Payload:  innerBytes,
				SenderID: senderID,
			}

			data, err := json.Marshal(msg)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal bus envelope: %w", err)
			}

			channel := fmt.Sprintf("lobby:room:%s", roomID)
			return nil, s.client.Publish(ctx, channel, data).Err()
		})

		if err != nil {
			if err == gobreaker.ErrOpenState {
				slog.Warn("bus circuit breaker open: dropping publish", "roomID", roomID)
				return nil
			}
			slog.Error("bus publish failed", "roomID", roomID, "error", err)
			return err
		}
		return nil
	})
}

// Subscribe starts a background goroutine that listens for events from
// other instances and hands each one to handler until ctx is cancelled.
func (s *Service) Subscribe(ctx context.Context, roomID string, wg *sync.WaitGroup, handler func(types.BusPayload)) {
	if s == nil || s.client == nil {
		return
	}

	channel := fmt.Sprintf("lobby:room:%s", roomID)
	pubsub := s.client.Subscribe(ctx, channel)

	if wg != nil {
		wg.Add(1)
	}
	go func() {
		defer pubsub.Close()
		if wg != nil {
			defer wg.Done()
		}

		slog.Info("subscribed to bus channel", "channel", channel)

		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					slog.Warn("bus subscription channel closed", "channel", channel)
					return
				}

				var payload types.BusPayload
				if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
					slog.Error("failed to unmarshal bus message", "error", err, "raw", msg.Payload)
					continue
				}

				handler(payload)
			}
		}
	}()
}

// Ping checks Redis connectivity.
func (s *Service) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}

	return busOperation("ping", func() error {
		_, err := s.cb.Execute(func() (interface{}, error) {
			return nil, s.client.Ping(ctx).Err()
		})
		if err != nil && err == gobreaker.ErrOpenState {
			return nil
		}
		return err
	})
}

// Close gracefully shuts down the Redis connection.
func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// SetAdd adds a member to a Redis set, used for distributed tracking of
// recently-ended room ids across instances.
func (s *Service) SetAdd(ctx context.Context, key string, member string) error {
	if s == nil || s.client == nil {
		return nil
	}

	return busOperation("set_add", func() error {
		_, err := s.cb.Execute(func() (interface{}, error) {
			return nil, s.client.SAdd(ctx, key, member).Err()
		})
		if err != nil {
			if err == gobreaker.ErrOpenState {
				slog.Warn("bus circuit breaker open: skipping SetAdd", "key", key)
				return nil
			}
			return fmt.Errorf("failed to add to set: %w", err)
		}
		return nil
	})
}

// SetRem removes a member from a Redis set.
func (s *Service) SetRem(ctx context.Context, key string, member string) error {
	if s == nil || s.client == nil {
		return nil
	}

	return busOperation("set_rem", func() error {
		_, err := s.cb.Execute(func() (interface{}, error) {
			return nil, s.client.SRem(ctx, key, member).Err()
		})
		if err != nil {
			if err == gobreaker.ErrOpenState {
				slog.Warn("bus circuit breaker open: skipping SetRem", "key", key)
				return nil
			}
			return fmt.Errorf("failed to remove from set: %w", err)
		}
		return nil
	})
}

// SetMembers retrieves all members of a Redis set.
func (s *Service) SetMembers(ctx context.Context, key string) ([]string, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}

	var members []string
	err := busOperation("set_members", func() error {
		res, err := s.cb.Execute(func() (interface{}, error) {
			return s.client.SMembers(ctx, key).Result()
		})
		if err != nil {
			if err == gobreaker.ErrOpenState {
				slog.Warn("bus circuit breaker open: returning empty set members", "key", key)
				return nil
			}
			return fmt.Errorf("failed to get set members: %w", err)
		}
		members = res.([]string)
		return nil
	})
	return members, err
}
