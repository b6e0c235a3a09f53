package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const flowKeyPrefix = "booking_flow:"

// ErrFlowNotFound is returned when no session exists (or it expired).
var ErrFlowNotFound = errors.New("flow: session not found")

// Store persists flow sessions in Redis with a sliding TTL.
type Store struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

// NewStore creates a flow session store. ttl bounds how long an abandoned
// flow survives; every save renews it.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{
		redis:  redisClient,
		tracer: otel.Tracer("bookflow.internal.flow.store"),
		ttl:    ttl,
	}
}

// Save writes the flow state and renews its TTL.
func (s *Store) Save(ctx context.Context, f *Flow) error {
	if s == nil || s.redis == nil {
		return errors.New("flow: store not configured")
	}
	if f == nil || f.ID == "" {
		return errors.New("flow: flow id required")
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("flow: marshal session: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "flow.store.save")
	defer span.End()

	if err := s.redis.Set(ctx, flowKey(f.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("flow: save session: %w", err)
	}
	return nil
}

// Load reads a flow session by id.
func (s *Store) Load(ctx context.Context, flowID string) (*Flow, error) {
	if s == nil || s.redis == nil {
		return nil, errors.New("flow: store not configured")
	}

	ctx, span := s.tracer.Start(ctx, "flow.store.load")
	defer span.End()

	data, err := s.redis.Get(ctx, flowKey(flowID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrFlowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("flow: load session: %w", err)
	}

	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("flow: unmarshal session: %w", err)
	}
	return &f, nil
}

// Delete removes a flow session.
func (s *Store) Delete(ctx context.Context, flowID string) error {
	if s == nil || s.redis == nil {
		return errors.New("flow: store not configured")
	}

	ctx, span := s.tracer.Start(ctx, "flow.store.delete")
	defer span.End()

	if err := s.redis.Del(ctx, flowKey(flowID)).Err(); err != nil {
		return fmt.Errorf("flow: delete session: %w", err)
	}
	return nil
}

func flowKey(flowID string) string {
	return flowKeyPrefix + flowID
}
