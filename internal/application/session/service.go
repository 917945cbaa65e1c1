package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pmcdi/jarvais-highcharts-service/pkg/adapters/storage"
)

// Store is the storage contract the session layer depends on. Satisfied by
// the store.Manager.
type Store interface {
	Put(ctx context.Context, rec storage.Record) error
	Get(ctx context.Context, id string) (storage.Record, error)
	Delete(ctx context.Context, id string) error
	ListKeys(ctx context.Context) ([]string, error)
}

// Info is the metadata returned for a session without its document.
type Info struct {
	AnalyzerID string    `json:"analyzer_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Session is a fully loaded session: metadata plus the stored document and
// its precomputed artifacts.
type Session struct {
	Info
	Core        json.RawMessage `json:"core"`
	Precomputed Precomputed     `json:"precomputed"`
}

// Service creates, reads and removes analyzer sessions. It owns id
// generation and envelope serialization; the store below it only ever sees
// opaque bytes.
type Service struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewService creates a session service. ttl applies to every session created
// through it.
func NewService(store Store, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// Create stores a new session and returns its metadata. The id is a fresh
// UUID, never reused.
func (s *Service) Create(ctx context.Context, core json.RawMessage, pre Precomputed) (Info, error) {
	id := uuid.NewString()

	payload, err := encodeEnvelope(Envelope{
		SchemaVersion: SchemaVersion,
		Core:          core,
		Precomputed:   pre,
	})
	if err != nil {
		s.logger.Error("failed to encode session payload",
			zap.String("analyzer_id", id),
			zap.Error(err))
		return Info{}, err
	}

	rec := storage.Record{
		ID:        id,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
		TTL:       s.ttl,
	}

	if err := s.store.Put(ctx, rec); err != nil {
		return Info{}, fmt.Errorf("create session %s: %w", id, err)
	}

	s.logger.Info("session created",
		zap.String("analyzer_id", id),
		zap.Duration("ttl", s.ttl))

	return Info{
		AnalyzerID: id,
		CreatedAt:  rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt(),
	}, nil
}

// Get loads a session. Unknown and expired ids both report
// storage.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}

	env, err := decodeEnvelope(rec.Payload)
	if err != nil {
		// The id is safe to log; the payload bytes are not.
		s.logger.Error("failed to decode session payload",
			zap.String("analyzer_id", id),
			zap.Error(err))
		return Session{}, err
	}

	return Session{
		Info: Info{
			AnalyzerID: id,
			CreatedAt:  rec.CreatedAt,
			ExpiresAt:  rec.ExpiresAt(),
		},
		Core:        env.Core,
		Precomputed: env.Precomputed,
	}, nil
}

// List returns the ids of all live sessions.
func (s *Service) List(ctx context.Context) ([]string, error) {
	ids, err := s.store.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}

// Delete removes a session. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}

	s.logger.Info("session deleted", zap.String("analyzer_id", id))
	return nil
}
