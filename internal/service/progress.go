package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/progress"
	"github.com/zasterix/zasterix/internal/port/database"
)

// ProgressService exposes the display aggregators and the stored module
// progress of a user.
type ProgressService struct {
	sessions *SessionService
	store    database.Store
}

// NewProgressService creates a ProgressService.
func NewProgressService(sessions *SessionService, store database.Store) *ProgressService {
	return &ProgressService{sessions: sessions, store: store}
}

// Snapshot returns the aggregator of the caller in ctx. Anonymous callers
// name their session.
func (s *ProgressService) Snapshot(ctx context.Context, sessionID string) progress.Snapshot {
	return s.sessions.Snapshot(ctx, sessionID)
}

// Latest returns the most recently updated module record of userID.
func (s *ProgressService) Latest(ctx context.Context, userID string) (*progress.Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.Validation("user id is required")
	}
	rec, err := s.store.LatestProgress(ctx, userID)
	if err != nil {
		return nil, domain.Persistence("latest progress", err)
	}
	return rec, nil
}

// Reset deletes every stored module record of userID. Mounted sessions keep
// their in-memory state.
func (s *ProgressService) Reset(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.Validation("user id is required")
	}
	if err := s.store.ResetProgress(ctx, userID); err != nil {
		return domain.Persistence("reset progress", err)
	}
	slog.InfoContext(ctx, "progress reset", "user_id", userID)
	return nil
}
