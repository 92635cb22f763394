package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	zotel "github.com/zasterix/zasterix/internal/adapter/otel"
	"github.com/zasterix/zasterix/internal/adapter/ws"
	"github.com/zasterix/zasterix/internal/domain/coach"
	"github.com/zasterix/zasterix/internal/domain/guard"
	"github.com/zasterix/zasterix/internal/middleware"
	"github.com/zasterix/zasterix/internal/port/broadcast"
	"github.com/zasterix/zasterix/internal/port/database"
	"github.com/zasterix/zasterix/internal/port/messagequeue"
)

// historyLimit caps the asset history returned per user.
const historyLimit = 20

// CoachRun is the outcome of one asset coach run. A blocked input yields a
// run with Blocked set and no Result.
type CoachRun struct {
	RunID   string        `json:"run_id"`
	Blocked bool          `json:"blocked"`
	Warning *string       `json:"warning,omitempty"`
	Reasons []string      `json:"reasons,omitempty"`
	Result  *coach.Result `json:"result,omitempty"`
}

// CoachService runs the deterministic asset coach loop.
type CoachService struct {
	store   database.Store
	hub     broadcast.Broadcaster
	queue   messagequeue.Queue
	metrics *zotel.Metrics
	scheme  string
}

// NewCoachService creates a CoachService that renders deep links with scheme.
func NewCoachService(store database.Store, scheme string) *CoachService {
	return &CoachService{store: store, hub: broadcast.Nop{}, scheme: scheme}
}

// SetBroadcaster sets the realtime event sink for coach.status lines.
func (s *CoachService) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetQueue sets the optional message queue for coach.analyzed events.
func (s *CoachService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetMetrics sets the metric instruments.
func (s *CoachService) SetMetrics(m *zotel.Metrics) { s.metrics = m }

// Run executes one coach run for the caller in ctx. Status lines stream to
// the caller over the realtime channel. For a resolved user the analysis is
// stored; a failed write is logged and does not fail the run.
func (s *CoachService) Run(ctx context.Context, req coach.Request) (*CoachRun, error) {
	run := &CoachRun{RunID: uuid.NewString()}
	ctx, span := zotel.StartCoachSpan(ctx, run.RunID)
	defer zotel.EndSpan(span, nil)

	scan := guard.Scan(req.Input + "\n" + req.BasePrompt)
	if scan.Blocked {
		s.metrics.Inc(ctx, zotel.GuardBlocked, attribute.String("source", "coach"))
		slog.WarnContext(ctx, "coach input blocked", "run_id", run.RunID, "score", scan.Score)
		run.Blocked, run.Warning, run.Reasons = true, scan.Warning, scan.Reasons
		return run, nil
	}

	who := middleware.IdentityFromContext(ctx)
	start := time.Now()
	step := 0
	res := coach.Run(req, s.scheme, func(line string) {
		step++
		if who.Resolved() {
			s.hub.BroadcastEvent(ctx, broadcast.Audience{UserID: who.UserID}, ws.EventCoachStatus, ws.CoachStatusEvent{
				RunID: run.RunID, Step: step, Line: line,
			})
		}
	})
	s.metrics.ObserveCoach(ctx, time.Since(start))
	run.Result = &res

	if who.Resolved() {
		s.remember(ctx, who, res.History)
	}
	return run, nil
}

func (s *CoachService) remember(ctx context.Context, who middleware.Identity, h coach.HistoryRecord) {
	a := h.Analysis(who.UserID, who.OrgPtr())
	if err := s.store.InsertAssetAnalysis(ctx, &a); err != nil {
		slog.WarnContext(ctx, "asset history write failed", "user_id", who.UserID, "error", err)
		return
	}
	publish(ctx, s.queue, messagequeue.SubjectCoachAnalyzed, messagequeue.CoachAnalyzedPayload{
		UserID: who.UserID, ISIN: a.ISIN, AssetName: a.AssetName, Amount: a.LastAmount, Fee: a.LastFee,
	})
}

// History returns the most recent asset analyses of userID.
func (s *CoachService) History(ctx context.Context, userID string) ([]coach.AssetAnalysis, error) {
	return s.store.ListAssetAnalyses(ctx, userID, historyLimit)
}
