// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/zasterix/zasterix/internal/domain/audit"
	"github.com/zasterix/zasterix/internal/domain/coach"
	"github.com/zasterix/zasterix/internal/domain/progress"
	"github.com/zasterix/zasterix/internal/domain/template"
)

// Store is the port interface for database operations. Every method of an
// unconfigured store returns domain.ErrNotConfigured.
type Store interface {
	Ping(ctx context.Context) error

	// Agent templates
	ListTemplates(ctx context.Context, scope template.Scope) ([]template.AgentTemplate, error)
	GetTemplate(ctx context.Context, id string) (*template.AgentTemplate, error)
	// FindTemplateByKey matches name exactly and orgID with strict-null
	// semantics. Duplicate rows resolve to the oldest.
	FindTemplateByKey(ctx context.Context, name string, orgID *string) (*template.AgentTemplate, error)
	// InsertTemplate stores t and fills in its ID and CreatedAt.
	InsertTemplate(ctx context.Context, t *template.AgentTemplate) error

	// Universal history
	InsertAudit(ctx context.Context, e *audit.Entry) error
	ListAudit(ctx context.Context, limit int) ([]audit.Entry, error)

	// Progress
	// UpsertProgress adds key.TaskID to the completed set of the module row.
	UpsertProgress(ctx context.Context, key progress.Key) (*progress.Record, error)
	LatestProgress(ctx context.Context, userID string) (*progress.Record, error)
	ResetProgress(ctx context.Context, userID string) error

	// Asset history
	InsertAssetAnalysis(ctx context.Context, a *coach.AssetAnalysis) error
	ListAssetAnalyses(ctx context.Context, userID string, limit int) ([]coach.AssetAnalysis, error)
}
