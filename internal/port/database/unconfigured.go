package database

import (
	"context"
	"fmt"

	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/audit"
	"github.com/zasterix/zasterix/internal/domain/coach"
	"github.com/zasterix/zasterix/internal/domain/progress"
	"github.com/zasterix/zasterix/internal/domain/template"
)

// Unconfigured is the Store used when no store credentials are available.
// Every call fails with domain.ErrNotConfigured and Reason as detail.
type Unconfigured struct {
	Reason string
}

var _ Store = Unconfigured{}

func (u Unconfigured) err() error {
	if u.Reason == "" {
		return domain.ErrNotConfigured
	}
	return fmt.Errorf("%s: %w", u.Reason, domain.ErrNotConfigured)
}

func (u Unconfigured) Ping(context.Context) error { return u.err() }

func (u Unconfigured) ListTemplates(context.Context, template.Scope) ([]template.AgentTemplate, error) {
	return nil, u.err()
}

func (u Unconfigured) GetTemplate(context.Context, string) (*template.AgentTemplate, error) {
	return nil, u.err()
}

func (u Unconfigured) FindTemplateByKey(context.Context, string, *string) (*template.AgentTemplate, error) {
	return nil, u.err()
}

func (u Unconfigured) InsertTemplate(context.Context, *template.AgentTemplate) error { return u.err() }

func (u Unconfigured) InsertAudit(context.Context, *audit.Entry) error { return u.err() }

func (u Unconfigured) ListAudit(context.Context, int) ([]audit.Entry, error) { return nil, u.err() }

func (u Unconfigured) UpsertProgress(context.Context, progress.Key) (*progress.Record, error) {
	return nil, u.err()
}

func (u Unconfigured) LatestProgress(context.Context, string) (*progress.Record, error) {
	return nil, u.err()
}

func (u Unconfigured) ResetProgress(context.Context, string) error { return u.err() }

func (u Unconfigured) InsertAssetAnalysis(context.Context, *coach.AssetAnalysis) error {
	return u.err()
}

func (u Unconfigured) ListAssetAnalyses(context.Context, string, int) ([]coach.AssetAnalysis, error) {
	return nil, u.err()
}
