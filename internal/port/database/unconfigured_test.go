package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/progress"
	"github.com/zasterix/zasterix/internal/domain/template"
)

func TestUnconfiguredReturnsNotConfigured(t *testing.T) {
	s := Unconfigured{Reason: "store url missing"}
	ctx := context.Background()

	errs := []error{
		s.Ping(ctx),
		s.InsertTemplate(ctx, &template.AgentTemplate{}),
		s.ResetProgress(ctx, "u1"),
	}
	_, err := s.ListTemplates(ctx, template.AllScopes())
	errs = append(errs, err)
	_, err = s.UpsertProgress(ctx, progress.Key{UserID: "u1"})
	errs = append(errs, err)

	for i, err := range errs {
		if !errors.Is(err, domain.ErrNotConfigured) {
			t.Fatalf("call %d: expected ErrNotConfigured, got %v", i, err)
		}
	}
	if !strings.Contains(errs[0].Error(), "store url missing") {
		t.Fatalf("expected reason in error, got %v", errs[0])
	}
}
