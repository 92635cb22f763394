package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zasterix/zasterix/internal/domain/template"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return wrapErr(s.pool.Ping(ctx), "ping")
}

// --- Agent templates ---

const templateColumns = `id::text, name, description, system_prompt, organization_id, category, icon, search_keywords, created_at`

func (s *Store) ListTemplates(ctx context.Context, scope template.Scope) ([]template.AgentTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM agent_templates`
	var args []any
	switch {
	case scope.IsAll():
	case scope.OrgID() == "":
		query += ` WHERE organization_id IS NULL`
	default:
		query += ` WHERE organization_id IS NULL OR organization_id = $1`
		args = append(args, scope.OrgID())
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "list templates %s", scope)
	}
	defer rows.Close()

	var out []template.AgentTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, wrapErr(err, "scan template")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "list templates %s", scope)
	}
	return orEmpty(out), nil
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*template.AgentTemplate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM agent_templates WHERE id::text = $1`, id)
	t, err := scanTemplate(row)
	if err != nil {
		return nil, wrapErr(err, "get template %s", id)
	}
	return &t, nil
}

func (s *Store) FindTemplateByKey(ctx context.Context, name string, orgID *string) (*template.AgentTemplate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM agent_templates
		 WHERE name = $1 AND organization_id IS NOT DISTINCT FROM $2
		 ORDER BY created_at ASC, id LIMIT 1`, name, orgID)
	t, err := scanTemplate(row)
	if err != nil {
		return nil, wrapErr(err, "find template %q", name)
	}
	return &t, nil
}

func (s *Store) InsertTemplate(ctx context.Context, t *template.AgentTemplate) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO agent_templates (name, description, system_prompt, organization_id, category, icon, search_keywords)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id::text, created_at`,
		t.Name, t.Description, t.SystemPrompt, t.OrganizationID, t.Category, t.Icon, pgTextArray(t.SearchKeywords),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return wrapErr(err, "insert template %q", t.Name)
	}
	return nil
}

func scanTemplate(row scannable) (template.AgentTemplate, error) {
	var t template.AgentTemplate
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.SystemPrompt, &t.OrganizationID,
		&t.Category, &t.Icon, &t.SearchKeywords, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	t.SearchKeywords = orEmpty(t.SearchKeywords)
	return t, nil
}
