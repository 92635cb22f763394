package postgres

import (
	"context"

	"github.com/zasterix/zasterix/internal/domain/audit"
)

// --- Universal history ---

func (s *Store) InsertAudit(ctx context.Context, e *audit.Entry) error {
	var summary any
	if len(e.SummaryPayload) > 0 {
		summary = []byte(e.SummaryPayload)
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO universal_history (user_id, organization_id, payload, summary_payload)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id::text, created_at`,
		e.UserID, e.OrganizationID, []byte(e.Payload), summary,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return wrapErr(err, "insert history entry")
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]audit.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, organization_id, payload, summary_payload, created_at
		 FROM universal_history ORDER BY created_at DESC, id LIMIT $1`, audit.ClampLimit(limit))
	if err != nil {
		return nil, wrapErr(err, "list history")
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e       audit.Entry
			payload []byte
			summary []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.OrganizationID, &payload, &summary, &e.CreatedAt); err != nil {
			return nil, wrapErr(err, "scan history entry")
		}
		e.Payload = payload
		if len(summary) > 0 {
			e.SummaryPayload = summary
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "list history")
	}
	return orEmpty(out), nil
}
