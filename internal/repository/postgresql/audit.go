package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/audit"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/database"
)

type auditRepositoryImpl struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) audit.Repository {
	return &auditRepositoryImpl{db: db}
}

// Append inserts one entry. The table carries no UPDATE or DELETE paths in
// this codebase; retention is an operational concern.
func (r *auditRepositoryImpl) Append(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	q := GetQuerier(ctx, r.db)

	var diffJSON []byte
	if entry.Diff != nil {
		var err error
		diffJSON, err = json.Marshal(entry.Diff)
		if err != nil {
			return audit.Entry{}, fmt.Errorf("marshal audit diff: %w", err)
		}
	}

	query := `
		INSERT INTO audit_log (
			id, actor_id, action, entity_type, entity_id, diff, reason, client_ip, user_agent, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, NOW()
		) RETURNING id, created_at
	`

	entry.ID = uuid.NewString()
	err := q.QueryRow(ctx, query,
		entry.ID, entry.ActorID, string(entry.Action), string(entry.EntityType), entry.EntityID,
		diffJSON, entry.Reason, entry.ClientIP, entry.UserAgent,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return audit.Entry{}, err
	}

	return entry, nil
}

func (r *auditRepositoryImpl) ListByEntity(ctx context.Context, entityType audit.EntityType, entityID string, limit, offset int) ([]audit.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, actor_id, action, entity_type, entity_id, diff, reason, client_ip, user_agent, created_at
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := q.Query(ctx, query, string(entityType), entityID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		var diffJSON []byte
		err := rows.Scan(
			&entry.ID, &entry.ActorID, &entry.Action, &entry.EntityType, &entry.EntityID,
			&diffJSON, &entry.Reason, &entry.ClientIP, &entry.UserAgent, &entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(diffJSON) > 0 {
			if err := json.Unmarshal(diffJSON, &entry.Diff); err != nil {
				return nil, fmt.Errorf("unmarshal audit diff: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
