package audit

import (
	"context"
	"fmt"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/audit"
)

// Recorder appends audit entries for every successful mutation. It is called
// inside the same transaction as the primary write, so a failed append rolls
// the whole operation back; audit completeness is a compliance requirement
// for an approval workflow.
type Recorder struct {
	repo audit.Repository
}

func NewRecorder(repo audit.Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record appends one entry, stamping request provenance from the context
// (set by the HTTP middleware; absent for system actions).
func (r *Recorder) Record(ctx context.Context, actorID *string, action audit.ActionKind, entityType audit.EntityType, entityID string, diff audit.Diff, reason *string) error {
	entry := audit.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Diff:       diff,
		Reason:     reason,
	}

	if ip, ok := ctx.Value("client_ip").(string); ok && ip != "" {
		entry.ClientIP = &ip
	}
	if ua, ok := ctx.Value("user_agent").(string); ok && ua != "" {
		entry.UserAgent = &ua
	}

	if _, err := r.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Trail returns the audit entries for one entity, newest first.
func (r *Recorder) Trail(ctx context.Context, entityType audit.EntityType, entityID string, limit, offset int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	entries, err := r.repo.ListByEntity(ctx, entityType, entityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
