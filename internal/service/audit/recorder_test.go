package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/audit"
)

type capturingRepo struct {
	entries []audit.Entry
}

func (r *capturingRepo) Append(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *capturingRepo) ListByEntity(ctx context.Context, entityType audit.EntityType, entityID string, limit, offset int) ([]audit.Entry, error) {
	return r.entries, nil
}

func TestRecorder_StampsProvenance(t *testing.T) {
	repo := &capturingRepo{}
	rec := NewRecorder(repo)

	ctx := context.WithValue(context.Background(), "client_ip", "203.0.113.9")
	ctx = context.WithValue(ctx, "user_agent", "curl/8.0")

	actorID := "emp-1"
	err := rec.Record(ctx, &actorID, audit.ActionKindSubmit, audit.EntityTimesheet, "ts-1",
		audit.Diff{"status": {Old: "draft", New: "submitted"}}, nil)
	require.NoError(t, err)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.NotNil(t, entry.ClientIP)
	assert.Equal(t, "203.0.113.9", *entry.ClientIP)
	require.NotNil(t, entry.UserAgent)
	assert.Equal(t, "curl/8.0", *entry.UserAgent)
}

func TestRecorder_SystemActionHasNoProvenance(t *testing.T) {
	repo := &capturingRepo{}
	rec := NewRecorder(repo)

	err := rec.Record(context.Background(), nil, audit.ActionKindLock, audit.EntityTimesheet, "ts-1",
		audit.Diff{"status": {Old: "approved", New: "locked"}}, nil)
	require.NoError(t, err)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Nil(t, entry.ActorID)
	assert.Nil(t, entry.ClientIP)
	assert.Nil(t, entry.UserAgent)
}

func TestRecorder_TrailDefaultsLimit(t *testing.T) {
	repo := &capturingRepo{}
	rec := NewRecorder(repo)

	entries, err := rec.Trail(context.Background(), audit.EntityTimesheet, "ts-1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
