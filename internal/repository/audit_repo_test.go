package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rentdesk/rent-reminder/pkg/database"
)

func newTestRepo(t *testing.T) *AuditRepository {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "audit.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	return NewAuditRepository(db.DB, logger)
}

func TestAuditRepository_RecordAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sends := []ReminderSend{
		{TenantName: "Asha Verma", BillMonth: "March 2025", Email: "asha@example.com",
			SentOn: "2025-03-10", PDFPath: "/tmp/receipts/2025-03/a.pdf"},
		{TenantName: "Ravi Kumar", BillMonth: "March 2025", Email: "ravi@example.com",
			SentOn: "2025-03-10", FollowUp: true, PDFPath: "/tmp/receipts/2025-03/r.pdf"},
	}
	for _, s := range sends {
		require.NoError(t, repo.Record(ctx, s))
	}

	t.Run("lists newest first", func(t *testing.T) {
		got, err := repo.ListRecent(ctx, 10)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Ravi Kumar", got[0].TenantName)
		assert.True(t, got[0].FollowUp)
		assert.Equal(t, "Asha Verma", got[1].TenantName)
		assert.False(t, got[1].FollowUp)
		assert.NotZero(t, got[0].ID)
		assert.False(t, got[0].CreatedAt.IsZero())
	})

	t.Run("honors the limit", func(t *testing.T) {
		got, err := repo.ListRecent(ctx, 1)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Ravi Kumar", got[0].TenantName)
	})

	t.Run("non-positive limit falls back to default", func(t *testing.T) {
		got, err := repo.ListRecent(ctx, 0)

		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestAuditRepository_EmptyList(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.ListRecent(context.Background(), 10)

	require.NoError(t, err)
	assert.Empty(t, got)
}
