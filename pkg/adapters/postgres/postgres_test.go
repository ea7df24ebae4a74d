package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSQL_Placeholders(t *testing.T) {
	viewer := domain.Viewer{UserID: 7, SecureCategoryIDs: []int64{3}}
	query, args := listSQL(viewer, domain.ListOptions{Types: []int{1, 2}, Filter: domain.FilterUnread, Limit: 5})

	// user, secure categories, groups, types, limit, offset
	require.Len(t, args, 6)
	assert.Equal(t, int64(7), args[0])
	assert.Equal(t, []int64{3}, args[1])
	assert.Equal(t, []int64{}, args[2], "nil ids must bind as an empty array")
	assert.Equal(t, []int{1, 2}, args[3])
	assert.Equal(t, 5, args[4])
	assert.Equal(t, 0, args[5])

	assert.Contains(t, query, "n.notification_type = ANY($4)")
	assert.Contains(t, query, "n.read = FALSE")
	assert.Contains(t, query, "t.deleted_at IS NULL")
	assert.True(t, strings.HasSuffix(query, "LIMIT $5 OFFSET $6"))
	assert.Contains(t, query, "ORDER BY n.created_at DESC, n.id DESC")
}

func TestListSQL_StaffSeeDeletedTopics(t *testing.T) {
	query, _ := listSQL(domain.Viewer{UserID: 1, IsStaff: true}, domain.ListOptions{})
	assert.NotContains(t, query, "deleted_at")
}

func TestListSQL_Prioritized(t *testing.T) {
	query, _ := listSQL(domain.Viewer{UserID: 1}, domain.ListOptions{Order: domain.OrderPrioritized})
	assert.Contains(t, query, "ORDER BY (n.high_priority AND NOT n.read) DESC, (NOT n.read) DESC")
}

func TestCountSQL_Capped(t *testing.T) {
	s := visible(domain.Viewer{UserID: 1}).filter(domain.FilterUnread).afterSeen(domain.Viewer{SeenNotificationID: 4})
	query, args := countSQL(s, 10)

	assert.True(t, strings.HasPrefix(query, "SELECT COUNT(*) FROM (SELECT 1 FROM notifications n"))
	assert.Contains(t, query, "n.id > $4")
	assert.Contains(t, query, "LIMIT $5) capped")
	assert.Equal(t, []any{int64(1), []int64{}, []int64{}, int64(4), 10}, args)

	query, args = countSQL(visible(domain.Viewer{UserID: 1}), 0)
	assert.NotContains(t, query, "LIMIT")
	assert.Len(t, args, 3)
}

// connect opens the database named by LATTICE_TEST_PG_URL on a clean schema, or skips.
func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("LATTICE_TEST_PG_URL")
	if url == "" {
		t.Skip("LATTICE_TEST_PG_URL not set")
	}
	ctx := context.Background()
	cfg := DefaultConfig(url)
	cfg.RetryAttempts = 1

	pool, err := Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err = pool.Exec(ctx, `TRUNCATE llms_txts, categories, topics, topic_allowed_users,
		topic_allowed_groups, notifications, lattice_sessions`)
	require.NoError(t, err)
	return pool
}

func TestStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, NewStore(connect(t)))
}

func TestTextStore_Contract(t *testing.T) {
	ports.RunTextStoreContract(t, NewTextStore(connect(t)))
}

func TestNotificationQuery_Contract(t *testing.T) {
	pool := connect(t)
	require.NoError(t, InsertNotificationData(context.Background(), pool, ports.ContractNotificationData()))
	ports.RunNotificationQueryContract(t, NewNotificationQuery(pool))
}
