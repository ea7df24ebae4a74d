package ports

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	newSnapshot := func(id string) *domain.Snapshot {
		return &domain.Snapshot{
			SessionID: id,
			Group:     "sheet",
			Vector: domain.Vector{
				"openness": {"closed", "safe-to-unmount"},
				"staging":  {"none"},
			},
			Dispatches: 3,
			UpdatedAt:  time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := newSnapshot(sessionID)

		err := store.Save(ctx, sessionID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.Group, loaded.Group)
		assert.Equal(t, snap.Vector, loaded.Vector)
		assert.Equal(t, snap.Dispatches, loaded.Dispatches)
		assert.True(t, snap.UpdatedAt.Equal(loaded.UpdatedAt), "UpdatedAt should survive a round trip")
	})

	t.Run("Save overwrites", func(t *testing.T) {
		snap := newSnapshot(sessionID)
		snap.Vector["staging"] = []string{"opening"}
		snap.Dispatches = 4
		require.NoError(t, store.Save(ctx, sessionID, snap))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, []string{"opening"}, loaded.Vector["staging"])
		assert.Equal(t, 4, loaded.Dispatches)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, newSnapshot(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, newSnapshot(id1))
		_ = store.Save(ctx, id2, newSnapshot(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunTextStoreContract verifies the blank-is-absent and length rules of a TextStore.
// The store must start empty.
func RunTextStoreContract(t *testing.T, store TextStore) {
	ctx := context.Background()

	t.Run("Get Unset", func(t *testing.T) {
		_, err := store.Get(ctx)
		assert.ErrorIs(t, err, domain.ErrTextNotSet)
	})

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "# Site\n\nHello."))
		got, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "# Site\n\nHello.", got)
	})

	t.Run("Blank clears", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "something"))
		require.NoError(t, store.Set(ctx, "  \n\t"))
		_, err := store.Get(ctx)
		assert.ErrorIs(t, err, domain.ErrTextNotSet)
	})

	t.Run("Too long", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "kept"))
		err := store.Set(ctx, strings.Repeat("x", domain.MaxTextLength+1))
		var tooLong *domain.TextTooLongError
		require.ErrorAs(t, err, &tooLong)
		assert.Equal(t, domain.MaxTextLength+1, tooLong.Length)

		got, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "kept", got, "a rejected Set must not change the stored text")
	})

	t.Run("Exactly max", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, strings.Repeat("é", domain.MaxTextLength)))
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "something"))
		require.NoError(t, store.Clear(ctx))
		_, err := store.Get(ctx)
		assert.ErrorIs(t, err, domain.ErrTextNotSet)
		assert.NoError(t, store.Clear(ctx), "clearing twice is fine")
	})
}

// ContractNotificationData is the fixture RunNotificationQueryContract expects the query to serve.
//
// User 1 sees: 1 (no topic), 2 (public topic), 4 (secure category), 6 (own PM),
// 7 (PM through group 50), 8 (high priority), 9 (type 6, read) and 10 (type 6, unread).
// Rows 3 (restricted category), 5 (deleted topic), 11 (other user's PM) and 12 (missing topic)
// are hidden; staff additionally see the deleted topic 5. Row 13 belongs to user 2.
func ContractNotificationData() domain.NotificationData {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ptr := func(v int64) *int64 { return &v }
	deleted := base.Add(-time.Hour)

	n := func(id int64, typ int, read, high bool, topic *int64) domain.Notification {
		return domain.Notification{
			ID:           id,
			UserID:       1,
			Type:         typ,
			Read:         read,
			HighPriority: high,
			TopicID:      topic,
			CreatedAt:    base.Add(time.Duration(id) * time.Minute),
		}
	}
	other := n(13, 1, false, false, nil)
	other.UserID = 2

	return domain.NotificationData{
		Categories: []domain.Category{
			{ID: 10, ReadRestricted: false},
			{ID: 20, ReadRestricted: true},
			{ID: 30, ReadRestricted: true},
		},
		Topics: []domain.Topic{
			{ID: 100, CategoryID: ptr(10), Archetype: domain.ArchetypeRegular},
			{ID: 101, CategoryID: ptr(20), Archetype: domain.ArchetypeRegular},
			{ID: 102, CategoryID: ptr(30), Archetype: domain.ArchetypeRegular},
			{ID: 103, CategoryID: ptr(10), Archetype: domain.ArchetypeRegular, DeletedAt: &deleted},
			{ID: 104, Archetype: domain.ArchetypePrivateMessage, AllowedUserIDs: []int64{1, 2}},
			{ID: 105, Archetype: domain.ArchetypePrivateMessage, AllowedGroupIDs: []int64{50}},
			{ID: 106, Archetype: domain.ArchetypePrivateMessage, AllowedUserIDs: []int64{2, 3}},
		},
		Notifications: []domain.Notification{
			n(1, 1, false, false, nil),
			n(2, 2, true, false, ptr(100)),
			n(3, 1, false, false, ptr(101)),
			n(4, 2, false, false, ptr(102)),
			n(5, 1, false, false, ptr(103)),
			n(6, 6, true, false, ptr(104)),
			n(7, 2, false, false, ptr(105)),
			n(8, 1, false, true, ptr(100)),
			n(9, domain.NotificationTypePrivateMessage, true, false, ptr(104)),
			n(10, domain.NotificationTypePrivateMessage, false, false, ptr(104)),
			n(11, 1, false, false, ptr(106)),
			n(12, 1, false, false, ptr(999)),
			other,
		},
	}
}

// ContractViewer is the non-staff viewer RunNotificationQueryContract queries as.
func ContractViewer() domain.Viewer {
	return domain.Viewer{UserID: 1, SecureCategoryIDs: []int64{30}, GroupIDs: []int64{50}}
}

// RunNotificationQueryContract verifies visibility, filtering, ordering and counting of a
// NotificationQuery loaded with ContractNotificationData.
func RunNotificationQueryContract(t *testing.T, q NotificationQuery) {
	ctx := context.Background()
	viewer := ContractViewer()
	staff := viewer
	staff.IsStaff = true

	ids := func(rows []domain.Notification) []int64 {
		out := make([]int64, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ID)
		}
		return out
	}

	t.Run("List Visibility", func(t *testing.T) {
		rows, err := q.List(ctx, viewer, domain.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 9, 8, 7, 6, 4, 2, 1}, ids(rows))

		rows, err = q.List(ctx, staff, domain.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 9, 8, 7, 6, 5, 4, 2, 1}, ids(rows), "staff see deleted topics")
	})

	t.Run("List Filters", func(t *testing.T) {
		rows, err := q.List(ctx, viewer, domain.ListOptions{Filter: domain.FilterUnread, Order: domain.OrderAsc})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 4, 7, 8, 10}, ids(rows))

		rows, err = q.List(ctx, viewer, domain.ListOptions{Filter: domain.FilterRead})
		require.NoError(t, err)
		assert.Equal(t, []int64{9, 6, 2}, ids(rows))

		rows, err = q.List(ctx, viewer, domain.ListOptions{Types: []int{2}})
		require.NoError(t, err)
		assert.Equal(t, []int64{7, 4, 2}, ids(rows))
	})

	t.Run("List Paging", func(t *testing.T) {
		rows, err := q.List(ctx, viewer, domain.ListOptions{Limit: 3, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, []int64{8, 7, 6}, ids(rows))
	})

	t.Run("List Prioritized", func(t *testing.T) {
		rows, err := q.List(ctx, viewer, domain.ListOptions{Order: domain.OrderPrioritized})
		require.NoError(t, err)
		assert.Equal(t, []int64{8, 10, 7, 4, 1, 9, 6, 2}, ids(rows))
	})

	t.Run("Counts", func(t *testing.T) {
		total, err := q.TotalCount(ctx, viewer, domain.FilterAll)
		require.NoError(t, err)
		assert.Equal(t, 8, total)

		unread, err := q.TotalCount(ctx, viewer, domain.FilterUnread)
		require.NoError(t, err)
		assert.Equal(t, 5, unread)

		n, err := q.UnreadCount(ctx, viewer, 0)
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		n, err = q.UnreadCount(ctx, viewer, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, n, "capped at max")

		seen := viewer
		seen.SeenNotificationID = 4
		n, err = q.UnreadCount(ctx, seen, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, n, "only rows after the seen marker")

		n, err = q.UnreadHighPriorityCount(ctx, seen)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = q.UnreadLowPriorityCount(ctx, seen, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = q.UnreadCountForType(ctx, viewer, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		since := time.Date(2025, 1, 1, 12, 5, 0, 0, time.UTC)
		n, err = q.UnreadCountForType(ctx, viewer, 2, &since)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = q.NewPersonalMessagesCount(ctx, viewer)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("Grouped Unread", func(t *testing.T) {
		counts, err := q.GroupedUnreadCounts(ctx, viewer)
		require.NoError(t, err)
		assert.Equal(t, map[int]int{1: 2, 2: 2, domain.NotificationTypePrivateMessage: 1}, counts)
	})

	t.Run("Recent Read Status", func(t *testing.T) {
		got, err := q.RecentReadStatus(ctx, viewer, 3)
		require.NoError(t, err)
		assert.Equal(t, []domain.ReadStatus{
			{ID: 8, Read: false},
			{ID: 10, Read: false},
			{ID: 9, Read: true},
			{ID: 7, Read: false},
		}, got, "unread high priority rows come first")
	})
}
