package ports

import (
	"context"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
)

// SnapshotStore defines the interface for persisting session snapshots.
// A session can be stopped after any dispatch and resumed from its vector.
type SnapshotStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}

// TextStore holds a single site-wide text blob.
type TextStore interface {
	// Get returns the stored text, or domain.ErrTextNotSet.
	Get(ctx context.Context) (string, error)

	// Set stores content. Blank content clears the blob; content longer than
	// domain.MaxTextLength fails with *domain.TextTooLongError.
	Set(ctx context.Context, content string) error

	// Clear removes the stored text. Clearing an unset blob is not an error.
	Clear(ctx context.Context) error
}

// NotificationQuery lists and counts the notifications a viewer is allowed to see.
type NotificationQuery interface {
	List(ctx context.Context, viewer domain.Viewer, opts domain.ListOptions) ([]domain.Notification, error)
	TotalCount(ctx context.Context, viewer domain.Viewer, filter domain.NotificationFilter) (int, error)
	// UnreadCount counts unread notifications newer than the viewer's seen marker, capped at max
	// when max > 0.
	UnreadCount(ctx context.Context, viewer domain.Viewer, max int) (int, error)
	UnreadHighPriorityCount(ctx context.Context, viewer domain.Viewer) (int, error)
	// UnreadLowPriorityCount is UnreadCount without high priority rows.
	UnreadLowPriorityCount(ctx context.Context, viewer domain.Viewer, max int) (int, error)
	// UnreadCountForType counts unread rows of one type, created after since when it is set.
	UnreadCountForType(ctx context.Context, viewer domain.Viewer, typ int, since *time.Time) (int, error)
	// GroupedUnreadCounts counts unread notifications per type among the most recent backlog rows.
	GroupedUnreadCounts(ctx context.Context, viewer domain.Viewer) (map[int]int, error)
	NewPersonalMessagesCount(ctx context.Context, viewer domain.Viewer) (int, error)
	// RecentReadStatus returns the newest unread high priority rows followed by the newest
	// other rows, each part limited to limit.
	RecentReadStatus(ctx context.Context, viewer domain.Viewer, limit int) ([]domain.ReadStatus, error)
}
