package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
)

// NotificationQuery implements ports.NotificationQuery over an in-memory data set.
type NotificationQuery struct {
	mu         sync.RWMutex
	rows       []domain.Notification
	topics     map[int64]domain.Topic
	categories map[int64]domain.Category
}

// NewNotificationQuery creates a query over a copy of data.
func NewNotificationQuery(data domain.NotificationData) *NotificationQuery {
	q := &NotificationQuery{
		rows:       slices.Clone(data.Notifications),
		topics:     make(map[int64]domain.Topic, len(data.Topics)),
		categories: make(map[int64]domain.Category, len(data.Categories)),
	}
	for _, t := range data.Topics {
		q.topics[t.ID] = t
	}
	for _, c := range data.Categories {
		q.categories[c.ID] = c
	}
	return q
}

// Add appends a notification.
func (q *NotificationQuery) Add(n domain.Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rows = append(q.rows, n)
}

// MarkRead flips the read flag of the given notifications.
func (q *NotificationQuery) MarkRead(ids ...int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.rows {
		if slices.Contains(ids, q.rows[i].ID) {
			q.rows[i].Read = true
		}
	}
}

func (q *NotificationQuery) List(ctx context.Context, viewer domain.Viewer, opts domain.ListOptions) ([]domain.Notification, error) {
	opts = opts.Normalized()
	rows := q.visible(viewer, func(n domain.Notification) bool {
		return (len(opts.Types) == 0 || slices.Contains(opts.Types, n.Type)) && matchFilter(n, opts.Filter)
	})

	switch opts.Order {
	case domain.OrderAsc:
		slices.SortStableFunc(rows, func(a, b domain.Notification) int { return compareCreated(a, b) })
	case domain.OrderPrioritized:
		slices.SortStableFunc(rows, comparePrioritized)
	default:
		slices.SortStableFunc(rows, func(a, b domain.Notification) int { return compareCreated(b, a) })
	}
	return page(rows, opts.Offset, opts.Limit), nil
}

func (q *NotificationQuery) TotalCount(ctx context.Context, viewer domain.Viewer, filter domain.NotificationFilter) (int, error) {
	return len(q.visible(viewer, func(n domain.Notification) bool { return matchFilter(n, filter) })), nil
}

func (q *NotificationQuery) UnreadCount(ctx context.Context, viewer domain.Viewer, max int) (int, error) {
	rows := q.visible(viewer, func(n domain.Notification) bool {
		return !n.Read && n.ID > viewer.SeenNotificationID
	})
	return capped(len(rows), max), nil
}

func (q *NotificationQuery) UnreadHighPriorityCount(ctx context.Context, viewer domain.Viewer) (int, error) {
	return len(q.visible(viewer, func(n domain.Notification) bool { return !n.Read && n.HighPriority })), nil
}

func (q *NotificationQuery) UnreadLowPriorityCount(ctx context.Context, viewer domain.Viewer, max int) (int, error) {
	rows := q.visible(viewer, func(n domain.Notification) bool {
		return !n.Read && !n.HighPriority && n.ID > viewer.SeenNotificationID
	})
	return capped(len(rows), max), nil
}

func (q *NotificationQuery) UnreadCountForType(ctx context.Context, viewer domain.Viewer, typ int, since *time.Time) (int, error) {
	rows := q.visible(viewer, func(n domain.Notification) bool {
		return !n.Read && n.Type == typ && (since == nil || n.CreatedAt.After(*since))
	})
	return len(rows), nil
}

func (q *NotificationQuery) GroupedUnreadCounts(ctx context.Context, viewer domain.Viewer) (map[int]int, error) {
	rows := q.visible(viewer, func(n domain.Notification) bool { return !n.Read })
	slices.SortFunc(rows, func(a, b domain.Notification) int { return cmp.Compare(b.ID, a.ID) })
	counts := make(map[int]int)
	for _, n := range page(rows, 0, domain.GroupedUnreadBacklog) {
		counts[n.Type]++
	}
	return counts, nil
}

func (q *NotificationQuery) NewPersonalMessagesCount(ctx context.Context, viewer domain.Viewer) (int, error) {
	rows := q.visible(viewer, func(n domain.Notification) bool {
		return !n.Read && n.ID > viewer.SeenNotificationID && n.Type == domain.NotificationTypePrivateMessage
	})
	return len(rows), nil
}

func (q *NotificationQuery) RecentReadStatus(ctx context.Context, viewer domain.Viewer, limit int) ([]domain.ReadStatus, error) {
	if limit <= 0 {
		limit = domain.DefaultRecentLimit
	}
	byIDDesc := func(a, b domain.Notification) int { return cmp.Compare(b.ID, a.ID) }

	high := q.visible(viewer, func(n domain.Notification) bool { return !n.Read && n.HighPriority })
	other := q.visible(viewer, func(n domain.Notification) bool { return !n.HighPriority || n.Read })
	slices.SortFunc(high, byIDDesc)
	slices.SortFunc(other, byIDDesc)

	out := make([]domain.ReadStatus, 0, 2*limit)
	for _, n := range append(page(high, 0, limit), page(other, 0, limit)...) {
		out = append(out, domain.ReadStatus{ID: n.ID, Read: n.Read})
	}
	return out, nil
}

// visible returns the viewer's notifications that pass keep and the topic visibility rules.
func (q *NotificationQuery) visible(viewer domain.Viewer, keep func(domain.Notification) bool) []domain.Notification {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var out []domain.Notification
	for _, n := range q.rows {
		if n.UserID != viewer.UserID || !keep(n) || !q.topicVisible(viewer, n.TopicID) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (q *NotificationQuery) topicVisible(viewer domain.Viewer, topicID *int64) bool {
	if topicID == nil {
		return true
	}
	t, ok := q.topics[*topicID]
	if !ok {
		return false
	}
	if t.DeletedAt != nil && !viewer.IsStaff {
		return false
	}
	switch t.Archetype {
	case domain.ArchetypeRegular:
		if t.CategoryID == nil {
			return true
		}
		c, ok := q.categories[*t.CategoryID]
		if !ok {
			// LEFT JOIN semantics: a dangling category reads as no category.
			return true
		}
		return !c.ReadRestricted || slices.Contains(viewer.SecureCategoryIDs, c.ID)
	case domain.ArchetypePrivateMessage:
		if slices.Contains(t.AllowedUserIDs, viewer.UserID) {
			return true
		}
		return slices.ContainsFunc(t.AllowedGroupIDs, func(g int64) bool {
			return slices.Contains(viewer.GroupIDs, g)
		})
	}
	return false
}

func matchFilter(n domain.Notification, f domain.NotificationFilter) bool {
	switch f {
	case domain.FilterRead:
		return n.Read
	case domain.FilterUnread:
		return !n.Read
	}
	return true
}

func compareCreated(a, b domain.Notification) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// comparePrioritized orders unread high priority first, then unread, then newest.
func comparePrioritized(a, b domain.Notification) int {
	rank := func(n domain.Notification) int {
		switch {
		case n.HighPriority && !n.Read:
			return 0
		case !n.Read:
			return 1
		}
		return 2
	}
	if c := cmp.Compare(rank(a), rank(b)); c != 0 {
		return c
	}
	return compareCreated(b, a)
}

func page(rows []domain.Notification, offset, limit int) []domain.Notification {
	if offset >= len(rows) {
		return []domain.Notification{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func capped(n, max int) int {
	if max > 0 && n > max {
		return max
	}
	return n
}
