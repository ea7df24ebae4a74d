package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/jackc/pgx/v5"
)

const notificationColumns = `n.id, n.user_id, n.notification_type, n.read, n.high_priority, n.topic_id, n.data, n.created_at`

// NotificationQuery implements ports.NotificationQuery in SQL.
type NotificationQuery struct {
	db DB
}

// NewNotificationQuery creates a notification query.
func NewNotificationQuery(db DB) *NotificationQuery {
	return &NotificationQuery{db: db}
}

// scope accumulates the WHERE clause and positional arguments of one statement.
type scope struct {
	where []string
	args  []any
}

func (s *scope) arg(v any) string {
	s.args = append(s.args, v)
	return fmt.Sprintf("$%d", len(s.args))
}

func (s *scope) and(cond string) *scope {
	s.where = append(s.where, cond)
	return s
}

// from renders the joined tables and the WHERE clause.
func (s *scope) from() string {
	return `notifications n
		LEFT JOIN topics t ON t.id = n.topic_id
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE ` + strings.Join(s.where, " AND ")
}

// visible starts a scope with the viewer's rows that pass the topic visibility rules: no
// topic, or an existing topic that is not deleted (staff excepted) and is either a regular
// topic in an unrestricted or secure category or a private message the viewer is allowed in.
func visible(viewer domain.Viewer) *scope {
	s := &scope{}
	user := s.arg(viewer.UserID)
	deleted := "TRUE"
	if !viewer.IsStaff {
		deleted = "t.deleted_at IS NULL"
	}
	secure := s.arg(nonNil(viewer.SecureCategoryIDs))
	groups := s.arg(nonNil(viewer.GroupIDs))

	s.and("n.user_id = " + user)
	s.and(fmt.Sprintf(`(
		n.topic_id IS NULL
		OR (
			t.id IS NOT NULL
			AND %s
			AND (
				(t.archetype = '%s' AND (c.id IS NULL OR c.read_restricted = FALSE OR c.id = ANY(%s)))
				OR (t.archetype = '%s' AND (
					EXISTS (SELECT 1 FROM topic_allowed_users tau WHERE tau.topic_id = t.id AND tau.user_id = %s)
					OR EXISTS (SELECT 1 FROM topic_allowed_groups tag WHERE tag.topic_id = t.id AND tag.group_id = ANY(%s))
				))
			)
		)
	)`, deleted, domain.ArchetypeRegular, secure, domain.ArchetypePrivateMessage, user, groups))
	return s
}

func (s *scope) filter(f domain.NotificationFilter) *scope {
	switch f {
	case domain.FilterRead:
		s.and("n.read = TRUE")
	case domain.FilterUnread:
		s.and("n.read = FALSE")
	}
	return s
}

func (s *scope) afterSeen(viewer domain.Viewer) *scope {
	return s.and("n.id > " + s.arg(viewer.SeenNotificationID))
}

func orderBy(o domain.NotificationOrder) string {
	switch o {
	case domain.OrderAsc:
		return "n.created_at ASC, n.id ASC"
	case domain.OrderPrioritized:
		return "(n.high_priority AND NOT n.read) DESC, (NOT n.read) DESC, n.created_at DESC, n.id DESC"
	}
	return "n.created_at DESC, n.id DESC"
}

// listSQL builds the List statement.
func listSQL(viewer domain.Viewer, opts domain.ListOptions) (string, []any) {
	opts = opts.Normalized()
	s := visible(viewer).filter(opts.Filter)
	if len(opts.Types) > 0 {
		s.and("n.notification_type = ANY(" + s.arg(opts.Types) + ")")
	}
	limit, offset := s.arg(opts.Limit), s.arg(opts.Offset)
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %s OFFSET %s",
		notificationColumns, s.from(), orderBy(opts.Order), limit, offset), s.args
}

// countSQL counts the scope, stopping at max rows when max > 0.
func countSQL(s *scope, max int) (string, []any) {
	if max > 0 {
		return fmt.Sprintf("SELECT COUNT(*) FROM (SELECT 1 FROM %s LIMIT %s) capped", s.from(), s.arg(max)), s.args
	}
	return "SELECT COUNT(*) FROM " + s.from(), s.args
}

func (q *NotificationQuery) List(ctx context.Context, viewer domain.Viewer, opts domain.ListOptions) ([]domain.Notification, error) {
	query, args := listSQL(viewer, opts)
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Notification])
	if err != nil {
		return nil, fmt.Errorf("failed to scan notifications: %w", err)
	}
	return out, nil
}

func (q *NotificationQuery) count(ctx context.Context, s *scope, max int) (int, error) {
	query, args := countSQL(s, max)
	var n int
	if err := q.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

func (q *NotificationQuery) TotalCount(ctx context.Context, viewer domain.Viewer, filter domain.NotificationFilter) (int, error) {
	return q.count(ctx, visible(viewer).filter(filter), 0)
}

func (q *NotificationQuery) UnreadCount(ctx context.Context, viewer domain.Viewer, max int) (int, error) {
	return q.count(ctx, visible(viewer).filter(domain.FilterUnread).afterSeen(viewer), max)
}

func (q *NotificationQuery) UnreadHighPriorityCount(ctx context.Context, viewer domain.Viewer) (int, error) {
	return q.count(ctx, visible(viewer).filter(domain.FilterUnread).and("n.high_priority = TRUE"), 0)
}

func (q *NotificationQuery) UnreadLowPriorityCount(ctx context.Context, viewer domain.Viewer, max int) (int, error) {
	s := visible(viewer).filter(domain.FilterUnread).and("n.high_priority = FALSE").afterSeen(viewer)
	return q.count(ctx, s, max)
}

func (q *NotificationQuery) UnreadCountForType(ctx context.Context, viewer domain.Viewer, typ int, since *time.Time) (int, error) {
	s := visible(viewer).filter(domain.FilterUnread)
	s.and("n.notification_type = " + s.arg(typ))
	if since != nil {
		s.and("n.created_at > " + s.arg(*since))
	}
	return q.count(ctx, s, 0)
}

func (q *NotificationQuery) GroupedUnreadCounts(ctx context.Context, viewer domain.Viewer) (map[int]int, error) {
	s := visible(viewer).filter(domain.FilterUnread)
	query := fmt.Sprintf(`SELECT notification_type, COUNT(*) FROM (
		SELECT n.notification_type FROM %s ORDER BY n.id DESC LIMIT %s
	) backlog GROUP BY notification_type`, s.from(), s.arg(domain.GroupedUnreadBacklog))

	rows, err := q.db.Query(ctx, query, s.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group notifications: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var typ, n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("failed to scan grouped counts: %w", err)
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

func (q *NotificationQuery) NewPersonalMessagesCount(ctx context.Context, viewer domain.Viewer) (int, error) {
	s := visible(viewer).filter(domain.FilterUnread).afterSeen(viewer)
	s.and("n.notification_type = " + s.arg(domain.NotificationTypePrivateMessage))
	return q.count(ctx, s, 0)
}

func (q *NotificationQuery) RecentReadStatus(ctx context.Context, viewer domain.Viewer, limit int) ([]domain.ReadStatus, error) {
	if limit <= 0 {
		limit = domain.DefaultRecentLimit
	}
	high, err := q.readStatus(ctx, visible(viewer).and("n.read = FALSE AND n.high_priority = TRUE"), limit)
	if err != nil {
		return nil, err
	}
	other, err := q.readStatus(ctx, visible(viewer).and("(n.high_priority = FALSE OR n.read = TRUE)"), limit)
	if err != nil {
		return nil, err
	}
	return append(high, other...), nil
}

func (q *NotificationQuery) readStatus(ctx context.Context, s *scope, limit int) ([]domain.ReadStatus, error) {
	query := fmt.Sprintf("SELECT n.id, n.read FROM %s ORDER BY n.id DESC LIMIT %s", s.from(), s.arg(limit))
	rows, err := q.db.Query(ctx, query, s.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read notification status: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.ReadStatus])
	if err != nil {
		return nil, fmt.Errorf("failed to scan notification status: %w", err)
	}
	return out, nil
}

// InsertNotificationData loads a data set, as used by fixtures and the seed command.
func InsertNotificationData(ctx context.Context, db DB, data domain.NotificationData) error {
	batch := &pgx.Batch{}
	for _, c := range data.Categories {
		batch.Queue(`INSERT INTO categories (id, read_restricted) VALUES ($1, $2)`, c.ID, c.ReadRestricted)
	}
	for _, t := range data.Topics {
		batch.Queue(`INSERT INTO topics (id, category_id, archetype, deleted_at) VALUES ($1, $2, $3, $4)`,
			t.ID, t.CategoryID, t.Archetype, t.DeletedAt)
		for _, u := range t.AllowedUserIDs {
			batch.Queue(`INSERT INTO topic_allowed_users (topic_id, user_id) VALUES ($1, $2)`, t.ID, u)
		}
		for _, g := range t.AllowedGroupIDs {
			batch.Queue(`INSERT INTO topic_allowed_groups (topic_id, group_id) VALUES ($1, $2)`, t.ID, g)
		}
	}
	for _, n := range data.Notifications {
		batch.Queue(`INSERT INTO notifications (id, user_id, notification_type, read, high_priority, topic_id, data, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			n.ID, n.UserID, n.Type, n.Read, n.HighPriority, n.TopicID, n.Data, n.CreatedAt)
	}

	results := db.SendBatch(ctx, batch)
	for range batch.Len() {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert notification data: %w", err)
		}
	}
	return results.Close()
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
