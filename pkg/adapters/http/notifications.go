package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

type notificationCounts struct {
	Total            int                 `json:"total"`
	Unread           int                 `json:"unread"`
	UnreadHigh       int                 `json:"unread_high_priority"`
	UnreadLow        int                 `json:"unread_low_priority"`
	NewPersonal      int                 `json:"new_personal_messages"`
	GroupedUnread    map[int]int         `json:"grouped_unread"`
	RecentReadStatus []domain.ReadStatus `json:"recent"`
}

// ListNotifications handles the admin GET /admin/notifications request.
func (s *Server) ListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := domain.ListOptions{
		Limit:  atoi(q.Get("limit")),
		Offset: atoi(q.Get("offset")),
		Filter: domain.NotificationFilter(q.Get("filter")),
		Order:  domain.NotificationOrder(q.Get("order")),
	}
	for _, t := range int64List(q, "types") {
		opts.Types = append(opts.Types, int(t))
	}

	list, err := s.notifications.List(r.Context(), viewerOf(q), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

// CountNotifications handles the admin GET /admin/notifications/counts request.
func (s *Server) CountNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := viewerOf(r.URL.Query())

	var (
		out notificationCounts
		err error
	)
	steps := []func() error{
		func() error {
			out.Total, err = s.notifications.TotalCount(ctx, viewer, domain.FilterAll)
			return err
		},
		func() error {
			out.Unread, err = s.notifications.UnreadCount(ctx, viewer, 0)
			return err
		},
		func() error {
			out.UnreadHigh, err = s.notifications.UnreadHighPriorityCount(ctx, viewer)
			return err
		},
		func() error {
			out.UnreadLow, err = s.notifications.UnreadLowPriorityCount(ctx, viewer, 0)
			return err
		},
		func() error {
			out.NewPersonal, err = s.notifications.NewPersonalMessagesCount(ctx, viewer)
			return err
		},
		func() error {
			out.GroupedUnread, err = s.notifications.GroupedUnreadCounts(ctx, viewer)
			return err
		},
		func() error {
			out.RecentReadStatus, err = s.notifications.RecentReadStatus(ctx, viewer, 0)
			return err
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func viewerOf(q url.Values) domain.Viewer {
	userID, _ := strconv.ParseInt(q.Get("user_id"), 10, 64)
	seen, _ := strconv.ParseInt(q.Get("seen"), 10, 64)
	staff, _ := strconv.ParseBool(q.Get("staff"))
	return domain.Viewer{
		UserID:             userID,
		IsStaff:            staff,
		SecureCategoryIDs:  int64List(q, "secure_categories"),
		GroupIDs:           int64List(q, "groups"),
		SeenNotificationID: seen,
	}
}

// int64List reads a comma separated query parameter. The validator already rejected
// malformed values.
func int64List(q url.Values, key string) []int64 {
	raw := q.Get(key)
	if raw == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		if n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
