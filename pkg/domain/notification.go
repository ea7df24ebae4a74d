package domain

import "time"

// NotificationTypePrivateMessage is the notification type raised for new private messages.
const NotificationTypePrivateMessage = 6

// Topic archetypes.
const (
	ArchetypeRegular        = "regular"
	ArchetypePrivateMessage = "private_message"
)

// Notification is one row of a user's notification feed.
type Notification struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Type         int       `json:"notification_type"`
	Read         bool      `json:"read"`
	HighPriority bool      `json:"high_priority"`
	TopicID      *int64    `json:"topic_id,omitempty"`
	Data         string    `json:"data,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Topic is the part of a topic that decides notification visibility.
type Topic struct {
	ID              int64
	CategoryID      *int64
	Archetype       string
	DeletedAt       *time.Time
	AllowedUserIDs  []int64
	AllowedGroupIDs []int64
}

// Category is the part of a category that decides notification visibility.
type Category struct {
	ID             int64
	ReadRestricted bool
}

// Viewer is the user a notification query runs for.
type Viewer struct {
	UserID             int64
	IsStaff            bool
	SecureCategoryIDs  []int64
	GroupIDs           []int64
	SeenNotificationID int64
}

// NotificationFilter restricts a listing to read or unread rows.
type NotificationFilter string

const (
	FilterAll    NotificationFilter = ""
	FilterRead   NotificationFilter = "read"
	FilterUnread NotificationFilter = "unread"
)

// NotificationOrder selects the listing order.
type NotificationOrder string

const (
	OrderDesc        NotificationOrder = "desc"
	OrderAsc         NotificationOrder = "asc"
	OrderPrioritized NotificationOrder = "prioritized"
)

// DefaultNotificationLimit is the page size used when ListOptions.Limit is zero.
const DefaultNotificationLimit = 30

// ListOptions parameterizes a notification listing.
type ListOptions struct {
	Limit  int
	Offset int
	Types  []int
	Filter NotificationFilter
	Order  NotificationOrder
}

// Normalized fills defaults.
func (o ListOptions) Normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultNotificationLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.Order == "" {
		o.Order = OrderDesc
	}
	return o
}

// ReadStatus pairs a notification ID with its read flag.
type ReadStatus struct {
	ID   int64 `json:"id"`
	Read bool  `json:"read"`
}

// GroupedUnreadBacklog bounds how many recent unread rows GroupedUnreadCounts inspects.
const GroupedUnreadBacklog = 400

// DefaultRecentLimit is the number of rows RecentReadStatus returns when limit is zero.
const DefaultRecentLimit = 20

// NotificationData is a self-contained set of rows a notification query runs against.
type NotificationData struct {
	Notifications []Notification
	Topics        []Topic
	Categories    []Category
}
