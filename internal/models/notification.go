package models

// NotificationKind classifies a user-facing message.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
	NotificationWarning NotificationKind = "warning"
	NotificationInfo    NotificationKind = "info"
)

// Notification is one transient user-facing message. IDs are monotonic
// within a queue; notifications are never persisted.
type Notification struct {
	ID   int64            `json:"id"`
	Kind NotificationKind `json:"kind"`
	Text string           `json:"text"`
}
