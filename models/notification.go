package models

import "time"

// Notification kinds.
const (
	KindSuccess = "success"
	KindError   = "error"
	KindWarning = "warning"
	KindInfo    = "info"
)

// Notification is a user-facing message.
type Notification struct {
	ID       string        `json:"id" bson:"id"`
	UserID   string        `json:"-" bson:"userId"`
	Message  string        `json:"message" bson:"message"`
	Type     string        `json:"type" bson:"type"`
	Read     bool          `json:"read,omitempty" bson:"read"`
	ShownAt  time.Time     `json:"shownAt" bson:"createdAt"`
	Duration time.Duration `json:"duration,omitempty" bson:"-"`
}
