package models

// AnalyticsUser is the slice of the user attached to analytics events.
type AnalyticsUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Segment string `json:"segment,omitempty"`
}

// Session tracks the page-lifetime counters of one storefront session.
type Session struct {
	ID             string `json:"id"`
	StartTime      int64  `json:"startTime"`
	PageViews      int    `json:"pageViews"`
	Interactions   int    `json:"interactions"`
	Duration       int64  `json:"duration,omitempty"`
	HiddenDuration int64  `json:"hiddenDuration,omitempty"`
}

// AnalyticsEvent is one tracked event. Timestamp is unix millis.
type AnalyticsEvent struct {
	Event     string         `json:"event" bson:"event"`
	Timestamp int64          `json:"timestamp" bson:"timestamp"`
	Session   Session        `json:"session" bson:"session"`
	User      *AnalyticsUser `json:"user,omitempty" bson:"user,omitempty"`
	URL       string         `json:"url,omitempty" bson:"url,omitempty"`
	Data      map[string]any `json:"data,omitempty" bson:"data,omitempty"`
}
