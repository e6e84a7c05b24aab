package models

import "time"

// Urgency is a keyword-based importance hint for a feed item.
type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// FeedItem is one normalized entry of an external feed.
// It only lives for the duration of a collection cycle.
type FeedItem struct {
	SourceID    string
	ExternalID  string
	Title       string
	Link        string
	PublishedAt time.Time
	Content     string
	Coins       []string
	Urgency     Urgency
}
