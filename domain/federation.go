package domain

import (
	"github.com/google/uuid"
	"time"
)

// Follow is a directed edge: follower follows following. Unique per ordered
// pair; creation and deletion are idempotent.
type Follow struct {
	FollowingId uuid.UUID
	FollowerId  uuid.UUID
	CreatedAt   time.Time
}

// Activity is a log row for an inbound activity (deduplication/debugging)
type Activity struct {
	Id           uuid.UUID
	ActivityURI  string
	ActivityType string // Follow, Create, Update, Delete, Undo, etc.
	ActorURI     string
	ObjectURI    string
	RawJSON      string
	Processed    bool
	CreatedAt    time.Time
}

// DeliveryQueueItem is one pending outbound delivery
type DeliveryQueueItem struct {
	Id           uuid.UUID
	InboxURI     string
	ActivityJSON string // The complete activity to deliver
	Attempts     int
	NextRetryAt  time.Time
	CreatedAt    time.Time
}
