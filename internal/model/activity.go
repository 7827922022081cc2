package model

import "time"

// ActivityRecord is an append-only, human-readable event attached to a
// venue or restaurant.  Records are written by the background activity
// consumer and read only by dashboards; the core workflows never read
// them back.  Corresponds to rows in the `venue_activity` and
// `restaurant_activity` tables, which share one shape.
//
// Fields:
//  ID        – primary key identifier.
//  EntityID  – venue_id or restaurant_id depending on the table.
//  Type      – short machine tag (e.g. "request_approved").
//  Message   – human-readable description.
//  ActorID   – user who caused the event (0 when unknown).
//  CreatedAt – timestamp when the row was written.
type ActivityRecord struct {
	ID        uint64    // *_activity.id
	EntityID  uint64    // *_activity.venue_id / restaurant_id
	Type      string    // *_activity.type
	Message   string    // *_activity.message
	ActorID   uint64    // *_activity.actor_id
	CreatedAt time.Time // *_activity.created_at
}
