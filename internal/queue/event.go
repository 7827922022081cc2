// Package queue defines message payloads exchanged over the message broker.
package queue

// Scope values selecting which activity table an event lands in.
const (
	ScopeVenue      = "venue"
	ScopeRestaurant = "restaurant"
)

// ActivityEvent is published whenever a venue-sync workflow completes a
// business transition (request created/approved/denied, invitation
// accepted, restaurant unsynced, ...).  Publishing is fire-and-forget:
// a lost event never fails the operation that produced it.  The
// background consumer persists events into the venue_activity and
// restaurant_activity tables for dashboards; the core never reads them
// back.
type ActivityEvent struct {
	Scope      string `json:"scope"`       // "venue" or "restaurant"
	EntityID   uint64 `json:"entity_id"`   // venue or restaurant id
	Type       string `json:"type"`        // short machine tag, e.g. "request_approved"
	Message    string `json:"message"`     // human-readable description
	ActorID    uint64 `json:"actor_id"`    // user who caused the event (0 when unknown)
	OccurredAt string `json:"occurred_at"` // RFC3339 UTC timestamp
}
