package model

import "time"

// Status values shared by venue requests and invitations.  A record is
// created pending and transitions exactly once to exactly one terminal
// state; terminal states are immutable.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"  // requests only
	StatusDenied    = "denied"    // requests only
	StatusAccepted  = "accepted"  // invitations only
	StatusDeclined  = "declined"  // invitations only
	StatusExpired   = "expired"   // invitations only
	StatusCancelled = "cancelled"
)

// VenueRequest is a restaurant-initiated request to join a venue.  The
// Restaurant*/Venue* fields are a snapshot of both entities' display
// fields captured at creation time; they are never refreshed and can
// drift from the live entities.  This struct corresponds to a row in the
// `venue_requests` table.
//
// Fields:
//  ID                – primary key identifier.
//  RestaurantID      – requesting restaurant.
//  VenueID           – target venue.
//  RestaurantName    – restaurant display snapshot.
//  RestaurantAddress – restaurant display snapshot.
//  RestaurantEmail   – restaurant display snapshot.
//  RestaurantPhone   – restaurant display snapshot.
//  RestaurantCuisine – restaurant display snapshot.
//  VenueName         – venue display snapshot.
//  VenueAddress      – venue display snapshot.
//  Status            – pending, approved, denied or cancelled.
//  RequestedBy       – user who created the request; only this user may
//                      cancel it.
//  Message           – sanitized free text from the requester.
//  DenialReason      – sanitized free text recorded on denial.
//  RequestedAt       – creation timestamp.
//  ResolvedAt        – timestamp of the terminal transition.
//  ResolvedBy        – user who performed the terminal transition.
//  ExpiresAt         – informational only; never enforced.
type VenueRequest struct {
	ID                uint64     // venue_requests.id
	RestaurantID      uint64     // venue_requests.restaurant_id
	VenueID           uint64     // venue_requests.venue_id
	RestaurantName    string     // venue_requests.restaurant_name
	RestaurantAddress string     // venue_requests.restaurant_address
	RestaurantEmail   string     // venue_requests.restaurant_email
	RestaurantPhone   string     // venue_requests.restaurant_phone
	RestaurantCuisine string     // venue_requests.restaurant_cuisine
	VenueName         string     // venue_requests.venue_name
	VenueAddress      string     // venue_requests.venue_address
	Status            string     // venue_requests.status
	RequestedBy       uint64     // venue_requests.requested_by
	Message           string     // venue_requests.message
	DenialReason      *string    // venue_requests.denial_reason (nullable)
	RequestedAt       time.Time  // venue_requests.requested_at
	ResolvedAt        *time.Time // venue_requests.resolved_at (nullable)
	ResolvedBy        *uint64    // venue_requests.resolved_by (nullable)
	ExpiresAt         *time.Time // venue_requests.expires_at (nullable, informational)
}
