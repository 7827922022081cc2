package model

import "time"

// SyncMethod values recorded on a restaurant when it joins a venue.
// They describe which workflow produced the association.
const (
	SyncMethodRequest    = "restaurant_request" // joined via an approved venue request
	SyncMethodInvitation = "venue_invitation"   // joined via an accepted invitation
	SyncMethodManual     = "manual_sync"        // joined via direct admin sync
)

// VenueStatusActive is the only value written to restaurants.venue_status
// while a restaurant is associated with a venue.  The column is NULL when
// the restaurant is independent.
const VenueStatusActive = "active"

// Restaurant represents a restaurant entity owned by a user.  A restaurant
// is either independent (VenueID nil) or associated with exactly one venue.
// The Venue* fields are a denormalized cache of the venue's display fields
// captured at association time; only VenueID is authoritative for
// current-state decisions.  This struct corresponds to a row in the
// `restaurants` table.
//
// Fields:
//  ID            – primary key identifier.
//  OwnerID       – user ID of the restaurant owner.
//  Name          – display name.
//  Address       – street address.
//  City          – city, used for discovery relevance ordering.
//  State         – state, used for discovery relevance ordering.
//  Cuisine       – free-form cuisine description.
//  Email         – contact email.
//  Phone         – contact phone.
//  VenueID       – current venue association (nil = independent).
//  VenueName     – venue name snapshot taken when the association was made.
//  VenueAddress  – venue address snapshot taken when the association was made.
//  VenueStatus   – "active" while associated, nil otherwise.
//  SyncMethod    – which workflow created the association, nil otherwise.
//  JoinedVenueAt – timestamp of the most recent join transition.
//  LeftVenueAt   – timestamp of the most recent leave transition.
//  UnsyncReason  – free text recorded when the restaurant left its venue.
//  CreatedAt     – timestamp when the row was created.
//  UpdatedAt     – timestamp of last update.
type Restaurant struct {
	ID            uint64     // restaurants.id
	OwnerID       uint64     // restaurants.owner_id
	Name          string     // restaurants.name
	Address       string     // restaurants.address
	City          string     // restaurants.city
	State         string     // restaurants.state
	Cuisine       string     // restaurants.cuisine
	Email         string     // restaurants.email
	Phone         string     // restaurants.phone
	VenueID       *uint64    // restaurants.venue_id (nullable)
	VenueName     *string    // restaurants.venue_name (nullable snapshot)
	VenueAddress  *string    // restaurants.venue_address (nullable snapshot)
	VenueStatus   *string    // restaurants.venue_status (nullable)
	SyncMethod    *string    // restaurants.sync_method (nullable)
	JoinedVenueAt *time.Time // restaurants.joined_venue_at (nullable)
	LeftVenueAt   *time.Time // restaurants.left_venue_at (nullable)
	UnsyncReason  *string    // restaurants.unsync_reason (nullable)
	CreatedAt     time.Time  // restaurants.created_at
	UpdatedAt     time.Time  // restaurants.updated_at
}

// Associated reports whether the restaurant currently belongs to a venue.
func (r *Restaurant) Associated() bool { return r.VenueID != nil }
