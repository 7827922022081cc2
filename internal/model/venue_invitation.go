package model

import "time"

// InviteCodeLength is the length of the out-of-band invitation code.
// Codes are uppercase alphanumeric, giving a 36^8 space.
const InviteCodeLength = 8

// InvitationTTL is how long an invitation stays redeemable.
const InvitationTTL = 7 * 24 * time.Hour

// VenueInvitation is a venue-initiated invitation to a restaurant that
// may not yet exist as an entity.  It is keyed by InviteCode rather than
// restaurant id and gains a RestaurantID only upon acceptance.  Unlike
// venue_requests.expires_at, ExpiresAt here is actively checked and
// lazily transitioned to expired on validate.  This struct corresponds
// to a row in the `venue_invitations` table.
//
// Fields:
//  ID              – primary key identifier.
//  VenueID         – inviting venue.
//  VenueName       – venue display snapshot taken at creation.
//  VenueAddress    – venue display snapshot taken at creation.
//  RestaurantName  – invited restaurant's name as entered by the venue.
//  ContactEmail    – invited restaurant's contact email.
//  PersonalMessage – sanitized free text from the venue manager.
//  InviteCode      – 8-char uppercase alphanumeric redemption code,
//                    unique among pending invitations.
//  Status          – pending, accepted, declined, expired or cancelled.
//  RestaurantID    – bound on acceptance (nil before).
//  ExpiresAt       – creation time + InvitationTTL; enforced on read.
//  CreatedAt       – creation timestamp.
//  ResolvedAt      – timestamp of the terminal transition.
//  ResolvedBy      – user who performed the terminal transition.
type VenueInvitation struct {
	ID              uint64     // venue_invitations.id
	VenueID         uint64     // venue_invitations.venue_id
	VenueName       string     // venue_invitations.venue_name
	VenueAddress    string     // venue_invitations.venue_address
	RestaurantName  string     // venue_invitations.restaurant_name
	ContactEmail    string     // venue_invitations.contact_email
	PersonalMessage string     // venue_invitations.personal_message
	InviteCode      string     // venue_invitations.invite_code
	Status          string     // venue_invitations.status
	RestaurantID    *uint64    // venue_invitations.restaurant_id (nullable)
	ExpiresAt       time.Time  // venue_invitations.expires_at
	CreatedAt       time.Time  // venue_invitations.created_at
	ResolvedAt      *time.Time // venue_invitations.resolved_at (nullable)
	ResolvedBy      *uint64    // venue_invitations.resolved_by (nullable)
}

// IsExpired reports whether the invitation is past its expiry at the
// given instant.
func (i *VenueInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Redeemable reports whether the invitation can still be accepted.
func (i *VenueInvitation) Redeemable(now time.Time) bool {
	return i.Status == StatusPending && !i.IsExpired(now)
}
