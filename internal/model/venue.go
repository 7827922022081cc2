package model

import (
	"strings"
	"time"
)

// Venue represents a food hall or event venue that restaurants can join.
// Each venue belongs to one managing user.  This struct corresponds to a
// row in the `venues` table.
//
// Fields:
//  ID              – primary key identifier.
//  OwnerID         – user ID of the venue manager.
//  Name            – display name.
//  Address         – street address.
//  City            – city.
//  State           – state.
//  Status          – free-form status; only "active"/"open" (or absent)
//                    are treated as joinable.
//  MaxRestaurants  – optional capacity cap (nil = unlimited).
//  RequireApproval – when true, a second pending request from the same
//                    restaurant is rejected while one is outstanding.
//  CreatedAt       – timestamp when the row was created.
//  UpdatedAt       – timestamp of last update.
type Venue struct {
	ID              uint64    // venues.id
	OwnerID         uint64    // venues.owner_id
	Name            string    // venues.name
	Address         string    // venues.address
	City            string    // venues.city
	State           string    // venues.state
	Status          *string   // venues.status (nullable, free-form)
	MaxRestaurants  *uint32   // venues.max_restaurants (nullable)
	RequireApproval bool      // venues.require_approval
	CreatedAt       time.Time // venues.created_at
	UpdatedAt       time.Time // venues.updated_at
}

// Joinable reports whether the venue's status admits new restaurants.
// An absent or empty status is joinable; only an explicit status outside
// "active"/"open" excludes the venue.
func (v *Venue) Joinable() bool {
	if v.Status == nil {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(*v.Status)) {
	case "", "active", "open":
		return true
	}
	return false
}
