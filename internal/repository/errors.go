// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and
// translate them into HTTP responses. Write-path errors are always
// surfaced to the caller; read/discovery paths degrade to empty or
// negative results instead.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a record they do not own, such as cancelling another
// restaurant's venue request. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// Not-found sentinels for each entity. Handlers translate these
// into HTTP 404 responses.
var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrVenueNotFound      = errors.New("venue not found")
	ErrRequestNotFound    = errors.New("venue request not found")
	ErrInvitationNotFound = errors.New("venue invitation not found")
)

// ErrAlreadyAssociated is returned when a restaurant that already
// belongs to a venue attempts to create or accept a new association.
// Requesting the restaurant's own current venue is rejected the same
// way, not treated as a silent success.
var ErrAlreadyAssociated = errors.New("restaurant already associated with a venue")

// ErrNotAssociated is returned by unsync when the restaurant has no
// current venue association to clear.
var ErrNotAssociated = errors.New("restaurant not associated with a venue")

// ErrAlreadyTerminal is returned when a status transition is attempted
// on a request or invitation that has already left the pending state.
// Concurrent terminal transitions race through compare-and-swap
// updates: exactly one wins, the rest observe this error.
var ErrAlreadyTerminal = errors.New("record is no longer pending")

// ErrDuplicateRequest is returned when a restaurant already has a
// pending request for the same venue.
var ErrDuplicateRequest = errors.New("pending request already exists for this venue")

// ErrConflictingAssociation is returned when, between request creation
// and approval, the restaurant joined a different venue. The request is
// left pending for manual resolution rather than silently denied.
var ErrConflictingAssociation = errors.New("restaurant joined a different venue")

// ErrInviteExpired is returned when an invitation is past its expiry.
var ErrInviteExpired = errors.New("invitation expired")

// ErrCapacityExceeded is returned when a venue with max_restaurants set
// is already full. The check runs inside the sync transaction, so two
// concurrent approvals cannot both slip under the cap.
var ErrCapacityExceeded = errors.New("venue at capacity")
