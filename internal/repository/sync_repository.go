package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vedi-app/venue-sync/internal/model"
)

// SyncRepo owns the compound mutations that change a restaurant's venue
// association.  Three entry points converge here: approval of a venue
// request, acceptance of an invitation, and direct manual sync.  All
// three perform the same all-or-nothing unit inside one transaction:
// flip the source record out of pending AND write the restaurant's
// association fields.  If only the first write landed, the request
// would show approved while the restaurant never joined; if only the
// second landed, the restaurant would join while the request stayed
// pending forever, blocking future requests under require_approval.
//
// Validation happens inside the transaction on FOR UPDATE re-reads, so
// a restaurant that joined a different venue between request creation
// and approval is caught (ErrConflictingAssociation, request left
// pending for manual resolution) and venue capacity cannot be
// oversubscribed by concurrent approvals.
type SyncRepo struct {
	db          *sql.DB
	restaurants *RestaurantRepo
	venues      *VenueRepo
	requests    *VenueRequestRepo
	invitations *VenueInvitationRepo
}

// NewSyncRepo constructs a SyncRepo over the same database handle as
// the entity repositories it coordinates.
func NewSyncRepo(db *sql.DB, restaurants *RestaurantRepo, venues *VenueRepo, requests *VenueRequestRepo, invitations *VenueInvitationRepo) *SyncRepo {
	return &SyncRepo{
		db:          db,
		restaurants: restaurants,
		venues:      venues,
		requests:    requests,
		invitations: invitations,
	}
}

// checkCapacityTx verifies, under the transaction's row locks, that the
// venue has room for one more restaurant.  A restaurant already counted
// toward the venue (re-approving its own association) does not consume
// an extra slot.
func (r *SyncRepo) checkCapacityTx(ctx context.Context, tx *sql.Tx, venue *model.Venue, alreadyMember bool) error {
	if venue.MaxRestaurants == nil || alreadyMember {
		return nil
	}
	count, err := r.restaurants.CountByVenueTx(ctx, tx, venue.ID)
	if err != nil {
		return err
	}
	if count >= *venue.MaxRestaurants {
		return ErrCapacityExceeded
	}
	return nil
}

// ApproveRequest approves a pending venue request and associates the
// restaurant with the venue as one atomic unit.  The acting user must
// manage the target venue.  On ErrConflictingAssociation the request is
// deliberately left pending.
func (r *SyncRepo) ApproveRequest(ctx context.Context, requestID, actorID uint64) (req *model.VenueRequest, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	req, err = r.requests.GetForUpdateTx(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.StatusPending {
		return nil, ErrAlreadyTerminal
	}
	venue, err := r.venues.GetTx(ctx, tx, req.VenueID)
	if err != nil {
		return nil, err
	}
	if venue.OwnerID != actorID {
		return nil, ErrForbidden
	}
	rest, err := r.restaurants.GetForUpdateTx(ctx, tx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	// The restaurant may have joined elsewhere since the request was
	// created; only a null association or the target venue itself is
	// acceptable here.
	alreadyMember := false
	if rest.VenueID != nil {
		if *rest.VenueID != req.VenueID {
			return nil, ErrConflictingAssociation
		}
		alreadyMember = true
	}
	if err = r.checkCapacityTx(ctx, tx, venue, alreadyMember); err != nil {
		return nil, err
	}
	if err = r.requests.ApproveTx(ctx, tx, req.ID, actorID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err = r.restaurants.AssignVenueTx(ctx, tx, rest.ID, venue, model.SyncMethodRequest, now); err != nil {
		return nil, err
	}
	req.Status = model.StatusApproved
	req.ResolvedAt = &now
	req.ResolvedBy = &actorID
	return req, nil
}

// AcceptInvitation accepts a pending invitation on behalf of a
// restaurant, binding the restaurant id onto the invitation and
// associating the restaurant with the inviting venue atomically.  The
// acting user must own the restaurant.  Expiry is re-checked here
// rather than trusting an earlier validate call; a past-expiry
// invitation is flipped to expired and the call fails with
// ErrInviteExpired.
func (r *SyncRepo) AcceptInvitation(ctx context.Context, invitationID, restaurantID, actorID uint64) (inv *model.VenueInvitation, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil && err != ErrInviteExpired {
			_ = tx.Rollback()
		} else if cerr := tx.Commit(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	inv, err = r.invitations.GetForUpdateTx(ctx, tx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.Status != model.StatusPending {
		return nil, ErrAlreadyTerminal
	}
	now := time.Now().UTC()
	if inv.IsExpired(now) {
		// Lazy expiry: persist the expired status, then report failure.
		const q = `UPDATE venue_invitations SET status = ?, resolved_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`
		if _, execErr := tx.ExecContext(ctx, q, model.StatusExpired, inv.ID, model.StatusPending); execErr != nil {
			return nil, execErr
		}
		return nil, ErrInviteExpired
	}
	rest, err := r.restaurants.GetForUpdateTx(ctx, tx, restaurantID)
	if err != nil {
		return nil, err
	}
	if rest.OwnerID != actorID {
		return nil, ErrForbidden
	}
	if rest.VenueID != nil {
		return nil, ErrAlreadyAssociated
	}
	venue, err := r.venues.GetTx(ctx, tx, inv.VenueID)
	if err != nil {
		return nil, err
	}
	if err = r.checkCapacityTx(ctx, tx, venue, false); err != nil {
		return nil, err
	}
	if err = r.invitations.AcceptTx(ctx, tx, inv.ID, rest.ID, actorID); err != nil {
		return nil, err
	}
	if err = r.restaurants.AssignVenueTx(ctx, tx, rest.ID, venue, model.SyncMethodInvitation, now); err != nil {
		return nil, err
	}
	inv.Status = model.StatusAccepted
	inv.RestaurantID = &rest.ID
	inv.ResolvedAt = &now
	inv.ResolvedBy = &actorID
	return inv, nil
}

// SyncManual directly associates a restaurant with a venue without a
// request or invitation record.  The acting user must own either side.
// There is no source record to flip, but the association write still
// runs under the same locked validation as the other entry points.
func (r *SyncRepo) SyncManual(ctx context.Context, restaurantID, venueID, actorID uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	rest, err := r.restaurants.GetForUpdateTx(ctx, tx, restaurantID)
	if err != nil {
		return err
	}
	venue, err := r.venues.GetTx(ctx, tx, venueID)
	if err != nil {
		return err
	}
	if rest.OwnerID != actorID && venue.OwnerID != actorID {
		return ErrForbidden
	}
	if rest.VenueID != nil {
		return ErrAlreadyAssociated
	}
	if err = r.checkCapacityTx(ctx, tx, venue, false); err != nil {
		return err
	}
	return r.restaurants.AssignVenueTx(ctx, tx, rest.ID, venue, model.SyncMethodManual, time.Now().UTC())
}

// Unsync clears a restaurant's association, stamping left_venue_at and
// the unsync reason.  This is a single-entity write (no paired source
// record), but it is the inverse of the association invariant and so
// lives here.  Returns ErrNotAssociated when the restaurant has no
// venue to leave.
func (r *SyncRepo) Unsync(ctx context.Context, restaurantID, actorID uint64, reason string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	rest, err := r.restaurants.GetForUpdateTx(ctx, tx, restaurantID)
	if err != nil {
		return err
	}
	if rest.OwnerID != actorID {
		return ErrForbidden
	}
	cleared, err := r.restaurants.ClearVenueTx(ctx, tx, restaurantID, reason, time.Now().UTC())
	if err != nil {
		return err
	}
	if !cleared {
		return ErrNotAssociated
	}
	return nil
}
