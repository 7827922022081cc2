package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vedi-app/venue-sync/internal/model"
)

const invitationCols = `id, venue_id, venue_name, venue_address,
	restaurant_name, contact_email, personal_message, invite_code, status,
	restaurant_id, expires_at, created_at, resolved_at, resolved_by`

// VenueInvitationRepo provides data access to the venue_invitations
// table.  Invitations are keyed by invite code for out-of-band
// redemption; the code is unique among pending invitations only, so a
// redeemed or cancelled code may eventually be reissued.
type VenueInvitationRepo struct {
	db *sql.DB
}

// NewVenueInvitationRepo returns a new VenueInvitationRepo bound to the given database.
func NewVenueInvitationRepo(db *sql.DB) *VenueInvitationRepo { return &VenueInvitationRepo{db: db} }

func scanInvitation(s rowScanner) (*model.VenueInvitation, error) {
	var (
		inv          model.VenueInvitation
		restaurantID sql.NullInt64
		resolvedAt   sql.NullTime
		resolvedBy   sql.NullInt64
	)
	err := s.Scan(
		&inv.ID, &inv.VenueID, &inv.VenueName, &inv.VenueAddress,
		&inv.RestaurantName, &inv.ContactEmail, &inv.PersonalMessage, &inv.InviteCode, &inv.Status,
		&restaurantID, &inv.ExpiresAt, &inv.CreatedAt, &resolvedAt, &resolvedBy,
	)
	if err != nil {
		return nil, err
	}
	if restaurantID.Valid {
		v := uint64(restaurantID.Int64)
		inv.RestaurantID = &v
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		inv.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		v := uint64(resolvedBy.Int64)
		inv.ResolvedBy = &v
	}
	return &inv, nil
}

// Create inserts a new invitation in pending status.  The caller has
// already generated the invite code and verified its uniqueness among
// pending invitations via CodePending.  On success ID and created_at
// are populated.
func (r *VenueInvitationRepo) Create(ctx context.Context, inv *model.VenueInvitation) error {
	const qInsert = `INSERT INTO venue_invitations
	    (venue_id, venue_name, venue_address, restaurant_name, contact_email,
	     personal_message, invite_code, status, expires_at)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		inv.VenueID, inv.VenueName, inv.VenueAddress, inv.RestaurantName, inv.ContactEmail,
		inv.PersonalMessage, inv.InviteCode, model.StatusPending,
		inv.ExpiresAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	inv.Status = model.StatusPending
	const qSelect = `SELECT created_at FROM venue_invitations WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, inv.ID).Scan(&inv.CreatedAt)
}

// GetByID fetches an invitation by its ID.  Returns
// ErrInvitationNotFound when no row exists.
func (r *VenueInvitationRepo) GetByID(ctx context.Context, id uint64) (*model.VenueInvitation, error) {
	const q = `SELECT ` + invitationCols + ` FROM venue_invitations WHERE id = ?`
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return inv, nil
}

// GetPendingByCode fetches the unique pending invitation carrying the
// given code.  Expiry is not checked here; validate handlers do that
// and lazily flip the status via MarkExpired.
func (r *VenueInvitationRepo) GetPendingByCode(ctx context.Context, code string) (*model.VenueInvitation, error) {
	const q = `SELECT ` + invitationCols + ` FROM venue_invitations
	           WHERE invite_code = ? AND status = ? LIMIT 1`
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, q, code, model.StatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return inv, nil
}

// GetForUpdateTx re-reads an invitation inside a transaction with a row
// lock for the acceptance path.
func (r *VenueInvitationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.VenueInvitation, error) {
	const q = `SELECT ` + invitationCols + ` FROM venue_invitations WHERE id = ? FOR UPDATE`
	inv, err := scanInvitation(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return inv, nil
}

// CodePending reports whether the code is already held by a pending
// invitation.  Creation retries with a fresh code on collision so one
// invitee can never redeem another's invitation.
func (r *VenueInvitationRepo) CodePending(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM venue_invitations WHERE invite_code = ? AND status = ?`,
		code, model.StatusPending).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByVenue returns the venue's invitations across all statuses,
// newest first, clamped to the allowed limit range.
func (r *VenueInvitationRepo) ListByVenue(ctx context.Context, venueID uint64, limit int) ([]*model.VenueInvitation, error) {
	const q = `SELECT ` + invitationCols + ` FROM venue_invitations
	           WHERE venue_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, venueID, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.VenueInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// markTerminal performs the shared compare-and-swap transition out of
// pending.  Zero rows affected means another transition won the race.
func (r *VenueInvitationRepo) markTerminal(ctx context.Context, id uint64, status string, actorID uint64) error {
	const q = `UPDATE venue_invitations
	           SET status = ?, resolved_at = UTC_TIMESTAMP(), resolved_by = ?
	           WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, status, actorID, id, model.StatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyTerminal
	}
	return nil
}

// MarkExpired lazily flips a pending invitation past its expiry to
// expired.  This is the only path that enforces invitation expiry.
func (r *VenueInvitationRepo) MarkExpired(ctx context.Context, id uint64) error {
	return r.markTerminal(ctx, id, model.StatusExpired, 0)
}

// MarkDeclined records a restaurant-side decline.  No restaurant entity
// needs to exist for this transition.
func (r *VenueInvitationRepo) MarkDeclined(ctx context.Context, id, actorID uint64) error {
	return r.markTerminal(ctx, id, model.StatusDeclined, actorID)
}

// MarkCancelled records a venue-side withdrawal of a pending invitation.
func (r *VenueInvitationRepo) MarkCancelled(ctx context.Context, id, actorID uint64) error {
	return r.markTerminal(ctx, id, model.StatusCancelled, actorID)
}

// AcceptTx transitions a pending invitation to accepted and binds the
// accepting restaurant, within the compound sync transaction.  The
// compare-and-swap WHERE clause makes a concurrent cancel lose cleanly.
func (r *VenueInvitationRepo) AcceptTx(ctx context.Context, tx *sql.Tx, id, restaurantID, actorID uint64) error {
	const q = `UPDATE venue_invitations
	           SET status = ?, restaurant_id = ?, resolved_at = UTC_TIMESTAMP(), resolved_by = ?
	           WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.StatusAccepted, restaurantID, actorID, id, model.StatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyTerminal
	}
	return nil
}
