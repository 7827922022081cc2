package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vedi-app/venue-sync/internal/model"
)

const requestCols = `id, restaurant_id, venue_id,
	restaurant_name, restaurant_address, restaurant_email, restaurant_phone, restaurant_cuisine,
	venue_name, venue_address, status, requested_by, message, denial_reason,
	requested_at, resolved_at, resolved_by, expires_at`

// DefaultListLimit bounds request/invitation listings when the caller
// does not supply an explicit limit; MaxListLimit caps what a caller
// may ask for.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ClampLimit normalizes a caller-supplied page size into the allowed
// range, substituting the default when the value is missing or invalid.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// VenueRequestRepo provides data access to the venue_requests table.
// Status transitions out of pending are compare-and-swap updates so a
// concurrent approve and deny cannot both succeed.
type VenueRequestRepo struct {
	db *sql.DB
}

// NewVenueRequestRepo returns a new VenueRequestRepo bound to the given database.
func NewVenueRequestRepo(db *sql.DB) *VenueRequestRepo { return &VenueRequestRepo{db: db} }

func scanRequest(s rowScanner) (*model.VenueRequest, error) {
	var (
		req        model.VenueRequest
		denial     sql.NullString
		resolvedAt sql.NullTime
		resolvedBy sql.NullInt64
		expiresAt  sql.NullTime
	)
	err := s.Scan(
		&req.ID, &req.RestaurantID, &req.VenueID,
		&req.RestaurantName, &req.RestaurantAddress, &req.RestaurantEmail, &req.RestaurantPhone, &req.RestaurantCuisine,
		&req.VenueName, &req.VenueAddress, &req.Status, &req.RequestedBy, &req.Message, &denial,
		&req.RequestedAt, &resolvedAt, &resolvedBy, &expiresAt,
	)
	if err != nil {
		return nil, err
	}
	if denial.Valid {
		req.DenialReason = &denial.String
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		v := uint64(resolvedBy.Int64)
		req.ResolvedBy = &v
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		req.ExpiresAt = &t
	}
	return &req, nil
}

// Create inserts a new request in pending status with the denormalized
// entity snapshots already filled in by the caller.  On success the ID
// and requested_at fields are populated.  The snapshot fields are
// point-in-time and must never be used for current-state decisions.
func (r *VenueRequestRepo) Create(ctx context.Context, req *model.VenueRequest) error {
	const qInsert = `INSERT INTO venue_requests
	    (restaurant_id, venue_id, restaurant_name, restaurant_address, restaurant_email,
	     restaurant_phone, restaurant_cuisine, venue_name, venue_address,
	     status, requested_by, message, expires_at)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var expires interface{}
	if req.ExpiresAt != nil {
		expires = req.ExpiresAt.UTC().Format("2006-01-02 15:04:05")
	}
	res, err := r.db.ExecContext(ctx, qInsert,
		req.RestaurantID, req.VenueID, req.RestaurantName, req.RestaurantAddress, req.RestaurantEmail,
		req.RestaurantPhone, req.RestaurantCuisine, req.VenueName, req.VenueAddress,
		model.StatusPending, req.RequestedBy, req.Message, expires)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)
	req.Status = model.StatusPending
	const qSelect = `SELECT requested_at FROM venue_requests WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, req.ID).Scan(&req.RequestedAt)
}

// GetByID fetches a request by its ID.  Returns ErrRequestNotFound when
// no row exists.
func (r *VenueRequestRepo) GetByID(ctx context.Context, id uint64) (*model.VenueRequest, error) {
	const q = `SELECT ` + requestCols + ` FROM venue_requests WHERE id = ?`
	req, err := scanRequest(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// GetForUpdateTx re-reads a request inside a transaction with a row
// lock so the approval path can verify pending status under the same
// snapshot as the compound mutation.
func (r *VenueRequestRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.VenueRequest, error) {
	const q = `SELECT ` + requestCols + ` FROM venue_requests WHERE id = ? FOR UPDATE`
	req, err := scanRequest(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// HasPending reports whether a pending request exists for the
// (restaurant, venue) pair.  Used both for duplicate rejection at
// creation time and for the require_approval eligibility check.
func (r *VenueRequestRepo) HasPending(ctx context.Context, restaurantID, venueID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM venue_requests WHERE restaurant_id = ? AND venue_id = ? AND status = ?`,
		restaurantID, venueID, model.StatusPending).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByRestaurant returns the restaurant's requests across all
// statuses, newest first.  The limit is clamped to the allowed range.
func (r *VenueRequestRepo) ListByRestaurant(ctx context.Context, restaurantID uint64, limit int) ([]*model.VenueRequest, error) {
	const q = `SELECT ` + requestCols + ` FROM venue_requests
	           WHERE restaurant_id = ? ORDER BY requested_at DESC LIMIT ?`
	return r.list(ctx, q, restaurantID, ClampLimit(limit))
}

// ListByVenue returns the venue's incoming requests across all
// statuses, newest first.
func (r *VenueRequestRepo) ListByVenue(ctx context.Context, venueID uint64, limit int) ([]*model.VenueRequest, error) {
	const q = `SELECT ` + requestCols + ` FROM venue_requests
	           WHERE venue_id = ? ORDER BY requested_at DESC LIMIT ?`
	return r.list(ctx, q, venueID, ClampLimit(limit))
}

func (r *VenueRequestRepo) list(ctx context.Context, q string, id uint64, limit int) ([]*model.VenueRequest, error) {
	rows, err := r.db.QueryContext(ctx, q, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.VenueRequest, 0, limit)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkCancelled transitions a pending request to cancelled, stamping
// the resolver.  Zero rows affected means the request already left the
// pending state, reported as ErrAlreadyTerminal.
func (r *VenueRequestRepo) MarkCancelled(ctx context.Context, id, actorID uint64) error {
	const q = `UPDATE venue_requests
	           SET status = ?, resolved_at = UTC_TIMESTAMP(), resolved_by = ?
	           WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.StatusCancelled, actorID, id, model.StatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyTerminal
	}
	return nil
}

// MarkDenied transitions a pending request to denied with a sanitized
// reason.  Same compare-and-swap contract as MarkCancelled.
func (r *VenueRequestRepo) MarkDenied(ctx context.Context, id, actorID uint64, reason string) error {
	const q = `UPDATE venue_requests
	           SET status = ?, denial_reason = ?, resolved_at = UTC_TIMESTAMP(), resolved_by = ?
	           WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.StatusDenied, reason, actorID, id, model.StatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyTerminal
	}
	return nil
}

// ApproveTx transitions a pending request to approved within the
// compound sync transaction.  The compare-and-swap WHERE clause makes
// a concurrent deny or cancel lose cleanly with ErrAlreadyTerminal.
func (r *VenueRequestRepo) ApproveTx(ctx context.Context, tx *sql.Tx, id, actorID uint64) error {
	const q = `UPDATE venue_requests
	           SET status = ?, resolved_at = UTC_TIMESTAMP(), resolved_by = ?
	           WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.StatusApproved, actorID, id, model.StatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyTerminal
	}
	return nil
}
