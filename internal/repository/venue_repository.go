package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vedi-app/venue-sync/internal/model"
)

const venueCols = `id, owner_id, name, address, city, state, status, max_restaurants, require_approval, created_at, updated_at`

// VenueRepo encapsulates all database queries related to venues.  It is
// read by every workflow and mutated only through venue-owner actions.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo constructs a VenueRepo with the provided DB handle.
func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

// DB exposes the underlying connection for cross-repository transactions.
func (r *VenueRepo) DB() *sql.DB { return r.db }

func scanVenue(s rowScanner) (*model.Venue, error) {
	var (
		venue  model.Venue
		status sql.NullString
		maxR   sql.NullInt64
	)
	err := s.Scan(
		&venue.ID, &venue.OwnerID, &venue.Name, &venue.Address, &venue.City, &venue.State,
		&status, &maxR, &venue.RequireApproval, &venue.CreatedAt, &venue.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if status.Valid {
		venue.Status = &status.String
	}
	if maxR.Valid {
		m := uint32(maxR.Int64)
		venue.MaxRestaurants = &m
	}
	return &venue, nil
}

// Create inserts a new venue.  On success the ID field is populated and
// a follow-up SELECT fills the timestamp defaults.
func (r *VenueRepo) Create(ctx context.Context, venue *model.Venue) error {
	const qInsert = `INSERT INTO venues (owner_id, name, address, city, state, status, max_restaurants, require_approval)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var maxR interface{}
	if venue.MaxRestaurants != nil {
		maxR = *venue.MaxRestaurants
	}
	var status interface{}
	if venue.Status != nil {
		status = *venue.Status
	}
	res, err := r.db.ExecContext(ctx, qInsert,
		venue.OwnerID, venue.Name, venue.Address, venue.City, venue.State,
		status, maxR, venue.RequireApproval)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	venue.ID = uint64(id)
	const qSelect = `SELECT created_at, updated_at FROM venues WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, venue.ID).Scan(&venue.CreatedAt, &venue.UpdatedAt)
}

// GetByID fetches a venue by its ID.  It returns ErrVenueNotFound when
// no row exists.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	const q = `SELECT ` + venueCols + ` FROM venues WHERE id = ?`
	venue, err := scanVenue(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return venue, nil
}

// GetByOwner fetches the venue managed by the given user.
func (r *VenueRepo) GetByOwner(ctx context.Context, ownerID uint64) (*model.Venue, error) {
	const q = `SELECT ` + venueCols + ` FROM venues WHERE owner_id = ? LIMIT 1`
	venue, err := scanVenue(r.db.QueryRowContext(ctx, q, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return venue, nil
}

// GetTx fetches a venue inside a transaction.  The sync workflows use
// it to re-read the target venue's capacity settings under the same
// snapshot as the compound mutation.
func (r *VenueRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Venue, error) {
	const q = `SELECT ` + venueCols + ` FROM venues WHERE id = ?`
	venue, err := scanVenue(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return venue, nil
}

// UpdateSettings updates a venue's display and join-policy fields if it
// belongs to the provided owner.  Returns ErrVenueNotFound when no row
// is affected.
func (r *VenueRepo) UpdateSettings(ctx context.Context, id, ownerID uint64, venue *model.Venue) error {
	var maxR interface{}
	if venue.MaxRestaurants != nil {
		maxR = *venue.MaxRestaurants
	}
	var status interface{}
	if venue.Status != nil {
		status = *venue.Status
	}
	const q = `UPDATE venues
	           SET name = ?, address = ?, city = ?, state = ?, status = ?,
	               max_restaurants = ?, require_approval = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND owner_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		venue.Name, venue.Address, venue.City, venue.State, status,
		maxR, venue.RequireApproval, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVenueNotFound
	}
	return nil
}
