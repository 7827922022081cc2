package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vedi-app/venue-sync/internal/model"
)

// restaurantCols is the column list shared by every restaurant SELECT so
// that scanRestaurant can be reused across queries.
const restaurantCols = `id, owner_id, name, address, city, state, cuisine, email, phone,
	venue_id, venue_name, venue_address, venue_status, sync_method,
	joined_venue_at, left_venue_at, unsync_reason, created_at, updated_at`

// RestaurantRepo encapsulates all database queries related to
// restaurants, including the association columns mutated by the sync
// workflows.  It depends on a sql.DB connection configured elsewhere.
type RestaurantRepo struct {
	db *sql.DB
}

// NewRestaurantRepo constructs a RestaurantRepo with the provided DB
// handle.  This allows dependency injection of the database in tests
// and at startup.
func NewRestaurantRepo(db *sql.DB) *RestaurantRepo { return &RestaurantRepo{db: db} }

// DB exposes the underlying connection so handlers can open
// transactions spanning multiple repositories.
func (r *RestaurantRepo) DB() *sql.DB { return r.db }

// rowScanner abstracts sql.Row and sql.Rows for the shared scan helper.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRestaurant scans a row selected with restaurantCols into a model
// struct, converting nullable columns to pointers.
func scanRestaurant(s rowScanner) (*model.Restaurant, error) {
	var (
		rest       model.Restaurant
		venueID    sql.NullInt64
		venueName  sql.NullString
		venueAddr  sql.NullString
		venueStat  sql.NullString
		syncMethod sql.NullString
		joinedAt   sql.NullTime
		leftAt     sql.NullTime
		unsyncWhy  sql.NullString
	)
	err := s.Scan(
		&rest.ID, &rest.OwnerID, &rest.Name, &rest.Address, &rest.City, &rest.State,
		&rest.Cuisine, &rest.Email, &rest.Phone,
		&venueID, &venueName, &venueAddr, &venueStat, &syncMethod,
		&joinedAt, &leftAt, &unsyncWhy, &rest.CreatedAt, &rest.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if venueID.Valid {
		v := uint64(venueID.Int64)
		rest.VenueID = &v
	}
	if venueName.Valid {
		rest.VenueName = &venueName.String
	}
	if venueAddr.Valid {
		rest.VenueAddress = &venueAddr.String
	}
	if venueStat.Valid {
		rest.VenueStatus = &venueStat.String
	}
	if syncMethod.Valid {
		rest.SyncMethod = &syncMethod.String
	}
	if joinedAt.Valid {
		t := joinedAt.Time
		rest.JoinedVenueAt = &t
	}
	if leftAt.Valid {
		t := leftAt.Time
		rest.LeftVenueAt = &t
	}
	if unsyncWhy.Valid {
		rest.UnsyncReason = &unsyncWhy.String
	}
	return &rest, nil
}

// Create inserts a new restaurant.  On success the ID field is
// populated with the auto-generated value and a follow-up SELECT
// populates the timestamp defaults so callers receive a fully
// populated record.
func (r *RestaurantRepo) Create(ctx context.Context, rest *model.Restaurant) error {
	const qInsert = `INSERT INTO restaurants (owner_id, name, address, city, state, cuisine, email, phone)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		rest.OwnerID, rest.Name, rest.Address, rest.City, rest.State, rest.Cuisine, rest.Email, rest.Phone)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rest.ID = uint64(id)
	const qSelect = `SELECT created_at, updated_at FROM restaurants WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, rest.ID).Scan(&rest.CreatedAt, &rest.UpdatedAt)
}

// GetByID fetches a restaurant by its ID.  It returns
// ErrRestaurantNotFound when no row exists.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uint64) (*model.Restaurant, error) {
	const q = `SELECT ` + restaurantCols + ` FROM restaurants WHERE id = ?`
	rest, err := scanRestaurant(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}
	return rest, nil
}

// GetByOwner fetches the restaurant belonging to the given user.  A
// user owns at most one restaurant in this system.
func (r *RestaurantRepo) GetByOwner(ctx context.Context, ownerID uint64) (*model.Restaurant, error) {
	const q = `SELECT ` + restaurantCols + ` FROM restaurants WHERE owner_id = ? LIMIT 1`
	rest, err := scanRestaurant(r.db.QueryRowContext(ctx, q, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}
	return rest, nil
}

// GetForUpdateTx re-reads a restaurant inside a transaction with a row
// lock.  The sync workflows use this to re-validate the current
// association immediately before committing a compound mutation.
func (r *RestaurantRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Restaurant, error) {
	const q = `SELECT ` + restaurantCols + ` FROM restaurants WHERE id = ? FOR UPDATE`
	rest, err := scanRestaurant(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}
	return rest, nil
}

// UpdateProfile updates the restaurant's display fields if it belongs
// to the provided owner.  It returns ErrRestaurantNotFound when no row
// is affected (not found or not owned).
func (r *RestaurantRepo) UpdateProfile(ctx context.Context, id, ownerID uint64, rest *model.Restaurant) error {
	const q = `UPDATE restaurants
	           SET name = ?, address = ?, city = ?, state = ?, cuisine = ?, email = ?, phone = ?,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND owner_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		rest.Name, rest.Address, rest.City, rest.State, rest.Cuisine, rest.Email, rest.Phone, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRestaurantNotFound
	}
	return nil
}

// ListByVenue returns all restaurants currently associated with the
// given venue, ordered by name.  This is the venue roster; association
// is determined solely by venue_id equality.
func (r *RestaurantRepo) ListByVenue(ctx context.Context, venueID uint64) ([]*model.Restaurant, error) {
	const q = `SELECT ` + restaurantCols + ` FROM restaurants WHERE venue_id = ? ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Restaurant
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rest)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByVenue returns the number of restaurants currently associated
// with the venue.  Used by the eligibility read path; this count is
// advisory under concurrency.
func (r *RestaurantRepo) CountByVenue(ctx context.Context, venueID uint64) (uint32, error) {
	var n uint32
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM restaurants WHERE venue_id = ?`, venueID).Scan(&n)
	return n, err
}

// CountByVenueTx is the transactional variant of CountByVenue.  The
// sync workflows call it inside the compound transaction so capacity
// enforcement is strict, not check-then-act.
func (r *RestaurantRepo) CountByVenueTx(ctx context.Context, tx *sql.Tx, venueID uint64) (uint32, error) {
	var n uint32
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM restaurants WHERE venue_id = ?`, venueID).Scan(&n)
	return n, err
}

// AssignVenueTx writes the restaurant's association fields as part of a
// compound transaction: venue id, the venue display snapshot, the
// active status, the sync method and the join timestamp.  The caller
// must commit or roll back the transaction.
func (r *RestaurantRepo) AssignVenueTx(ctx context.Context, tx *sql.Tx, restaurantID uint64, venue *model.Venue, method string, joinedAt time.Time) error {
	const q = `UPDATE restaurants
	           SET venue_id = ?, venue_name = ?, venue_address = ?, venue_status = ?,
	               sync_method = ?, joined_venue_at = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		venue.ID, venue.Name, venue.Address, model.VenueStatusActive,
		method, joinedAt.UTC().Format("2006-01-02 15:04:05"), restaurantID)
	return err
}

// ClearVenueTx clears the four association fields, stamps left_venue_at
// and records the unsync reason.  The WHERE guard on venue_id keeps the
// write idempotent: zero rows affected means the restaurant was not
// associated, which the caller maps to ErrNotAssociated.
func (r *RestaurantRepo) ClearVenueTx(ctx context.Context, tx *sql.Tx, restaurantID uint64, reason string, leftAt time.Time) (bool, error) {
	const q = `UPDATE restaurants
	           SET venue_id = NULL, venue_name = NULL, venue_address = NULL, venue_status = NULL,
	               sync_method = NULL, left_venue_at = ?, unsync_reason = ?,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND venue_id IS NOT NULL`
	res, err := tx.ExecContext(ctx, q, leftAt.UTC().Format("2006-01-02 15:04:05"), reason, restaurantID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
