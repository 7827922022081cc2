package repository

import (
	"context"
	"database/sql"

	"github.com/vedi-app/venue-sync/internal/model"
)

// ActivityRepo reads the append-only activity tables for dashboard
// endpoints.  Rows are written exclusively by the background queue
// consumer; the workflows themselves never touch these tables.
type ActivityRepo struct {
	db *sql.DB
}

// NewActivityRepo returns a new ActivityRepo bound to the given database.
func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

// ListVenueActivity returns a venue's recent activity, newest first.
func (r *ActivityRepo) ListVenueActivity(ctx context.Context, venueID uint64, limit int) ([]*model.ActivityRecord, error) {
	return r.list(ctx, "venue_activity", venueID, limit)
}

// ListRestaurantActivity returns a restaurant's recent activity, newest first.
func (r *ActivityRepo) ListRestaurantActivity(ctx context.Context, restaurantID uint64, limit int) ([]*model.ActivityRecord, error) {
	return r.list(ctx, "restaurant_activity", restaurantID, limit)
}

func (r *ActivityRepo) list(ctx context.Context, table string, entityID uint64, limit int) ([]*model.ActivityRecord, error) {
	q := `SELECT id, entity_id, type, message, actor_id, created_at
	      FROM ` + table + ` WHERE entity_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, entityID, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.ActivityRecord
	for rows.Next() {
		rec := new(model.ActivityRecord)
		if err := rows.Scan(&rec.ID, &rec.EntityID, &rec.Type, &rec.Message, &rec.ActorID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
