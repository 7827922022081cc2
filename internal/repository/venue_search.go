package repository

import (
	"context"
	"strings"

	"github.com/vedi-app/venue-sync/internal/model"
)

// VenueSearchQuery defines filters & pagination for the discovery query.
// ExcludeVenueID removes the calling restaurant's current venue from the
// results; zero means no exclusion.
type VenueSearchQuery struct {
	Name           string
	City           string
	State          string
	ExcludeVenueID uint64
	Limit          int
}

// DefaultSearchLimit bounds a discovery page when no limit is supplied.
const DefaultSearchLimit = 100

// SearchAvailable lists venues a restaurant may browse and join,
// ordered by name.  Venues with an empty name are skipped, as are
// venues whose status is present and not "active"/"open"; a venue with
// no status at all is available (status is opt-in restrictive — no
// verification flag gates visibility here, only an explicit non-active
// status does).
func (r *VenueRepo) SearchAvailable(ctx context.Context, q VenueSearchQuery) ([]*model.Venue, error) {
	where := []string{
		"name <> ''",
		"(status IS NULL OR status = '' OR LOWER(status) IN ('active', 'open'))",
	}
	args := []any{}

	if q.ExcludeVenueID != 0 {
		where = append(where, "id <> ?")
		args = append(args, q.ExcludeVenueID)
	}
	if q.Name != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Name)+"%")
	}
	if q.City != "" {
		where = append(where, "LOWER(city) = ?")
		args = append(args, strings.ToLower(q.City))
	}
	if q.State != "" {
		where = append(where, "LOWER(state) = ?")
		args = append(args, strings.ToLower(q.State))
	}

	limit := q.Limit
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}

	query := `SELECT ` + venueCols + ` FROM venues
	          WHERE ` + strings.Join(where, " AND ") + `
	          ORDER BY name
	          LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Venue, 0, limit)
	for rows.Next() {
		venue, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, venue)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
