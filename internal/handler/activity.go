package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vedi-app/venue-sync/internal/model"
	"github.com/vedi-app/venue-sync/internal/repository"
)

// ActivityHandler serves the dashboard read endpoints over the
// append-only activity tables.  The tables are written only by the
// background queue consumer; these endpoints never feed back into the
// workflows.
type ActivityHandler struct {
	Activity    *repository.ActivityRepo
	Restaurants *repository.RestaurantRepo
	Venues      *repository.VenueRepo
}

// NewActivityHandler constructs an ActivityHandler and panics on nil
// dependencies.
func NewActivityHandler(activity *repository.ActivityRepo, restaurants *repository.RestaurantRepo, venues *repository.VenueRepo) *ActivityHandler {
	if activity == nil || restaurants == nil || venues == nil {
		panic("nil repository passed to NewActivityHandler")
	}
	return &ActivityHandler{Activity: activity, Restaurants: restaurants, Venues: venues}
}

type activityView struct {
	ID        uint64    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	ActorID   uint64    `json:"actor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toActivityViews(recs []*model.ActivityRecord) []activityView {
	out := make([]activityView, 0, len(recs))
	for _, r := range recs {
		out = append(out, activityView{
			ID:        r.ID,
			Type:      r.Type,
			Message:   r.Message,
			ActorID:   r.ActorID,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

// VenueActivity handles GET /v1/venues/:id/activity for the managing
// user, newest first.
func (h *ActivityHandler) VenueActivity(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	venueID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()

	venue, err := h.Venues.GetByID(ctx, venueID)
	if err != nil {
		return writeRepoError(c, err)
	}
	if venue.OwnerID != uid {
		return writeRepoError(c, repository.ErrForbidden)
	}
	recs, err := h.Activity.ListVenueActivity(ctx, venueID, limitParam(c))
	if err != nil {
		return writeRepoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"activity": toActivityViews(recs)})
}

// RestaurantActivity handles GET /v1/restaurants/:id/activity for the
// owning user, newest first.
func (h *ActivityHandler) RestaurantActivity(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	restaurantID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()

	rest, err := h.Restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return writeRepoError(c, err)
	}
	if rest.OwnerID != uid {
		return writeRepoError(c, repository.ErrForbidden)
	}
	recs, err := h.Activity.ListRestaurantActivity(ctx, restaurantID, limitParam(c))
	if err != nil {
		return writeRepoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"activity": toActivityViews(recs)})
}
