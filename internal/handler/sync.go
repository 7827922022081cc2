package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vedi-app/venue-sync/internal/queue"
	"github.com/vedi-app/venue-sync/internal/repository"
	"github.com/vedi-app/venue-sync/internal/utils"
)

// SyncHandler exposes the direct association entry points: manual sync
// (no request or invitation record involved) and unsync.
type SyncHandler struct {
	Restaurants *repository.RestaurantRepo
	Venues      *repository.VenueRepo
	SyncRepo    *repository.SyncRepo
}

// NewSyncHandler constructs a SyncHandler and panics on nil dependencies.
func NewSyncHandler(restaurants *repository.RestaurantRepo, venues *repository.VenueRepo, sync *repository.SyncRepo) *SyncHandler {
	if restaurants == nil || venues == nil || sync == nil {
		panic("nil repository passed to NewSyncHandler")
	}
	return &SyncHandler{Restaurants: restaurants, Venues: venues, SyncRepo: sync}
}

type syncBody struct {
	VenueID uint64 `json:"venue_id"`
}

type unsyncBody struct {
	Reason string `json:"reason"`
}

// Sync handles POST /v1/restaurants/:id/sync, associating a restaurant
// with a venue directly.  Either side's owner may perform it; the
// validation and capacity checks run inside the sync transaction.
func (h *SyncHandler) Sync(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	restaurantID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body syncBody
	if err := c.Bind(&body); err != nil || body.VenueID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venue_id is required"})
	}
	ctx := c.Request().Context()

	if err := h.SyncRepo.SyncManual(ctx, restaurantID, body.VenueID, uid); err != nil {
		return writeRepoError(c, err)
	}
	rest, err := h.Restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return writeRepoError(c, err)
	}
	venueName := ""
	if rest.VenueName != nil {
		venueName = *rest.VenueName
	}
	logActivity(queue.ScopeVenue, body.VenueID, "restaurant_synced",
		fmt.Sprintf("%s was synced to %s", rest.Name, venueName), uid)
	logActivity(queue.ScopeRestaurant, rest.ID, "venue_joined",
		fmt.Sprintf("joined %s via manual sync", venueName), uid)
	return c.JSON(http.StatusOK, toRestaurantView(rest))
}

// Unsync handles POST /v1/restaurants/:id/unsync, clearing the
// restaurant's association and recording the reason.
func (h *SyncHandler) Unsync(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	restaurantID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body unsyncBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()

	// Capture the association before it is cleared so both sides can be
	// notified afterwards.
	before, err := h.Restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return writeRepoError(c, err)
	}
	reason := utils.SanitizeText(body.Reason, maxMessageLen)
	if err := h.SyncRepo.Unsync(ctx, restaurantID, uid, reason); err != nil {
		return writeRepoError(c, err)
	}
	if before.VenueID != nil {
		venueName := ""
		if before.VenueName != nil {
			venueName = *before.VenueName
		}
		logActivity(queue.ScopeVenue, *before.VenueID, "restaurant_unsynced",
			fmt.Sprintf("%s left %s", before.Name, venueName), uid)
		logActivity(queue.ScopeRestaurant, before.ID, "venue_left",
			fmt.Sprintf("left %s", venueName), uid)
	}
	rest, err := h.Restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return writeRepoError(c, err)
	}
	return c.JSON(http.StatusOK, toRestaurantView(rest))
}
