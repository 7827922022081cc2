package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vedi-app/venue-sync/internal/model"
	"github.com/vedi-app/venue-sync/internal/repository"
)

// EligibilityHandler answers "could this restaurant join that venue?"
// for UI gating.  It is strictly a read path: its verdict is advisory
// and the sync transactions re-validate everything at write time.
type EligibilityHandler struct {
	Restaurants *repository.RestaurantRepo
	Venues      *repository.VenueRepo
	Requests    *repository.VenueRequestRepo
}

// NewEligibilityHandler constructs an EligibilityHandler and panics on
// nil dependencies.
func NewEligibilityHandler(restaurants *repository.RestaurantRepo, venues *repository.VenueRepo, requests *repository.VenueRequestRepo) *EligibilityHandler {
	if restaurants == nil || venues == nil || requests == nil {
		panic("nil repository passed to NewEligibilityHandler")
	}
	return &EligibilityHandler{Restaurants: restaurants, Venues: venues, Requests: requests}
}

type eligibilityResponse struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
}

// Reason strings returned by Check.  UI code matches on these values.
const (
	reasonRestaurantNotFound = "restaurant not found"
	reasonAlreadyAssociated  = "restaurant is already associated with a venue"
	reasonVenueNotFound      = "venue not found"
	reasonVenueFull          = "venue is at capacity"
	reasonPendingRequest     = "a pending request for this venue already exists"
	reasonCheckFailed        = "eligibility could not be determined"
)

// Check runs four independent checks and accumulates every failing
// reason instead of stopping at the first, so the UI can show the full
// picture at once.  The endpoint never errors: any lookup failure turns
// into an ineligible verdict with a generic reason.
func (h *EligibilityHandler) Check(c echo.Context) error {
	venueID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusOK, eligibilityResponse{Eligible: false, Reasons: []string{reasonVenueNotFound}})
	}
	ctx := c.Request().Context()
	reasons := []string{}

	restaurant, restErr := h.subjectRestaurant(ctx, c)

	// Check (a): restaurant exists and is independent.
	switch {
	case errors.Is(restErr, repository.ErrRestaurantNotFound):
		reasons = append(reasons, reasonRestaurantNotFound)
	case restErr != nil:
		reasons = append(reasons, reasonCheckFailed)
	case restaurant.Associated():
		reasons = append(reasons, reasonAlreadyAssociated)
	}

	// Check (b): venue exists.  Checks (c) and (d) need the venue row,
	// so they degrade to a generic failure when it cannot be loaded.
	venue, venErr := h.Venues.GetByID(ctx, venueID)
	switch {
	case errors.Is(venErr, repository.ErrVenueNotFound):
		reasons = append(reasons, reasonVenueNotFound)
	case venErr != nil:
		reasons = append(reasons, reasonCheckFailed)
	default:
		// Check (c): capacity, only when a cap is configured.
		if venue.MaxRestaurants != nil {
			count, cntErr := h.Restaurants.CountByVenue(ctx, venueID)
			if cntErr != nil {
				reasons = append(reasons, reasonCheckFailed)
			} else if count >= *venue.MaxRestaurants {
				reasons = append(reasons, reasonVenueFull)
			}
		}
		// Check (d): no pending request for this pair while the venue
		// requires approval.
		if venue.RequireApproval && restaurant != nil {
			pending, pErr := h.Requests.HasPending(ctx, restaurant.ID, venueID)
			if pErr != nil {
				reasons = append(reasons, reasonCheckFailed)
			} else if pending {
				reasons = append(reasons, reasonPendingRequest)
			}
		}
	}

	return c.JSON(http.StatusOK, eligibilityResponse{Eligible: len(reasons) == 0, Reasons: reasons})
}

// subjectRestaurant resolves the restaurant under evaluation: the
// caller's own by default, or an explicit ?restaurant_id= (used by
// venue-manager dashboards).
func (h *EligibilityHandler) subjectRestaurant(ctx context.Context, c echo.Context) (*model.Restaurant, error) {
	if s := c.QueryParam("restaurant_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			return nil, repository.ErrRestaurantNotFound
		}
		return h.Restaurants.GetByID(ctx, id)
	}
	uid, err := getUserID(c)
	if err != nil {
		return nil, repository.ErrRestaurantNotFound
	}
	return h.Restaurants.GetByOwner(ctx, uid)
}
