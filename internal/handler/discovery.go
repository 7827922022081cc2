package handler

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vedi-app/venue-sync/internal/model"
	"github.com/vedi-app/venue-sync/internal/repository"
)

// DiscoveryHandler serves GET /v1/venues/available, the browse listing
// of venues a restaurant could join.  This is a pure read path: every
// failure degrades to an empty list, because "nothing found" is a valid
// display state and the sync transactions are the real gate.
type DiscoveryHandler struct {
	Restaurants *repository.RestaurantRepo
	Venues      *repository.VenueRepo
}

// NewDiscoveryHandler constructs a DiscoveryHandler and panics on nil
// dependencies.
func NewDiscoveryHandler(restaurants *repository.RestaurantRepo, venues *repository.VenueRepo) *DiscoveryHandler {
	if restaurants == nil || venues == nil {
		panic("nil repository passed to NewDiscoveryHandler")
	}
	return &DiscoveryHandler{Restaurants: restaurants, Venues: venues}
}

// Available lists joinable venues.  Query parameters: ?name=, ?city=,
// ?state= filter; ?limit= bounds the page (default 100); ?sort=relevance
// orders same-city first, then same-state, then alphabetical, relative
// to the caller's restaurant.  The restaurant lookup is best-effort:
// without it the listing still works, just without the exclusion of the
// caller's own venue and without relevance data.
func (h *DiscoveryHandler) Available(c echo.Context) error {
	ctx := c.Request().Context()

	var rest *model.Restaurant
	if uid, err := getUserID(c); err == nil {
		rest, _ = h.Restaurants.GetByOwner(ctx, uid)
	}

	q := repository.VenueSearchQuery{
		Name:  strings.TrimSpace(c.QueryParam("name")),
		City:  strings.TrimSpace(c.QueryParam("city")),
		State: strings.TrimSpace(c.QueryParam("state")),
		Limit: limitParam(c),
	}
	if rest != nil && rest.VenueID != nil {
		q.ExcludeVenueID = *rest.VenueID
	}

	venues, err := h.Venues.SearchAvailable(ctx, q)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"venues": []venueView{}})
	}

	if rest != nil && strings.EqualFold(c.QueryParam("sort"), "relevance") {
		sortByRelevance(venues, rest.City, rest.State)
	}

	views := make([]venueView, 0, len(venues))
	for _, v := range venues {
		views = append(views, toVenueView(v))
	}
	return c.JSON(http.StatusOK, echo.Map{"venues": views})
}

// sortByRelevance orders venues by proximity to the restaurant:
// same city, then same state, then alphabetical by name.  The sort is
// stable so the repository's name ordering survives within each tier.
func sortByRelevance(venues []*model.Venue, city, state string) {
	rank := func(v *model.Venue) int {
		switch {
		case city != "" && strings.EqualFold(v.City, city):
			return 0
		case state != "" && strings.EqualFold(v.State, state):
			return 1
		}
		return 2
	}
	sort.SliceStable(venues, func(i, j int) bool {
		ri, rj := rank(venues[i]), rank(venues[j])
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(venues[i].Name) < strings.ToLower(venues[j].Name)
	})
}
