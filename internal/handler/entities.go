package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vedi-app/venue-sync/internal/model"
	"github.com/vedi-app/venue-sync/internal/repository"
	"github.com/vedi-app/venue-sync/internal/utils"
)

// EntityHandler serves the restaurant and venue entity endpoints: the
// create/get/update surface the workflows depend on, plus the
// venue-side roster of current associations.
type EntityHandler struct {
	Restaurants *repository.RestaurantRepo
	Venues      *repository.VenueRepo
}

// NewEntityHandler constructs an EntityHandler and panics on nil
// dependencies.
func NewEntityHandler(restaurants *repository.RestaurantRepo, venues *repository.VenueRepo) *EntityHandler {
	if restaurants == nil || venues == nil {
		panic("nil repository passed to NewEntityHandler")
	}
	return &EntityHandler{Restaurants: restaurants, Venues: venues}
}

type restaurantBody struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Cuisine string `json:"cuisine"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

type venueBody struct {
	Name            string  `json:"name"`
	Address         string  `json:"address"`
	City            string  `json:"city"`
	State           string  `json:"state"`
	Status          *string `json:"status"`
	MaxRestaurants  *uint32 `json:"max_restaurants"`
	RequireApproval bool    `json:"require_approval"`
}

type restaurantView struct {
	ID            uint64     `json:"id"`
	Name          string     `json:"name"`
	Address       string     `json:"address"`
	City          string     `json:"city"`
	State         string     `json:"state"`
	Cuisine       string     `json:"cuisine"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	VenueID       *uint64    `json:"venue_id,omitempty"`
	VenueName     *string    `json:"venue_name,omitempty"`
	VenueAddress  *string    `json:"venue_address,omitempty"`
	VenueStatus   *string    `json:"venue_status,omitempty"`
	SyncMethod    *string    `json:"sync_method,omitempty"`
	JoinedVenueAt *time.Time `json:"joined_venue_at,omitempty"`
	LeftVenueAt   *time.Time `json:"left_venue_at,omitempty"`
	UnsyncReason  *string    `json:"unsync_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type venueView struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	City            string    `json:"city"`
	State           string    `json:"state"`
	Status          *string   `json:"status,omitempty"`
	MaxRestaurants  *uint32   `json:"max_restaurants,omitempty"`
	RequireApproval bool      `json:"require_approval"`
	CreatedAt       time.Time `json:"created_at"`
}

func toRestaurantView(r *model.Restaurant) restaurantView {
	return restaurantView{
		ID:            r.ID,
		Name:          r.Name,
		Address:       r.Address,
		City:          r.City,
		State:         r.State,
		Cuisine:       r.Cuisine,
		Email:         r.Email,
		Phone:         r.Phone,
		VenueID:       r.VenueID,
		VenueName:     r.VenueName,
		VenueAddress:  r.VenueAddress,
		VenueStatus:   r.VenueStatus,
		SyncMethod:    r.SyncMethod,
		JoinedVenueAt: r.JoinedVenueAt,
		LeftVenueAt:   r.LeftVenueAt,
		UnsyncReason:  r.UnsyncReason,
		CreatedAt:     r.CreatedAt,
	}
}

func toVenueView(v *model.Venue) venueView {
	return venueView{
		ID:              v.ID,
		Name:            v.Name,
		Address:         v.Address,
		City:            v.City,
		State:           v.State,
		Status:          v.Status,
		MaxRestaurants:  v.MaxRestaurants,
		RequireApproval: v.RequireApproval,
		CreatedAt:       v.CreatedAt,
	}
}

// CreateRestaurant handles POST /v1/restaurants.  A user owns at most
// one restaurant; a second create is rejected.
func (h *EntityHandler) CreateRestaurant(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body restaurantBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx := c.Request().Context()

	if _, err := h.Restaurants.GetByOwner(ctx, uid); err == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "user already owns a restaurant"})
	}
	rest := &model.Restaurant{
		OwnerID: uid,
		Name:    body.Name,
		Address: strings.TrimSpace(body.Address),
		City:    strings.TrimSpace(body.City),
		State:   strings.TrimSpace(body.State),
		Cuisine: utils.SanitizeText(body.Cuisine, 100),
		Email:   strings.ToLower(strings.TrimSpace(body.Email)),
		Phone:   strings.TrimSpace(body.Phone),
	}
	if err := h.Restaurants.Create(ctx, rest); err != nil {
		return writeRepoError(c, err)
	}
	return c.JSON(http.StatusCreated, toRestaurantView(rest))
}

// GetRestaurant handles GET /v1/restaurants/:id.
func (h *EntityHandler) GetRestaurant(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	rest, err := h.Restaurants.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeRepoError(c, err)
	}
	return c.JSON(http.StatusOK, toRestaurantView(rest))
}

// UpdateRestaurant handles PUT /v1/restaurants/:id for the owning user.
// Association fields are not touchable here; only the sync workflows
// write those.
func (h *EntityHandler) UpdateRestaurant(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body restaurantBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx := c.Request().Context()

	rest := &model.Restaurant{
		Name:    body.Name,
		Address: strings.TrimSpace(body.Address),
		City:    strings.TrimSpace(body.City),
		State:   strings.TrimSpace(body.State),
		Cuisine: utils.SanitizeText(body.Cuisine, 100),
		Email:   strings.ToLower(strings.TrimSpace(body.Email)),
		Phone:   strings.TrimSpace(body.Phone),
	}
	if err := h.Restaurants.UpdateProfile(ctx, id, uid, rest); err != nil {
		return writeRepoError(c, err)
	}
	updated, err := h.Restaurants.GetByID(ctx, id)
	if err != nil {
		return writeRepoError(c, err)
	}
	return c.JSON(http.StatusOK, toRestaurantView(updated))
}

// CreateVenue handles POST /v1/venues.  A user manages at most one
// venue; a second create is rejected.
func (h *EntityHandler) CreateVenue(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body venueBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx := c.Request().Context()

	if _, err := h.Venues.GetByOwner(ctx, uid); err == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "user already manages a venue"})
	}
	venue := &model.Venue{
		OwnerID:         uid,
		Name:            body.Name,
		Address:         strings.TrimSpace(body.Address),
		City:            strings.TrimSpace(body.City),
		State:           strings.TrimSpace(body.State),
		Status:          body.Status,
		MaxRestaurants:  body.MaxRestaurants,
		RequireApproval: body.RequireApproval,
	}
	if err := h.Venues.Create(ctx, venue); err != nil {
		return writeRepoError(c, err)
	}
	return c.JSON(http.StatusCreated, toVenueView(venue))
}

// GetVenue handles GET /v1/venues/:id.
func (h *EntityHandler) GetVenue(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	venue, err := h.Venues.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeRepoError(c, err)
	}
	return c.JSON(http.StatusOK, toVenueView(venue))
}

// UpdateVenue handles PUT /v1/venues/:id for the managing user.
func (h *EntityHandler) UpdateVenue(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body venueBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx := c.Request().Context()

	venue := &model.Venue{
		Name:            body.Name,
		Address:         strings.TrimSpace(body.Address),
		City:            strings.TrimSpace(body.City),
		State:           strings.TrimSpace(body.State),
		Status:          body.Status,
		MaxRestaurants:  body.MaxRestaurants,
		RequireApproval: body.RequireApproval,
	}
	if err := h.Venues.UpdateSettings(ctx, id, uid, venue); err != nil {
		return writeRepoError(c, err)
	}
	updated, err := h.Venues.GetByID(ctx, id)
	if err != nil {
		return writeRepoError(c, err)
	}
	return c.JSON(http.StatusOK, toVenueView(updated))
}

// ListVenueRestaurants handles GET /v1/venues/:id/restaurants: the
// venue's current roster, queried by venue_id equality.
func (h *EntityHandler) ListVenueRestaurants(c echo.Context) error {
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
	rests, err := h.Restaurants.ListByVenue(ctx, venueID)
	if err != nil {
		return writeRepoError(c, err)
	}
	views := make([]restaurantView, 0, len(rests))
	for _, r := range rests {
		views = append(views, toRestaurantView(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"restaurants": views})
}
