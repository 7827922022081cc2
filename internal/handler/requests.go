package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vedi-app/venue-sync/internal/model"
	"github.com/vedi-app/venue-sync/internal/queue"
	"github.com/vedi-app/venue-sync/internal/repository"
	"github.com/vedi-app/venue-sync/internal/utils"
)

// maxMessageLen caps free-text fields carried on requests and
// invitations after sanitization.
const maxMessageLen = 500

// RequestHandler serves the restaurant-initiated join request workflow:
// create, cancel, list, and the venue-side approve/deny transitions.
type RequestHandler struct {
	Restaurants *repository.RestaurantRepo
	Venues      *repository.VenueRepo
	Requests    *repository.VenueRequestRepo
	Sync        *repository.SyncRepo
}

// NewRequestHandler constructs a RequestHandler and panics on nil
// dependencies.
func NewRequestHandler(restaurants *repository.RestaurantRepo, venues *repository.VenueRepo, requests *repository.VenueRequestRepo, sync *repository.SyncRepo) *RequestHandler {
	if restaurants == nil || venues == nil || requests == nil || sync == nil {
		panic("nil repository passed to NewRequestHandler")
	}
	return &RequestHandler{Restaurants: restaurants, Venues: venues, Requests: requests, Sync: sync}
}

type createRequestBody struct {
	Message string `json:"message"`
}

type denyRequestBody struct {
	Reason string `json:"reason"`
}

type requestView struct {
	ID                uint64     `json:"id"`
	RestaurantID      uint64     `json:"restaurant_id"`
	VenueID           uint64     `json:"venue_id"`
	RestaurantName    string     `json:"restaurant_name"`
	RestaurantAddress string     `json:"restaurant_address"`
	RestaurantEmail   string     `json:"restaurant_email"`
	RestaurantPhone   string     `json:"restaurant_phone"`
	RestaurantCuisine string     `json:"restaurant_cuisine"`
	VenueName         string     `json:"venue_name"`
	VenueAddress      string     `json:"venue_address"`
	Status            string     `json:"status"`
	Message           string     `json:"message,omitempty"`
	DenialReason      *string    `json:"denial_reason,omitempty"`
	RequestedAt       time.Time  `json:"requested_at"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

func toRequestView(r *model.VenueRequest) requestView {
	return requestView{
		ID:                r.ID,
		RestaurantID:      r.RestaurantID,
		VenueID:           r.VenueID,
		RestaurantName:    r.RestaurantName,
		RestaurantAddress: r.RestaurantAddress,
		RestaurantEmail:   r.RestaurantEmail,
		RestaurantPhone:   r.RestaurantPhone,
		RestaurantCuisine: r.RestaurantCuisine,
		VenueName:         r.VenueName,
		VenueAddress:      r.VenueAddress,
		Status:            r.Status,
		Message:           r.Message,
		DenialReason:      r.DenialReason,
		RequestedAt:       r.RequestedAt,
		ResolvedAt:        r.ResolvedAt,
		ExpiresAt:         r.ExpiresAt,
	}
}

func toRequestViews(reqs []*model.VenueRequest) []requestView {
	out := make([]requestView, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toRequestView(r))
	}
	return out
}

// Create handles POST /v1/venues/:id/requests.  The caller's restaurant
// asks to join the venue; both entities' display fields are snapshotted
// onto the request at creation time and never refreshed afterwards.
func (h *RequestHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	venueID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body createRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()

	rest, err := h.Restaurants.GetByOwner(ctx, uid)
	if err != nil {
		return writeRepoError(c, err)
	}
	venue, err := h.Venues.GetByID(ctx, venueID)
	if err != nil {
		return writeRepoError(c, err)
	}
	// A restaurant with any current venue is rejected, even if the
	// target is that same venue; re-requesting is not a silent success.
	if rest.Associated() {
		return writeRepoError(c, repository.ErrAlreadyAssociated)
	}
	pending, err := h.Requests.HasPending(ctx, rest.ID, venueID)
	if err != nil {
		return writeRepoError(c, err)
	}
	if pending {
		return writeRepoError(c, repository.ErrDuplicateRequest)
	}

	req := &model.VenueRequest{
		RestaurantID:      rest.ID,
		VenueID:           venue.ID,
		RestaurantName:    rest.Name,
		RestaurantAddress: rest.Address,
		RestaurantEmail:   rest.Email,
		RestaurantPhone:   rest.Phone,
		RestaurantCuisine: rest.Cuisine,
		VenueName:         venue.Name,
		VenueAddress:      venue.Address,
		RequestedBy:       uid,
		Message:           utils.SanitizeText(body.Message, maxMessageLen),
	}
	if err := h.Requests.Create(ctx, req); err != nil {
		return writeRepoError(c, err)
	}
	logActivity(queue.ScopeVenue, venue.ID, "request_created",
		fmt.Sprintf("%s requested to join %s", rest.Name, venue.Name), uid)
	return c.JSON(http.StatusCreated, toRequestView(req))
}

// Cancel handles DELETE /v1/requests/:id.  Only the user who created
// the request may cancel it, and only while it is still pending.
func (h *RequestHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()

	req, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return writeRepoError(c, err)
	}
	if req.RequestedBy != uid {
		return writeRepoError(c, repository.ErrForbidden)
	}
	if err := h.Requests.MarkCancelled(ctx, id, uid); err != nil {
		return writeRepoError(c, err)
	}
	logActivity(queue.ScopeVenue, req.VenueID, "request_cancelled",
		fmt.Sprintf("%s withdrew its join request", req.RestaurantName), uid)
	return c.JSON(http.StatusOK, echo.Map{"status": model.StatusCancelled})
}

// ListMine handles GET /v1/my-requests: the caller's restaurant's
// requests across all venues, newest first.
func (h *RequestHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	rest, err := h.Restaurants.GetByOwner(ctx, uid)
	if err != nil {
		return writeRepoError(c, err)
	}
	reqs, err := h.Requests.ListByRestaurant(ctx, rest.ID, limitParam(c))
	if err != nil {
		return writeRepoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": toRequestViews(reqs)})
}

// ListForVenue handles GET /v1/venues/:id/requests: all requests made
// to a venue the caller manages, newest first.
func (h *RequestHandler) ListForVenue(c echo.Context) error {
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
	reqs, err := h.Requests.ListByVenue(ctx, venueID, limitParam(c))
	if err != nil {
		return writeRepoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": toRequestViews(reqs)})
}

// Approve handles POST /v1/requests/:id/approve.  The request flip and
// the restaurant's association write happen inside one transaction in
// the sync repository; this handler only maps errors and logs activity.
func (h *RequestHandler) Approve(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	req, err := h.Sync.ApproveRequest(c.Request().Context(), id, uid)
	if err != nil {
		return writeRepoError(c, err)
	}
	logActivity(queue.ScopeVenue, req.VenueID, "request_approved",
		fmt.Sprintf("%s joined %s", req.RestaurantName, req.VenueName), uid)
	logActivity(queue.ScopeRestaurant, req.RestaurantID, "venue_joined",
		fmt.Sprintf("joined %s via approved request", req.VenueName), uid)
	return c.JSON(http.StatusOK, toRequestView(req))
}

// Deny handles POST /v1/requests/:id/deny.  Denial is a pure status
// transition; nothing on the restaurant changes.
func (h *RequestHandler) Deny(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body denyRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()

	req, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return writeRepoError(c, err)
	}
	venue, err := h.Venues.GetByID(ctx, req.VenueID)
	if err != nil {
		return writeRepoError(c, err)
	}
	if venue.OwnerID != uid {
		return writeRepoError(c, repository.ErrForbidden)
	}
	reason := utils.SanitizeText(body.Reason, maxMessageLen)
	if err := h.Requests.MarkDenied(ctx, id, uid, reason); err != nil {
		return writeRepoError(c, err)
	}
	logActivity(queue.ScopeVenue, req.VenueID, "request_denied",
		fmt.Sprintf("request from %s was denied", req.RestaurantName), uid)
	return c.JSON(http.StatusOK, echo.Map{"status": model.StatusDenied})
}
