package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vedi-app/venue-sync/internal/model"
	"github.com/vedi-app/venue-sync/internal/queue"
	"github.com/vedi-app/venue-sync/internal/repository"
	"github.com/vedi-app/venue-sync/internal/utils"
)

// codeAttempts bounds the regeneration loop when a freshly generated
// invite code collides with another pending invitation.
const codeAttempts = 5

// InvitationHandler serves the venue-initiated invitation workflow:
// create with an expiring code, list, cancel, public validate-by-code,
// and restaurant-side accept/decline.
type InvitationHandler struct {
	Restaurants   *repository.RestaurantRepo
	Venues        *repository.VenueRepo
	Invitations   *repository.VenueInvitationRepo
	Sync          *repository.SyncRepo
	InviteBaseURL string
}

// NewInvitationHandler constructs an InvitationHandler and panics on
// nil dependencies.
func NewInvitationHandler(restaurants *repository.RestaurantRepo, venues *repository.VenueRepo, invitations *repository.VenueInvitationRepo, sync *repository.SyncRepo, inviteBaseURL string) *InvitationHandler {
	if restaurants == nil || venues == nil || invitations == nil || sync == nil {
		panic("nil repository passed to NewInvitationHandler")
	}
	return &InvitationHandler{
		Restaurants:   restaurants,
		Venues:        venues,
		Invitations:   invitations,
		Sync:          sync,
		InviteBaseURL: inviteBaseURL,
	}
}

type createInvitationBody struct {
	RestaurantName  string `json:"restaurant_name"`
	ContactEmail    string `json:"contact_email"`
	PersonalMessage string `json:"personal_message"`
}

type invitationView struct {
	ID              uint64     `json:"id"`
	VenueID         uint64     `json:"venue_id"`
	VenueName       string     `json:"venue_name"`
	VenueAddress    string     `json:"venue_address"`
	RestaurantName  string     `json:"restaurant_name"`
	ContactEmail    string     `json:"contact_email"`
	PersonalMessage string     `json:"personal_message,omitempty"`
	InviteCode      string     `json:"invite_code"`
	Status          string     `json:"status"`
	RestaurantID    *uint64    `json:"restaurant_id,omitempty"`
	ExpiresAt       time.Time  `json:"expires_at"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	DeepLink        string     `json:"deep_link,omitempty"`
}

func toInvitationView(i *model.VenueInvitation, deepLink string) invitationView {
	return invitationView{
		ID:              i.ID,
		VenueID:         i.VenueID,
		VenueName:       i.VenueName,
		VenueAddress:    i.VenueAddress,
		RestaurantName:  i.RestaurantName,
		ContactEmail:    i.ContactEmail,
		PersonalMessage: i.PersonalMessage,
		InviteCode:      i.InviteCode,
		Status:          i.Status,
		RestaurantID:    i.RestaurantID,
		ExpiresAt:       i.ExpiresAt,
		CreatedAt:       i.CreatedAt,
		ResolvedAt:      i.ResolvedAt,
		DeepLink:        deepLink,
	}
}

// deepLink builds the out-of-band redemption URL sent to the invitee.
func (h *InvitationHandler) deepLink(code string) string {
	return h.InviteBaseURL + "?code=" + code
}

// newUniqueCode generates an invite code that no pending invitation is
// currently using.  36^8 makes collisions unlikely, but an unchecked
// collision would let one invitee redeem another's invitation, so
// uniqueness is verified before insert.
func (h *InvitationHandler) newUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := utils.NewInviteCode(model.InviteCodeLength)
		if err != nil {
			return "", err
		}
		taken, err := h.Invitations.CodePending(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique invite code")
}

// Create handles POST /v1/venues/:id/invitations.  The invited
// restaurant may not exist as an entity yet, so the invitation carries
// only a name and contact email, keyed by the generated code.
func (h *InvitationHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	venueID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body createInvitationBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	body.RestaurantName = strings.TrimSpace(body.RestaurantName)
	body.ContactEmail = strings.ToLower(strings.TrimSpace(body.ContactEmail))
	if body.RestaurantName == "" || body.ContactEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "restaurant_name and contact_email are required"})
	}
	ctx := c.Request().Context()

	venue, err := h.Venues.GetByID(ctx, venueID)
	if err != nil {
		return writeRepoError(c, err)
	}
	if venue.OwnerID != uid {
		return writeRepoError(c, repository.ErrForbidden)
	}
	code, err := h.newUniqueCode(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	inv := &model.VenueInvitation{
		VenueID:         venue.ID,
		VenueName:       venue.Name,
		VenueAddress:    venue.Address,
		RestaurantName:  body.RestaurantName,
		ContactEmail:    body.ContactEmail,
		PersonalMessage: utils.SanitizeText(body.PersonalMessage, maxMessageLen),
		InviteCode:      code,
		ExpiresAt:       time.Now().UTC().Add(model.InvitationTTL),
	}
	if err := h.Invitations.Create(ctx, inv); err != nil {
		return writeRepoError(c, err)
	}
	logActivity(queue.ScopeVenue, venue.ID, "invitation_created",
		fmt.Sprintf("%s was invited to join %s", inv.RestaurantName, venue.Name), uid)
	return c.JSON(http.StatusCreated, toInvitationView(inv, h.deepLink(code)))
}

// ListForVenue handles GET /v1/venues/:id/invitations for the managing
// user, newest first.
func (h *InvitationHandler) ListForVenue(c echo.Context) error {
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
	invs, err := h.Invitations.ListByVenue(ctx, venueID, limitParam(c))
	if err != nil {
		return writeRepoError(c, err)
	}
	views := make([]invitationView, 0, len(invs))
	for _, inv := range invs {
		views = append(views, toInvitationView(inv, ""))
	}
	return c.JSON(http.StatusOK, echo.Map{"invitations": views})
}

// Cancel handles DELETE /v1/invitations/:id: venue-side withdrawal of a
// still-pending invitation.
func (h *InvitationHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()

	inv, err := h.Invitations.GetByID(ctx, id)
	if err != nil {
		return writeRepoError(c, err)
	}
	venue, err := h.Venues.GetByID(ctx, inv.VenueID)
	if err != nil {
		return writeRepoError(c, err)
	}
	if venue.OwnerID != uid {
		return writeRepoError(c, repository.ErrForbidden)
	}
	if err := h.Invitations.MarkCancelled(ctx, id, uid); err != nil {
		return writeRepoError(c, err)
	}
	logActivity(queue.ScopeVenue, inv.VenueID, "invitation_cancelled",
		fmt.Sprintf("invitation to %s was withdrawn", inv.RestaurantName), uid)
	return c.JSON(http.StatusOK, echo.Map{"status": model.StatusCancelled})
}

// ValidateCode handles GET /v1/invitations/code/:code, the public
// redemption lookup.  This is the only path that actively enforces
// invitation expiry: a pending invitation found past its expiry is
// flipped to expired and reported as not found.
func (h *InvitationHandler) ValidateCode(c echo.Context) error {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invitation not found"})
	}
	ctx := c.Request().Context()

	inv, err := h.Invitations.GetPendingByCode(ctx, code)
	if err != nil {
		return writeRepoError(c, err)
	}
	if inv.IsExpired(time.Now().UTC()) {
		if err := h.Invitations.MarkExpired(ctx, inv.ID); err != nil && !errors.Is(err, repository.ErrAlreadyTerminal) {
			return writeRepoError(c, err)
		}
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invitation not found"})
	}
	return c.JSON(http.StatusOK, toInvitationView(inv, ""))
}

// Accept handles POST /v1/invitations/:id/accept.  The invitation flip,
// restaurant binding and association write happen inside one
// transaction in the sync repository.
func (h *InvitationHandler) Accept(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()

	rest, err := h.Restaurants.GetByOwner(ctx, uid)
	if err != nil {
		return writeRepoError(c, err)
	}
	inv, err := h.Sync.AcceptInvitation(ctx, id, rest.ID, uid)
	if err != nil {
		return writeRepoError(c, err)
	}
	logActivity(queue.ScopeVenue, inv.VenueID, "invitation_accepted",
		fmt.Sprintf("%s joined %s", rest.Name, inv.VenueName), uid)
	logActivity(queue.ScopeRestaurant, rest.ID, "venue_joined",
		fmt.Sprintf("joined %s via invitation", inv.VenueName), uid)
	return c.JSON(http.StatusOK, toInvitationView(inv, ""))
}

// Decline handles POST /v1/invitations/:id/decline.  There is no
// restaurant-side effect; the invitee may not even have a restaurant
// entity yet.
func (h *InvitationHandler) Decline(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()

	inv, err := h.Invitations.GetByID(ctx, id)
	if err != nil {
		return writeRepoError(c, err)
	}
	if err := h.Invitations.MarkDeclined(ctx, id, uid); err != nil {
		return writeRepoError(c, err)
	}
	logActivity(queue.ScopeVenue, inv.VenueID, "invitation_declined",
		fmt.Sprintf("%s declined the invitation", inv.RestaurantName), uid)
	return c.JSON(http.StatusOK, echo.Map{"status": model.StatusDeclined})
}
