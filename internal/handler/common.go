package handler // handler defines the HTTP handlers for the venue-sync API

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vedi-app/venue-sync/internal/queue"
	"github.com/vedi-app/venue-sync/internal/repository"
)

// getUserID extracts the authenticated user ID placed in context by the
// JWT middleware and normalizes it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter such as :id.
func pathID(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

// limitParam reads the optional ?limit= query parameter.  Zero is
// returned when absent or malformed; repositories clamp it to their
// default and maximum.
func limitParam(c echo.Context) int {
	s := c.QueryParam("limit")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// logActivity publishes an activity event to the broker without
// blocking the request.  Publish failures are swallowed; activity is
// observational and must never gate a workflow's result.
func logActivity(scope string, entityID uint64, eventType, message string, actorID uint64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue.PublishActivity(ctx, queue.ActivityEvent{
			Scope:      scope,
			EntityID:   entityID,
			Type:       eventType,
			Message:    message,
			ActorID:    actorID,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}()
}

// writeRepoError translates repository sentinel errors into JSON error
// responses.  Unrecognized errors become 500 without leaking internals.
func writeRepoError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrRestaurantNotFound),
		errors.Is(err, repository.ErrVenueNotFound),
		errors.Is(err, repository.ErrRequestNotFound),
		errors.Is(err, repository.ErrInvitationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrAlreadyAssociated),
		errors.Is(err, repository.ErrNotAssociated),
		errors.Is(err, repository.ErrAlreadyTerminal),
		errors.Is(err, repository.ErrDuplicateRequest),
		errors.Is(err, repository.ErrConflictingAssociation),
		errors.Is(err, repository.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrInviteExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
