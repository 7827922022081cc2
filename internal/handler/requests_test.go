package handler

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedi-app/venue-sync/internal/model"
	"github.com/vedi-app/venue-sync/internal/repository"
)

var requestColumns = []string{
	"id", "restaurant_id", "venue_id",
	"restaurant_name", "restaurant_address", "restaurant_email", "restaurant_phone", "restaurant_cuisine",
	"venue_name", "venue_address", "status", "requested_by", "message", "denial_reason",
	"requested_at", "resolved_at", "resolved_by", "expires_at",
}

func requestRowWith(id uint64, status string, requestedBy uint64) *sqlmock.Rows {
	return sqlmock.NewRows(requestColumns).AddRow(
		id, 1, 2,
		"Taco Stand", "1 Main St", "taco@example.com", "555-0100", "mexican",
		"The Hall", "2 Hall Ave", status, requestedBy, "please", nil,
		time.Now(), nil, nil, nil,
	)
}

func newRequests(db *sql.DB) *RequestHandler {
	restaurants := repository.NewRestaurantRepo(db)
	venues := repository.NewVenueRepo(db)
	requests := repository.NewVenueRequestRepo(db)
	invitations := repository.NewVenueInvitationRepo(db)
	sync := repository.NewSyncRepo(db, restaurants, venues, requests, invitations)
	return NewRequestHandler(restaurants, venues, requests, sync)
}

func jsonContext(method, target, body string, userID uint64) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	return c, rec
}

func TestCreateRequestHappyPath(t *testing.T) {
	db, mock := newMockDB(t)
	h := newRequests(db)

	mock.ExpectQuery(`FROM restaurants WHERE owner_id = \?`).WithArgs(10).
		WillReturnRows(restaurantRowWithVenue(1, 10, nil))
	mock.ExpectQuery(`FROM venues WHERE id = \?`).WithArgs(2).
		WillReturnRows(venueRowWith(2, 20, nil, true))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM venue_requests`).WithArgs(1, 2, model.StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO venue_requests`).WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(`SELECT requested_at FROM venue_requests`).WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"requested_at"}).AddRow(time.Now()))

	c, rec := jsonContext(http.MethodPost, "/v1/venues/2/requests", `{"message":"please"}`, 10)
	c.SetPath("/v1/venues/:id/requests")
	c.SetParamNames("id")
	c.SetParamValues("2")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
	assert.Contains(t, rec.Body.String(), `"id":42`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Requesting while already associated is an idempotent rejection, even
// for the restaurant's own current venue.
func TestCreateRequestAlreadyAssociated(t *testing.T) {
	db, mock := newMockDB(t)
	h := newRequests(db)

	mock.ExpectQuery(`FROM restaurants WHERE owner_id = \?`).WithArgs(10).
		WillReturnRows(restaurantRowWithVenue(1, 10, 2))
	mock.ExpectQuery(`FROM venues WHERE id = \?`).WithArgs(2).
		WillReturnRows(venueRowWith(2, 20, nil, true))

	c, rec := jsonContext(http.MethodPost, "/v1/venues/2/requests", `{"message":"again"}`, 10)
	c.SetPath("/v1/venues/:id/requests")
	c.SetParamNames("id")
	c.SetParamValues("2")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequestDuplicatePending(t *testing.T) {
	db, mock := newMockDB(t)
	h := newRequests(db)

	mock.ExpectQuery(`FROM restaurants WHERE owner_id = \?`).WithArgs(10).
		WillReturnRows(restaurantRowWithVenue(1, 10, nil))
	mock.ExpectQuery(`FROM venues WHERE id = \?`).WithArgs(2).
		WillReturnRows(venueRowWith(2, 20, nil, true))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM venue_requests`).WithArgs(1, 2, model.StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	c, rec := jsonContext(http.MethodPost, "/v1/venues/2/requests", `{"message":"again"}`, 10)
	c.SetPath("/v1/venues/:id/requests")
	c.SetParamNames("id")
	c.SetParamValues("2")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Only the original requester may cancel, regardless of other roles.
func TestCancelRequestForbiddenForOtherUser(t *testing.T) {
	db, mock := newMockDB(t)
	h := newRequests(db)

	mock.ExpectQuery(`FROM venue_requests WHERE id = \?`).WithArgs(5).
		WillReturnRows(requestRowWith(5, model.StatusPending, 10))

	c, rec := jsonContext(http.MethodDelete, "/v1/requests/5", "", 99)
	c.SetPath("/v1/requests/:id")
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRequestAlreadyTerminal(t *testing.T) {
	db, mock := newMockDB(t)
	h := newRequests(db)

	mock.ExpectQuery(`FROM venue_requests WHERE id = \?`).WithArgs(5).
		WillReturnRows(requestRowWith(5, model.StatusPending, 10))
	mock.ExpectExec(`UPDATE venue_requests`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	c, rec := jsonContext(http.MethodDelete, "/v1/requests/5", "", 10)
	c.SetPath("/v1/requests/:id")
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
