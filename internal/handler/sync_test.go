package handler

import (
	"database/sql"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedi-app/venue-sync/internal/repository"
)

func newSync(db *sql.DB) *SyncHandler {
	restaurants := repository.NewRestaurantRepo(db)
	venues := repository.NewVenueRepo(db)
	requests := repository.NewVenueRequestRepo(db)
	invitations := repository.NewVenueInvitationRepo(db)
	sync := repository.NewSyncRepo(db, restaurants, venues, requests, invitations)
	return NewSyncHandler(restaurants, venues, sync)
}

func TestSyncAssociatesRestaurant(t *testing.T) {
	db, mock := newMockDB(t)
	h := newSync(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM restaurants WHERE id = \? FOR UPDATE`).WithArgs(1).
		WillReturnRows(restaurantRowWithVenue(1, 10, nil))
	mock.ExpectQuery(`FROM venues WHERE id = \?`).WithArgs(2).
		WillReturnRows(venueRowWith(2, 20, nil, false))
	mock.ExpectExec(`UPDATE restaurants`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM restaurants WHERE id = \?`).WithArgs(1).
		WillReturnRows(restaurantRowWithVenue(1, 10, 2))

	c, rec := jsonContext(http.MethodPost, "/v1/restaurants/1/sync", `{"venue_id":2}`, 10)
	c.SetPath("/v1/restaurants/:id/sync")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, h.Sync(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"venue_id":2`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncRequiresVenueID(t *testing.T) {
	db, mock := newMockDB(t)
	h := newSync(db)

	c, rec := jsonContext(http.MethodPost, "/v1/restaurants/1/sync", `{}`, 10)
	c.SetPath("/v1/restaurants/:id/sync")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, h.Sync(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnsyncWithoutAssociationConflicts(t *testing.T) {
	db, mock := newMockDB(t)
	h := newSync(db)

	mock.ExpectQuery(`FROM restaurants WHERE id = \?`).WithArgs(1).
		WillReturnRows(restaurantRowWithVenue(1, 10, nil))
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM restaurants WHERE id = \? FOR UPDATE`).WithArgs(1).
		WillReturnRows(restaurantRowWithVenue(1, 10, nil))
	mock.ExpectExec(`UPDATE restaurants`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	c, rec := jsonContext(http.MethodPost, "/v1/restaurants/1/unsync", `{"reason":"closing"}`, 10)
	c.SetPath("/v1/restaurants/:id/unsync")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, h.Unsync(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
