package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedi-app/venue-sync/internal/model"
)

func TestClampLimit(t *testing.T) {
	cases := []struct {
		name string
		in   int
		want int
	}{
		{"zero gets default", 0, DefaultListLimit},
		{"negative gets default", -3, DefaultListLimit},
		{"in range passes through", 25, 25},
		{"above max is capped", 500, MaxListLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClampLimit(tc.in))
		})
	}
}

func TestCreateRequestStartsPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVenueRequestRepo(db)

	mock.ExpectExec(`INSERT INTO venue_requests`).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(`SELECT requested_at FROM venue_requests WHERE id = \?`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"requested_at"}).AddRow(time.Now()))

	req := &model.VenueRequest{
		RestaurantID:   1,
		VenueID:        2,
		RestaurantName: "Taco Stand",
		VenueName:      "The Hall",
		RequestedBy:    10,
		Message:        "please",
	}
	err := repo.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), req.ID)
	assert.Equal(t, model.StatusPending, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCancelledIsCompareAndSwap(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVenueRequestRepo(db)

	mock.ExpectExec(updateRequests).
		WithArgs(model.StatusCancelled, 10, 5, model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkCancelled(context.Background(), 5, 10)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDeniedStampsReason(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVenueRequestRepo(db)

	mock.ExpectExec(updateRequests).
		WithArgs(model.StatusDenied, "no room", 20, 5, model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkDenied(context.Background(), 5, 20, "no room")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVenueRequestRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM venue_requests`).
		WithArgs(1, 2, model.StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	pending, err := repo.HasPending(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByVenueClampsLimit(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVenueRequestRepo(db)

	mock.ExpectQuery(`FROM venue_requests\s+WHERE venue_id = \? ORDER BY requested_at DESC LIMIT \?`).
		WithArgs(2, MaxListLimit).
		WillReturnRows(requestRow(5, 1, 2, model.StatusPending))

	reqs, err := repo.ListByVenue(context.Background(), 2, 10_000)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, uint64(5), reqs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
