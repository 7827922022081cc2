package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedi-app/venue-sync/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newSyncRepo(db *sql.DB) *SyncRepo {
	restaurants := NewRestaurantRepo(db)
	venues := NewVenueRepo(db)
	requests := NewVenueRequestRepo(db)
	invitations := NewVenueInvitationRepo(db)
	return NewSyncRepo(db, restaurants, venues, requests, invitations)
}

var requestColumns = []string{
	"id", "restaurant_id", "venue_id",
	"restaurant_name", "restaurant_address", "restaurant_email", "restaurant_phone", "restaurant_cuisine",
	"venue_name", "venue_address", "status", "requested_by", "message", "denial_reason",
	"requested_at", "resolved_at", "resolved_by", "expires_at",
}

var restaurantColumns = []string{
	"id", "owner_id", "name", "address", "city", "state", "cuisine", "email", "phone",
	"venue_id", "venue_name", "venue_address", "venue_status", "sync_method",
	"joined_venue_at", "left_venue_at", "unsync_reason", "created_at", "updated_at",
}

var venueColumns = []string{
	"id", "owner_id", "name", "address", "city", "state", "status",
	"max_restaurants", "require_approval", "created_at", "updated_at",
}

var invitationColumns = []string{
	"id", "venue_id", "venue_name", "venue_address",
	"restaurant_name", "contact_email", "personal_message", "invite_code", "status",
	"restaurant_id", "expires_at", "created_at", "resolved_at", "resolved_by",
}

func requestRow(id, restaurantID, venueID uint64, status string) *sqlmock.Rows {
	return sqlmock.NewRows(requestColumns).AddRow(
		id, restaurantID, venueID,
		"Taco Stand", "1 Main St", "taco@example.com", "555-0100", "mexican",
		"The Hall", "2 Hall Ave", status, 10, "please", nil,
		time.Now(), nil, nil, nil,
	)
}

// restaurantRow builds a restaurant row; venueID nil means independent.
func restaurantRow(id, ownerID uint64, venueID interface{}) *sqlmock.Rows {
	var name, addr, status, method interface{}
	var joined interface{}
	if venueID != nil {
		name, addr, status, method = "The Hall", "2 Hall Ave", "active", model.SyncMethodManual
		joined = time.Now()
	}
	return sqlmock.NewRows(restaurantColumns).AddRow(
		id, ownerID, "Taco Stand", "1 Main St", "Austin", "TX", "mexican", "taco@example.com", "555-0100",
		venueID, name, addr, status, method,
		joined, nil, nil, time.Now(), time.Now(),
	)
}

// venueRow builds a venue row; maxRestaurants nil means uncapped.
func venueRow(id, ownerID uint64, maxRestaurants interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(venueColumns).AddRow(
		id, ownerID, "The Hall", "2 Hall Ave", "Austin", "TX", "active",
		maxRestaurants, true, time.Now(), time.Now(),
	)
}

func invitationRow(id, venueID uint64, status string, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(invitationColumns).AddRow(
		id, venueID, "The Hall", "2 Hall Ave",
		"Taco Stand", "taco@example.com", "come join", "AB12CD34", status,
		nil, expiresAt, time.Now(), nil, nil,
	)
}

const (
	selectRequestForUpdate    = `FROM venue_requests WHERE id = \? FOR UPDATE`
	selectRestaurantForUpdate = `FROM restaurants WHERE id = \? FOR UPDATE`
	selectVenueByID           = `FROM venues WHERE id = \?`
	selectInvitationForUpdate = `FROM venue_invitations WHERE id = \? FOR UPDATE`
	countByVenue              = `SELECT COUNT\(\*\) FROM restaurants WHERE venue_id = \?`
	updateRequests            = `UPDATE venue_requests`
	updateRestaurants         = `UPDATE restaurants`
	updateInvitations         = `UPDATE venue_invitations`
)

func TestApproveRequestCommitsBothWrites(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRequestForUpdate).WithArgs(5).WillReturnRows(requestRow(5, 1, 2, model.StatusPending))
	mock.ExpectQuery(selectVenueByID).WithArgs(2).WillReturnRows(venueRow(2, 20, nil))
	mock.ExpectQuery(selectRestaurantForUpdate).WithArgs(1).WillReturnRows(restaurantRow(1, 10, nil))
	mock.ExpectExec(updateRequests).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateRestaurants).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := repo.ApproveRequest(context.Background(), 5, 20)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, req.Status)
	require.NotNil(t, req.ResolvedBy)
	assert.Equal(t, uint64(20), *req.ResolvedBy)
	assert.NotNil(t, req.ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRequestRollsBackWhenAssociationWriteFails(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRequestForUpdate).WithArgs(5).WillReturnRows(requestRow(5, 1, 2, model.StatusPending))
	mock.ExpectQuery(selectVenueByID).WithArgs(2).WillReturnRows(venueRow(2, 20, nil))
	mock.ExpectQuery(selectRestaurantForUpdate).WithArgs(1).WillReturnRows(restaurantRow(1, 10, nil))
	mock.ExpectExec(updateRequests).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateRestaurants).WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	_, err := repo.ApproveRequest(context.Background(), 5, 20)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRequestAlreadyTerminal(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRequestForUpdate).WithArgs(5).WillReturnRows(requestRow(5, 1, 2, model.StatusDenied))
	mock.ExpectRollback()

	_, err := repo.ApproveRequest(context.Background(), 5, 20)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRequestLosesCompareAndSwapRace(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRequestForUpdate).WithArgs(5).WillReturnRows(requestRow(5, 1, 2, model.StatusPending))
	mock.ExpectQuery(selectVenueByID).WithArgs(2).WillReturnRows(venueRow(2, 20, nil))
	mock.ExpectQuery(selectRestaurantForUpdate).WithArgs(1).WillReturnRows(restaurantRow(1, 10, nil))
	// A concurrent transition won between the read and the update.
	mock.ExpectExec(updateRequests).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.ApproveRequest(context.Background(), 5, 20)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRequestForbiddenForNonOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRequestForUpdate).WithArgs(5).WillReturnRows(requestRow(5, 1, 2, model.StatusPending))
	mock.ExpectQuery(selectVenueByID).WithArgs(2).WillReturnRows(venueRow(2, 20, nil))
	mock.ExpectRollback()

	_, err := repo.ApproveRequest(context.Background(), 5, 99)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRequestConflictingAssociation(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRequestForUpdate).WithArgs(5).WillReturnRows(requestRow(5, 1, 2, model.StatusPending))
	mock.ExpectQuery(selectVenueByID).WithArgs(2).WillReturnRows(venueRow(2, 20, nil))
	// The restaurant joined venue 7 between request creation and approval.
	mock.ExpectQuery(selectRestaurantForUpdate).WithArgs(1).WillReturnRows(restaurantRow(1, 10, 7))
	mock.ExpectRollback()

	_, err := repo.ApproveRequest(context.Background(), 5, 20)
	assert.ErrorIs(t, err, ErrConflictingAssociation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRequestCapacityExceeded(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRequestForUpdate).WithArgs(5).WillReturnRows(requestRow(5, 1, 2, model.StatusPending))
	mock.ExpectQuery(selectVenueByID).WithArgs(2).WillReturnRows(venueRow(2, 20, 1))
	mock.ExpectQuery(selectRestaurantForUpdate).WithArgs(1).WillReturnRows(restaurantRow(1, 10, nil))
	mock.ExpectQuery(countByVenue).WithArgs(2).WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.ApproveRequest(context.Background(), 5, 20)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptInvitationCommitsBothWrites(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	expires := time.Now().UTC().Add(24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(selectInvitationForUpdate).WithArgs(9).WillReturnRows(invitationRow(9, 2, model.StatusPending, expires))
	mock.ExpectQuery(selectRestaurantForUpdate).WithArgs(1).WillReturnRows(restaurantRow(1, 10, nil))
	mock.ExpectQuery(selectVenueByID).WithArgs(2).WillReturnRows(venueRow(2, 20, nil))
	mock.ExpectExec(updateInvitations).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateRestaurants).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	inv, err := repo.AcceptInvitation(context.Background(), 9, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, inv.Status)
	require.NotNil(t, inv.RestaurantID)
	assert.Equal(t, uint64(1), *inv.RestaurantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptInvitationExpiredPersistsStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	expired := time.Now().UTC().Add(-time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(selectInvitationForUpdate).WithArgs(9).WillReturnRows(invitationRow(9, 2, model.StatusPending, expired))
	mock.ExpectExec(updateInvitations).
		WithArgs(model.StatusExpired, 9, model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The expired status must survive the failed acceptance, so the
	// transaction commits even though the call errors.
	mock.ExpectCommit()

	_, err := repo.AcceptInvitation(context.Background(), 9, 1, 10)
	assert.ErrorIs(t, err, ErrInviteExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptInvitationAlreadyAssociated(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	expires := time.Now().UTC().Add(24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(selectInvitationForUpdate).WithArgs(9).WillReturnRows(invitationRow(9, 2, model.StatusPending, expires))
	mock.ExpectQuery(selectRestaurantForUpdate).WithArgs(1).WillReturnRows(restaurantRow(1, 10, 7))
	mock.ExpectRollback()

	_, err := repo.AcceptInvitation(context.Background(), 9, 1, 10)
	assert.ErrorIs(t, err, ErrAlreadyAssociated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncManualAllowsEitherOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	// Acting user 20 manages the venue but does not own the restaurant.
	mock.ExpectBegin()
	mock.ExpectQuery(selectRestaurantForUpdate).WithArgs(1).WillReturnRows(restaurantRow(1, 10, nil))
	mock.ExpectQuery(selectVenueByID).WithArgs(2).WillReturnRows(venueRow(2, 20, nil))
	mock.ExpectExec(updateRestaurants).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SyncManual(context.Background(), 1, 2, 20)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncManualForbiddenForStranger(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRestaurantForUpdate).WithArgs(1).WillReturnRows(restaurantRow(1, 10, nil))
	mock.ExpectQuery(selectVenueByID).WithArgs(2).WillReturnRows(venueRow(2, 20, nil))
	mock.ExpectRollback()

	err := repo.SyncManual(context.Background(), 1, 2, 99)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnsyncClearsAssociation(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRestaurantForUpdate).WithArgs(1).WillReturnRows(restaurantRow(1, 10, 2))
	mock.ExpectExec(updateRestaurants).
		WithArgs(sqlmock.AnyArg(), "closing", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Unsync(context.Background(), 1, 10, "closing")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnsyncNotAssociated(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRestaurantForUpdate).WithArgs(1).WillReturnRows(restaurantRow(1, 10, nil))
	mock.ExpectExec(updateRestaurants).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Unsync(context.Background(), 1, 10, "closing")
	assert.ErrorIs(t, err, ErrNotAssociated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestNotFoundBubblesUp(t *testing.T) {
	db, mock := newMock(t)
	repo := newSyncRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(selectRequestForUpdate).WithArgs(5).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.ApproveRequest(context.Background(), 5, 20)
	assert.ErrorIs(t, err, ErrRequestNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
