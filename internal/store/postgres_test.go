package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"era-vendors-api/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vendorCols = []string{"id", "name", "contact_person", "email", "phone", "address", "created_at", "updated_at"}
var historyCols = []string{"vendor_id", "changed_at", "actor", "action"}

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, nil), mock
}

func TestPostgresStore_ListAttachesHistoryNewestFirst(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, name, contact_person, email, phone, address, created_at, updated_at FROM vendors ORDER BY created_at, id`).
		WillReturnRows(sqlmock.NewRows(vendorCols).
			AddRow("V1", "Acme", "N/A", "N/A", "N/A", "", now, now).
			AddRow("V2", "Globex", "Hank", "hank@globex.test", "555", "Main St", now, now))
	mock.ExpectQuery(`FROM vendor_history`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(historyCols).
			AddRow("V1", now.Add(2*time.Hour), "Sam Ops", "Updated phone").
			AddRow("V2", now.Add(time.Hour), "System", actionCreated).
			AddRow("V1", now, "Dana Buyer", actionCreated))

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Len(t, list[0].History, 2)
	assert.Equal(t, "Sam Ops", list[0].History[0].User)
	assert.Equal(t, "Dana Buyer", list[0].History[1].User)
	require.Len(t, list[1].History, 1)
	assert.Equal(t, "Globex", list[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUnknownID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM vendors WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateWritesVendorAndHistory(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now()
	fields := models.NewVendorFields()
	fields.Name = "Acme"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO vendors`).
		WithArgs(sqlmock.AnyArg(), "Acme", "N/A", "N/A", "N/A", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO vendor_history`).
		WithArgs(sqlmock.AnyArg(), "System", actionCreated).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM vendors WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(vendorCols).AddRow("new-id", "Acme", "N/A", "N/A", "N/A", "", now, now))
	mock.ExpectQuery(`FROM vendor_history`).
		WillReturnRows(sqlmock.NewRows(historyCols).AddRow("new-id", now, "System", actionCreated))

	v, err := s.Create(context.Background(), fields, "")
	require.NoError(t, err)
	assert.Equal(t, "Acme", v.Name)
	require.Len(t, v.History, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateUnknownIDRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.Update(context.Background(), models.Vendor{ID: "missing"}, "Dana")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRecordsChangedFields(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("V1").
		WillReturnRows(sqlmock.NewRows(vendorCols).AddRow("V1", "Acme", "N/A", "N/A", "N/A", "", now, now))
	mock.ExpectExec(`UPDATE vendors`).
		WithArgs("Acme", "Wile E.", "N/A", "N/A", "", "V1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO vendor_history`).
		WithArgs("V1", "Dana", "Updated contact_person").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM vendors WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(vendorCols).AddRow("V1", "Acme", "Wile E.", "N/A", "N/A", "", now, now))
	mock.ExpectQuery(`FROM vendor_history`).
		WillReturnRows(sqlmock.NewRows(historyCols))

	in := models.Vendor{ID: "V1", VendorFields: models.NewVendorFields()}
	in.Name = "Acme"
	in.ContactPerson = "Wile E."
	v, err := s.Update(context.Background(), in, "Dana")
	require.NoError(t, err)
	assert.Equal(t, "Wile E.", v.ContactPerson)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeletePublishesOnlyWhenRowsRemoved(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	published := 0
	defer s.Subscribe(func([]models.Vendor) { published++ })()

	mock.ExpectExec(`DELETE FROM vendors WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := s.Delete(context.Background(), []string{"gone"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, published)

	mock.ExpectExec(`DELETE FROM vendors`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`FROM vendors ORDER BY`).
		WillReturnRows(sqlmock.NewRows(vendorCols))

	n, err = s.Delete(context.Background(), []string{"V1", "V2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, published)

	n, err = s.Delete(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_FindUserByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	users := NewPostgresUserStore(db)
	now := time.Now()

	mock.ExpectQuery(`FROM users`).
		WithArgs("dana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "first_name", "last_name",
			"roles", "is_active", "created_at", "updated_at", "last_login_at"}).
			AddRow(int64(4), "dana@example.com", "hash", "Dana", nil, "{editor,viewer}", true, now, now, nil))

	u, err := users.FindUserByEmail(context.Background(), " dana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Dana", u.GetDisplayName())
	assert.Equal(t, []string{"editor", "viewer"}, u.Roles)
	assert.Nil(t, u.LastName)

	mock.ExpectQuery(`FROM users`).WillReturnError(sql.ErrNoRows)
	_, err = users.FindUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
