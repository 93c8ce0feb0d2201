package postgresdb

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

func newMockedDB(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()

	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	return NewWithDB(database, time.Second), mock
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	usr := &models.User{ID: "u1", Name: "Ann", Email: "ann@example.com", Password: "hash", Date: time.Now()}

	testCases := []struct {
		name        string
		execErr     error
		expectedErr error
	}{
		{
			name: "inserted",
		},
		{
			name:        "duplicate email",
			execErr:     &pgconn.PgError{Code: uniqueViolation},
			expectedErr: models.ErrUserExists,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			db, mock := newMockedDB(t)

			expectation := mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
				WithArgs(usr.ID, usr.Name, usr.Email, usr.Password, usr.Date)
			if testCase.execErr != nil {
				expectation.WillReturnError(testCase.execErr)
			} else {
				expectation.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := db.CreateUser(ctx, usr)
			if testCase.expectedErr != nil {
				assert.ErrorIs(t, err, testCase.expectedErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCreateUserUnexpectedError(t *testing.T) {
	db, mock := newMockedDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).WillReturnError(errors.New("connection reset"))

	err := db.CreateUser(context.Background(), &models.User{ID: "u1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrUserExists)
}

func TestGetUserByEmail(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockedDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
			WithArgs("ann@example.com").
			WillReturnRows(
				sqlmock.NewRows([]string{"id", "name", "email", "password", "date"}).
					AddRow("u1", "Ann", "ann@example.com", "hash", date),
			)

		usr, err := db.GetUserByEmail(ctx, "ann@example.com")
		require.NoError(t, err)
		assert.Equal(t, &models.User{ID: "u1", Name: "Ann", Email: "ann@example.com", Password: "hash", Date: date}, usr)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMockedDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password", "date"}))

		_, err := db.GetUserByID(ctx, "nobody")
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})
}

func TestGetContactsByOwner(t *testing.T) {
	db, mock := newMockedDB(t)
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM contacts WHERE user_id = $1 ORDER BY date DESC, seq DESC`)).
		WithArgs("u1").
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "user_id", "name", "email", "phone", "type", "date"}).
				AddRow("c2", "u1", "Bob", "", "555", "professional", date.Add(time.Hour)).
				AddRow("c1", "u1", "Carol", "carol@example.com", "", "personal", date),
		)

	contacts, err := db.GetContactsByOwner(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.Contact{
		{ID: "c2", Owner: "u1", Name: "Bob", Phone: "555", Type: "professional", Date: date.Add(time.Hour)},
		{ID: "c1", Owner: "u1", Name: "Carol", Email: "carol@example.com", Type: "personal", Date: date},
	}, contacts)
}

func TestGetContactsByOwnerEmpty(t *testing.T) {
	db, mock := newMockedDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM contacts WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "email", "phone", "type", "date"}))

	contacts, err := db.GetContactsByOwner(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, contacts, "an empty list must encode as [] rather than null")
	assert.Empty(t, contacts)
}

func TestUpdateAndDeleteContact(t *testing.T) {
	ctx := context.Background()
	contact := &models.Contact{ID: "c1", Owner: "u1", Name: "Bob", Phone: "555", Type: "personal"}

	testCases := []struct {
		name        string
		affected    int64
		expectedErr error
	}{
		{name: "one row", affected: 1},
		{name: "no rows", affected: 0, expectedErr: models.ErrContactNotFound},
	}

	for _, testCase := range testCases {
		t.Run("update "+testCase.name, func(t *testing.T) {
			db, mock := newMockedDB(t)
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE contacts SET name = $2, email = $3, phone = $4, type = $5 WHERE id = $1`)).
				WithArgs(contact.ID, contact.Name, contact.Email, contact.Phone, contact.Type).
				WillReturnResult(sqlmock.NewResult(0, testCase.affected))

			err := db.UpdateContact(ctx, contact)
			if testCase.expectedErr != nil {
				assert.ErrorIs(t, err, testCase.expectedErr)
				return
			}
			assert.NoError(t, err)
		})

		t.Run("delete "+testCase.name, func(t *testing.T) {
			db, mock := newMockedDB(t)
			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM contacts WHERE id = $1`)).
				WithArgs(contact.ID).
				WillReturnResult(sqlmock.NewResult(0, testCase.affected))

			err := db.DeleteContact(ctx, contact.ID)
			if testCase.expectedErr != nil {
				assert.ErrorIs(t, err, testCase.expectedErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCounters(t *testing.T) {
	db, mock := newMockedDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM contacts`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	users, err := db.GetNumberOfUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), users)

	contacts, err := db.GetNumberOfContacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), contacts)
}
