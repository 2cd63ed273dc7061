package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/face-attendance-api/internal/models"
)

func TestIdentityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO identities").
		WithArgs("Alice", nil, "Student", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectCommit()

	var persistedID int64
	ident := &models.Identity{Name: "Alice"}
	err := repo.Create(context.Background(), ident, func(id int64) error {
		persistedID = id
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), ident.ID)
	assert.Equal(t, int64(5), persistedID)
	assert.Equal(t, models.DefaultRole, ident.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepositoryCreateRollsBackOnPersistFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO identities").
		WithArgs("Alice", nil, "Student", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectRollback()

	persistErr := errors.New("disk full")
	err := repo.Create(context.Background(), &models.Identity{Name: "Alice"}, func(id int64) error {
		return persistErr
	})
	require.ErrorIs(t, err, persistErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	registered := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "phone", "role", "registered_at"}).
		AddRow(int64(5), "Alice", "555-0001", "Student", registered)
	mock.ExpectQuery("SELECT id, name, phone, role, registered_at FROM identities").
		WithArgs(int64(5)).
		WillReturnRows(rows)

	ident, err := repo.FindByID(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, ident)
	assert.Equal(t, "Alice", ident.Name)
	require.NotNil(t, ident.Phone)
	assert.Equal(t, "555-0001", *ident.Phone)
}

func TestIdentityRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	mock.ExpectQuery("SELECT id, name, phone, role, registered_at FROM identities").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "role", "registered_at"}))

	ident, err := repo.FindByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, ident)
}

func TestIdentityRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIdentityRepository(db)

	registered := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "phone", "role", "registered_at"}).
		AddRow(int64(1), "Alice", nil, "Student", registered)
	mock.ExpectQuery("SELECT id, name, phone, role, registered_at").
		WithArgs("%ali%").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("%ali%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	identities, total, err := repo.List(context.Background(), models.IdentityFilter{Search: "ali"})
	require.NoError(t, err)
	assert.Len(t, identities, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
