package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
)

func newUniversityMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func TestUniversityRepositoryList(t *testing.T) {
	db, mock, cleanup := newUniversityMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "created_at", "updated_at"}).
		AddRow("u1", "utn-frm", "UTN Facultad Regional Mendoza", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, created_at, updated_at FROM universities WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM universities WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	universities, total, err := repo.List(context.Background(), models.UniversityFilter{})
	require.NoError(t, err)
	assert.Len(t, universities, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniversityRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newUniversityMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(code) LIKE $1 OR LOWER(name) LIKE $1")).
		WithArgs("%utn%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "created_at", "updated_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("%utn%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	universities, total, err := repo.List(context.Background(), models.UniversityFilter{Search: "UTN"})
	require.NoError(t, err)
	assert.Empty(t, universities)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniversityRepositoryExistsByCode(t *testing.T) {
	db, mock, cleanup := newUniversityMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM universities WHERE LOWER(code) = LOWER($1) LIMIT 1")).
		WithArgs("utn-frm").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	exists, err := repo.ExistsByCode(context.Background(), "utn-frm", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniversityRepositoryExistsByCodeExcludesSelf(t *testing.T) {
	db, mock, cleanup := newUniversityMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND id <> $2 LIMIT 1")).
		WithArgs("utn-frm", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}))

	exists, err := repo.ExistsByCode(context.Background(), "utn-frm", "u1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniversityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newUniversityMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	mock.ExpectExec("INSERT INTO universities").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	university := &models.University{Code: "utn-frm", Name: "UTN Facultad Regional Mendoza"}
	err := repo.Create(context.Background(), university)
	require.NoError(t, err)
	assert.NotEmpty(t, university.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniversityRepositoryUpdateOmitsCode(t *testing.T) {
	db, mock, cleanup := newUniversityMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE universities SET name = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("Renamed", sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &models.University{ID: "u1", Code: "utn-frm", Name: "Renamed"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniversityRepositoryCountChildren(t *testing.T) {
	db, mock, cleanup := newUniversityMock(t)
	defer cleanup()
	repo := NewUniversityRepository(db)

	mock.ExpectQuery("SELECT").
		WithArgs("utn-frm").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountChildren(context.Background(), "utn-frm")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
