package productext

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var extColumns = []string{"id", "product_id", "custom_name", "created_at", "updated_at", "deleted_at"}

func TestRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		e := &ProductExtension{ID: "prodext_1", ProductID: "prod_1", CustomName: "Cashmere"}
		mock.ExpectQuery("INSERT INTO product_extension").
			WithArgs("prodext_1", "prod_1", "Cashmere").
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		err := repo.Create(context.Background(), e)
		assert.NoError(t, err)
		assert.Equal(t, now, e.CreatedAt)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO product_extension").WillReturnError(errors.New("db error"))
		err := repo.Create(context.Background(), &ProductExtension{ID: "prodext_2"})
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM product_extension WHERE id").
			WithArgs("prodext_1").
			WillReturnRows(sqlmock.NewRows(extColumns).AddRow("prodext_1", "prod_1", "Cashmere", now, now, nil))

		e, err := repo.GetByID(context.Background(), "prodext_1")
		require.NoError(t, err)
		assert.Equal(t, "Cashmere", e.CustomName)
		assert.Nil(t, e.DeletedAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM product_extension WHERE id").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRepository_ListByProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM product_extension\\s+WHERE product_id = \\$1 AND deleted_at IS NULL").
		WithArgs("prod_1").
		WillReturnRows(sqlmock.NewRows(extColumns).
			AddRow("prodext_2", "prod_1", "Newer", now, now, nil).
			AddRow("prodext_1", "prod_1", "Older", now.Add(-time.Hour), now, nil))

	list, err := repo.ListByProduct(context.Background(), "prod_1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Newer", list[0].CustomName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SoftDeleteAndRestore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("SoftDelete", func(t *testing.T) {
		mock.ExpectExec("UPDATE product_extension\\s+SET deleted_at = now\\(\\)").
			WithArgs("prodext_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SoftDelete(context.Background(), "prodext_1"))
	})

	t.Run("SoftDeleteMissing", func(t *testing.T) {
		mock.ExpectExec("UPDATE product_extension").
			WithArgs("prodext_9").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.SoftDelete(context.Background(), "prodext_9"), ErrNotFound)
	})

	t.Run("Restore", func(t *testing.T) {
		mock.ExpectExec("UPDATE product_extension\\s+SET deleted_at = NULL").
			WithArgs("prodext_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Restore(context.Background(), "prodext_1"))
	})

	t.Run("ExecError", func(t *testing.T) {
		mock.ExpectExec("UPDATE product_extension").WillReturnError(errors.New("db error"))
		assert.Error(t, repo.Restore(context.Background(), "prodext_1"))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
