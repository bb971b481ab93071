package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// newMockDB creates a sqlmock-backed DB and registers cleanup plus the
// expectations check. Wrapping the mock in sqlx keeps the repositories'
// Get/Select paths on the same code they use in production.
func newMockDB(t *testing.T) (DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return &PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}, mock
}
