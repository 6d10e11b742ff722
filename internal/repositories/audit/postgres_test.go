package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/fileguard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgres_InsertTrims(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	e := &models.AuditEvent{Operation: "Encryption", Timestamp: ts, Details: "ok", Status: "success", Severity: models.SeverityInfo}

	mock.ExpectQuery(`INSERT INTO audit_log .* RETURNING id`).
		WithArgs("Encryption", ts, "ok", "success", "info").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(`DELETE FROM audit_log WHERE id NOT IN \(SELECT id FROM audit_log ORDER BY id DESC LIMIT \$1\)`).
		WithArgs(1000).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Insert(context.Background(), e, 1000))
	assert.Equal(t, int64(42), e.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertErrors(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	e := &models.AuditEvent{Operation: "x", Timestamp: time.Now()}

	mock.ExpectQuery(`INSERT INTO audit_log`).WillReturnError(errors.New("db down"))
	assert.ErrorContains(t, repo.Insert(context.Background(), e, 10), "failed to insert audit event: db down")

	mock.ExpectQuery(`INSERT INTO audit_log`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(`DELETE FROM audit_log`).WillReturnError(errors.New("locked"))
	assert.ErrorContains(t, repo.Insert(context.Background(), e, 10), "failed to trim audit log: locked")
}

func TestPostgres_ListWithLimit(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "operation", "timestamp", "details", "status", "log_level"}).
		AddRow(int64(9), "Malware Scan", ts, "clean", "success", "info").
		AddRow(int64(10), "Encryption", ts, "ok", "success", "info")
	mock.ExpectQuery(`ORDER BY id DESC LIMIT \$1\s+\) recent ORDER BY id`).WithArgs(2).WillReturnRows(rows)

	got, err := repo.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(9), got[0].ID)
	assert.Equal(t, models.SeverityInfo, got[1].Severity)
}

func TestPostgres_Count(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_log`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
