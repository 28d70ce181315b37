package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresStoreFromDB(sqlx.NewDb(db, "sqlmock")), mock
}

func dealRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "site_name", "title", "url", "price", "is_sent", "abandoned", "notify_attempts", "created_at",
	})
}

func TestInsertIfAbsentCreates(t *testing.T) {
	s, mock := newMockStore(t)
	createdAt := time.Now()

	mock.ExpectQuery("INSERT INTO deals").
		WithArgs("ppomppu", "에어팟 프로 2", "https://example.com/1", "189,000원").
		WillReturnRows(dealRows().
			AddRow(1, "ppomppu", "에어팟 프로 2", "https://example.com/1", "189,000원", false, false, 0, createdAt))

	deal, err := s.InsertIfAbsent(context.Background(), NewDeal{
		SiteName: "ppomppu",
		Title:    "에어팟 프로 2",
		URL:      "https://example.com/1",
		Price:    "189,000원",
	})
	assert.NoError(t, err)
	require.NotNil(t, deal)
	assert.Equal(t, int64(1), deal.ID)
	assert.Equal(t, "ppomppu", deal.SiteName)
	assert.False(t, deal.IsSent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertIfAbsentDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	// ON CONFLICT DO NOTHING returns no rows for an already-seen identity
	mock.ExpectQuery("INSERT INTO deals").
		WithArgs("ppomppu", "에어팟 프로 2", "https://example.com/1", nil).
		WillReturnError(sql.ErrNoRows)

	deal, err := s.InsertIfAbsent(context.Background(), NewDeal{
		SiteName: "ppomppu",
		Title:    "에어팟 프로 2",
		URL:      "https://example.com/1",
	})
	assert.NoError(t, err)
	assert.Nil(t, deal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSent(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE deals SET is_sent = TRUE").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.MarkSent(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAttempt(t *testing.T) {
	s, mock := newMockStore(t)

	// Attempt under the bound: not abandoned
	mock.ExpectQuery("UPDATE deals").
		WithArgs(int64(7), 5).
		WillReturnRows(sqlmock.NewRows([]string{"abandoned"}).AddRow(false))

	abandoned, err := s.RecordAttempt(context.Background(), 7, 5)
	assert.NoError(t, err)
	assert.False(t, abandoned)

	// Final attempt: abandoned
	mock.ExpectQuery("UPDATE deals").
		WithArgs(int64(7), 5).
		WillReturnRows(sqlmock.NewRows([]string{"abandoned"}).AddRow(true))

	abandoned, err = s.RecordAttempt(context.Background(), 7, 5)
	assert.NoError(t, err)
	assert.True(t, abandoned)

	// Already sent or abandoned: no row updated, no error
	mock.ExpectQuery("UPDATE deals").
		WithArgs(int64(7), 5).
		WillReturnError(sql.ErrNoRows)

	abandoned, err = s.RecordAttempt(context.Background(), 7, 5)
	assert.NoError(t, err)
	assert.False(t, abandoned)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingNotifications(t *testing.T) {
	s, mock := newMockStore(t)
	before := time.Now().Add(-5 * time.Minute)
	createdAt := time.Now().Add(-time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM deals").
		WithArgs(before, 5, 20).
		WillReturnRows(dealRows().
			AddRow(3, "fmkorea", "위스키 특가", "https://example.com/3", nil, false, false, 1, createdAt))

	deals, err := s.PendingNotifications(context.Background(), before, 5, 20)
	assert.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, int64(3), deals[0].ID)
	assert.Equal(t, 1, deals[0].NotifyAttempts)
	assert.Nil(t, deals[0].Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestDeals(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM deals").
		WithArgs(20).
		WillReturnRows(dealRows().
			AddRow(2, "ppomppu", "둘째 딜", "https://example.com/2", nil, true, false, 0, now).
			AddRow(1, "fmkorea", "첫째 딜", "https://example.com/1", "1,000원", true, false, 0, now.Add(-time.Minute)))

	page, err := s.LatestDeals(context.Background(), 20)
	assert.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, 2, page.Count)
	require.Len(t, page.Deals, 2)
	// created_at descending
	assert.Equal(t, int64(2), page.Deals[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
