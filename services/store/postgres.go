package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	pkgerrors "youngcheol/moneyhunter/pkg/errors"
)

const dealColumns = "id, site_name, title, url, price, is_sent, abandoned, notify_attempts, created_at"

// PostgresStore implements DealStore on PostgreSQL. Dedup is enforced by the
// unique index on (site_name, url); there is no check-then-insert window.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore opens a connection pool to the given DSN
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, pkgerrors.NewStore("", "failed to open database", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing connection, used by tests
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping verifies the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InsertIfAbsent atomically creates a deal row unless the identity exists.
// ON CONFLICT DO NOTHING makes a lost race indistinguishable from an
// already-seen listing: both return (nil, nil).
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, deal NewDeal) (*Deal, error) {
	var price *string
	if deal.Price != "" {
		price = &deal.Price
	}

	var created Deal
	err := s.db.GetContext(ctx, &created, `
		INSERT INTO deals (site_name, title, url, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (site_name, url) DO NOTHING
		RETURNING `+dealColumns,
		deal.SiteName, deal.Title, deal.URL, price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.NewStore(deal.SiteName, "failed to insert deal", err)
	}

	return &created, nil
}

// MarkSent transitions is_sent to true. The is_sent = FALSE predicate keeps
// the transition monotonic even if called twice.
func (s *PostgresStore) MarkSent(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE deals SET is_sent = TRUE
		WHERE id = $1 AND is_sent = FALSE AND abandoned = FALSE`, id)
	if err != nil {
		return pkgerrors.NewStore("", "failed to mark deal as sent", err)
	}
	return nil
}

// RecordAttempt counts one failed delivery and flips abandoned when the
// attempt bound is reached
func (s *PostgresStore) RecordAttempt(ctx context.Context, id int64, maxAttempts int) (bool, error) {
	var abandoned bool
	err := s.db.GetContext(ctx, &abandoned, `
		UPDATE deals
		SET notify_attempts = notify_attempts + 1,
		    abandoned = (notify_attempts + 1 >= $2)
		WHERE id = $1 AND is_sent = FALSE AND abandoned = FALSE
		RETURNING abandoned`, id, maxAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		// Already sent or already abandoned; nothing to count
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.NewStore("", "failed to record notify attempt", err)
	}
	return abandoned, nil
}

// PendingNotifications returns unsent deals eligible for the retry pass
func (s *PostgresStore) PendingNotifications(ctx context.Context, before time.Time, maxAttempts, limit int) ([]Deal, error) {
	var deals []Deal
	err := s.db.SelectContext(ctx, &deals, `
		SELECT `+dealColumns+` FROM deals
		WHERE is_sent = FALSE AND abandoned = FALSE
		  AND notify_attempts < $2 AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $3`, before, maxAttempts, limit)
	if err != nil {
		return nil, pkgerrors.NewStore("", "failed to query pending notifications", err)
	}
	return deals, nil
}

// LatestDeals returns the newest deals, created_at descending
func (s *PostgresStore) LatestDeals(ctx context.Context, limit int) (*DealPage, error) {
	deals := []Deal{}
	err := s.db.SelectContext(ctx, &deals, `
		SELECT `+dealColumns+` FROM deals
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, pkgerrors.NewStore("", "failed to query latest deals", err)
	}
	return &DealPage{Count: len(deals), Deals: deals}, nil
}
