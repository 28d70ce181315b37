package store

import (
	"context"
	"time"
)

// Deal is one persisted, at-most-once record of an ingested listing.
// Everything except the notification state is immutable after insert.
type Deal struct {
	ID             int64     `db:"id" json:"id"`
	SiteName       string    `db:"site_name" json:"site_name"`
	Title          string    `db:"title" json:"title"`
	URL            string    `db:"url" json:"url"`
	Price          *string   `db:"price" json:"price,omitempty"`
	IsSent         bool      `db:"is_sent" json:"is_sent"`
	Abandoned      bool      `db:"abandoned" json:"abandoned,omitempty"`
	NotifyAttempts int       `db:"notify_attempts" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// NewDeal carries the fields of a listing about to be ingested
type NewDeal struct {
	SiteName string
	Title    string
	URL      string
	Price    string
}

// DealPage is the serialized shape of a latest-deals query
type DealPage struct {
	Count int    `json:"count"`
	Deals []Deal `json:"deals"`
}

// DealStore is the durable record of ingested deals. (site_name, url) is the
// listing identity; InsertIfAbsent is the single synchronization point for
// concurrent crawl ticks.
type DealStore interface {
	// InsertIfAbsent atomically creates a deal row unless the identity is
	// already recorded. It returns (nil, nil) for an already-seen listing.
	InsertIfAbsent(ctx context.Context, deal NewDeal) (*Deal, error)

	// MarkSent transitions is_sent false -> true after a confirmed delivery.
	// The transition never reverts.
	MarkSent(ctx context.Context, id int64) error

	// RecordAttempt counts one failed delivery and abandons the deal when
	// the attempt bound is reached. It reports whether the deal is now
	// abandoned.
	RecordAttempt(ctx context.Context, id int64, maxAttempts int) (bool, error)

	// PendingNotifications returns unsent, unabandoned deals created before
	// the given time, oldest first, for the retry pass.
	PendingNotifications(ctx context.Context, before time.Time, maxAttempts, limit int) ([]Deal, error)

	// LatestDeals returns the newest deals for the read API contract.
	LatestDeals(ctx context.Context, limit int) (*DealPage, error)
}
