package adapter

import (
	"io"
	"time"
)

// Source family names. The deal family parses community board rows, the
// bottle family parses merchant product shelves. Both families emit the same
// RawListing shape and are scheduled identically.
const (
	FamilyDeal   = "deal"
	FamilyBottle = "bottle"
)

// RawListing represents one listing as parsed from a source's page.
// It has no identity of its own; the store derives identity from
// (SourceName, URL).
type RawListing struct {
	SourceName string
	Title      string
	URL        string
	Price      string
	PostedAt   string
}

// Adapter turns a fetched listing page into raw listings.
type Adapter interface {
	// Name returns the source name, e.g. "ppomppu"
	Name() string

	// ListingURL returns the listing page URL to fetch each tick
	ListingURL() string

	// Parse extracts listings from the page body, in page order.
	// Individual malformed rows are skipped; an error means the page is not
	// recognizable as a listing page at all.
	Parse(body io.Reader) ([]RawListing, error)
}

// Selectors contains CSS selectors for the elements of a listing page
type Selectors struct {
	ListItem    string
	Title       string
	Link        string
	Price       string
	PostedAt    string
	PriceRegex  string
	ClassFilter string
}

// SourceConfig describes one configured source site
type SourceConfig struct {
	Name      string
	Family    string
	Label     string
	URL       string
	BaseURL   string
	Selectors Selectors
}

// Source pairs an adapter with its scheduling and notification metadata
type Source struct {
	Adapter  Adapter
	Label    string
	Interval time.Duration
}
