package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"youngcheol/moneyhunter/internal/adapter"
	"youngcheol/moneyhunter/internal/classify"
	"youngcheol/moneyhunter/services/cache"
	"youngcheol/moneyhunter/services/fetcher"
	"youngcheol/moneyhunter/services/store"
	"youngcheol/moneyhunter/services/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Listing page as served on the first tick
const pageOne = `
<!DOCTYPE html>
<html>
<body>
  <table>
    <tr class="deal notice"><td><a class="subject" href="/board/0">공지사항</a></td></tr>
    <tr class="deal"><td><a class="subject" href="/board/1">맥캘란 12년 99,000원</a></td></tr>
    <tr class="deal"><td><a class="subject" href="/board/2">에어팟 특가</a></td></tr>
  </table>
</body>
</html>
`

// Same page on the second tick, with one new row on top
const pageTwo = `
<!DOCTYPE html>
<html>
<body>
  <table>
    <tr class="deal"><td><a class="subject" href="/board/3">가격오류 위스키 39,000원</a></td></tr>
    <tr class="deal"><td><a class="subject" href="/board/1">맥캘란 12년 99,000원</a></td></tr>
    <tr class="deal"><td><a class="subject" href="/board/2">에어팟 특가</a></td></tr>
  </table>
</body>
</html>
`

// memoryStore is an in-memory DealStore for end to end runs without Postgres
type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	byKey  map[string]*store.Deal
	order  []*store.Deal
}

var _ store.DealStore = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{byKey: make(map[string]*store.Deal)}
}

func (m *memoryStore) InsertIfAbsent(ctx context.Context, d store.NewDeal) (*store.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := d.SiteName + "|" + d.URL
	if _, ok := m.byKey[key]; ok {
		return nil, nil
	}
	m.nextID++
	deal := &store.Deal{
		ID:        m.nextID,
		SiteName:  d.SiteName,
		Title:     d.Title,
		URL:       d.URL,
		CreatedAt: time.Now(),
	}
	if d.Price != "" {
		deal.Price = &d.Price
	}
	m.byKey[key] = deal
	m.order = append(m.order, deal)
	copied := *deal
	return &copied, nil
}

func (m *memoryStore) MarkSent(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.order {
		if d.ID == id && !d.IsSent && !d.Abandoned {
			d.IsSent = true
			return nil
		}
	}
	return nil
}

func (m *memoryStore) RecordAttempt(ctx context.Context, id int64, maxAttempts int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.order {
		if d.ID == id {
			d.NotifyAttempts++
			d.Abandoned = d.NotifyAttempts >= maxAttempts
			return d.Abandoned, nil
		}
	}
	return false, nil
}

func (m *memoryStore) PendingNotifications(ctx context.Context, before time.Time, maxAttempts, limit int) ([]store.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []store.Deal
	for _, d := range m.order {
		if !d.IsSent && !d.Abandoned && d.NotifyAttempts < maxAttempts && d.CreatedAt.Before(before) {
			pending = append(pending, *d)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (m *memoryStore) LatestDeals(ctx context.Context, limit int) (*store.DealPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deals []store.Deal
	for i := len(m.order) - 1; i >= 0 && len(deals) < limit; i-- {
		deals = append(deals, *m.order[i])
	}
	return &store.DealPage{Count: len(deals), Deals: deals}, nil
}

func (m *memoryStore) snapshot() []store.Deal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Deal, 0, len(m.order))
	for _, d := range m.order {
		out = append(out, *d)
	}
	return out
}

// recordingNotifier collects every delivered notification
type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (r *recordingNotifier) Notify(ctx context.Context, deal store.Deal, tags []classify.Tag, siteLabel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, deal.Title)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.titles)
}

// unreliableCache never reports a block entry
type unreliableCache struct{}

var _ cache.CacheService = (*unreliableCache)(nil)

func (unreliableCache) Get(key string) ([]byte, error) { return nil, errors.New("cache miss") }
func (unreliableCache) Set(key string, value []byte, expiration time.Duration) error {
	return nil
}
func (unreliableCache) Delete(key string) error { return nil }

// TestPipelineEndToEnd runs the full fetch, parse, dedupe, persist and notify
// flow against a local HTTP server across two ticks
func TestPipelineEndToEnd(t *testing.T) {
	var pageMu sync.Mutex
	page := pageOne

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageMu.Lock()
		defer pageMu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	ad, err := adapter.New(adapter.SourceConfig{
		Name:    "testboard",
		Family:  adapter.FamilyDeal,
		Label:   "테스트보드",
		URL:     server.URL,
		BaseURL: server.URL,
		Selectors: adapter.Selectors{
			ListItem:    "tr.deal",
			Title:       "a.subject",
			Link:        "a.subject",
			PriceRegex:  `\d[\d,]*원`,
			ClassFilter: "notice",
		},
	})
	require.NoError(t, err)

	st := newMemoryStore()
	rec := &recordingNotifier{}
	classifier := classify.New(
		[]string{"가격오류"},
		[]string{"맥캘란", "에어팟", "위스키"},
		[]string{"품절"},
	)
	pageFetcher := fetcher.NewPageFetcher(unreliableCache{}, time.Second)

	w := worker.NewWorker(
		[]adapter.Source{{Adapter: ad, Label: "테스트보드", Interval: 300 * time.Millisecond}},
		pageFetcher,
		st,
		classifier,
		rec,
		nil,
		2,
		5*time.Second,
		5*time.Second,
		worker.RetryPolicy{
			Grace:       time.Minute,
			Interval:    time.Minute,
			MaxAttempts: 3,
			Batch:       10,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	// First tick: the notice row is filtered, the two deals are new
	assert.Eventually(t, func() bool { return rec.count() == 2 }, 3*time.Second, 20*time.Millisecond)

	pageMu.Lock()
	page = pageTwo
	pageMu.Unlock()

	// Later ticks: only the fresh row produces a notification
	assert.Eventually(t, func() bool { return rec.count() == 3 }, 3*time.Second, 20*time.Millisecond)

	// Let at least one more tick pass to prove already seen rows stay silent
	time.Sleep(700 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not shut down")
	}

	assert.Equal(t, 3, rec.count())

	deals := st.snapshot()
	require.Len(t, deals, 3)

	assert.Equal(t, "맥캘란 12년 99,000원", deals[0].Title)
	assert.Equal(t, server.URL+"/board/1", deals[0].URL)
	require.NotNil(t, deals[0].Price)
	assert.Equal(t, "99,000원", *deals[0].Price)
	assert.True(t, deals[0].IsSent)

	assert.Equal(t, "에어팟 특가", deals[1].Title)
	assert.Nil(t, deals[1].Price)

	assert.Equal(t, "가격오류 위스키 39,000원", deals[2].Title)
	assert.True(t, deals[2].IsSent)

	page1, err := st.LatestDeals(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page1.Count)
	assert.Equal(t, "가격오류 위스키 39,000원", page1.Deals[0].Title)
}
