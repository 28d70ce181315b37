package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"youngcheol/moneyhunter/internal/adapter"
	"youngcheol/moneyhunter/internal/classify"
	"youngcheol/moneyhunter/logger"
	"youngcheol/moneyhunter/services/fetcher"
	"youngcheol/moneyhunter/services/notifier"
	"youngcheol/moneyhunter/services/publisher"
	"youngcheol/moneyhunter/services/store"
)

// RetryPolicy bounds the notification retry pass
type RetryPolicy struct {
	// Grace is how old an unsent deal must be before it is retried
	Grace time.Duration
	// Interval is the cadence of the retry pass
	Interval time.Duration
	// MaxAttempts is the attempt bound before a deal is abandoned
	MaxAttempts int
	// Batch is the maximum deals picked up per retry pass
	Batch int
}

// Worker drives the ingestion pipeline: each source runs its own tick loop,
// bounded by a shared semaphore so concurrent crawls never exceed the limit.
// A source can never overlap itself; its loop runs one tick at a time and a
// tick due while the previous one still runs is simply dropped.
type Worker struct {
	sources    []adapter.Source
	fetch      fetcher.Fetcher
	dealStore  store.DealStore
	classifier *classify.Classifier
	notify     notifier.Notifier
	pub        publisher.Publisher
	sem        *semaphore.Weighted
	retry      RetryPolicy

	fetchTimeout  time.Duration
	notifyTimeout time.Duration

	// source name -> notification label, for the retry pass
	labels map[string]string

	log *logger.Logger
}

// NewWorker creates a new worker. The notifier may be nil, which disables
// notification delivery and the retry pass; deals are still ingested with
// is_sent=false.
func NewWorker(
	sources []adapter.Source,
	fetch fetcher.Fetcher,
	dealStore store.DealStore,
	classifier *classify.Classifier,
	notify notifier.Notifier,
	pub publisher.Publisher,
	maxConcurrent int64,
	fetchTimeout time.Duration,
	notifyTimeout time.Duration,
	retry RetryPolicy,
) *Worker {
	labels := make(map[string]string, len(sources))
	for _, s := range sources {
		labels[s.Adapter.Name()] = s.Label
	}

	return &Worker{
		sources:       sources,
		fetch:         fetch,
		dealStore:     dealStore,
		classifier:    classifier,
		notify:        notify,
		pub:           pub,
		sem:           semaphore.NewWeighted(maxConcurrent),
		retry:         retry,
		fetchTimeout:  fetchTimeout,
		notifyTimeout: notifyTimeout,
		labels:        labels,
		log:           logger.ForWorker(),
	}
}

// Start runs all source loops and the retry pass until ctx is cancelled,
// then waits for in-flight ticks to finish
func (w *Worker) Start(ctx context.Context) {
	var wg sync.WaitGroup

	for _, src := range w.sources {
		wg.Add(1)
		go func(s adapter.Source) {
			defer wg.Done()
			w.runSource(ctx, s)
		}(src)
	}

	if w.notify != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runRetryPass(ctx)
		}()
	}

	wg.Wait()
}

// runSource runs one source's tick loop on its own interval
func (w *Worker) runSource(ctx context.Context, src adapter.Source) {
	ticker := time.NewTicker(src.Interval)
	defer ticker.Stop()

	// First tick immediately on startup
	w.runTick(ctx, src)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runTick(ctx, src)
		}
	}
}

// runTick executes one crawl tick for a source under the concurrency bound
func (w *Worker) runTick(ctx context.Context, src adapter.Source) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer w.sem.Release(1)

	sourceName := src.Adapter.Name()
	start := time.Now()

	created, err := w.crawlSource(ctx, src)
	if err != nil {
		// Tick aborted for this source only; the next scheduled tick retries
		w.log.Warn().
			Str("source", sourceName).
			Err(err).
			Msg("Crawl tick aborted")
		return
	}

	// Keep the dashboard streams at their configured length
	if created > 0 && w.pub != nil {
		if err := w.pub.TrimStreams(); err != nil {
			w.log.Error().Err(err).Msg("Failed to trim streams")
		}
	}

	w.log.Info().
		Str("source", sourceName).
		Int("new_deals", created).
		Dur("elapsed", time.Since(start)).
		Msg("Crawl tick finished")
}

// crawlSource performs fetch, parse, filter, classify, persist and notify for
// one source and returns the number of newly created deals
func (w *Worker) crawlSource(ctx context.Context, src adapter.Source) (int, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()

	body, err := w.fetch.Fetch(fetchCtx, src.Adapter.Name(), src.Adapter.ListingURL())
	if err != nil {
		return 0, err
	}

	listings, err := src.Adapter.Parse(body)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, listing := range listings {
		if ctx.Err() != nil {
			break
		}

		if w.classifier.Banned(listing.Title) {
			w.log.Debug().
				Str("source", listing.SourceName).
				Str("title", listing.Title).
				Msg("Skipping banned listing")
			continue
		}

		deal, err := w.dealStore.InsertIfAbsent(ctx, store.NewDeal{
			SiteName: listing.SourceName,
			Title:    listing.Title,
			URL:      listing.URL,
			Price:    listing.Price,
		})
		if err != nil {
			// Persist failure for one listing does not abort the rest of the page
			w.log.Error().
				Str("source", listing.SourceName).
				Str("url", listing.URL).
				Err(err).
				Msg("Failed to persist deal")
			continue
		}
		if deal == nil {
			// Already seen, or another tick won the insert race
			continue
		}

		created++
		w.publishDeal(*deal)
		w.notifyDeal(ctx, *deal, src.Label)
	}

	return created, nil
}

// publishDeal feeds a new deal to the dashboard stream, best effort
func (w *Worker) publishDeal(deal store.Deal) {
	if w.pub == nil {
		return
	}

	payload, err := json.Marshal(deal)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to encode deal for publishing")
		return
	}

	if err := w.pub.Publish(deal.SiteName, payload); err != nil {
		w.log.Error().
			Str("source", deal.SiteName).
			Err(err).
			Msg("Failed to publish deal to stream")
	}
}

// notifyDeal delivers one notification and records the outcome. Delivery
// failure leaves the row unsent for the retry pass.
func (w *Worker) notifyDeal(ctx context.Context, deal store.Deal, label string) {
	if w.notify == nil {
		return
	}

	tags := w.classifier.Classify(deal.Title)

	notifyCtx, cancel := context.WithTimeout(ctx, w.notifyTimeout)
	defer cancel()

	if err := w.notify.Notify(notifyCtx, deal, tags, label); err != nil {
		abandoned, recErr := w.dealStore.RecordAttempt(ctx, deal.ID, w.retry.MaxAttempts)
		if recErr != nil {
			w.log.Error().Int64("deal_id", deal.ID).Err(recErr).Msg("Failed to record notify attempt")
		}
		w.log.Warn().
			Int64("deal_id", deal.ID).
			Str("source", deal.SiteName).
			Bool("abandoned", abandoned).
			Err(err).
			Msg("Notification failed")
		return
	}

	if err := w.dealStore.MarkSent(ctx, deal.ID); err != nil {
		w.log.Error().Int64("deal_id", deal.ID).Err(err).Msg("Failed to mark deal as sent")
	}
}

// runRetryPass periodically re-attempts delivery for unsent deals past the
// grace period
func (w *Worker) runRetryPass(ctx context.Context) {
	ticker := time.NewTicker(w.retry.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.retryPending(ctx)
		}
	}
}

// retryPending delivers pending notifications, oldest first
func (w *Worker) retryPending(ctx context.Context) {
	before := time.Now().Add(-w.retry.Grace)
	pending, err := w.dealStore.PendingNotifications(ctx, before, w.retry.MaxAttempts, w.retry.Batch)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to query pending notifications")
		return
	}
	if len(pending) == 0 {
		return
	}

	w.log.Info().Int("pending", len(pending)).Msg("Retrying unsent notifications")

	for _, deal := range pending {
		if ctx.Err() != nil {
			return
		}

		label := w.labels[deal.SiteName]
		if label == "" {
			label = deal.SiteName
		}
		w.notifyDeal(ctx, deal, label)
	}
}
