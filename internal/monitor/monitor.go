package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pricewatch/internal/database"
	"pricewatch/internal/models"
	"pricewatch/internal/notifier"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Snapshotter produces the current snapshot of a product page
type Snapshotter interface {
	Snapshot(ctx context.Context, url string) (*models.ProductSnapshot, error)
}

// PassStats summarizes one reconciliation pass
type PassStats struct {
	Processed int
	Notified  int
	Failed    int
}

// Options tune the reconciliation cadence and per-unit bounds
type Options struct {
	Interval     time.Duration
	Workers      int
	FetchTimeout time.Duration
	SendTimeout  time.Duration
}

// Monitor runs periodic reconciliation passes over all active watches
type Monitor struct {
	store   database.Store
	scraper Snapshotter
	notif   notifier.Notifier
	opts    Options
	log     zerolog.Logger
}

// New creates a monitor
func New(store database.Store, scraper Snapshotter, notif notifier.Notifier, opts Options, log zerolog.Logger) *Monitor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Monitor{
		store:   store,
		scraper: scraper,
		notif:   notif,
		opts:    opts,
		log:     log,
	}
}

// Start runs a pass immediately and then on every tick until ctx is canceled
func (m *Monitor) Start(ctx context.Context) {
	m.log.Info().Dur("interval", m.opts.Interval).Msg("monitor started")

	m.RunPass(ctx)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("monitor stopped")
			return
		case <-ticker.C:
			m.RunPass(ctx)
		}
	}
}

// RunPass reconciles every active watch once. Watches are independent units:
// a failure on one never aborts the pass, and units run on a bounded worker
// pool since each touches a disjoint record.
func (m *Monitor) RunPass(ctx context.Context) PassStats {
	var stats PassStats

	watches, err := m.store.ListActive(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("listing active watches failed")
		return stats
	}
	if len(watches) == 0 {
		return stats
	}

	var mu sync.Mutex
	g := &errgroup.Group{}
	g.SetLimit(m.opts.Workers)

	for _, w := range watches {
		w := w
		g.Go(func() error {
			notified, failed := m.checkWatch(ctx, &w)
			mu.Lock()
			stats.Processed++
			if notified {
				stats.Notified++
			}
			if failed {
				stats.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	m.log.Info().
		Int("processed", stats.Processed).
		Int("notified", stats.Notified).
		Int("failed", stats.Failed).
		Msg("reconciliation pass complete")
	return stats
}

// checkWatch reconciles a single watch against the current page state
func (m *Monitor) checkWatch(ctx context.Context, w *models.Watch) (notified, failed bool) {
	// Pass aborted; leave the watch untouched for the next run
	if ctx.Err() != nil {
		return false, false
	}

	fetchCtx, cancel := context.WithTimeout(ctx, m.opts.FetchTimeout)
	defer cancel()

	snap, err := m.scraper.Snapshot(fetchCtx, w.ProductURL)
	if err != nil {
		m.log.Warn().Err(err).Int64("watch", w.ID).Str("url", w.ProductURL).Msg("snapshot failed")
		return false, true
	}

	if !m.due(w, snap) {
		if err := m.store.UpdatePrice(ctx, w.ID, snap.Price); err != nil {
			m.log.Error().Err(err).Int64("watch", w.ID).Msg("price update failed")
			return false, true
		}
		return false, false
	}

	// At most one notification per watch per pass, even when both criteria hold
	sendCtx, cancel := context.WithTimeout(ctx, m.opts.SendTimeout)
	defer cancel()

	if err := m.notif.Send(sendCtx, w.OwnerContact, buildMessage(w, snap)); err != nil {
		// The watch stays ACTIVE so the next pass retries the send
		m.log.Warn().Err(err).Int64("watch", w.ID).Msg("notification send failed")
		return false, true
	}

	if err := m.store.MarkFulfilled(ctx, w.ID); err != nil {
		m.log.Error().Err(err).Int64("watch", w.ID).Msg("marking watch fulfilled failed")
		return true, true
	}

	m.log.Info().Int64("watch", w.ID).Str("product", w.ProductName).Msg("notification sent")
	return true, false
}

// due decides whether the watch's stopping criterion is satisfied by snap
func (m *Monitor) due(w *models.Watch, snap *models.ProductSnapshot) bool {
	if w.NotifyOnAnySale && snap.Price.LessThan(w.LastKnownPrice) {
		return true
	}
	return w.HasTargetPrice && snap.Price.LessThanOrEqual(w.TargetPrice)
}

// buildMessage renders the notification text. The target-price wording wins
// when both criteria are satisfied.
func buildMessage(w *models.Watch, snap *models.ProductSnapshot) string {
	if w.HasTargetPrice && snap.Price.LessThanOrEqual(w.TargetPrice) {
		return fmt.Sprintf(
			"Hi %s! %s is now below your desired price of $%s! Check it out here: %s",
			w.OwnerName, w.ProductName, w.TargetPrice.StringFixed(2), w.ProductURL,
		)
	}
	return fmt.Sprintf(
		"Hi %s! %s just dropped from $%s to $%s! Check it out here: %s",
		w.OwnerName, w.ProductName, w.LastKnownPrice.StringFixed(2), snap.Price.StringFixed(2), w.ProductURL,
	)
}
