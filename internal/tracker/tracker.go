package tracker

import (
	"context"
	"fmt"
	"time"

	"pricewatch/internal/database"
	"pricewatch/internal/models"
	"pricewatch/internal/notifier"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Snapshotter produces the current snapshot of a product page
type Snapshotter interface {
	Snapshot(ctx context.Context, url string) (*models.ProductSnapshot, error)
}

// Tracker exposes the operations the web front-end calls: registering a
// product and submitting the stopping criterion.
type Tracker struct {
	store         database.Store
	scraper       Snapshotter
	notif         notifier.Notifier
	countryPrefix string
	fetchTimeout  time.Duration
	log           zerolog.Logger
}

// New creates a tracker. countryPrefix is prepended to bare-digit phone input.
func New(store database.Store, scraper Snapshotter, notif notifier.Notifier, countryPrefix string, fetchTimeout time.Duration, log zerolog.Logger) *Tracker {
	return &Tracker{
		store:         store,
		scraper:       scraper,
		notif:         notif,
		countryPrefix: countryPrefix,
		fetchTimeout:  fetchTimeout,
		log:           log,
	}
}

// RegisterProduct performs the initial fetch and extraction for url and
// creates a watch in PENDING_CRITERIA state. Returns the new watch id.
func (t *Tracker) RegisterProduct(ctx context.Context, ownerName, contact, url string) (int64, error) {
	normalized, err := notifier.NormalizeContact(contact, t.countryPrefix)
	if err != nil {
		return 0, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
	defer cancel()

	snap, err := t.scraper.Snapshot(fetchCtx, url)
	if err != nil {
		return 0, fmt.Errorf("registering %s: %w", url, err)
	}

	w := &models.Watch{
		OwnerName:      ownerName,
		OwnerContact:   normalized,
		ProductURL:     url,
		ProductName:    snap.Name,
		LastKnownPrice: snap.Price,
	}
	id, err := t.store.Create(ctx, w)
	if err != nil {
		return 0, err
	}

	t.log.Info().Int64("watch", id).Str("product", snap.Name).Str("price", snap.Price.String()).Msg("product registered")
	return id, nil
}

// SubmitCriteria stores the stopping criterion for a watch and sends the
// confirmation text. Validation errors come back from the store untouched;
// a failed confirmation send is logged but does not fail the submission.
func (t *Tracker) SubmitCriteria(ctx context.Context, id int64, target *decimal.Decimal, anySale bool) error {
	if err := t.store.SetCriteria(ctx, id, target, anySale); err != nil {
		return err
	}

	w, err := t.store.Get(ctx, id)
	if err != nil {
		t.log.Warn().Err(err).Int64("watch", id).Msg("loading watch for confirmation text failed")
		return nil
	}

	if err := t.notif.Send(ctx, w.OwnerContact, confirmationMessage(w)); err != nil {
		t.log.Warn().Err(err).Int64("watch", id).Msg("confirmation text failed")
	}
	return nil
}

func confirmationMessage(w *models.Watch) string {
	if w.HasTargetPrice {
		return fmt.Sprintf(
			"Hey %s! We'll make sure to text you when %s is below your desired price of $%s. Stay tuned!",
			w.OwnerName, w.ProductName, w.TargetPrice.StringFixed(2),
		)
	}
	return fmt.Sprintf(
		"Hey %s! We'll make sure to text you when %s goes on sale. Stay tuned!",
		w.OwnerName, w.ProductName,
	)
}
