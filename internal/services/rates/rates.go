package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expenso/internal/domain/models"
	"expenso/internal/lib/sl"
	"expenso/internal/storage"
)

var ErrUnknownCurrency = errors.New("unknown currency code")

// Cache answers conversion queries against a time-bounded snapshot of
// USD-relative rates. Staleness is checked synchronously on each call
// (cache-aside); a cold or expired cache pays the provider round trip on
// the calling request. Snapshot history is append-only.
type Cache struct {
	logger   *slog.Logger
	provider Provider
	storage  SnapshotStorage
	ttl      time.Duration
}

type Provider interface {
	LatestRates(ctx context.Context) (map[string]float64, error)
}

type SnapshotStorage interface {
	SaveRateSnapshot(ctx context.Context, rates map[string]float64) (*models.RateSnapshot, error)
	LatestRateSnapshot(ctx context.Context) (*models.RateSnapshot, error)
}

// New returns a new instance of the Cache. ttl is how long a snapshot is
// treated as fresh.
func New(logger *slog.Logger, provider Provider, storage SnapshotStorage, ttl time.Duration) *Cache {
	return &Cache{
		logger:   logger,
		provider: provider,
		storage:  storage,
		ttl:      ttl,
	}
}

// Latest returns the most recent snapshot, fetching and persisting a new one
// when none exists or the newest is older than the ttl.
func (c *Cache) Latest(ctx context.Context) (*models.RateSnapshot, error) {
	const op = "rates.Latest"
	log := c.logger.With(slog.String("op", op))

	snap, err := c.storage.LatestRateSnapshot(ctx)
	if err != nil && !errors.Is(err, storage.ErrRateNotFound) {
		log.Error("failed to load rate snapshot", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if snap != nil && time.Since(snap.CreatedAt) < c.ttl {
		return snap, nil
	}

	rates, err := c.provider.LatestRates(ctx)
	if err != nil {
		log.Error("failed to fetch rates from provider", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	snap, err = c.storage.SaveRateSnapshot(ctx, rates)
	if err != nil {
		log.Error("failed to persist rate snapshot", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("rate snapshot refreshed", slog.Int("currencies", len(snap.Rates)))

	return snap, nil
}

// Convert converts an amount between currencies through the USD-relative
// snapshot. The cross-rate is computed as amount / rate[from] * rate[to];
// the order is deliberate and must not be "simplified".
func (c *Cache) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	const op = "rates.Convert"

	snap, err := c.Latest(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	fromRate, ok := snap.Rates[from]
	if !ok {
		return 0, fmt.Errorf("%s: %w: %s", op, ErrUnknownCurrency, from)
	}
	toRate, ok := snap.Rates[to]
	if !ok {
		return 0, fmt.Errorf("%s: %w: %s", op, ErrUnknownCurrency, to)
	}

	return amount / fromRate * toRate, nil
}
