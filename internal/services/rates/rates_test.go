package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"expenso/internal/domain/models"
	"expenso/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRates = map[string]float64{
	"USD": 1,
	"EUR": 0.9,
	"RUB": 90,
	"GBP": 0.8,
}

type fakeProvider struct {
	rates map[string]float64
	calls int
	err   error
}

func (f *fakeProvider) LatestRates(_ context.Context) (map[string]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

type fakeSnapshotStorage struct {
	snapshots []*models.RateSnapshot
}

func (f *fakeSnapshotStorage) SaveRateSnapshot(_ context.Context, rates map[string]float64) (*models.RateSnapshot, error) {
	snap := &models.RateSnapshot{
		ID:        fmt.Sprintf("snap-%d", len(f.snapshots)+1),
		Rates:     rates,
		CreatedAt: time.Now(),
	}
	f.snapshots = append(f.snapshots, snap)

	return snap, nil
}

func (f *fakeSnapshotStorage) LatestRateSnapshot(_ context.Context) (*models.RateSnapshot, error) {
	if len(f.snapshots) == 0 {
		return nil, storage.ErrRateNotFound
	}

	return f.snapshots[len(f.snapshots)-1], nil
}

func newTestCache(ttl time.Duration) (*Cache, *fakeProvider, *fakeSnapshotStorage) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := &fakeProvider{rates: testRates}
	store := &fakeSnapshotStorage{}

	return New(logger, provider, store, ttl), provider, store
}

func TestLatest_ColdCacheFetchesOnce(t *testing.T) {
	ctx := context.Background()
	cache, provider, store := newTestCache(72 * time.Hour)

	snap, err := cache.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, testRates, snap.Rates)
	assert.Equal(t, 1, provider.calls)
	require.Len(t, store.snapshots, 1)

	// Second call within the ttl is served from the snapshot.
	_, err = cache.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
}

func TestLatest_StaleSnapshotIsRefreshed(t *testing.T) {
	ctx := context.Background()
	cache, provider, store := newTestCache(72 * time.Hour)

	stale := &models.RateSnapshot{
		ID:        "snap-stale",
		Rates:     map[string]float64{"USD": 1},
		CreatedAt: time.Now().Add(-73 * time.Hour),
	}
	store.snapshots = append(store.snapshots, stale)

	snap, err := cache.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, testRates, snap.Rates)

	// History is append-only: the stale snapshot is kept.
	require.Len(t, store.snapshots, 2)
	assert.Equal(t, "snap-stale", store.snapshots[0].ID)
}

func TestLatest_ProviderFailure(t *testing.T) {
	ctx := context.Background()
	cache, provider, store := newTestCache(72 * time.Hour)

	provider.err = errors.New("provider is down")

	_, err := cache.Latest(ctx)
	require.Error(t, err)
	assert.Empty(t, store.snapshots)
}

func TestConvert_SameCurrency(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(72 * time.Hour)

	got, err := cache.Convert(ctx, 42.5, "EUR", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 42.5, got)
}

func TestConvert_CrossRate(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(72 * time.Hour)

	got, err := cache.Convert(ctx, 100, "EUR", "RUB")
	require.NoError(t, err)
	assert.Equal(t, 100/0.9*90, got)

	got, err = cache.Convert(ctx, 12.5, "USD", "GBP")
	require.NoError(t, err)
	assert.Equal(t, 12.5/1*0.8, got)
}

func TestConvert_UnknownCurrency(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(72 * time.Hour)

	_, err := cache.Convert(ctx, 10, "XXX", "USD")
	assert.ErrorIs(t, err, ErrUnknownCurrency)

	_, err = cache.Convert(ctx, 10, "USD", "XXX")
	assert.ErrorIs(t, err, ErrUnknownCurrency)
}
