package category

import (
	"context"
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

type fakeCategoryStorage struct {
	categories map[string]*models.Category // keyed by userID+"/"+name
	nextID     int
}

func newFakeCategoryStorage() *fakeCategoryStorage {
	return &fakeCategoryStorage{categories: make(map[string]*models.Category)}
}

func key(userID, name string) string { return userID + "/" + name }

func (f *fakeCategoryStorage) SaveCategory(_ context.Context, name, emoji, userID string) (*models.Category, error) {
	if _, ok := f.categories[key(userID, name)]; ok {
		return nil, storage.ErrCategoryAlreadyExists
	}

	f.nextID++
	cat := &models.Category{
		ID:        fmt.Sprintf("cat-%d", f.nextID),
		Name:      name,
		Emoji:     emoji,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	f.categories[key(userID, name)] = cat

	return cat, nil
}

func (f *fakeCategoryStorage) CategoryByName(_ context.Context, name, userID string) (*models.Category, error) {
	cat, ok := f.categories[key(userID, name)]
	if !ok {
		return nil, storage.ErrCategoryNotFound
	}

	return cat, nil
}

func (f *fakeCategoryStorage) CategoryByID(_ context.Context, categoryID, userID string) (*models.Category, error) {
	for _, cat := range f.categories {
		if cat.ID == categoryID && cat.UserID == userID {
			return cat, nil
		}
	}

	return nil, storage.ErrCategoryNotFound
}

func (f *fakeCategoryStorage) Categories(_ context.Context, userID string) ([]models.Category, error) {
	var out []models.Category
	for _, cat := range f.categories {
		if cat.UserID == userID {
			out = append(out, *cat)
		}
	}

	return out, nil
}

func (f *fakeCategoryStorage) UpdateCategory(_ context.Context, categoryID, userID string, patch models.CategoryPatch) (*models.Category, error) {
	for k, cat := range f.categories {
		if cat.ID != categoryID || cat.UserID != userID {
			continue
		}
		if patch.Name != nil {
			delete(f.categories, k)
			cat.Name = *patch.Name
			f.categories[key(userID, cat.Name)] = cat
		}
		if patch.Emoji != nil {
			cat.Emoji = *patch.Emoji
		}
		return cat, nil
	}

	return nil, storage.ErrCategoryNotFound
}

func (f *fakeCategoryStorage) DeleteCategory(_ context.Context, categoryID, userID string) error {
	for k, cat := range f.categories {
		if cat.ID == categoryID && cat.UserID == userID {
			delete(f.categories, k)
			return nil
		}
	}

	return storage.ErrCategoryNotFound
}

// racingStorage simulates losing the insert race: the first lookup misses,
// the insert hits the unique index, and the refetch finds the winner's
// record.
type racingStorage struct {
	*fakeCategoryStorage
	winner      *models.Category
	firstLookup bool
}

func (r *racingStorage) CategoryByName(ctx context.Context, name, userID string) (*models.Category, error) {
	if !r.firstLookup {
		r.firstLookup = true
		return nil, storage.ErrCategoryNotFound
	}

	return r.winner, nil
}

func (r *racingStorage) SaveCategory(_ context.Context, name, emoji, userID string) (*models.Category, error) {
	return nil, storage.ErrCategoryAlreadyExists
}

func newTestResolver() (*Resolver, *fakeCategoryStorage) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newFakeCategoryStorage()

	return New(logger, store), store
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResolver()

	first, err := r.GetOrCreate(ctx, "Food", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Food", first.Name)
	assert.Equal(t, DefaultEmoji, first.Emoji)

	second, err := r.GetOrCreate(ctx, "Food", "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreate_ScopedPerUser(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResolver()

	mine, err := r.GetOrCreate(ctx, "Food", "user-1")
	require.NoError(t, err)

	theirs, err := r.GetOrCreate(ctx, "Food", "user-2")
	require.NoError(t, err)

	assert.NotEqual(t, mine.ID, theirs.ID)
}

func TestGetOrCreate_LostRaceRefetches(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	winner := &models.Category{ID: "cat-winner", Name: "Food", Emoji: DefaultEmoji, UserID: "user-1"}
	store := &racingStorage{fakeCategoryStorage: newFakeCategoryStorage(), winner: winner}
	r := New(logger, store)

	cat, err := r.GetOrCreate(ctx, "Food", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "cat-winner", cat.ID)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResolver()

	cat, err := r.Create(ctx, "Travel", "✈️", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "✈️", cat.Emoji)

	// Empty emoji falls back to the default tag.
	cat, err = r.Create(ctx, "Misc", "", "user-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultEmoji, cat.Emoji)

	// Creating an existing name returns the existing record.
	again, err := r.Create(ctx, "Travel", "🚀", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "✈️", again.Emoji)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResolver()

	_, err := r.Create(ctx, "Food", "", "user-1")
	require.NoError(t, err)
	_, err = r.Create(ctx, "Travel", "", "user-1")
	require.NoError(t, err)
	_, err = r.Create(ctx, "Food", "", "user-2")
	require.NoError(t, err)

	list, err := r.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResolver()

	cat, err := r.Create(ctx, "Food", "", "user-1")
	require.NoError(t, err)

	name := "Groceries"
	emoji := "🛒"
	updated, err := r.Update(ctx, cat.ID, "user-1", models.CategoryPatch{Name: &name, Emoji: &emoji})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", updated.Name)
	assert.Equal(t, "🛒", updated.Emoji)

	_, err = r.Update(ctx, "cat-missing", "user-1", models.CategoryPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)

	// Another user cannot touch the record.
	_, err = r.Update(ctx, cat.ID, "user-2", models.CategoryPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResolver()

	cat, err := r.Create(ctx, "Food", "", "user-1")
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, cat.ID, "user-1"))

	_, err = r.ByID(ctx, cat.ID, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, r.Delete(ctx, cat.ID, "user-1"), ErrNotFound)
}
