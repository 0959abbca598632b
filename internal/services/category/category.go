package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expenso/internal/domain/models"
	"expenso/internal/lib/sl"
	"expenso/internal/storage"
)

// DefaultEmoji tags categories created implicitly by the ingestion pipeline.
const DefaultEmoji = "🏷️"

var ErrNotFound = errors.New("category not found")

// Resolver maps free-text category labels to durable records, scoped per
// user.
type Resolver struct {
	logger  *slog.Logger
	storage Storage
}

type Storage interface {
	SaveCategory(ctx context.Context, name, emoji, userID string) (*models.Category, error)
	CategoryByName(ctx context.Context, name, userID string) (*models.Category, error)
	CategoryByID(ctx context.Context, categoryID, userID string) (*models.Category, error)
	Categories(ctx context.Context, userID string) ([]models.Category, error)
	UpdateCategory(ctx context.Context, categoryID, userID string, patch models.CategoryPatch) (*models.Category, error)
	DeleteCategory(ctx context.Context, categoryID, userID string) error
}

// New returns a new instance of the Resolver.
func New(logger *slog.Logger, storage Storage) *Resolver {
	return &Resolver{
		logger:  logger,
		storage: storage,
	}
}

// GetOrCreate looks a category up by exact name for the user and creates it
// with the default emoji when absent. A concurrent insert losing the unique
// index race falls back to a refetch, so two racing calls converge on one
// record.
func (r *Resolver) GetOrCreate(ctx context.Context, name, userID string) (*models.Category, error) {
	const op = "category.GetOrCreate"
	log := r.logger.With(slog.String("op", op), slog.String("name", name))

	cat, err := r.storage.CategoryByName(ctx, name, userID)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, storage.ErrCategoryNotFound) {
		log.Error("failed to look up category", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cat, err = r.storage.SaveCategory(ctx, name, DefaultEmoji, userID)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryAlreadyExists) {
			// Lost the insert race; the winner's record is the answer.
			cat, err = r.storage.CategoryByName(ctx, name, userID)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			return cat, nil
		}
		log.Error("failed to create category", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("category created", slog.String("categoryID", cat.ID))

	return cat, nil
}

// Create makes a category with an explicit emoji; an empty emoji falls back
// to the default tag.
func (r *Resolver) Create(ctx context.Context, name, emoji, userID string) (*models.Category, error) {
	const op = "category.Create"

	if emoji == "" {
		emoji = DefaultEmoji
	}

	cat, err := r.storage.SaveCategory(ctx, name, emoji, userID)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryAlreadyExists) {
			cat, err = r.storage.CategoryByName(ctx, name, userID)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			return cat, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cat, nil
}

// ByID returns a category owned by the user.
func (r *Resolver) ByID(ctx context.Context, categoryID, userID string) (*models.Category, error) {
	const op = "category.ByID"

	cat, err := r.storage.CategoryByID(ctx, categoryID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cat, nil
}

// List returns all categories owned by the user.
func (r *Resolver) List(ctx context.Context, userID string) ([]models.Category, error) {
	const op = "category.List"

	categories, err := r.storage.Categories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categories, nil
}

// Update applies a patch to a category owned by the user.
func (r *Resolver) Update(ctx context.Context, categoryID, userID string, patch models.CategoryPatch) (*models.Category, error) {
	const op = "category.Update"

	cat, err := r.storage.UpdateCategory(ctx, categoryID, userID, patch)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cat, nil
}

// Delete removes a category owned by the user. Expenses referencing it are
// deliberately left pointing at the dead ID; reads render them without a
// category.
func (r *Resolver) Delete(ctx context.Context, categoryID, userID string) error {
	const op = "category.Delete"

	if err := r.storage.DeleteCategory(ctx, categoryID, userID); err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
