// Package api is the JSON/HTTP surface of the service. Handlers receive
// already-bound input, delegate to the services and map error kinds to
// transport status codes; no business rules live here.
package api

import (
	"context"
	"time"

	"expenso/internal/domain/models"
)

type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.User, *models.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.User, *models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Revoke(ctx context.Context, userID string) error
	ValidateAccessToken(token string) (string, error)
}

type ExpenseService interface {
	Add(ctx context.Context, userDescription, userID string) (*models.Expense, error)
	AddManual(ctx context.Context, title string, amount float64, currency, categoryID, userID string, createdAt time.Time) (*models.Expense, error)
	Edit(ctx context.Context, expenseID string, patch models.ExpensePatch) (*models.Expense, error)
	Delete(ctx context.Context, expenseID string) (*models.Expense, error)
	List(ctx context.Context, userID string) ([]models.Expense, error)
}

type CategoryService interface {
	Create(ctx context.Context, name, emoji, userID string) (*models.Category, error)
	List(ctx context.Context, userID string) ([]models.Category, error)
	Update(ctx context.Context, categoryID, userID string, patch models.CategoryPatch) (*models.Category, error)
	Delete(ctx context.Context, categoryID, userID string) error
}
