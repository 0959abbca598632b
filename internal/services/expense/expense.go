package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expenso/internal/domain/models"
	"expenso/internal/lib/aijson"
	"expenso/internal/lib/sl"
	"expenso/internal/storage"
)

var (
	ErrInvalidAIResponse = errors.New("invalid or incomplete AI response")
	ErrNotFound          = errors.New("expense not found")
)

const parsePromptTemplate = `Extract the following details from the expense description:
- amount (number)
- currency (ISO code, e.g., USD (US Dollar), THB (Thai Baht), LAK (Laos Kip))
- title (short description)
- category (one word category, e.g., Food, Transport, Entertainment)

Input: %q

Output JSON format:
{
  "amount": number,
  "currency": "string",
  "title": "string",
  "category": "string"
}

Return ONLY valid JSON.`

// Service runs the expense ingestion pipeline: model parse, category
// resolution, rate conversion, persistence. A record is only written after
// every upstream step succeeds, so a failed request leaves no partial
// expense behind.
type Service struct {
	logger          *slog.Logger
	generator       TextGenerator
	categories      CategoryResolver
	converter       Converter
	storage         Storage
	defaultCurrency string
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type CategoryResolver interface {
	GetOrCreate(ctx context.Context, name, userID string) (*models.Category, error)
	ByID(ctx context.Context, categoryID, userID string) (*models.Category, error)
}

type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

type Storage interface {
	SaveExpense(ctx context.Context, expense *models.Expense) (string, error)
	ExpenseByID(ctx context.Context, expenseID string) (*models.Expense, error)
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, expenseID string) (*models.Expense, error)
	ExpensesByUser(ctx context.Context, userID string) ([]models.Expense, error)
}

// New returns a new instance of the Service.
func New(
	logger *slog.Logger,
	generator TextGenerator,
	categories CategoryResolver,
	converter Converter,
	storage Storage,
	defaultCurrency string,
) *Service {
	return &Service{
		logger:          logger,
		generator:       generator,
		categories:      categories,
		converter:       converter,
		storage:         storage,
		defaultCurrency: defaultCurrency,
	}
}

// aiExpense is the JSON shape the model is asked to produce.
type aiExpense struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
}

func (e aiExpense) complete() bool {
	return e.Amount != 0 && e.Currency != "" && e.Title != "" && e.Category != ""
}

// Add parses a free-text description through the model and persists the
// resulting expense. The model call is never retried; a parse failure and a
// response with missing fields are treated identically.
func (s *Service) Add(ctx context.Context, userDescription, userID string) (*models.Expense, error) {
	const op = "expense.Add"
	log := s.logger.With(slog.String("op", op), slog.String("userID", userID))
	log.Info("add expense request")

	raw, err := s.generator.Generate(ctx, fmt.Sprintf(parsePromptTemplate, userDescription))
	if err != nil {
		log.Error("model call failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var parsed aiExpense
	if !aijson.Extract(raw, &parsed) || !parsed.complete() {
		log.Warn("unusable model response", slog.String("raw", raw))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAIResponse)
	}

	log.Info("model response parsed",
		slog.Float64("amount", parsed.Amount),
		slog.String("currency", parsed.Currency),
		slog.String("category", parsed.Category),
	)

	cat, err := s.categories.GetOrCreate(ctx, parsed.Category, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	converted, err := s.converter.Convert(ctx, parsed.Amount, parsed.Currency, s.defaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	expense := &models.Expense{
		UserDescription:       userDescription,
		Title:                 parsed.Title,
		Amount:                parsed.Amount,
		Currency:              parsed.Currency,
		CategoryID:            cat.ID,
		UserID:                userID,
		DefaultCurrencyAmount: converted,
		DefaultCurrency:       s.defaultCurrency,
		CreatedAt:             time.Now(),
	}

	id, err := s.storage.SaveExpense(ctx, expense)
	if err != nil {
		log.Error("failed to save expense", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	expense.ID = id
	expense.Category = cat

	log.Info("expense added", slog.String("expenseID", id))

	return expense, nil
}

// AddManual persists an expense without the model step. A zero createdAt
// defaults to now; a past value backdates the record.
func (s *Service) AddManual(
	ctx context.Context,
	title string,
	amount float64,
	currency string,
	categoryID string,
	userID string,
	createdAt time.Time,
) (*models.Expense, error) {
	const op = "expense.AddManual"
	log := s.logger.With(slog.String("op", op), slog.String("userID", userID))

	converted, err := s.converter.Convert(ctx, amount, currency, s.defaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	expense := &models.Expense{
		UserDescription:       title,
		Title:                 title,
		Amount:                amount,
		Currency:              currency,
		CategoryID:            categoryID,
		UserID:                userID,
		DefaultCurrencyAmount: converted,
		DefaultCurrency:       s.defaultCurrency,
		CreatedAt:             createdAt,
	}

	id, err := s.storage.SaveExpense(ctx, expense)
	if err != nil {
		log.Error("failed to save expense", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	expense.ID = id
	expense.Category = s.lookupCategory(ctx, categoryID, userID)

	log.Info("manual expense added", slog.String("expenseID", id))

	return expense, nil
}

// Edit applies a patch to an expense. The converted amount is recomputed
// only when the patch actually changes amount or currency; edits to other
// fields leave it untouched to avoid needless provider calls and rate drift.
func (s *Service) Edit(ctx context.Context, expenseID string, patch models.ExpensePatch) (*models.Expense, error) {
	const op = "expense.Edit"
	log := s.logger.With(slog.String("op", op), slog.String("expenseID", expenseID))

	expense, err := s.storage.ExpenseByID(ctx, expenseID)
	if err != nil {
		if errors.Is(err, storage.ErrExpenseNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	newAmount := expense.Amount
	if patch.Amount != nil {
		newAmount = *patch.Amount
	}
	newCurrency := expense.Currency
	if patch.Currency != nil {
		newCurrency = *patch.Currency
	}

	if newAmount != expense.Amount || newCurrency != expense.Currency {
		converted, err := s.converter.Convert(ctx, newAmount, newCurrency, expense.DefaultCurrency)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		expense.DefaultCurrencyAmount = converted
	}

	expense.Amount = newAmount
	expense.Currency = newCurrency
	if patch.Title != nil {
		expense.Title = *patch.Title
	}
	if patch.CategoryID != nil {
		expense.CategoryID = *patch.CategoryID
	}

	if err := s.storage.UpdateExpense(ctx, expense); err != nil {
		log.Error("failed to update expense", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	expense.Category = s.lookupCategory(ctx, expense.CategoryID, expense.UserID)

	log.Info("expense updated")

	return expense, nil
}

// Delete removes an expense and returns the deleted record.
func (s *Service) Delete(ctx context.Context, expenseID string) (*models.Expense, error) {
	const op = "expense.Delete"

	expense, err := s.storage.DeleteExpense(ctx, expenseID)
	if err != nil {
		if errors.Is(err, storage.ErrExpenseNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return expense, nil
}

// List returns the user's expenses newest first with categories populated.
func (s *Service) List(ctx context.Context, userID string) ([]models.Expense, error) {
	const op = "expense.List"

	expenses, err := s.storage.ExpensesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return expenses, nil
}

// lookupCategory resolves a category for display; a dangling or empty
// reference renders as no category rather than failing the operation.
func (s *Service) lookupCategory(ctx context.Context, categoryID, userID string) *models.Category {
	if categoryID == "" {
		return nil
	}
	cat, err := s.categories.ByID(ctx, categoryID, userID)
	if err != nil {
		return nil
	}
	return cat
}
