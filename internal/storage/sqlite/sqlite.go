package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"expenso/internal/domain/models"
	"expenso/internal/storage"

	"github.com/mattn/go-sqlite3"
	_ "github.com/mattn/go-sqlite3"
)

// Storage is the relational alternative to the MongoDB backend. Rate maps
// are stored as JSON text; IDs are integer keys rendered as strings.
type Storage struct {
	db *sql.DB
}

// New returns a new instance of the Storage. The schema is managed by the
// migrator, not created here.
func New(storagePath string) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) SaveUser(ctx context.Context, email string, passHash []byte) (string, error) {
	const op = "storage.sqlite.SaveUser"

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, pass_hash, created_at) VALUES (?, ?, ?)",
		email, passHash, time.Now(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return "", fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return strconv.FormatInt(id, 10), nil
}

func (s *Storage) User(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.sqlite.User"

	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, pass_hash, created_at FROM users WHERE email = ?", email)

	return scanUser(row, op)
}

func (s *Storage) UserByID(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.sqlite.UserByID"

	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, pass_hash, created_at FROM users WHERE id = ?", id)

	return scanUser(row, op)
}

func scanUser(row *sql.Row, op string) (*models.User, error) {
	var (
		id   int64
		user models.User
	)
	err := row.Scan(&id, &user.Email, &user.PassHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.ID = strconv.FormatInt(id, 10)

	return &user, nil
}

func (s *Storage) SaveRefreshToken(ctx context.Context, token, userID string, expiresAt time.Time) error {
	const op = "storage.sqlite.SaveRefreshToken"

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) RefreshToken(ctx context.Context, token, userID string) (*models.RefreshToken, error) {
	const op = "storage.sqlite.RefreshToken"

	row := s.db.QueryRowContext(ctx,
		"SELECT token, user_id, expires_at, created_at FROM refresh_tokens WHERE token = ? AND user_id = ?",
		token, userID)

	var rec models.RefreshToken
	err := row.Scan(&rec.Token, &rec.UserID, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrTokenNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &rec, nil
}

func (s *Storage) DeleteRefreshToken(ctx context.Context, token string) error {
	const op = "storage.sqlite.DeleteRefreshToken"

	_, err := s.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token = ?", token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	const op = "storage.sqlite.DeleteUserRefreshTokens"

	_, err := s.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) SaveCategory(ctx context.Context, name, emoji, userID string) (*models.Category, error) {
	const op = "storage.sqlite.SaveCategory"

	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (name, emoji, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		name, emoji, userID, now, now,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrCategoryAlreadyExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Category{
		ID:        strconv.FormatInt(id, 10),
		Name:      name,
		Emoji:     emoji,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Storage) CategoryByName(ctx context.Context, name, userID string) (*models.Category, error) {
	const op = "storage.sqlite.CategoryByName"

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, emoji, user_id, created_at, updated_at FROM categories WHERE name = ? AND user_id = ?",
		name, userID)

	return scanCategory(row, op)
}

func (s *Storage) CategoryByID(ctx context.Context, categoryID, userID string) (*models.Category, error) {
	const op = "storage.sqlite.CategoryByID"

	id, err := strconv.ParseInt(categoryID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, emoji, user_id, created_at, updated_at FROM categories WHERE id = ? AND user_id = ?",
		id, userID)

	return scanCategory(row, op)
}

func scanCategory(row *sql.Row, op string) (*models.Category, error) {
	var (
		id  int64
		cat models.Category
	)
	err := row.Scan(&id, &cat.Name, &cat.Emoji, &cat.UserID, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cat.ID = strconv.FormatInt(id, 10)

	return &cat, nil
}

func (s *Storage) Categories(ctx context.Context, userID string) ([]models.Category, error) {
	const op = "storage.sqlite.Categories"

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, emoji, user_id, created_at, updated_at FROM categories WHERE user_id = ?",
		userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var (
			id  int64
			cat models.Category
		)
		if err := rows.Scan(&id, &cat.Name, &cat.Emoji, &cat.UserID, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		cat.ID = strconv.FormatInt(id, 10)
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categories, nil
}

func (s *Storage) UpdateCategory(ctx context.Context, categoryID, userID string, patch models.CategoryPatch) (*models.Category, error) {
	const op = "storage.sqlite.UpdateCategory"

	current, err := s.CategoryByID(ctx, categoryID, userID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		current.Name = *patch.Name
	}
	if patch.Emoji != nil {
		current.Emoji = *patch.Emoji
	}
	current.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx,
		"UPDATE categories SET name = ?, emoji = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		current.Name, current.Emoji, current.UpdatedAt, categoryID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return current, nil
}

func (s *Storage) DeleteCategory(ctx context.Context, categoryID, userID string) error {
	const op = "storage.sqlite.DeleteCategory"

	id, err := strconv.ParseInt(categoryID, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
	}

	return nil
}

func (s *Storage) SaveExpense(ctx context.Context, expense *models.Expense) (string, error) {
	const op = "storage.sqlite.SaveExpense"

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses
			(user_description, title, amount, currency, category_id, user_id,
			 default_currency_amount, default_currency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.UserDescription, expense.Title, expense.Amount, expense.Currency,
		expense.CategoryID, expense.UserID, expense.DefaultCurrencyAmount,
		expense.DefaultCurrency, expense.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return strconv.FormatInt(id, 10), nil
}

func (s *Storage) ExpenseByID(ctx context.Context, expenseID string) (*models.Expense, error) {
	const op = "storage.sqlite.ExpenseByID"

	id, err := strconv.ParseInt(expenseID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrExpenseNotFound)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_description, title, amount, currency, category_id, user_id,
		        default_currency_amount, default_currency, created_at
		 FROM expenses WHERE id = ?`, id)

	var (
		rowID int64
		e     models.Expense
	)
	err = row.Scan(&rowID, &e.UserDescription, &e.Title, &e.Amount, &e.Currency,
		&e.CategoryID, &e.UserID, &e.DefaultCurrencyAmount, &e.DefaultCurrency, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrExpenseNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	e.ID = strconv.FormatInt(rowID, 10)

	return &e, nil
}

func (s *Storage) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	const op = "storage.sqlite.UpdateExpense"

	id, err := strconv.ParseInt(expense.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrExpenseNotFound)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET
			user_description = ?, title = ?, amount = ?, currency = ?, category_id = ?,
			default_currency_amount = ?, default_currency = ?
		 WHERE id = ?`,
		expense.UserDescription, expense.Title, expense.Amount, expense.Currency,
		expense.CategoryID, expense.DefaultCurrencyAmount, expense.DefaultCurrency, id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrExpenseNotFound)
	}

	return nil
}

func (s *Storage) DeleteExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	const op = "storage.sqlite.DeleteExpense"

	expense, err := s.ExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expense.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return expense, nil
}

func (s *Storage) ExpensesByUser(ctx context.Context, userID string) ([]models.Expense, error) {
	const op = "storage.sqlite.ExpensesByUser"

	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.user_description, e.title, e.amount, e.currency, e.category_id,
		        e.user_id, e.default_currency_amount, e.default_currency, e.created_at,
		        c.id, c.name, c.emoji, c.created_at, c.updated_at
		 FROM expenses e
		 LEFT JOIN categories c ON c.id = e.category_id AND c.user_id = e.user_id
		 WHERE e.user_id = ?
		 ORDER BY e.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var (
			rowID        int64
			e            models.Expense
			catID        sql.NullInt64
			catName      sql.NullString
			catEmoji     sql.NullString
			catCreatedAt sql.NullTime
			catUpdatedAt sql.NullTime
		)
		err := rows.Scan(&rowID, &e.UserDescription, &e.Title, &e.Amount, &e.Currency,
			&e.CategoryID, &e.UserID, &e.DefaultCurrencyAmount, &e.DefaultCurrency,
			&e.CreatedAt, &catID, &catName, &catEmoji, &catCreatedAt, &catUpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		e.ID = strconv.FormatInt(rowID, 10)
		if catID.Valid {
			e.Category = &models.Category{
				ID:        strconv.FormatInt(catID.Int64, 10),
				Name:      catName.String,
				Emoji:     catEmoji.String,
				UserID:    e.UserID,
				CreatedAt: catCreatedAt.Time,
				UpdatedAt: catUpdatedAt.Time,
			}
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return expenses, nil
}

func (s *Storage) SaveRateSnapshot(ctx context.Context, rates map[string]float64) (*models.RateSnapshot, error) {
	const op = "storage.sqlite.SaveRateSnapshot"

	encoded, err := json.Marshal(rates)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO rates (rates, created_at) VALUES (?, ?)", string(encoded), now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.RateSnapshot{
		ID:        strconv.FormatInt(id, 10),
		Rates:     rates,
		CreatedAt: now,
	}, nil
}

func (s *Storage) LatestRateSnapshot(ctx context.Context) (*models.RateSnapshot, error) {
	const op = "storage.sqlite.LatestRateSnapshot"

	row := s.db.QueryRowContext(ctx,
		"SELECT id, rates, created_at FROM rates ORDER BY created_at DESC, id DESC LIMIT 1")

	var (
		id      int64
		encoded string
		snap    models.RateSnapshot
	)
	err := row.Scan(&id, &encoded, &snap.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrRateNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal([]byte(encoded), &snap.Rates); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	snap.ID = strconv.FormatInt(id, 10)

	return &snap, nil
}
