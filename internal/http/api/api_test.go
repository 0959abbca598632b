package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expenso/internal/domain/models"
	"expenso/internal/services/auth"
	"expenso/internal/services/category"
	"expenso/internal/services/expense"
	"expenso/internal/services/rates"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	goodToken  = "good-token"
	testUserID = "user-1"
)

type stubAuthService struct {
	registerErr error
	loginErr    error
	refreshErr  error
	revokedFor  string
}

func (s *stubAuthService) Register(_ context.Context, email, _ string) (*models.User, *models.TokenPair, error) {
	if s.registerErr != nil {
		return nil, nil, s.registerErr
	}
	return &models.User{ID: testUserID, Email: email},
		&models.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s *stubAuthService) Login(_ context.Context, email, _ string) (*models.User, *models.TokenPair, error) {
	if s.loginErr != nil {
		return nil, nil, s.loginErr
	}
	return &models.User{ID: testUserID, Email: email},
		&models.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s *stubAuthService) Refresh(_ context.Context, _ string) (*models.TokenPair, error) {
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return &models.TokenPair{AccessToken: "access2", RefreshToken: "refresh2"}, nil
}

func (s *stubAuthService) Revoke(_ context.Context, userID string) error {
	s.revokedFor = userID
	return nil
}

func (s *stubAuthService) ValidateAccessToken(token string) (string, error) {
	if token != goodToken {
		return "", auth.ErrInvalidToken
	}
	return testUserID, nil
}

type stubExpenseService struct {
	addErr     error
	lastUserID string
}

func (s *stubExpenseService) Add(_ context.Context, userDescription, userID string) (*models.Expense, error) {
	s.lastUserID = userID
	if s.addErr != nil {
		return nil, s.addErr
	}
	return &models.Expense{
		ID:              "exp-1",
		UserDescription: userDescription,
		Title:           "Coffee",
		Amount:          12.5,
		Currency:        "EUR",
		UserID:          userID,
		Category:        &models.Category{ID: "cat-1", Name: "Food", Emoji: "🏷️"},
		CreatedAt:       time.Now(),
	}, nil
}

func (s *stubExpenseService) AddManual(_ context.Context, title string, amount float64, currency, categoryID, userID string, createdAt time.Time) (*models.Expense, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	return &models.Expense{ID: "exp-2", Title: title, Amount: amount, Currency: currency,
		CategoryID: categoryID, UserID: userID, CreatedAt: createdAt}, nil
}

func (s *stubExpenseService) Edit(_ context.Context, expenseID string, _ models.ExpensePatch) (*models.Expense, error) {
	if expenseID != "exp-1" {
		return nil, expense.ErrNotFound
	}
	return &models.Expense{ID: expenseID}, nil
}

func (s *stubExpenseService) Delete(_ context.Context, expenseID string) (*models.Expense, error) {
	if expenseID != "exp-1" {
		return nil, expense.ErrNotFound
	}
	return &models.Expense{ID: expenseID}, nil
}

func (s *stubExpenseService) List(_ context.Context, userID string) ([]models.Expense, error) {
	s.lastUserID = userID
	return []models.Expense{{ID: "exp-1", UserID: userID}}, nil
}

type stubCategoryService struct{}

func (s *stubCategoryService) Create(_ context.Context, name, emoji, _ string) (*models.Category, error) {
	return &models.Category{ID: "cat-1", Name: name, Emoji: emoji}, nil
}

func (s *stubCategoryService) List(_ context.Context, _ string) ([]models.Category, error) {
	return []models.Category{{ID: "cat-1", Name: "Food"}}, nil
}

func (s *stubCategoryService) Update(_ context.Context, categoryID, _ string, _ models.CategoryPatch) (*models.Category, error) {
	if categoryID != "cat-1" {
		return nil, category.ErrNotFound
	}
	return &models.Category{ID: categoryID, Name: "Groceries"}, nil
}

func (s *stubCategoryService) Delete(_ context.Context, categoryID, _ string) error {
	if categoryID != "cat-1" {
		return category.ErrNotFound
	}
	return nil
}

type testEnv struct {
	router      *gin.Engine
	authSvc     *stubAuthService
	expenseSvc  *stubExpenseService
	categorySvc *stubCategoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		authSvc:     &stubAuthService{},
		expenseSvc:  &stubExpenseService{},
		categorySvc: &stubCategoryService{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.router = NewRouter(logger, env.authSvc, env.expenseSvc, env.categorySvc)

	return env
}

func (e *testEnv) do(method, path, body string, authorized bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer "+goodToken)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/health", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "malformed", header: "Bearer", want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer bad-token", want: http.StatusUnauthorized},
		{name: "good token", header: "Bearer " + goodToken, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}

	// The authenticated user ID reaches the service layer.
	assert.Equal(t, testUserID, env.expenseSvc.lastUserID)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register",
		`{"email": "a@b.com", "password": "password123"}`, false)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accessToken"`)
	assert.Contains(t, rec.Body.String(), `"refreshToken"`)
}

func TestRegister_BadInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "not an email", body: `{"email": "nope", "password": "password123"}`},
		{name: "short password", body: `{"email": "a@b.com", "password": "short"}`},
		{name: "empty body", body: `{}`},
		{name: "not json", body: `hello`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/auth/register", tt.body, false)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegister_Conflict(t *testing.T) {
	env := newTestEnv(t)
	env.authSvc.registerErr = auth.ErrUserAlreadyExists

	rec := env.do(http.MethodPost, "/api/auth/register",
		`{"email": "a@b.com", "password": "password123"}`, false)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.authSvc.loginErr = auth.ErrInvalidCredentials

	rec := env.do(http.MethodPost, "/api/auth/login",
		`{"email": "a@b.com", "password": "password123"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_InvalidToken(t *testing.T) {
	env := newTestEnv(t)
	env.authSvc.refreshErr = auth.ErrInvalidToken

	rec := env.do(http.MethodPost, "/api/auth/refresh", `{"refreshToken": "stale"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/logout", "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testUserID, env.authSvc.revokedFor)
}

func TestAddExpense(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/expense",
		`{"userDescription": "coffee 12.50 euro"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Coffee"`)
	assert.Contains(t, rec.Body.String(), `"name":"Food"`)
}

func TestAddExpense_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "unusable model output", err: expense.ErrInvalidAIResponse, want: http.StatusBadRequest},
		{name: "unknown currency", err: rates.ErrUnknownCurrency, want: http.StatusUnprocessableEntity},
		{name: "anything else", err: io.ErrUnexpectedEOF, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.expenseSvc.addErr = tt.err

			rec := env.do(http.MethodPost, "/api/expense",
				`{"userDescription": "whatever"}`, true)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAddManualExpense(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/expense/manual",
		`{"title": "Lunch", "amount": 360, "currency": "THB", "category": "cat-1"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	// All four business fields are required.
	rec = env.do(http.MethodPost, "/api/expense/manual",
		`{"title": "Lunch", "amount": 360, "currency": "THB"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditExpense_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPut, "/api/expense/exp-missing", `{"title": "x"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteExpense(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodDelete, "/api/expense/exp-1", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodDelete, "/api/expense/exp-missing", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/category", `{"name": "Food", "emoji": "🍔"}`, true)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodGet, "/api/categories", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Food"`)

	rec = env.do(http.MethodPut, "/api/category/cat-1", `{"name": "Groceries"}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodDelete, "/api/category/cat-missing", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
