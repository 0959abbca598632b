package api

import (
	"errors"
	"net/http"
	"time"

	"expenso/internal/clients/exchangerate"
	"expenso/internal/clients/gemini"
	"expenso/internal/domain/models"
	"expenso/internal/services/auth"
	"expenso/internal/services/category"
	"expenso/internal/services/expense"
	"expenso/internal/services/rates"

	"github.com/gin-gonic/gin"
)

// respondError maps service error kinds to HTTP status codes. Unknown
// errors answer 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect email or password"})
	case errors.Is(err, auth.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
	case errors.Is(err, category.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
	case errors.Is(err, expense.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
	case errors.Is(err, expense.ErrInvalidAIResponse):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or incomplete AI response"})
	case errors.Is(err, rates.ErrUnknownCurrency):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown currency code"})
	case errors.Is(err, gemini.ErrUnavailable), errors.Is(err, exchangerate.ErrUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type categoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

type expenseResponse struct {
	ID                    string            `json:"id"`
	UserDescription       string            `json:"userDescription"`
	Title                 string            `json:"title"`
	Amount                float64           `json:"amount"`
	Currency              string            `json:"currency"`
	Category              *categoryResponse `json:"category"`
	DefaultCurrencyAmount float64           `json:"defaultCurrencyAmount"`
	DefaultCurrency       string            `json:"defaultCurrency"`
	CreatedAt             time.Time         `json:"createdAt"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email}
}

func toTokenPairResponse(p *models.TokenPair) tokenPairResponse {
	return tokenPairResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

func toCategoryResponse(c *models.Category) *categoryResponse {
	if c == nil {
		return nil
	}
	return &categoryResponse{ID: c.ID, Name: c.Name, Emoji: c.Emoji}
}

func toExpenseResponse(e *models.Expense) expenseResponse {
	return expenseResponse{
		ID:                    e.ID,
		UserDescription:       e.UserDescription,
		Title:                 e.Title,
		Amount:                e.Amount,
		Currency:              e.Currency,
		Category:              toCategoryResponse(e.Category),
		DefaultCurrencyAmount: e.DefaultCurrencyAmount,
		DefaultCurrency:       e.DefaultCurrency,
		CreatedAt:             e.CreatedAt,
	}
}
