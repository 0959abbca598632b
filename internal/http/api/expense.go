package api

import (
	"log/slog"
	"net/http"
	"time"

	"expenso/internal/domain/models"

	"github.com/gin-gonic/gin"
)

type expenseHandler struct {
	logger *slog.Logger
	svc    ExpenseService
}

func newExpenseHandler(logger *slog.Logger, svc ExpenseService) *expenseHandler {
	return &expenseHandler{logger: logger, svc: svc}
}

type addExpenseRequest struct {
	UserDescription string `json:"userDescription" binding:"required"`
}

type addManualExpenseRequest struct {
	Title     string     `json:"title" binding:"required"`
	Amount    float64    `json:"amount" binding:"required"`
	Currency  string     `json:"currency" binding:"required"`
	Category  string     `json:"category" binding:"required"`
	CreatedAt *time.Time `json:"createdAt"`
}

type editExpenseRequest struct {
	Title    *string  `json:"title"`
	Amount   *float64 `json:"amount"`
	Currency *string  `json:"currency"`
	Category *string  `json:"category"`
}

func (h *expenseHandler) add(c *gin.Context) {
	var req addExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expense, err := h.svc.Add(c.Request.Context(), req.UserDescription, c.GetString(userIDKey))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toExpenseResponse(expense))
}

func (h *expenseHandler) addManual(c *gin.Context) {
	var req addManualExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var createdAt time.Time
	if req.CreatedAt != nil {
		createdAt = *req.CreatedAt
	}

	expense, err := h.svc.AddManual(
		c.Request.Context(),
		req.Title,
		req.Amount,
		req.Currency,
		req.Category,
		c.GetString(userIDKey),
		createdAt,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toExpenseResponse(expense))
}

func (h *expenseHandler) edit(c *gin.Context) {
	var req editExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expense, err := h.svc.Edit(c.Request.Context(), c.Param("id"), models.ExpensePatch{
		Title:      req.Title,
		Amount:     req.Amount,
		Currency:   req.Currency,
		CategoryID: req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toExpenseResponse(expense))
}

func (h *expenseHandler) remove(c *gin.Context) {
	expense, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toExpenseResponse(expense))
}

func (h *expenseHandler) list(c *gin.Context) {
	expenses, err := h.svc.List(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for i := range expenses {
		out = append(out, toExpenseResponse(&expenses[i]))
	}

	c.JSON(http.StatusOK, out)
}
