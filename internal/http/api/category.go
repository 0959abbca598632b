package api

import (
	"log/slog"
	"net/http"

	"expenso/internal/domain/models"

	"github.com/gin-gonic/gin"
)

type categoryHandler struct {
	logger *slog.Logger
	svc    CategoryService
}

func newCategoryHandler(logger *slog.Logger, svc CategoryService) *categoryHandler {
	return &categoryHandler{logger: logger, svc: svc}
}

type createCategoryRequest struct {
	Name  string `json:"name" binding:"required"`
	Emoji string `json:"emoji"`
}

type updateCategoryRequest struct {
	Name  *string `json:"name"`
	Emoji *string `json:"emoji"`
}

func (h *categoryHandler) create(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cat, err := h.svc.Create(c.Request.Context(), req.Name, req.Emoji, c.GetString(userIDKey))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toCategoryResponse(cat))
}

func (h *categoryHandler) list(c *gin.Context) {
	categories, err := h.svc.List(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]*categoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, toCategoryResponse(&categories[i]))
	}

	c.JSON(http.StatusOK, out)
}

func (h *categoryHandler) update(c *gin.Context) {
	var req updateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cat, err := h.svc.Update(c.Request.Context(), c.Param("id"), c.GetString(userIDKey), models.CategoryPatch{
		Name:  req.Name,
		Emoji: req.Emoji,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toCategoryResponse(cat))
}

func (h *categoryHandler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), c.GetString(userIDKey)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
