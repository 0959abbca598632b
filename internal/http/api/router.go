package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with all routes registered. Everything
// except registration, login and refresh sits behind the bearer middleware.
func NewRouter(
	logger *slog.Logger,
	authSvc AuthService,
	expenseSvc ExpenseService,
	categorySvc CategoryService,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	authHandler := newAuthHandler(logger, authSvc)
	expenseHandler := newExpenseHandler(logger, expenseSvc)
	categoryHandler := newCategoryHandler(logger, categorySvc)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.register)
			auth.POST("/login", authHandler.login)
			auth.POST("/refresh", authHandler.refresh)
			auth.POST("/logout", AuthMiddleware(authSvc), authHandler.logout)
		}

		protected := api.Group("")
		protected.Use(AuthMiddleware(authSvc))
		{
			protected.POST("/expense", expenseHandler.add)
			protected.POST("/expense/manual", expenseHandler.addManual)
			protected.PUT("/expense/:id", expenseHandler.edit)
			protected.DELETE("/expense/:id", expenseHandler.remove)
			protected.GET("/expenses", expenseHandler.list)

			protected.POST("/category", categoryHandler.create)
			protected.GET("/categories", categoryHandler.list)
			protected.PUT("/category/:id", categoryHandler.update)
			protected.DELETE("/category/:id", categoryHandler.remove)
		}
	}

	return r
}
