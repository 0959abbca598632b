package app

import (
	"context"
	"fmt"
	"log/slog"

	"expenso/internal/app/httpapp"
	"expenso/internal/clients/exchangerate"
	"expenso/internal/clients/gemini"
	"expenso/internal/config"
	"expenso/internal/http/api"
	"expenso/internal/services/auth"
	"expenso/internal/services/category"
	"expenso/internal/services/expense"
	"expenso/internal/services/rates"
	"expenso/internal/storage/mongodb"
	"expenso/internal/storage/sqlite"

	"github.com/gin-gonic/gin"
)

// Storage is the full persistence surface the services need; both the
// MongoDB and the SQLite backend satisfy it.
type Storage interface {
	auth.UserSaver
	auth.UserProvider
	auth.TokenStore
	category.Storage
	expense.Storage
	rates.SnapshotStorage
}

type App struct {
	HTTPSrv *httpapp.App

	closeStorage func(context.Context) error
}

func New(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	var (
		storage      Storage
		closeStorage func(context.Context) error
	)

	switch cfg.Storage.Type {
	case "mongo":
		st, err := mongodb.New(ctx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		storage = st
		closeStorage = st.Close
	case "sqlite":
		st, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		storage = st
		closeStorage = func(context.Context) error { return st.Close() }
	default:
		return nil, fmt.Errorf("%s: unknown storage type %q", op, cfg.Storage.Type)
	}

	authService := auth.New(
		logger,
		storage,
		storage,
		storage,
		cfg.JWT.Secret,
		cfg.JWT.AccessTTL,
		cfg.JWT.RefreshTTL,
	)

	categoryService := category.New(logger, storage)

	rateCache := rates.New(
		logger,
		exchangerate.New(cfg.ExchangeRate.APIKey, cfg.ExchangeRate.BaseURL),
		storage,
		cfg.RatesTTL,
	)

	expenseService := expense.New(
		logger,
		gemini.New(cfg.Gemini.APIKey, cfg.Gemini.Model),
		categoryService,
		rateCache,
		storage,
		cfg.DefaultCurrency,
	)

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(logger, authService, expenseService, categoryService)

	return &App{
		HTTPSrv:      httpapp.New(logger, router, cfg.HTTP.Port, cfg.HTTP.Timeout),
		closeStorage: closeStorage,
	}, nil
}

// Stop shuts the HTTP server down and closes the storage connection.
func (a *App) Stop(ctx context.Context) {
	a.HTTPSrv.Stop(ctx)
	_ = a.closeStorage(ctx)
}
