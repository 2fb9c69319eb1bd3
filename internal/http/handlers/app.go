package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"tryon-server/internal/credits"
	"tryon-server/internal/domain"
)

// TryOnService is the orchestration contract the handlers depend on.
type TryOnService interface {
	Process(ctx context.Context, req domain.TryOnRequest) (*domain.TryOnResult, error)
}

// App bundles handler dependencies.
type App struct {
	Logger zerolog.Logger
	TryOn  TryOnService
	Ledger credits.Ledger
}

// NewApp builds the handler container.
func NewApp(logger zerolog.Logger, tryOn TryOnService, ledger credits.Ledger) *App {
	return &App{Logger: logger, TryOn: tryOn, Ledger: ledger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]any{"error": message})
}
