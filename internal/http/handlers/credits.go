package handlers

import (
	"net/http"

	"tryon-server/internal/middleware"
)

// CreditsBalance handles GET /api/credits: the remaining quota the client
// shows next to the generate button.
func (a *App) CreditsBalance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	balance, err := a.Ledger.Balance(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("credit balance lookup failed")
		a.error(w, http.StatusServiceUnavailable, "Service busy. Please try again later.")
		return
	}
	a.json(w, http.StatusOK, map[string]int{"credits": balance})
}
