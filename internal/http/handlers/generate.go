package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tryon-server/internal/domain"
	"tryon-server/internal/middleware"
)

// generateRequest accepts both the documented field names and the legacy
// aliases the first web client shipped with (clothImage, type).
type generateRequest struct {
	PersonImage        string `json:"personImage"`
	GarmentImage       string `json:"garmentImage"`
	ClothImage         string `json:"clothImage"`
	GarmentCategory    string `json:"garmentCategory"`
	Type               string `json:"type"`
	GarmentDescription string `json:"garmentDescription"`
}

type generateResponse struct {
	Front     string               `json:"front"`
	Side      string               `json:"side"`
	Full      string               `json:"full"`
	Analysis  domain.StyleAnalysis `json:"analysis"`
	Remaining int                  `json:"remaining"`
	Provider  string               `json:"provider"`
}

// Generate handles POST /api/generate.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	garmentRaw := req.GarmentImage
	if garmentRaw == "" {
		garmentRaw = req.ClothImage
	}
	if strings.TrimSpace(req.PersonImage) == "" || strings.TrimSpace(garmentRaw) == "" {
		a.error(w, http.StatusBadRequest, "Both person and garment images are required.")
		return
	}
	person, err := domain.ParseImageReference(req.PersonImage)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid person image: "+err.Error())
		return
	}
	garment, err := domain.ParseImageReference(garmentRaw)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid garment image: "+err.Error())
		return
	}
	category := req.GarmentCategory
	if category == "" {
		category = req.Type
	}

	result, err := a.TryOn.Process(r.Context(), domain.TryOnRequest{
		Person:      person,
		Garment:     garment,
		Category:    domain.NormalizeGarmentCategory(category),
		Description: req.GarmentDescription,
		UserID:      userID,
		Locale:      middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.respondError(w, userID, err)
		return
	}

	uri, err := result.Image.DisplayURI()
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("result image not displayable")
		a.error(w, http.StatusServiceUnavailable, "Service busy. Please try again later.")
		return
	}
	a.json(w, http.StatusOK, generateResponse{
		Front:     uri,
		Side:      uri,
		Full:      uri,
		Analysis:  result.Analysis,
		Remaining: result.Remaining,
		Provider:  result.Provider,
	})
}

func (a *App) respondError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrCreditsExhausted):
		a.json(w, http.StatusForbidden, map[string]any{
			"error":       "Insufficient credits",
			"needPayment": true,
		})
	default:
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("generate failed")
		a.error(w, http.StatusServiceUnavailable, err.Error())
	}
}
