package domain

import (
	"fmt"
	"strings"
)

// GarmentCategory is the coarse classification used to pick provider-specific
// processing parameters.
type GarmentCategory string

const (
	CategoryUpperBody GarmentCategory = "upper_body"
	CategoryLowerBody GarmentCategory = "lower_body"
	CategoryDress     GarmentCategory = "dress"
)

// DefaultGarmentDescription is used when the client sends no free-text
// description of the garment.
const DefaultGarmentDescription = "A cool outfit"

// ProviderFallbackOriginal tags results where every provider failed and the
// original person image was returned unmodified.
const ProviderFallbackOriginal = "fallback-original"

// NormalizeGarmentCategory maps the client-side garment vocabulary onto the
// canonical category set. Unknown or empty values default to upper body.
func NormalizeGarmentCategory(raw string) GarmentCategory {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pants", "bottom", "bottoms", "trousers", "long_skirt", "short_skirt", "skirt", string(CategoryLowerBody):
		return CategoryLowerBody
	case "dress", "dresses", "full", "long_dress", "short_dress", "gown":
		return CategoryDress
	default:
		return CategoryUpperBody
	}
}

// TryOnRequest is the normalized input to the orchestrator. UserID is the
// identity asserted by the HTTP layer; Locale drives tip localization.
type TryOnRequest struct {
	Person      ImageReference
	Garment     ImageReference
	Category    GarmentCategory
	Description string
	UserID      string
	Locale      string
}

// Validate checks the presence invariants. Category and description have
// defaults and are not required.
func (r TryOnRequest) Validate() error {
	if r.Person.IsZero() {
		return fmt.Errorf("%w: person image is required", ErrValidation)
	}
	if r.Garment.IsZero() {
		return fmt.Errorf("%w: garment image is required", ErrValidation)
	}
	return nil
}

// StyleAnalysis is the cosmetic score attached to every result.
type StyleAnalysis struct {
	FitScore   int      `json:"fitScore"`
	ColorScore int      `json:"colorScore"`
	StyleGrade string   `json:"styleGrade"`
	Tips       []string `json:"tips"`
}

// TryOnResult is constructed fresh per request and not persisted.
type TryOnResult struct {
	Image     ImageReference
	Provider  string
	Analysis  StyleAnalysis
	Remaining int
}

// ProviderAttempt records one provider call outcome within a single
// orchestration pass. It exists only for logging the fallback decision.
type ProviderAttempt struct {
	Provider string
	Err      error
}
