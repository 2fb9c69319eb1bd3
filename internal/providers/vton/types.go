// Package vton adapts external image-generation services to the try-on
// contract. Each adapter owns its provider's vocabulary and payload shape;
// the orchestrator only sees normalized image references.
package vton

import (
	"context"

	"tryon-server/internal/domain"
)

// Provider is the contract implemented by all try-on backends.
type Provider interface {
	Name() string
	TryOn(ctx context.Context, req domain.TryOnRequest) (domain.ImageReference, error)
}
