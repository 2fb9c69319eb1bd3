// Package tryon holds the request orchestration: credit precondition,
// ordered provider fallback, result normalization, and charging.
package tryon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tryon-server/internal/credits"
	"tryon-server/internal/domain"
	"tryon-server/internal/providers/vton"
	"tryon-server/internal/stylist"
)

// Options wires the orchestrator's collaborators. Providers are attempted in
// slice order. Analyzer may be nil; the fixed defaults are used instead.
type Options struct {
	Providers      []vton.Provider
	Ledger         credits.Ledger
	Analyzer       stylist.Analyzer
	Resolver       *domain.ImageResolver
	Logger         zerolog.Logger
	AttemptTimeout time.Duration
}

// Orchestrator runs one try-on request end to end.
type Orchestrator struct {
	providers      []vton.Provider
	ledger         credits.Ledger
	analyzer       stylist.Analyzer
	resolver       *domain.ImageResolver
	logger         zerolog.Logger
	attemptTimeout time.Duration
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	timeout := opts.AttemptTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = domain.NewImageResolver(timeout)
	}
	return &Orchestrator{
		providers:      opts.Providers,
		ledger:         opts.Ledger,
		analyzer:       opts.Analyzer,
		resolver:       resolver,
		logger:         opts.Logger,
		attemptTimeout: timeout,
	}
}

// Process validates the request, enforces the credit precondition, walks the
// provider chain, charges the credit, and assembles the result. Once
// validation and the credit check pass the call cannot fail on provider
// errors: quality degrades down to returning the original person image.
func (o *Orchestrator) Process(ctx context.Context, req domain.TryOnRequest) (*domain.TryOnResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(req.Description) == "" {
		req.Description = domain.DefaultGarmentDescription
	}

	balance, err := o.ledger.Balance(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}
	if balance <= 0 {
		return nil, domain.ErrCreditsExhausted
	}

	image, providerUsed, attempts := o.attemptProviders(ctx, req)
	degraded := providerUsed == domain.ProviderFallbackOriginal
	if degraded {
		o.logger.Warn().
			Str("user_id", req.UserID).
			Int("attempts", len(attempts)).
			Msg("all providers failed, returning original image")
	} else {
		o.logger.Info().
			Str("user_id", req.UserID).
			Str("provider", providerUsed).
			Int("failed_attempts", len(attempts)).
			Msg("try-on generated")
	}

	remaining := balance
	if !degraded {
		rem, err := o.ledger.Deduct(ctx, req.UserID)
		switch {
		case errors.Is(err, domain.ErrCreditsExhausted):
			// A concurrent request from the same user drained the balance
			// between the precondition check and the charge.
			o.logger.Warn().Str("user_id", req.UserID).Msg("balance drained mid-request")
			remaining = 0
		case err != nil:
			return nil, fmt.Errorf("credit deduct: %w", err)
		default:
			remaining = rem
		}
	}

	final := o.normalizeResult(ctx, image, req.Person)
	analysis := o.analyze(ctx, final, providerUsed, req.Locale, degraded)

	return &domain.TryOnResult{
		Image:     final,
		Provider:  providerUsed,
		Analysis:  analysis,
		Remaining: remaining,
	}, nil
}

// attemptProviders walks the chain in priority order, one attempt per
// provider, stopping at the first success. The terminal fallback is the
// original person image.
func (o *Orchestrator) attemptProviders(ctx context.Context, req domain.TryOnRequest) (domain.ImageReference, string, []domain.ProviderAttempt) {
	attempts := make([]domain.ProviderAttempt, 0, len(o.providers))
	for _, p := range o.providers {
		attemptCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
		image, err := p.TryOn(attemptCtx, req)
		cancel()
		if err != nil {
			attempts = append(attempts, domain.ProviderAttempt{Provider: p.Name(), Err: err})
			o.logger.Warn().
				Str("user_id", req.UserID).
				Str("provider", p.Name()).
				Err(err).
				Msg("provider attempt failed")
			continue
		}
		if image.IsZero() {
			err := fmt.Errorf("%w: %s returned an empty image", domain.ErrProviderFailure, p.Name())
			attempts = append(attempts, domain.ProviderAttempt{Provider: p.Name(), Err: err})
			continue
		}
		return image, p.Name(), attempts
	}
	return req.Person, domain.ProviderFallbackOriginal, attempts
}

// normalizeResult converts the winning image to the embedded form. If that
// conversion itself fails, the un-normalized original person image is
// returned rather than failing the request.
func (o *Orchestrator) normalizeResult(ctx context.Context, image, person domain.ImageReference) domain.ImageReference {
	resolved, err := o.resolver.Resolve(ctx, image)
	if err != nil {
		o.logger.Warn().Err(err).Msg("result normalization failed, falling back to person image")
		return person
	}
	return resolved
}

func (o *Orchestrator) analyze(ctx context.Context, image domain.ImageReference, provider, locale string, degraded bool) domain.StyleAnalysis {
	if degraded {
		return stylist.DegradedDefault(locale)
	}
	if o.analyzer == nil {
		return stylist.SuccessDefault(provider, locale)
	}
	analysis, err := o.analyzer.Analyze(ctx, image, locale)
	if err != nil {
		o.logger.Debug().Err(err).Msg("style analysis unavailable, using default")
		return stylist.SuccessDefault(provider, locale)
	}
	if len(analysis.Tips) == 0 {
		analysis.Tips = stylist.SuccessDefault(provider, locale).Tips
	}
	return analysis
}
