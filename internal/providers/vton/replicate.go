package vton

import (
	"context"
	"fmt"
	"strings"

	"tryon-server/internal/domain"
	"tryon-server/internal/providers/replicate"
)

// ReplicateProvider is the primary, high-quality backend. It drives a
// general-purpose generative model, so the garment intent travels in the
// prompt while both images ride along as references.
type ReplicateProvider struct {
	client   *replicate.Client
	resolver *domain.ImageResolver
}

// NewReplicateProvider wires the adapter.
func NewReplicateProvider(client *replicate.Client, resolver *domain.ImageResolver) *ReplicateProvider {
	return &ReplicateProvider{client: client, resolver: resolver}
}

func (p *ReplicateProvider) Name() string {
	return "replicate"
}

// TryOn embeds both inputs, builds the generation prompt, and normalizes the
// model output to an image reference.
func (p *ReplicateProvider) TryOn(ctx context.Context, req domain.TryOnRequest) (domain.ImageReference, error) {
	person, err := p.resolver.Resolve(ctx, req.Person)
	if err != nil {
		return domain.ImageReference{}, fmt.Errorf("resolve person image: %w", err)
	}
	garment, err := p.resolver.Resolve(ctx, req.Garment)
	if err != nil {
		return domain.ImageReference{}, fmt.Errorf("resolve garment image: %w", err)
	}
	personURI, err := person.DataURI()
	if err != nil {
		return domain.ImageReference{}, err
	}
	garmentURI, err := garment.DataURI()
	if err != nil {
		return domain.ImageReference{}, err
	}

	url, err := p.client.Predict(ctx, replicate.PredictionInput{
		Prompt:            tryOnPrompt(req.Description),
		ImageInput:        []string{personURI, garmentURI},
		AspectRatio:       "match_input_image",
		OutputFormat:      "png",
		SafetyFilterLevel: "block_only_high",
	})
	if err != nil {
		return domain.ImageReference{}, err
	}
	return domain.ImageFromURL(url), nil
}

func tryOnPrompt(description string) string {
	if strings.TrimSpace(description) == "" {
		description = domain.DefaultGarmentDescription
	}
	return fmt.Sprintf(
		"A photo of a person wearing %s. The person is wearing the garment shown in the second image. High quality, realistic.",
		description,
	)
}

var _ Provider = (*ReplicateProvider)(nil)
