package vton

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tryon-server/internal/domain"
	"tryon-server/internal/providers/gradio"
)

// OOTDiffusion sampling parameters. The Space is sensitive to these; they
// match the values the hosted demo uses.
const (
	ootdAPIName    = "process_dc"
	ootdSamples    = 1
	ootdSteps      = 20
	ootdImageScale = 2.0
	ootdSeed       = -1
)

// OOTDProvider is the backup backend: a purpose-built try-on model hosted as
// a Gradio Space that takes both images as uploaded files plus a category.
type OOTDProvider struct {
	client   *gradio.Client
	resolver *domain.ImageResolver
}

// NewOOTDProvider wires the adapter.
func NewOOTDProvider(client *gradio.Client, resolver *domain.ImageResolver) *OOTDProvider {
	return &OOTDProvider{client: client, resolver: resolver}
}

func (p *OOTDProvider) Name() string {
	return "ootdiffusion"
}

// MapCategory translates the canonical garment category into the
// case-sensitive vocabulary the model expects. Anything unrecognized maps to
// upper body, matching the canonical default.
func MapCategory(c domain.GarmentCategory) string {
	switch c {
	case domain.CategoryLowerBody:
		return "Lower-body"
	case domain.CategoryDress:
		return "Dress"
	default:
		return "Upper-body"
	}
}

// TryOn uploads both images and runs the try-on pipeline.
func (p *OOTDProvider) TryOn(ctx context.Context, req domain.TryOnRequest) (domain.ImageReference, error) {
	person, err := p.resolver.Resolve(ctx, req.Person)
	if err != nil {
		return domain.ImageReference{}, fmt.Errorf("resolve person image: %w", err)
	}
	garment, err := p.resolver.Resolve(ctx, req.Garment)
	if err != nil {
		return domain.ImageReference{}, fmt.Errorf("resolve garment image: %w", err)
	}

	personPath, err := p.client.UploadFile(ctx, "person.png", person.Data)
	if err != nil {
		return domain.ImageReference{}, fmt.Errorf("upload person image: %w", err)
	}
	garmentPath, err := p.client.UploadFile(ctx, "garment.png", garment.Data)
	if err != nil {
		return domain.ImageReference{}, fmt.Errorf("upload garment image: %w", err)
	}

	out, err := p.client.Predict(ctx, ootdAPIName, []any{
		gradio.NewFileRef(personPath),
		gradio.NewFileRef(garmentPath),
		MapCategory(req.Category),
		ootdSamples,
		ootdSteps,
		ootdImageScale,
		ootdSeed,
	})
	if err != nil {
		return domain.ImageReference{}, err
	}
	url, err := resultURL(out)
	if err != nil {
		return domain.ImageReference{}, err
	}
	return domain.ImageFromURL(url), nil
}

// resultURL digs the generated image URL out of the result data. The first
// element is a file object; a missing or empty url is a provider failure,
// never silently ignored.
func resultURL(data []any) (string, error) {
	if len(data) == 0 {
		return "", errors.New("ootdiffusion returned no result data")
	}
	first := data[0]
	// A gallery result nests the file object one level deeper.
	if list, ok := first.([]any); ok {
		if len(list) == 0 {
			return "", errors.New("ootdiffusion returned an empty gallery")
		}
		first = list[0]
	}
	obj, ok := first.(map[string]any)
	if !ok {
		return "", fmt.Errorf("ootdiffusion returned unexpected result shape %T", first)
	}
	if nested, ok := obj["image"].(map[string]any); ok {
		obj = nested
	}
	url, _ := obj["url"].(string)
	if strings.TrimSpace(url) == "" {
		return "", errors.New("ootdiffusion did not return a valid image url")
	}
	return url, nil
}

var _ Provider = (*OOTDProvider)(nil)
