package stylist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"tryon-server/internal/domain"
)

const (
	analysisPromptEN = "Analyze this outfit. Give me a score out of 100 for fit and color match, a style grade, and 3 short tips. Respond with JSON only, using the keys fitScore, colorScore, styleGrade and tips."
	analysisPromptAR = "قم بتحليل هذا الزي. أعطني تقييماً من 100 للمقاس وتناسق الألوان، ودرجة الستايل، و3 نصائح قصيرة للتحسين. الرد يجب أن يكون JSON فقط بالمفاتيح fitScore و colorScore و styleGrade و tips."
)

// GeminiAnalyzer scores outfits with a multimodal Gemini call.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnalyzer builds the analyzer. The API key is required; the model
// name falls back to a cheap flash variant.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model string) (*GeminiAnalyzer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("stylist: gemini API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("stylist: create gemini client: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiAnalyzer{client: client, model: model}, nil
}

// Close releases the underlying client.
func (a *GeminiAnalyzer) Close() error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Close()
}

// Analyze sends the composited image with a localized prompt and parses the
// JSON reply. Callers treat any error as "use the default".
func (a *GeminiAnalyzer) Analyze(ctx context.Context, image domain.ImageReference, locale string) (domain.StyleAnalysis, error) {
	if len(image.Data) == 0 {
		return domain.StyleAnalysis{}, errors.New("stylist: image has no embedded data")
	}
	prompt := analysisPromptEN
	if locale == "ar" {
		prompt = analysisPromptAR
	}
	format := "png"
	if strings.HasPrefix(image.MIME, "image/") {
		format = strings.TrimPrefix(image.MIME, "image/")
	}

	model := a.client.GenerativeModel(a.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt), genai.ImageData(format, image.Data))
	if err != nil {
		return domain.StyleAnalysis{}, fmt.Errorf("stylist: gemini call: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return domain.StyleAnalysis{}, errors.New("stylist: empty gemini response")
	}
	return parseAnalysis(text)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}

// parseAnalysis tolerates the fenced-markdown JSON Gemini tends to emit.
func parseAnalysis(text string) (domain.StyleAnalysis, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var analysis domain.StyleAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return domain.StyleAnalysis{}, fmt.Errorf("stylist: parse analysis: %w", err)
	}
	if analysis.StyleGrade == "" {
		return domain.StyleAnalysis{}, errors.New("stylist: analysis missing style grade")
	}
	analysis.FitScore = clampScore(analysis.FitScore)
	analysis.ColorScore = clampScore(analysis.ColorScore)
	return analysis, nil
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

var _ Analyzer = (*GeminiAnalyzer)(nil)
