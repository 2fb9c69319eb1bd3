package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey stores the resolved response locale ("en" or "ar").
var LocaleKey = localeContextKey{}

var supportedLocales = []language.Tag{
	language.English, // first entry is the matcher fallback
	language.Arabic,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// Countries where Arabic is the primary UI language, used when neither
// X-Locale nor Accept-Language carries a usable hint.
var arabicCountries = map[string]struct{}{
	"SA": {}, "AE": {}, "EG": {}, "KW": {}, "QA": {}, "BH": {}, "OM": {},
	"JO": {}, "LB": {}, "SY": {}, "IQ": {}, "YE": {}, "PS": {}, "MA": {},
	"DZ": {}, "TN": {}, "LY": {}, "SD": {}, "MR": {}, "SO": {}, "DJ": {},
	"KM": {},
}

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// I18N resolves the response locale from, in order: the X-Locale header, the
// Accept-Language header, the request origin country, then the configured
// default. Only the style-analysis tips are localized, so a wrong guess is
// harmless.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := detectLocale(r, defaultLocale, lookup)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback string, lookup CountryLookup) string {
	if v := r.Header.Get("X-Locale"); v != "" {
		return matchLocale(v)
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		if tags, _, err := language.ParseAcceptLanguage(v); err == nil && len(tags) > 0 {
			_, idx, conf := localeMatcher.Match(tags...)
			if conf > language.No {
				return localeAt(idx)
			}
		}
	}
	if lookup != nil {
		if ip := ClientIP(r); ip != "" {
			if country, err := lookup(ip); err == nil {
				if _, ok := arabicCountries[strings.ToUpper(country)]; ok {
					return "ar"
				}
			}
		}
	}
	if fallback != "" {
		return matchLocale(fallback)
	}
	return "en"
}

func matchLocale(v string) string {
	tag, err := language.Parse(strings.TrimSpace(v))
	if err != nil {
		return "en"
	}
	_, idx, conf := localeMatcher.Match(tag)
	if conf == language.No {
		return "en"
	}
	return localeAt(idx)
}

func localeAt(idx int) string {
	if idx >= 0 && idx < len(supportedLocales) {
		base, _ := supportedLocales[idx].Base()
		return base.String()
	}
	return "en"
}

// ClientIP returns the best-effort client IP address for the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok && v != "" {
		return v
	}
	return "en"
}
