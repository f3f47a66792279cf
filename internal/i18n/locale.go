package i18n

import (
	"context"
	"net/http"
	"strings"
)

const DefaultLocale = "en"

type contextKey struct{}

// WithLocale stores a normalized locale in the context so deeper layers can
// pick the right translation without threading it through every signature.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, contextKey{}, NormalizeLocale(locale))
}

func FromContext(ctx context.Context) string {
	if locale, ok := ctx.Value(contextKey{}).(string); ok {
		return locale
	}
	return DefaultLocale
}

var supportedLocales = map[string]struct{}{
	"en": {},
	"de": {},
}

func LocaleFromRequest(r *http.Request) string {
	if r == nil {
		return DefaultLocale
	}
	return NormalizeLocale(r.Header.Get("Accept-Language"))
}

func NormalizeLocale(header string) string {
	if strings.TrimSpace(header) == "" {
		return DefaultLocale
	}

	parts := strings.Split(header, ",")
	for _, part := range parts {
		lang := strings.TrimSpace(part)
		if lang == "" {
			continue
		}
		if idx := strings.Index(lang, ";"); idx >= 0 {
			lang = lang[:idx]
		}
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		if idx := strings.Index(lang, "-"); idx >= 0 {
			lang = lang[:idx]
		}
		if _, ok := supportedLocales[lang]; ok {
			return lang
		}
	}

	return DefaultLocale
}
