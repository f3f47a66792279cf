package i18n

import (
	"context"
	"net/http"
	"testing"
)

func TestNormalizeLocale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"en", "en"},
		{"de", "de"},
		{"de-DE,de;q=0.9,en;q=0.8", "de"},
		{"EN-us", "en"},
		{"fr", "en"},
		{"fr-FR,de;q=0.7", "de"},
		{"  ", "en"},
		{";;,,", "en"},
	}

	for _, tt := range tests {
		if got := NormalizeLocale(tt.header); got != tt.want {
			t.Errorf("NormalizeLocale(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestLocaleFromRequest(t *testing.T) {
	t.Parallel()

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "de-AT")
	if got := LocaleFromRequest(req); got != "de" {
		t.Errorf("LocaleFromRequest = %q, want %q", got, "de")
	}

	if got := LocaleFromRequest(nil); got != DefaultLocale {
		t.Errorf("LocaleFromRequest(nil) = %q, want %q", got, DefaultLocale)
	}
}

func TestLocaleContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithLocale(context.Background(), "de-CH")
	if got := FromContext(ctx); got != "de" {
		t.Errorf("FromContext = %q, want %q", got, "de")
	}

	if got := FromContext(context.Background()); got != DefaultLocale {
		t.Errorf("FromContext without locale = %q, want %q", got, DefaultLocale)
	}
}
