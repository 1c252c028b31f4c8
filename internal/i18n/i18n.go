// Package i18n localizes user-facing API messages (Korean and English).
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

// Bundle holds the loaded translations and the languages they cover.
type Bundle struct {
	bundle  *i18n.Bundle
	tags    []language.Tag
	matcher language.Matcher
	def     language.Tag
	logger  *slog.Logger
}

// New loads every embedded locale file. defaultLang is used when the
// request does not ask for a supported language.
func New(defaultLang string, logger *slog.Logger) (*Bundle, error) {
	def, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", defaultLang, err)
	}

	b := i18n.NewBundle(def)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := b.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
	}

	// The default goes first so the matcher falls back to it.
	tags := []language.Tag{def}
	for _, t := range b.LanguageTags() {
		if t != def {
			tags = append(tags, t)
		}
	}

	return &Bundle{bundle: b, tags: tags, matcher: language.NewMatcher(tags), def: def, logger: logger}, nil
}

// Match picks the best supported language for an Accept-Language header.
func (b *Bundle) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return b.def
	}
	_, idx, conf := b.matcher.Match(tags...)
	if conf == language.No {
		return b.def
	}
	return b.tags[idx]
}

// Middleware stores a localizer for the request's Accept-Language.
func (b *Bundle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag := b.Match(r.Header.Get("Accept-Language"))
		loc := i18n.NewLocalizer(b.bundle, tag.String())
		w.Header().Set("Content-Language", tag.String())
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, loc)))
	})
}

func (b *Bundle) localizer(ctx context.Context) *i18n.Localizer {
	if loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer); ok {
		return loc
	}
	return i18n.NewLocalizer(b.bundle, b.def.String())
}

// T translates a message by ID.
func (b *Bundle) T(ctx context.Context, msgID string) string {
	return b.Td(ctx, msgID, nil)
}

// Td translates a message by ID with template data.
func (b *Bundle) Td(ctx context.Context, msgID string, data map[string]any) string {
	s, err := b.localizer(ctx).Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: data,
	})
	if err != nil {
		b.logger.Warn("missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}
