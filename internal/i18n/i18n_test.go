package i18n

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := New("ko", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return b
}

func TestMatch(t *testing.T) {
	b := newTestBundle(t)

	tests := []struct {
		header string
		want   string
	}{
		{"", "ko"},
		{"en-US,en;q=0.9", "en"},
		{"ko-KR", "ko"},
		{"fr-FR", "ko"},
		{"fr;q=0.9, en;q=0.5", "en"},
	}
	for _, tt := range tests {
		if got := b.Match(tt.header).String(); got != tt.want {
			t.Errorf("Match(%q) = %s, want %s", tt.header, got, tt.want)
		}
	}
}

func TestMiddlewareLocalizes(t *testing.T) {
	b := newTestBundle(t)

	var got string
	h := b.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = b.T(r.Context(), "ErrSessionNotFound")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got != "session not found" {
		t.Errorf("en = %q", got)
	}
	if rec.Header().Get("Content-Language") != "en" {
		t.Errorf("content-language = %q", rec.Header().Get("Content-Language"))
	}
}

func TestDefaultAndMissing(t *testing.T) {
	b := newTestBundle(t)
	ctx := context.Background()

	if got := b.T(ctx, "ErrSessionCompleted"); got != "이미 완료된 세션입니다." {
		t.Errorf("default = %q", got)
	}
	if got := b.T(ctx, "NoSuchMessage"); got != "NoSuchMessage" {
		t.Errorf("missing = %q, want message id", got)
	}
	if got := b.Td(ctx, "ErrInvalidQuery", map[string]any{"Param": "page"}); got != "잘못된 쿼리 파라미터입니다: page" {
		t.Errorf("templated = %q", got)
	}
}
