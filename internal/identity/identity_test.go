package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ashureev/scripture-companion/internal/store"
)

func newRepo(t *testing.T) *store.SQLiteStore {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "id.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestMiddlewareIssuesCookieAndUser(t *testing.T) {
	t.Parallel()

	repo := newRepo(t)
	var gotUser, gotSession string
	h := Middleware(repo, true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotSession = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/workspace", nil)
	req.Header.Set(SessionHeaderName, "tab-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !isValidAnonID(gotUser) {
		t.Fatalf("expected generated anon id, got %q", gotUser)
	}
	if gotSession != "tab-42" {
		t.Fatalf("expected session tab-42, got %q", gotSession)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != gotUser {
		t.Fatalf("expected identity cookie, got %+v", cookies)
	}

	user, err := repo.GetUser(context.Background(), gotUser)
	if err != nil || user == nil {
		t.Fatalf("expected persisted user, got %v, %v", user, err)
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	t.Parallel()

	repo := newRepo(t)
	existing := generateAnonID()
	var gotUser string
	h := Middleware(repo, true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: existing})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if gotUser != existing {
		t.Fatalf("expected %q, got %q", existing, gotUser)
	}
}

func TestSanitizeSessionID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", DefaultSessionIDValue},
		{"  tab-1 ", "tab-1"},
		{"../etc/passwd", DefaultSessionIDValue},
		{"a b", DefaultSessionIDValue},
	}
	for _, tt := range tests {
		if got := sanitizeSessionID(tt.in); got != tt.want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWithIdentityRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithIdentity(context.Background(), "anon_abc", "tab-1")
	if got := UserIDFromContext(ctx); got != "anon_abc" {
		t.Fatalf("unexpected user id %q", got)
	}
	if got := SessionIDFromContext(ctx); got != "tab-1" {
		t.Fatalf("unexpected session id %q", got)
	}
	if got := SessionIDFromContext(context.Background()); got != DefaultSessionIDValue {
		t.Fatalf("expected default session, got %q", got)
	}
}
