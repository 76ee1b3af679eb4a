package middleware_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mwas-backend/internal/auth"
	"mwas-backend/internal/middleware"
	"mwas-backend/internal/model"
	"mwas-backend/internal/store/memory"
)

func init() { gin.SetMode(gin.TestMode) }

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRouter(g *middleware.Gate, roles ...model.Role) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(discard))
	r.GET("/x", g.Require(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, middleware.UserID(c))
	})
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// accounts returns a store holding the users the gate tests sign tokens for.
func accounts(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	for _, u := range []model.User{
		{ID: "u1", Email: "u1@example.com", Role: model.RoleUser},
		{ID: "t1", Email: "t1@example.com", Role: model.RoleTherapist},
	} {
		if err := st.CreateUser(context.Background(), &u); err != nil {
			t.Fatalf("create %s: %v", u.ID, err)
		}
	}
	return st
}

func TestGate(t *testing.T) {
	signer := auth.NewSigner("secret", 0)
	rev := memory.NewRevocations()
	g := middleware.NewGate(signer, rev, accounts(t), discard)

	userTok, _ := signer.MakeToken("u1", model.RoleUser)
	therTok, _ := signer.MakeToken("t1", model.RoleTherapist)
	foreign, _ := auth.NewSigner("other", 0).MakeToken("u1", model.RoleAdmin)

	expired, _ := auth.NewSigner("secret", time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		MakeToken("u1", model.RoleUser)

	onlyTherapist := newRouter(g, model.RoleTherapist)
	anyone := newRouter(g)

	tests := []struct {
		name   string
		router http.Handler
		token  string
		want   int
	}{
		{"no token", onlyTherapist, "", http.StatusUnauthorized},
		{"garbage", onlyTherapist, "abc.def.ghi", http.StatusUnauthorized},
		{"wrong key", onlyTherapist, foreign, http.StatusUnauthorized},
		{"expired", onlyTherapist, expired, http.StatusUnauthorized},
		{"wrong role", onlyTherapist, userTok, http.StatusForbidden},
		{"right role", onlyTherapist, therTok, http.StatusOK},
		{"any role", anyone, userTok, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(tt.router, tt.token)
			if w.Code != tt.want {
				t.Fatalf("code = %d, want %d (%s)", w.Code, tt.want, w.Body)
			}
		})
	}

	if w := do(onlyTherapist, therTok); w.Body.String() != "t1" {
		t.Errorf("user id = %q, want t1", w.Body)
	}
}

func TestGateRejectsRevoked(t *testing.T) {
	signer := auth.NewSigner("secret", 0)
	rev := memory.NewRevocations()
	r := newRouter(middleware.NewGate(signer, rev, accounts(t), discard))

	tok, _ := signer.MakeToken("u1", model.RoleUser)
	c, _ := signer.ParseToken(tok)
	if w := do(r, tok); w.Code != http.StatusOK {
		t.Fatalf("before revoke: %d", w.Code)
	}
	_ = rev.Revoke(context.Background(), c.ID, c.ExpiresAt.Time)
	if w := do(r, tok); w.Code != http.StatusUnauthorized {
		t.Fatalf("after revoke: %d, want 401", w.Code)
	}
}

func TestMalformedHeader(t *testing.T) {
	signer := auth.NewSigner("secret", 0)
	r := newRouter(middleware.NewGate(signer, memory.NewRevocations(), accounts(t), discard))
	tok, _ := signer.MakeToken("u1", model.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Token "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", w.Code)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestGateRejectsDeletedUser(t *testing.T) {
	signer := auth.NewSigner("secret", 0)
	st := accounts(t)
	r := newRouter(middleware.NewGate(signer, memory.NewRevocations(), st, discard))

	ghost, _ := signer.MakeToken("nobody", model.RoleAdmin)
	if w := do(r, ghost); w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown subject: %d, want 401", w.Code)
	}

	tok, _ := signer.MakeToken("u1", model.RoleUser)
	if w := do(r, tok); w.Code != http.StatusOK {
		t.Fatalf("before delete: %d", w.Code)
	}
	if err := st.DeleteUser(context.Background(), "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if w := do(r, tok); w.Code != http.StatusUnauthorized {
		t.Fatalf("after delete: %d, want 401", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestLogger(discard))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, middleware.RequestID(c)) })

	long := strings.Repeat("a", 100)
	tests := []struct {
		name string
		sent string
		keep bool
	}{
		{"none", "", false},
		{"well formed", "req-42-abc", true},
		{"spaces and punctuation", "bad id!", false},
		{"log injection", "x\nlevel=ERROR", false},
		{"too long", long, false},
		{"max length", long[:64], true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.sent != "" {
				req.Header.Set(middleware.RequestIDHeader, tt.sent)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(middleware.RequestIDHeader)
			if got == "" || got != w.Body.String() {
				t.Fatalf("header %q, context %q", got, w.Body)
			}
			if tt.keep != (got == tt.sent) {
				t.Errorf("sent %q, got %q, keep = %v", tt.sent, got, tt.keep)
			}
			if !tt.keep {
				if _, err := uuid.Parse(got); err != nil {
					t.Errorf("replacement %q is not a uuid", got)
				}
			}
		})
	}
}

func TestRateLimitIgnoresForwardedFor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := middleware.NewRateLimiter(ctx, 1, 2)

	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		t.Fatal(err)
	}
	r.POST("/login", middleware.RateLimit(rl), func(c *gin.Context) { c.Status(http.StatusOK) })

	limited := false
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("1.2.3.%d", i))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("rotating X-Forwarded-For escaped the limiter")
	}
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := middleware.NewRateLimiter(ctx, 1, 2)

	r := gin.New()
	r.POST("/login", middleware.RateLimit(rl), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [200 200 429]", codes)
	}

	// a different client has its own bucket
	if !rl.Allow("10.0.0.2") {
		t.Error("second client limited")
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Recovery(discard))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", w.Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORS([]string{"https://app.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight code = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin allowed: %q", got)
	}
}
