package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"mwas-backend/internal/auth"
	"mwas-backend/internal/handler"
	"mwas-backend/internal/middleware"
	"mwas-backend/internal/model"
	"mwas-backend/internal/service"
	"mwas-backend/internal/store/memory"
)

func init() { gin.SetMode(gin.TestMode) }

type app struct {
	t      *testing.T
	router http.Handler
	st     *memory.Store
}

func setup(t *testing.T) *app {
	t.Helper()
	return setupWith(t, handler.RouterConfig{})
}

// setupWith builds the app around rc, filling in the gate and any limiter or
// origins rc leaves unset.
func setupWith(t *testing.T, rc handler.RouterConfig) *app {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.New()
	rev := memory.NewRevocations()
	hasher, err := auth.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	signer := auth.NewSigner("test-secret", 0)

	h := handler.New(st, handler.Services{
		Auth:         service.NewAuthService(st, rev, hasher, signer, logger),
		Appointments: service.NewAppointmentService(st, logger),
		Therapists:   service.NewTherapistService(st, logger),
		Users:        service.NewUserService(st, logger),
		Chat:         service.NewChatService(st, service.CannedResponder{}, logger),
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rc.Gate = middleware.NewGate(signer, rev, st, logger)
	if rc.AuthLimiter == nil {
		rc.AuthLimiter = middleware.NewRateLimiter(ctx, 1000, 1000)
	}
	if rc.AllowedOrigins == nil {
		rc.AllowedOrigins = []string{"*"}
	}
	r, err := h.Router(rc)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return &app{t: t, router: r, st: st}
}

func (a *app) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expect(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	if w.Code != code {
		t.Fatalf("code = %d, want %d: %s", w.Code, code, w.Body.String())
	}
}

// account signs up and logs in, returning the user id and token.
func (a *app) account(name, email, role string) (string, string) {
	a.t.Helper()
	expect(a.t, a.do("POST", "/api/auth/signup", "", gin.H{
		"name": name, "email": email, "password": "pw123", "role": role,
	}), http.StatusCreated)

	w := a.do("POST", "/api/auth/login", "", gin.H{"email": email, "password": "pw123", "role": role})
	expect(a.t, w, http.StatusOK)
	res := decode[service.LoginResult](a.t, w)
	return res.User.ID, res.Token
}

// ----- auth -----

func TestSignupLogin(t *testing.T) {
	a := setup(t)

	w := a.do("POST", "/api/auth/signup", "", gin.H{
		"name": "Ann", "email": "ann@x.com", "password": "pw123", "role": "user",
	})
	expect(t, w, http.StatusCreated)
	if bytes.Contains(w.Body.Bytes(), []byte("password")) || bytes.Contains(w.Body.Bytes(), []byte("$2a$")) {
		t.Errorf("signup leaks password: %s", w.Body)
	}

	w = a.do("POST", "/api/auth/login", "", gin.H{"email": "ann@x.com", "password": "pw123", "role": "user"})
	expect(t, w, http.StatusOK)
	res := decode[service.LoginResult](t, w)
	if res.Token == "" || res.User.Name != "Ann" || res.User.Role != model.RoleUser {
		t.Errorf("login = %+v", res)
	}
}

func TestSignupRejects(t *testing.T) {
	a := setup(t)
	a.account("Ann", "ann@x.com", "user")

	tests := []struct {
		name string
		body any
	}{
		{"missing fields", gin.H{"email": "b@x.com"}},
		{"bad role", gin.H{"name": "B", "email": "b@x.com", "password": "pw", "role": "root"}},
		{"duplicate", gin.H{"name": "B", "email": "ann@x.com", "password": "pw", "role": "user"}},
		{"not json", "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do("POST", "/api/auth/signup", "", tt.body)
			expect(t, w, http.StatusBadRequest)
			if decode[map[string]string](t, w)["error"] == "" {
				t.Error("missing error message")
			}
		})
	}

	if n, _ := a.st.CountUsers(context.Background()); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
}

func TestLoginWrongRole(t *testing.T) {
	a := setup(t)
	a.account("Ann", "ann@x.com", "user")

	wrongRole := a.do("POST", "/api/auth/login", "", gin.H{"email": "ann@x.com", "password": "pw123", "role": "therapist"})
	wrongPw := a.do("POST", "/api/auth/login", "", gin.H{"email": "ann@x.com", "password": "nope", "role": "user"})
	expect(t, wrongRole, http.StatusBadRequest)
	expect(t, wrongPw, http.StatusBadRequest)
	if wrongRole.Body.String() != wrongPw.Body.String() {
		t.Errorf("distinguishable failures: %s vs %s", wrongRole.Body, wrongPw.Body)
	}
}

func TestLogout(t *testing.T) {
	a := setup(t)
	_, tok := a.account("Ann", "ann@x.com", "user")

	expect(t, a.do("POST", "/api/chat", tok, gin.H{"message": "hi"}), http.StatusCreated)
	expect(t, a.do("POST", "/api/auth/logout", tok, nil), http.StatusOK)
	expect(t, a.do("POST", "/api/chat", tok, gin.H{"message": "hi"}), http.StatusUnauthorized)
}

// ----- appointments -----

func TestAppointmentWorkflow(t *testing.T) {
	a := setup(t)
	annID, ann := a.account("Ann", "ann@x.com", "user")
	t1ID, t1 := a.account("T1", "t1@x.com", "therapist")
	_, t2 := a.account("T2", "t2@x.com", "therapist")

	// userId and status in the body are ignored
	w := a.do("POST", "/api/appointments", ann, gin.H{
		"therapistId": t1ID, "datetime": "2024-01-01T10:00",
		"userId": "someone-else", "status": "confirmed",
	})
	expect(t, w, http.StatusCreated)
	appt := decode[model.Appointment](t, w)
	if appt.Status != model.StatusPending || appt.UserID != annID || appt.TherapistID != t1ID {
		t.Fatalf("created = %+v", appt)
	}

	path := "/api/appointments/" + appt.ID

	// another therapist cannot see or decide it
	w = a.do("PUT", path, t2, gin.H{"status": "confirmed"})
	expect(t, w, http.StatusNotFound)
	if bytes.Contains(w.Body.Bytes(), []byte(annID)) {
		t.Error("404 body leaks appointment data")
	}

	expect(t, a.do("PUT", path, t1, gin.H{"status": "done"}), http.StatusBadRequest)
	if got, _ := a.st.AppointmentByID(context.Background(), appt.ID); got.Status != model.StatusPending {
		t.Fatalf("status = %s after bad transition", got.Status)
	}

	w = a.do("PUT", path, t1, gin.H{"status": "confirmed"})
	expect(t, w, http.StatusOK)
	if decode[model.Appointment](t, w).Status != model.StatusConfirmed {
		t.Error("not confirmed")
	}

	expect(t, a.do("PUT", path, t1, gin.H{"status": "rejected"}), http.StatusConflict)
	expect(t, a.do("PUT", "/api/appointments/missing", t1, gin.H{"status": "rejected"}), http.StatusNotFound)
}

func TestAppointmentAccess(t *testing.T) {
	a := setup(t)
	_, ann := a.account("Ann", "ann@x.com", "user")
	t1ID, t1 := a.account("T1", "t1@x.com", "therapist")
	t2ID, _ := a.account("T2", "t2@x.com", "therapist")

	body := gin.H{"therapistId": t1ID, "datetime": "2030-05-01T09:00:00Z"}
	expect(t, a.do("POST", "/api/appointments", "", body), http.StatusUnauthorized)
	expect(t, a.do("POST", "/api/appointments", "garbage", body), http.StatusUnauthorized)
	expect(t, a.do("POST", "/api/appointments", t1, body), http.StatusForbidden)
	expect(t, a.do("POST", "/api/appointments", ann, gin.H{"therapistId": t1ID}), http.StatusBadRequest)
	expect(t, a.do("POST", "/api/appointments", ann, gin.H{"therapistId": "nobody", "datetime": "2030-05-01"}), http.StatusNotFound)
	expect(t, a.do("POST", "/api/appointments", ann, body), http.StatusCreated)

	w := a.do("GET", "/api/appointments", t1, nil)
	expect(t, w, http.StatusOK)
	list := decode[[]model.AppointmentView](t, w)
	if len(list) != 1 || list[0].User == nil || list[0].User.Name != "Ann" {
		t.Fatalf("therapist list = %+v", list)
	}

	expect(t, a.do("GET", "/api/appointments?therapistId="+t1ID, t1, nil), http.StatusOK)
	expect(t, a.do("GET", "/api/appointments?therapistId="+t2ID, t1, nil), http.StatusForbidden)
	expect(t, a.do("GET", "/api/appointments", ann, nil), http.StatusForbidden)

	w = a.do("GET", "/api/appointments/mine", ann, nil)
	expect(t, w, http.StatusOK)
	if got := decode[[]model.AppointmentView](t, w); len(got) != 1 {
		t.Errorf("mine = %d, want 1", len(got))
	}
}

// ----- therapists, chat, admin -----

func TestTherapistEndpoints(t *testing.T) {
	a := setup(t)
	_, ann := a.account("Ann", "ann@x.com", "user")
	_, t1 := a.account("T1", "t1@x.com", "therapist")

	profile := gin.H{"specialization": "Anxiety", "bio": "10 years", "experience": 10}
	expect(t, a.do("POST", "/api/therapists", ann, profile), http.StatusForbidden)
	expect(t, a.do("POST", "/api/therapists", t1, profile), http.StatusCreated)
	expect(t, a.do("POST", "/api/therapists", t1, profile), http.StatusBadRequest)

	w := a.do("PUT", "/api/therapists/availability", t1, gin.H{
		"availability": []gin.H{{"day": "Monday", "start": "09:00", "end": "12:00"}},
	})
	expect(t, w, http.StatusOK)
	if th := decode[model.Therapist](t, w); len(th.Availability) != 1 || th.Specialization != "Anxiety" {
		t.Errorf("therapist = %+v", th)
	}

	w = a.do("GET", "/api/therapists", "", nil)
	expect(t, w, http.StatusOK)
	list := decode[[]model.TherapistView](t, w)
	if len(list) != 1 || list[0].User == nil || list[0].User.Name != "T1" {
		t.Errorf("therapists = %+v", list)
	}
}

func TestAvailabilityErrors(t *testing.T) {
	a := setup(t)
	_, t1 := a.account("T1", "t1@x.com", "therapist")

	tests := []struct {
		name string
		body any
		want string
	}{
		{"string", gin.H{"availability": "monday"}, "availability must be an array"},
		{"object", gin.H{"availability": gin.H{"day": "Monday"}}, "availability must be an array"},
		{"missing", gin.H{}, "availability must be an array"},
		{"null", gin.H{"availability": nil}, "availability must be an array"},
		{"numeric day", gin.H{"availability": []gin.H{{"day": 5, "start": "09:00", "end": "10:00"}}}, "invalid request body"},
		{"string element", gin.H{"availability": []string{"monday"}}, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do("PUT", "/api/therapists/availability", t1, tt.body)
			expect(t, w, http.StatusBadRequest)
			if got := decode[map[string]string](t, w)["error"]; got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProfileAfterAvailability(t *testing.T) {
	a := setup(t)
	_, t1 := a.account("T1", "t1@x.com", "therapist")

	w := a.do("PUT", "/api/therapists/availability", t1, gin.H{
		"availability": []gin.H{{"day": "Tuesday", "start": "13:00", "end": "15:00"}},
	})
	expect(t, w, http.StatusOK)
	bare := decode[model.Therapist](t, w)

	profile := gin.H{"specialization": "Grief", "bio": "hospice work", "experience": 4}
	w = a.do("POST", "/api/therapists", t1, profile)
	expect(t, w, http.StatusCreated)
	th := decode[model.Therapist](t, w)
	if th.ID != bare.ID || th.Specialization != "Grief" || th.Experience != 4 {
		t.Errorf("profile = %+v", th)
	}
	if len(th.Availability) != 1 || th.Availability[0].Day != "Tuesday" {
		t.Errorf("availability lost: %+v", th.Availability)
	}

	expect(t, a.do("POST", "/api/therapists", t1, profile), http.StatusBadRequest)

	w = a.do("GET", "/api/therapists", "", nil)
	expect(t, w, http.StatusOK)
	if list := decode[[]model.TherapistView](t, w); len(list) != 1 {
		t.Errorf("therapists = %+v", list)
	}
}

func TestChat(t *testing.T) {
	a := setup(t)
	id, tok := a.account("Ann", "ann@x.com", "user")

	expect(t, a.do("POST", "/api/chat", tok, gin.H{}), http.StatusBadRequest)
	w := a.do("POST", "/api/chat", tok, gin.H{"message": "hello"})
	expect(t, w, http.StatusCreated)
	c := decode[model.Chat](t, w)
	if c.UserID != id || c.Response != "You said: hello. Here's a calming tip: take a deep breath!" {
		t.Errorf("chat = %+v", c)
	}
}

func TestAdmin(t *testing.T) {
	a := setup(t)
	_, ann := a.account("Ann", "ann@x.com", "user")
	t1ID, _ := a.account("T1", "t1@x.com", "therapist")
	_, admin := a.account("Root", "root@x.com", "admin")

	expect(t, a.do("POST", "/api/appointments", ann, gin.H{"therapistId": t1ID, "datetime": "2030-01-01"}), http.StatusCreated)
	expect(t, a.do("GET", "/api/admin/stats", ann, nil), http.StatusForbidden)

	w := a.do("GET", "/api/admin/stats", admin, nil)
	expect(t, w, http.StatusOK)
	if st := decode[model.Stats](t, w); st.Users != 3 || st.Appointments != 1 {
		t.Errorf("stats = %+v", st)
	}

	w = a.do("GET", "/api/admin/appointments?therapistId="+t1ID, admin, nil)
	expect(t, w, http.StatusOK)
	list := decode[[]model.AppointmentView](t, w)
	if len(list) != 1 || list[0].Therapist == nil || list[0].Therapist.Name != "T1" {
		t.Errorf("admin list = %+v", list)
	}

	w = a.do("GET", "/api/users", admin, nil)
	expect(t, w, http.StatusOK)
	if bytes.Contains(w.Body.Bytes(), []byte("$2a$")) {
		t.Error("user list leaks hashes")
	}

	w = a.do("POST", "/api/users", admin, gin.H{"name": "New", "email": "new@x.com", "password": "pw", "role": "user"})
	expect(t, w, http.StatusCreated)
	newID := decode[model.PublicUser](t, w).ID

	expect(t, a.do("PUT", "/api/users/"+newID, admin, gin.H{"email": "ann@x.com"}), http.StatusBadRequest)
	w = a.do("PUT", "/api/users/"+newID, admin, gin.H{"name": "Renamed"})
	expect(t, w, http.StatusOK)
	if decode[model.PublicUser](t, w).Name != "Renamed" {
		t.Error("rename not applied")
	}
	expect(t, a.do("DELETE", "/api/users/"+newID, admin, nil), http.StatusOK)
	expect(t, a.do("GET", "/api/users/"+newID, admin, nil), http.StatusNotFound)
}

func TestDeletedUserTokenRejected(t *testing.T) {
	a := setup(t)
	annID, ann := a.account("Ann", "ann@x.com", "user")
	_, admin := a.account("Root", "root@x.com", "admin")

	expect(t, a.do("POST", "/api/chat", ann, gin.H{"message": "hi"}), http.StatusCreated)
	expect(t, a.do("DELETE", "/api/users/"+annID, admin, nil), http.StatusOK)

	w := a.do("POST", "/api/chat", ann, gin.H{"message": "still here?"})
	expect(t, w, http.StatusUnauthorized)
	if decode[map[string]string](t, w)["error"] != "Invalid token" {
		t.Errorf("body = %s", w.Body)
	}
}

func TestLoginLimitKeysOnPeer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := setupWith(t, handler.RouterConfig{AuthLimiter: middleware.NewRateLimiter(ctx, 0.001, 2)})

	limited := false
	for i := 0; i < 20 && !limited; i++ {
		b, _ := json.Marshal(gin.H{"email": "x@x.com", "password": "nope", "role": "user"})
		req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("1.2.3.%d", i))
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)
		limited = w.Code == http.StatusTooManyRequests
	}
	if !limited {
		t.Fatal("rotating X-Forwarded-For escaped the login limiter")
	}
}

func TestTrustedProxyForwardedFor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := setupWith(t, handler.RouterConfig{
		AuthLimiter:    middleware.NewRateLimiter(ctx, 0.001, 1),
		TrustedProxies: []string{"10.0.0.0/8"},
	})

	// behind a trusted proxy each forwarded client has its own bucket
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("1.2.3.%d", i))
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			t.Fatalf("client %d limited", i)
		}
	}
}

func TestRouterRejectsBadProxy(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.New(memory.New(), handler.Services{}, logger)
	if _, err := h.Router(handler.RouterConfig{TrustedProxies: []string{"not-an-ip"}}); err == nil {
		t.Fatal("expected error for bad proxy entry")
	}
}

func TestMisc(t *testing.T) {
	a := setup(t)
	expect(t, a.do("GET", "/", "", nil), http.StatusOK)

	w := a.do("GET", "/health", "", nil)
	expect(t, w, http.StatusOK)
	if decode[map[string]string](t, w)["database"] != "connected" {
		t.Errorf("health = %s", w.Body)
	}

	w = a.do("GET", "/api/nowhere", "", nil)
	expect(t, w, http.StatusNotFound)
	if decode[map[string]string](t, w)["error"] != "Route not found" {
		t.Errorf("fallback = %s", w.Body)
	}
}

type failingStore struct{ *memory.Store }

func (failingStore) ListTherapists(context.Context) ([]model.Therapist, error) {
	return nil, errors.New("connection reset")
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := failingStore{memory.New()}
	h := handler.New(st, handler.Services{Therapists: service.NewTherapistService(st, logger)}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r, err := h.Router(handler.RouterConfig{
		Gate:        middleware.NewGate(auth.NewSigner("s", 0), memory.NewRevocations(), st, logger),
		AuthLimiter: middleware.NewRateLimiter(ctx, 1, 1),
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/therapists", nil))
	expect(t, w, http.StatusInternalServerError)
	if bytes.Contains(w.Body.Bytes(), []byte("connection reset")) {
		t.Errorf("internal detail leaked: %s", w.Body)
	}
}
