package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	hub := NewHub()
	store := NewStore(db, hub)
	store.FetchAll()
	return SetupRouter(db, store, hub, Config{}), db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signup(t *testing.T, r *gin.Engine, email, password string) []*http.Cookie {
	t.Helper()
	w := doJSON(t, r, "POST", "/api/v1/auth/signup", SignupReq{
		Email: email, Password: password, ConfirmPassword: password,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signup: status %d, body %s", w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func TestSignupPasswordMismatch(t *testing.T) {
	r, db := newTestServer(t)

	w := doJSON(t, r, "POST", "/api/v1/auth/signup", SignupReq{
		Email: "kid@example.com", Password: "secret123", ConfirmPassword: "secret124",
	}, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	// Nothing is created before the confirm check passes.
	var count int64
	db.Model(&Identity{}).Count(&count)
	if count != 0 {
		t.Errorf("identity created despite mismatch: %d rows", count)
	}
}

func TestSignupCreatesProfileWithUserRole(t *testing.T) {
	r, db := newTestServer(t)
	cookies := signup(t, r, "kid@example.com", "secret123")

	var identity Identity
	if err := db.First(&identity, "email = ?", "kid@example.com").Error; err != nil {
		t.Fatalf("identity not created: %v", err)
	}
	var profile Profile
	if err := db.First(&profile, "id = ?", identity.ID).Error; err != nil {
		t.Fatalf("profile not created: %v", err)
	}
	if profile.Role != RoleUser {
		t.Errorf("default role = %q, want user", profile.Role)
	}

	w := doJSON(t, r, "GET", "/api/v1/me", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("/me: status %d", w.Code)
	}
	var me MeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode /me: %v", err)
	}
	if me.Role != RoleUser || me.Landing != "/dashboard" {
		t.Errorf("/me = %+v, want user landing /dashboard", me)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	r, _ := newTestServer(t)
	signup(t, r, "kid@example.com", "secret123")

	w := doJSON(t, r, "POST", "/api/v1/auth/signup", SignupReq{
		Email: "kid@example.com", Password: "other456", ConfirmPassword: "other456",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestLogin(t *testing.T) {
	r, _ := newTestServer(t)
	signup(t, r, "kid@example.com", "secret123")

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"good credentials", "kid@example.com", "secret123", http.StatusOK},
		{"wrong password", "kid@example.com", "nope", http.StatusUnauthorized},
		{"unknown email", "ghost@example.com", "secret123", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, "POST", "/api/v1/auth/login", LoginReq{Email: tt.email, Password: tt.password}, nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestLogoutEndsSession(t *testing.T) {
	r, _ := newTestServer(t)
	cookies := signup(t, r, "kid@example.com", "secret123")

	w := doJSON(t, r, "POST", "/api/v1/auth/logout", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status %d", w.Code)
	}
	w = doJSON(t, r, "GET", "/api/v1/me", nil, cookies)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("/me after logout: status %d, want 401", w.Code)
	}
}

func TestRoleGuard(t *testing.T) {
	r, db := newTestServer(t)
	if err := EnsureAdmin(db, "boss@example.com", "secret123"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	userCookies := signup(t, r, "kid@example.com", "secret123")

	w := doJSON(t, r, "POST", "/api/v1/auth/login", LoginReq{Email: "boss@example.com", Password: "secret123"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin login: status %d", w.Code)
	}
	adminCookies := w.Result().Cookies()

	// No identity at all.
	if w := doJSON(t, r, "GET", "/api/v1/admin/nav", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous admin access: status %d, want 401", w.Code)
	}

	// Student on the admin surface is pointed at the student landing.
	w = doJSON(t, r, "GET", "/api/v1/admin/nav", nil, userCookies)
	if w.Code != http.StatusForbidden {
		t.Fatalf("student admin access: status %d, want 403", w.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["redirect"] != "/dashboard" {
		t.Errorf("redirect = %q, want /dashboard", body["redirect"])
	}

	// Admin on the student quiz surface is pointed at the admin panel.
	w = doJSON(t, r, "GET", "/api/v1/quiz/state", nil, adminCookies)
	if w.Code != http.StatusForbidden {
		t.Fatalf("admin quiz access: status %d, want 403", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["redirect"] != "/admin" {
		t.Errorf("redirect = %q, want /admin", body["redirect"])
	}

	// The right roles pass.
	if w := doJSON(t, r, "GET", "/api/v1/admin/nav", nil, adminCookies); w.Code != http.StatusOK {
		t.Errorf("admin nav: status %d, want 200", w.Code)
	}
	if w := doJSON(t, r, "GET", "/api/v1/quiz/state", nil, userCookies); w.Code != http.StatusOK {
		t.Errorf("student quiz state: status %d, want 200", w.Code)
	}
}

func TestLandingRouteFor(t *testing.T) {
	if got := landingRouteFor(RoleAdmin); got != "/admin" {
		t.Errorf("landingRouteFor(admin) = %q", got)
	}
	if got := landingRouteFor(RoleUser); got != "/dashboard" {
		t.Errorf("landingRouteFor(user) = %q", got)
	}
}

func TestPrefsValidationAndPersistence(t *testing.T) {
	r, _ := newTestServer(t)
	cookies := signup(t, r, "kid@example.com", "secret123")

	dark, ar := "dark", "ar"
	w := doJSON(t, r, "PUT", "/api/v1/me/prefs", PrefsReq{Theme: &dark, Language: &ar}, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("prefs update: status %d, body %s", w.Code, w.Body.String())
	}

	bad := "sepia"
	if w := doJSON(t, r, "PUT", "/api/v1/me/prefs", PrefsReq{Theme: &bad}, cookies); w.Code != http.StatusBadRequest {
		t.Errorf("invalid theme accepted: status %d", w.Code)
	}
	badLang := "fr"
	if w := doJSON(t, r, "PUT", "/api/v1/me/prefs", PrefsReq{Language: &badLang}, cookies); w.Code != http.StatusBadRequest {
		t.Errorf("invalid language accepted: status %d", w.Code)
	}

	// The valid update survives; the invalid ones changed nothing.
	w = doJSON(t, r, "GET", "/api/v1/me", nil, cookies)
	var me MeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &me)
	if me.Theme != "dark" || me.Language != "ar" {
		t.Errorf("prefs not persisted: %+v", me)
	}
}
