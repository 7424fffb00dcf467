package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"company-directory/internal/db"
	"company-directory/internal/repository"
	"company-directory/internal/service"
)

func setupAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	sqlDB, err := db.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.MigrateSQLite(ctx, sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := zap.NewNop()
	sessions := service.NewSessionService(logger, repository.NewSQLiteSessionRepository(sqlDB), 24*time.Hour)
	authServ := service.NewAuthService(logger, repository.NewSQLiteUserRepository(sqlDB), sessions, service.NewLoginLimiter(time.Minute, 5))
	companies := service.NewCompanyService(logger, repository.NewSQLiteCompanyRepository(sqlDB), 3)
	authn := NewAuthenticator(logger, sessions)

	return NewRouter(logger, RouterConfig{MaxBodyBytes: DefaultMaxBodyBytes, HealthCheck: sqlDB.PingContext}, authn,
		NewAuthHandler(logger, authServ, sessions),
		NewCompanyHandler(logger, companies, authn),
	)
}

func performRequest(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var payload []byte
	switch v := body.(type) {
	case nil:
	case string:
		payload = []byte(v)
	default:
		payload, _ = json.Marshal(v)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode message from %q: %v", rec.Body.String(), err)
	}
	return body.Message
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

type authBody struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      struct {
		ID        string `json:"id"`
		Username  string `json:"username"`
		CreatedAt string `json:"createdAt"`
	} `json:"user"`
}

type companyBody struct {
	ID          string   `json:"id"`
	CompanyName string   `json:"companyName"`
	FoundedYear int      `json:"foundedYear"`
	IsPublic    bool     `json:"isPublic"`
	OwnerID     *string  `json:"ownerId"`
	Management  []string `json:"management"`
}

func register(t *testing.T, r http.Handler, username string) authBody {
	t.Helper()
	rec := performRequest(r, http.MethodPost, "/api/auth/register",
		map[string]any{"username": username, "password": "password123"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d %s", username, rec.Code, rec.Body.String())
	}
	var body authBody
	decodeInto(t, rec, &body)
	return body
}

func companyPayload(name string, public bool) map[string]any {
	return map[string]any{
		"companyName":   name,
		"krsNIPorHRB":   "KRS-" + name,
		"status":        "active",
		"description":   "Test company",
		"country":       "Poland",
		"industry":      "Software",
		"employeeCount": "10-50",
		"foundedYear":   "2020",
		"address":       "Warszawa",
		"website":       "https://example.com",
		"contactEmail":  "hello@example.com",
		"phoneNumber":   "+48 000",
		"revenue":       "1M",
		"management":    "Anna, Piotr",
		"isPublic":      public,
	}
}

func TestAPI_EndToEndVisibility(t *testing.T) {
	r := setupAPI(t)

	alice := register(t, r, "alice")
	if len(alice.Token) != 96 || alice.User.Username != "alice" || alice.User.CreatedAt == "" {
		t.Fatalf("unexpected register response %+v", alice)
	}

	rec := performRequest(r, http.MethodPost, "/api/companies", companyPayload("Secret Co", false), alice.Token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var created companyBody
	decodeInto(t, rec, &created)
	if created.IsPublic || created.FoundedYear != 2020 || created.OwnerID == nil || *created.OwnerID != alice.User.ID {
		t.Fatalf("unexpected created company %+v", created)
	}
	if len(created.Management) != 2 || created.Management[1] != "Piotr" {
		t.Fatalf("expected parsed management list, got %v", created.Management)
	}

	var list []companyBody
	rec = performRequest(r, http.MethodGet, "/api/companies", nil, "")
	decodeInto(t, rec, &list)
	if rec.Code != http.StatusOK || len(list) != 0 {
		t.Fatalf("private company must not be listed publicly: %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(r, http.MethodGet, "/api/companies?mine=true", nil, alice.Token)
	decodeInto(t, rec, &list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("expected owner listing to include company, got %s", rec.Body.String())
	}

	bob := register(t, r, "bob")
	rec = performRequest(r, http.MethodGet, "/api/companies?mine=true", nil, bob.Token)
	decodeInto(t, rec, &list)
	if len(list) != 0 {
		t.Fatalf("bob must not see alice's company")
	}

	rec = performRequest(r, http.MethodGet, "/api/companies/"+created.ID, nil, alice.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner get: expected 200, got %d", rec.Code)
	}
	rec = performRequest(r, http.MethodGet, "/api/companies/"+created.ID, nil, bob.Token)
	if rec.Code != http.StatusForbidden || decodeMessage(t, rec) != "Access to this company is restricted" {
		t.Fatalf("stranger get: expected 403, got %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(r, http.MethodGet, "/api/companies/"+created.ID, nil, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous get: expected 403, got %d", rec.Code)
	}
}

func TestAPI_CompanyLookupErrors(t *testing.T) {
	r := setupAPI(t)

	rec := performRequest(r, http.MethodGet, "/api/companies/not-a-uuid", nil, "")
	if rec.Code != http.StatusBadRequest || decodeMessage(t, rec) != "Invalid company id" {
		t.Fatalf("expected 400 invalid id, got %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(r, http.MethodGet, "/api/companies/7f1c1a52-6c2e-4bde-9a3f-3b0f4c0b9d11", nil, "")
	if rec.Code != http.StatusNotFound || decodeMessage(t, rec) != "Company not found" {
		t.Fatalf("expected 404, got %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(r, http.MethodGet, "/api/companies?mine=true", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for mine without token, got %d", rec.Code)
	}
	rec = performRequest(r, http.MethodPost, "/api/companies", companyPayload("X", true), "")
	if rec.Code != http.StatusUnauthorized || decodeMessage(t, rec) != "Authentication required" {
		t.Fatalf("expected 401 for anonymous create, got %d", rec.Code)
	}
}

func TestAPI_RegisterAndLoginRules(t *testing.T) {
	r := setupAPI(t)

	cases := []struct {
		body any
		code int
		msg  string
	}{
		{"", http.StatusBadRequest, "Username is required"},
		{`{"username": 5, "password": "password123"}`, http.StatusBadRequest, "Username is required"},
		{map[string]any{"username": "al", "password": "password123"}, http.StatusBadRequest, "Username must be at least 3 characters long"},
		{map[string]any{"username": "alice", "password": "short"}, http.StatusBadRequest, "Password must be at least 8 characters long"},
		{`{"username":`, http.StatusBadRequest, "Invalid JSON payload"},
	}
	for _, tc := range cases {
		rec := performRequest(r, http.MethodPost, "/api/auth/register", tc.body, "")
		if rec.Code != tc.code || decodeMessage(t, rec) != tc.msg {
			t.Fatalf("body %v: expected %d %q, got %d %s", tc.body, tc.code, tc.msg, rec.Code, rec.Body.String())
		}
	}

	register(t, r, "alice")
	rec := performRequest(r, http.MethodPost, "/api/auth/register",
		map[string]any{"username": " alice ", "password": "password456"}, "")
	if rec.Code != http.StatusConflict || decodeMessage(t, rec) != "This username is already registered" {
		t.Fatalf("expected 409, got %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(r, http.MethodPost, "/api/auth/login", map[string]any{"username": "alice"}, "")
	if rec.Code != http.StatusBadRequest || decodeMessage(t, rec) != "Username and password are required" {
		t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(r, http.MethodPost, "/api/auth/login", map[string]any{"username": "alice", "password": "wrongpass"}, "")
	wrong := decodeMessage(t, rec)
	rec = performRequest(r, http.MethodPost, "/api/auth/login", map[string]any{"username": "nobody", "password": "password123"}, "")
	unknown := decodeMessage(t, rec)
	if rec.Code != http.StatusUnauthorized || wrong != unknown || wrong != "Invalid username or password" {
		t.Fatalf("expected identical 401 messages, got %q and %q", wrong, unknown)
	}

	rec = performRequest(r, http.MethodPost, "/api/auth/login", map[string]any{"username": "alice", "password": "password123"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var login authBody
	decodeInto(t, rec, &login)
	if login.User.Username != "alice" || login.User.CreatedAt != "" || login.Token == "" {
		t.Fatalf("unexpected login response %s", rec.Body.String())
	}

	rec = performRequest(r, http.MethodGet, "/api/auth/me", nil, login.Token)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"username":"alice"`) {
		t.Fatalf("expected me to return alice, got %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(r, http.MethodPost, "/api/auth/logout", nil, login.Token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on logout, got %d", rec.Code)
	}
	rec = performRequest(r, http.MethodGet, "/api/auth/me", nil, login.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token must not authenticate, got %d", rec.Code)
	}
}

func TestAPI_LoginThrottling(t *testing.T) {
	r := setupAPI(t)
	register(t, r, "alice")

	for i := 0; i < 5; i++ {
		rec := performRequest(r, http.MethodPost, "/api/auth/login", map[string]any{"username": "alice", "password": "guess12345"}, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("failed login %d: expected 401, got %d", i+1, rec.Code)
		}
	}
	rec := performRequest(r, http.MethodPost, "/api/auth/login", map[string]any{"username": "alice", "password": "password123"}, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after too many failures, got %d", rec.Code)
	}

	for i := 0; i < 6; i++ {
		rec = performRequest(r, http.MethodPost, "/api/auth/login", map[string]any{"username": "mallory", "password": "guess12345"}, "")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected unknown usernames to be throttled too, got %d", rec.Code)
	}
}

func TestAPI_RepeatedSuccessfulLoginsAreNotThrottled(t *testing.T) {
	r := setupAPI(t)
	register(t, r, "alice")

	for i := 0; i < 4; i++ {
		rec := performRequest(r, http.MethodPost, "/api/auth/login", map[string]any{"username": "alice", "password": "wrong-pass"}, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("failed login %d: expected 401, got %d", i+1, rec.Code)
		}
	}
	for i := 0; i < 8; i++ {
		rec := performRequest(r, http.MethodPost, "/api/auth/login", map[string]any{"username": "alice", "password": "password123"}, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("login %d: expected 200, got %d %s", i+1, rec.Code, rec.Body.String())
		}
	}
	// Un login correcto limpia los fallos previos.
	for i := 0; i < 4; i++ {
		performRequest(r, http.MethodPost, "/api/auth/login", map[string]any{"username": "alice", "password": "wrong-pass"}, "")
	}
	rec := performRequest(r, http.MethodPost, "/api/auth/login", map[string]any{"username": "alice", "password": "password123"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after failures were cleared, got %d", rec.Code)
	}
}

func TestAPI_CreateValidation(t *testing.T) {
	r := setupAPI(t)
	alice := register(t, r, "alice")

	payload := companyPayload("Acme", true)
	payload["foundedYear"] = 3.5
	rec := performRequest(r, http.MethodPost, "/api/companies", payload, alice.Token)
	if rec.Code != http.StatusBadRequest || decodeMessage(t, rec) != `Field "foundedYear" must be a positive integer year` {
		t.Fatalf("expected founded year error, got %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(r, http.MethodPost, "/api/companies", "", alice.Token)
	if rec.Code != http.StatusBadRequest || decodeMessage(t, rec) != `Field "companyName" is required` {
		t.Fatalf("expected empty body to fail on companyName, got %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(r, http.MethodPost, "/api/companies", "[1,2]", alice.Token)
	if rec.Code != http.StatusBadRequest || decodeMessage(t, rec) != "Invalid company payload" {
		t.Fatalf("expected invalid payload, got %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(r, http.MethodPost, "/api/companies", "{} trailing", alice.Token)
	if rec.Code != http.StatusBadRequest || decodeMessage(t, rec) != "Invalid JSON payload" {
		t.Fatalf("expected invalid JSON, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_ImportIsAtomic(t *testing.T) {
	r := setupAPI(t)
	alice := register(t, r, "alice")

	invalid := companyPayload("Broken", true)
	invalid["foundedYear"] = "abc"
	rec := performRequest(r, http.MethodPost, "/api/companies/import",
		[]any{companyPayload("First", true), invalid, companyPayload("Third", true)}, alice.Token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
	}
	want := `Failed to import company at index 1: Field "foundedYear" must be a positive integer year`
	if msg := decodeMessage(t, rec); msg != want {
		t.Fatalf("unexpected message %q", msg)
	}

	var list []companyBody
	rec = performRequest(r, http.MethodGet, "/api/companies?mine=true", nil, alice.Token)
	decodeInto(t, rec, &list)
	if len(list) != 0 {
		t.Fatalf("failed import must not persist anything, found %d", len(list))
	}

	rec = performRequest(r, http.MethodPost, "/api/companies/import",
		map[string]any{"companies": []any{companyPayload("Beta", true), companyPayload("Alpha", true)}}, alice.Token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var imported struct {
		Inserted  int           `json:"inserted"`
		Companies []companyBody `json:"companies"`
	}
	decodeInto(t, rec, &imported)
	if imported.Inserted != 2 || len(imported.Companies) != 2 {
		t.Fatalf("unexpected import response %s", rec.Body.String())
	}

	rec = performRequest(r, http.MethodGet, "/api/companies", nil, "")
	decodeInto(t, rec, &list)
	if len(list) != 2 || list[0].CompanyName != "Alpha" || list[1].CompanyName != "Beta" {
		t.Fatalf("expected public list ordered by name, got %s", rec.Body.String())
	}
}

func TestAPI_ImportShapeAndLimit(t *testing.T) {
	r := setupAPI(t)
	alice := register(t, r, "alice")

	for _, body := range []any{map[string]any{"items": []any{}}, `"nope"`, `{"companies": null}`} {
		rec := performRequest(r, http.MethodPost, "/api/companies/import", body, alice.Token)
		if rec.Code != http.StatusBadRequest || decodeMessage(t, rec) != "Expected an array of companies in the request body" {
			t.Fatalf("body %v: expected shape error, got %d %s", body, rec.Code, rec.Body.String())
		}
	}

	rec := performRequest(r, http.MethodPost, "/api/companies/import", "[]", alice.Token)
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"inserted":0`) {
		t.Fatalf("expected empty import to succeed, got %d %s", rec.Code, rec.Body.String())
	}

	four := []any{companyPayload("A", true), companyPayload("B", true), companyPayload("C", true), companyPayload("D", true)}
	rec = performRequest(r, http.MethodPost, "/api/companies/import", four, alice.Token)
	if rec.Code != http.StatusBadRequest || decodeMessage(t, rec) != "Import is limited to 3 companies per request" {
		t.Fatalf("expected import limit error, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	r := setupAPI(t)

	rec := performRequest(r, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(r, http.MethodGet, "/metrics", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "directory_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}
