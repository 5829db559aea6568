package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"repair-desk/internal/app"
	"repair-desk/internal/core"
	"repair-desk/internal/memstore"
)

const testSecret = "test-secret"

type testServer struct {
	handler http.Handler
	cookies []*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := core.ClockFunc(func() time.Time { return now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := core.NewWorkflowEngine(store, clock, logger)
	svc := app.NewAppService(store, engine, core.NewReportingService(store, clock), nil, nil, clock, logger)

	if _, err := svc.CreateAdminUser(context.Background(), app.CreateUserRequest{Username: "admin", Password: "admin123"}); err != nil {
		t.Fatalf("CreateAdminUser: %v", err)
	}
	return &testServer{handler: NewHandler(svc, "http://localhost:5173", testSecret, logger)}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "admin123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	s.cookies = rec.Result().Cookies()
	if len(s.cookies) == 0 || s.cookies[0].Name != authCookie {
		t.Fatalf("login did not set %s cookie", authCookie)
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func intakeBody() map[string]any {
	return map[string]any{
		"customer": map[string]string{"name": "Asha Rao", "phone": "9876543210", "address": "12 MG Road"},
		"device": map[string]any{
			"device_type":         "laptop",
			"brand":               "Dell",
			"model":               "Latitude 5520",
			"problem_description": "No display",
			"estimated_cost":      150,
		},
		"inward": map[string]string{
			"received_by":             "Front desk",
			"condition_on_receipt":    "Scratched lid",
			"estimated_delivery_date": "2024-03-13",
		},
	}
}

func TestHealth_Public(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/services", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Code != "UNAUTHORIZED" || resp.RequestID == "" {
		t.Errorf("error response = %+v", resp)
	}

	s.cookies = []*http.Cookie{{Name: authCookie, Value: "garbage"}}
	if rec := s.do(t, http.MethodGet, "/api/services", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rec.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	s.login(t)
	rec := s.do(t, http.MethodGet, "/api/auth/me", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var user app.UserResult
	decodeBody(t, rec, &user)
	if user.Username != "admin" || !user.IsStaff {
		t.Errorf("me = %+v", user)
	}
}

func TestServiceLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	rec := s.do(t, http.MethodPost, "/api/services", intakeBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("intake status = %d, body %s", rec.Code, rec.Body.String())
	}
	var intake core.Intake
	decodeBody(t, rec, &intake)
	if intake.Inward.InwardNumber != "RDC0001" {
		t.Errorf("inward number = %s", intake.Inward.InwardNumber)
	}
	base := "/api/services/" + strconv.Itoa(intake.Item.ID)

	rec = s.do(t, http.MethodPost, base+"/status", map[string]string{"status": "completed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status update = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, base+"/cost", map[string]string{"actual_cost": "abc"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad cost status = %d, want 400", rec.Code)
	}
	rec = s.do(t, http.MethodPost, base+"/status", map[string]string{"status": "lost"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status code = %d, want 400", rec.Code)
	}

	rec = s.do(t, http.MethodPost, base+"/ledger", map[string]string{
		"transaction_type": "payment",
		"description":      "Advance",
		"amount":           "50.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("manual entry = %d, body %s", rec.Code, rec.Body.String())
	}
	var entry core.LedgerEntry
	decodeBody(t, rec, &entry)
	if entry.CreatedBy != "admin" {
		t.Errorf("created_by = %q, want admin", entry.CreatedBy)
	}

	rec = s.do(t, http.MethodPost, base+"/expenses", map[string]string{
		"expense_type": "Parts",
		"description":  "Screen cable",
		"amount":       "0",
		"date":         "2024-03-10",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero expense status = %d, want 400", rec.Code)
	}

	rec = s.do(t, http.MethodGet, base+"/ledger", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ledger = %d", rec.Code)
	}
	var ledger struct {
		Entries []core.LedgerEntry `json:"entries"`
	}
	decodeBody(t, rec, &ledger)
	want := []core.TransactionType{core.TxInward, core.TxProgress, core.TxPayment}
	if len(ledger.Entries) != len(want) {
		t.Fatalf("ledger entries = %d, want %d", len(ledger.Entries), len(want))
	}
	for i, tt := range want {
		if ledger.Entries[i].TransactionType != tt {
			t.Errorf("entry %d = %s, want %s", i, ledger.Entries[i].TransactionType, tt)
		}
	}

	rec = s.do(t, http.MethodGet, base+"/report.xlsx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "service-RDC0001.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rec = s.do(t, http.MethodGet, "/api/inward/next-number", nil)
	var next map[string]string
	decodeBody(t, rec, &next)
	if next["inward_number"] != "RDC0002" {
		t.Errorf("next number = %v", next)
	}

	if rec := s.do(t, http.MethodDelete, base, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, base, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestCreateIntake_ValidationFields(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	body := intakeBody()
	body["customer"] = map[string]string{"phone": "9876543210", "address": "12 MG Road"}
	rec := s.do(t, http.MethodPost, "/api/services", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %s", resp.Code)
	}
	if _, ok := resp.Fields["customer.name"]; !ok {
		t.Errorf("fields = %v, want customer.name", resp.Fields)
	}
	if !strings.Contains(resp.Error, "customer") {
		t.Errorf("message = %q", resp.Error)
	}
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	if rec := s.do(t, http.MethodGet, "/api/services/abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id = %d, want 400", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/customers/42", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing customer = %d, want 404", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/services/interpret", map[string]string{"note": "Dell laptop"}); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("interpret without assistant = %d, want 503", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/services?date_from=yesterday", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad date filter = %d, want 422", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/services", strings.NewReader("{"))
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON = %d, want 400", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/services", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
