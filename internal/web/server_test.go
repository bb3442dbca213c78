package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tradebooks/importer/internal/config"
)

func newTestServer() *Server {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = time.Minute
	cfg.Import.MaxFileSize = 1 << 20
	cfg.Import.MaxConcurrent = 2
	cfg.Import.MaxWaitTime = time.Second
	cfg.CORS.AllowedOrigins = []string{"*"}
	cfg.Rate.Enabled = false
	return NewServer(cfg, nil)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestDescribeSchemaEndpoint(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schema/sales", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		RecordType string `json:"record_type"`
		Fields     []struct {
			Name     string `json:"name"`
			Required bool   `json:"required"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.RecordType != "sales" {
		t.Errorf("record_type = %q", body.RecordType)
	}
	if len(body.Fields) != 8 {
		t.Errorf("fields = %d, want 8", len(body.Fields))
	}
	for _, f := range body.Fields {
		if f.Name == "shipping_cost" && f.Required {
			t.Error("shipping_cost must not be required")
		}
		if f.Name == "date" && !f.Required {
			t.Error("date must be required")
		}
	}
}

func TestDescribeSchemaUnknownType(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schema/refunds", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code == "" {
		t.Error("error response must carry a support code")
	}
}

func TestGetImportRejectsInvalidID(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports/not-a-uuid", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code == "" {
		t.Error("error response must carry a support code")
	}
}

func TestImportRejectsUnknownRecordType(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/imports/refunds", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateProfileValidationErrors(t *testing.T) {
	s := newTestServer()
	payload := `{
		"name": "",
		"record_type": "sales",
		"delimiter": ",",
		"field_mappings": {"0": "date", "x": "item_name"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/profiles", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}

	var body validationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Fields["name"]) == 0 {
		t.Error("expected a name violation")
	}
	if len(body.Fields["field_mappings"]) == 0 {
		t.Error("expected field_mappings violations")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	if !rl.allow("1.2.3.4") || !rl.allow("1.2.3.4") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.allow("1.2.3.4") {
		t.Error("third request should be rejected")
	}
	// Other clients are unaffected
	if !rl.allow("5.6.7.8") {
		t.Error("distinct IP should be allowed")
	}
}
