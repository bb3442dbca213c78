package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestLoggerPassesResponseThrough(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestStatusWriterDefaultsTo200(t *testing.T) {
	sw := &statusWriter{ResponseWriter: httptest.NewRecorder()}

	if _, err := sw.Write([]byte("ok")); err != nil {
		t.Fatal(err)
	}
	if sw.Status() != http.StatusOK {
		t.Errorf("Status() = %d, want 200", sw.Status())
	}
	if sw.bytes != 2 {
		t.Errorf("bytes = %d, want 2", sw.bytes)
	}
}

func TestStatusWriterKeepsFirstStatus(t *testing.T) {
	sw := &statusWriter{ResponseWriter: httptest.NewRecorder()}

	sw.WriteHeader(http.StatusCreated)
	sw.WriteHeader(http.StatusInternalServerError)

	if sw.Status() != http.StatusCreated {
		t.Errorf("Status() = %d, want 201", sw.Status())
	}
}
