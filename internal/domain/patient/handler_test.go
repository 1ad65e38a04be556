package patient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medici/medici/internal/domain/doctor"
	"github.com/medici/medici/pkg/pagination"
)

func newTestHandler() (*Handler, *echo.Echo, *doctor.Doctor) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New(), &doctor.Doctor{ID: uuid.New()}
}

func asDoctor(req *http.Request, d *doctor.Doctor) *http.Request {
	return req.WithContext(doctor.WithDoctor(req.Context(), d))
}

func TestHandler_CreateAndSearch(t *testing.T) {
	h, e, d := newTestHandler()
	for _, name := range []string{"Maria Silva", "João Costa"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{"name":"`+name+`"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		if err := h.Create(e.NewContext(asDoctor(req, d), rec)); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients?q=maria", nil)
	rec := httptest.NewRecorder()
	if err := h.List(e.NewContext(asDoctor(req, d), rec)); err != nil {
		t.Fatalf("List: %v", err)
	}
	var resp pagination.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("expected 1 match, got %d", resp.Total)
	}
}

func TestHandler_Delete_InvalidBody(t *testing.T) {
	h, e, d := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients/delete", strings.NewReader(`{"id":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if err := h.Delete(e.NewContext(asDoctor(req, d), httptest.NewRecorder())); err == nil {
		t.Error("expected error for invalid id")
	}
}
