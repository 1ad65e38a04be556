package apperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestKind_CodeAndStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		code   Code
		status int
	}{
		{KindValidation, CodeValidation, http.StatusUnprocessableEntity},
		{KindUnauthorized, CodeUnauthorized, http.StatusUnauthorized},
		{KindNotFound, CodeNotFound, http.StatusNotFound},
		{KindConflict, CodeConflict, http.StatusConflict},
		{KindRateLimited, CodeRateLimited, http.StatusTooManyRequests},
		{KindStorage, CodeStorage, http.StatusInternalServerError},
		{KindExternalService, CodeExternalService, http.StatusBadGateway},
		{KindConfiguration, CodeCalendarNotConfigured, http.StatusConflict},
		{KindInternal, CodeInternal, http.StatusInternalServerError},
		{Kind(99), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.Code(); got != tt.code {
			t.Errorf("Kind(%d).Code() = %q, want %q", tt.kind, got, tt.code)
		}
		if got := tt.kind.Status(); got != tt.status {
			t.Errorf("Kind(%d).Status() = %d, want %d", tt.kind, got, tt.status)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("create appointment: %w", Storage("insert appointment", cause))

	if KindOf(err) != KindStorage {
		t.Errorf("expected storage kind, got %v", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to stay reachable through Unwrap")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("expected plain errors to be internal")
	}
}

func TestError_MessageListsFields(t *testing.T) {
	err := Validation(map[string]string{"price": "x", "duration": "y"})
	got := err.Error()
	if !strings.Contains(got, "[duration, price]") {
		t.Errorf("expected sorted field names in %q", got)
	}
}

func TestTone(t *testing.T) {
	cases := map[int]string{0: "", 1: "retry", 2: "apologetic", 3: "support", 7: "support"}
	for n, want := range cases {
		if got := Tone(n); got != want {
			t.Errorf("Tone(%d) = %q, want %q", n, got, want)
		}
	}
}

type memCounter struct {
	counts map[string]int64
}

func (m *memCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memCounter) Del(_ context.Context, key string) error {
	delete(m.counts, key)
	return nil
}

func serve(t *testing.T, h echo.HTTPErrorHandler, err error) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-1")
	h(err, c)

	var body Response
	if decErr := json.Unmarshal(rec.Body.Bytes(), &body); decErr != nil {
		t.Fatalf("decode body: %v", decErr)
	}
	return rec, body
}

func TestHTTPErrorHandler_Validation(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	h := HTTPErrorHandler(logger, nil)

	rec, body := serve(t, h, Field("patient_ids", "select at least one patient"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	if body.Code != CodeValidation {
		t.Errorf("expected validation code, got %s", body.Code)
	}
	if body.Fields["patient_ids"] == "" {
		t.Error("expected patient_ids field message")
	}
	if body.RequestID != "req-1" {
		t.Errorf("expected request id, got %q", body.RequestID)
	}
	if body.Tone != "" {
		t.Errorf("expected no tone for validation errors, got %q", body.Tone)
	}
}

func TestHTTPErrorHandler_HidesStorageCause(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	h := HTTPErrorHandler(logger, nil)

	rec, body := serve(t, h, Storage("insert appointment", errors.New("pq: relation does not exist")))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(body.Message, "relation") {
		t.Errorf("driver error leaked: %q", body.Message)
	}
	if body.Code != CodeStorage {
		t.Errorf("expected storage code, got %s", body.Code)
	}
}

func TestHTTPErrorHandler_EscalatesConsecutiveFailures(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	counter := &memCounter{counts: map[string]int64{}}
	esc := NewEscalation(counter, func(echo.Context) string { return "ana@clinic.pt" }, time.Hour, logger)
	h := HTTPErrorHandler(logger, esc)

	var tones []string
	for i := 0; i < 3; i++ {
		_, body := serve(t, h, External("create event", errors.New("503")))
		tones = append(tones, body.Tone)
		if body.ConsecutiveFailures != i+1 {
			t.Errorf("attempt %d: expected count %d, got %d", i+1, i+1, body.ConsecutiveFailures)
		}
	}
	want := []string{"retry", "apologetic", "support"}
	for i := range want {
		if tones[i] != want[i] {
			t.Errorf("attempt %d: expected tone %q, got %q", i+1, want[i], tones[i])
		}
	}
}

func TestResetOnSuccess(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	counter := &memCounter{counts: map[string]int64{"failures:ana@clinic.pt": 2}}
	esc := NewEscalation(counter, func(echo.Context) string { return "ana@clinic.pt" }, time.Hour, logger)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := esc.ResetOnSuccess()(func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := counter.counts["failures:ana@clinic.pt"]; ok {
		t.Error("expected counter to be cleared")
	}
}

func TestHTTPErrorHandler_EchoErrors(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	h := HTTPErrorHandler(logger, nil)

	tests := []struct {
		err    error
		status int
		code   Code
	}{
		{echo.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{echo.NewHTTPError(http.StatusBadRequest, "bad json"), http.StatusUnprocessableEntity, CodeValidation},
		{echo.NewHTTPError(http.StatusUnauthorized, "no"), http.StatusUnauthorized, CodeUnauthorized},
		{echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, CodeRateLimited},
		{echo.NewHTTPError(http.StatusGatewayTimeout, "timeout"), http.StatusInternalServerError, CodeInternal},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		rec, body := serve(t, h, tt.err)
		if rec.Code != tt.status {
			t.Errorf("%v: expected status %d, got %d", tt.err, tt.status, rec.Code)
		}
		if body.Code != tt.code {
			t.Errorf("%v: expected code %s, got %s", tt.err, tt.code, body.Code)
		}
	}
}
