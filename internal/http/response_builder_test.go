package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"budgetplanner/internal/core"
	"budgetplanner/internal/middleware/trace"
	"budgetplanner/internal/validator"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/incomes/1").
		Data(map[string]string{"id": "1"}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Errorf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/api/incomes/1" {
		t.Errorf("Location = %q", got)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rr.Body.String(); got != "{\"id\":\"1\"}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestJSONResponseBuilderNoBody(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(rr)

	if rr.Code != http.StatusNoContent {
		t.Errorf("status=%d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestJSONResponseBuilderEncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Data(map[string]any{"f": func() {}}).Write(rr)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status=%d", rr.Code)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		builder *JSONResponseBuilder
		status  int
	}{
		{BadRequestError("bad"), http.StatusBadRequest},
		{UnprocessableEntityError("bad"), http.StatusUnprocessableEntity},
		{NotFoundError("bad"), http.StatusNotFound},
		{InternalServerError("bad"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		tt.builder.Write(rr)
		if rr.Code != tt.status {
			t.Errorf("status=%d, want %d", rr.Code, tt.status)
		}
		var body errorBody
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Error != "bad" {
			t.Errorf("body = %q, err = %v", rr.Body.String(), err)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: eof", errBadRequest), http.StatusBadRequest},
		{fmt.Errorf("update: %w", core.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: name is required", validator.ErrInvalidInput), http.StatusUnprocessableEntity},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %q", core.ErrUnknownCurrency, "XYZ"), http.StatusUnprocessableEntity},
		{core.ErrInvalidMonth, http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteError(t *testing.T) {
	t.Run("client error keeps message", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
		req = req.WithContext(context.WithValue(req.Context(), trace.RequestIDKey, "req_abc"))
		rr := httptest.NewRecorder()

		writeError(rr, req, core.ErrNotFound)

		var body errorBody
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if rr.Code != http.StatusNotFound || body.Error != core.ErrNotFound.Error() || body.RequestID != "req_abc" {
			t.Errorf("status=%d body=%+v", rr.Code, body)
		}
	})

	t.Run("internal error is hidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
		rr := httptest.NewRecorder()

		writeError(rr, req, errors.New("sqlite: database is locked"))

		var body errorBody
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if rr.Code != http.StatusInternalServerError || body.Error != "internal error" || body.RequestID != "" {
			t.Errorf("status=%d body=%+v", rr.Code, body)
		}
	})
}
