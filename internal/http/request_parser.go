package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"budgetplanner/internal/core"
	"budgetplanner/internal/session"
	"budgetplanner/internal/validator"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type transactionRequest struct {
	Name     string          `json:"name" validate:"required,notblank,max=200"`
	Amount   decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Category core.Category   `json:"category" validate:"required"`
	Date     string          `json:"date" validate:"omitempty,isodate"`
	Currency string          `json:"currency" validate:"omitempty,currency"`
}

func (req transactionRequest) toNew() session.NewTransaction {
	return session.NewTransaction{
		Name:     sanitizeInput(req.Name),
		Amount:   req.Amount,
		Category: req.Category,
		Date:     req.Date,
		Currency: req.Currency,
	}
}

type transactionPatchRequest struct {
	Name     *string          `json:"name" validate:"omitempty,notblank,max=200"`
	Amount   *decimal.Decimal `json:"amount" validate:"omitempty,gt=0"`
	Category *core.Category   `json:"category"`
	Date     *string          `json:"date" validate:"omitempty,isodate"`
	Currency *string          `json:"currency" validate:"omitempty,currency"`
}

func (req transactionPatchRequest) toPatch() session.TransactionPatch {
	p := session.TransactionPatch{
		Amount:   req.Amount,
		Category: req.Category,
		Date:     req.Date,
		Currency: req.Currency,
	}
	if req.Name != nil {
		name := sanitizeInput(*req.Name)
		p.Name = &name
	}
	return p
}

// The UI offers goals between 5% and 50%.
type goalRequest struct {
	Goal decimal.Decimal `json:"goal" validate:"required,gte=5,lte=50"`
}

type currencyRequest struct {
	Currency string `json:"currency" validate:"required,currency"`
}

type monthRequest struct {
	Month string `json:"month" validate:"required,yearmonth"`
}

type userRequest struct {
	Name string `json:"name" validate:"max=100"`
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body must hold a single JSON object", errBadRequest)
	}
	return nil
}

// parseRequest decodes and validates the body into dst.
func parseRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	return validator.Struct(dst)
}

// monthParam returns the month query parameter, or def when it is absent.
func monthParam(r *http.Request, def string) (string, error) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		return def, nil
	}
	if _, err := core.ParseMonth(month); err != nil {
		return "", err
	}
	return month, nil
}

// dateParam returns the date query parameter, or def when it is absent.
func dateParam(r *http.Request, def string) (string, error) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		return def, nil
	}
	if _, err := core.ParseDate(date); err != nil {
		return "", err
	}
	return date, nil
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
