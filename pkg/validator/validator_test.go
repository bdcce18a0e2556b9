package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type pricedPayload struct {
	Title string          `json:"title" validate:"required,max=255"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

func TestValidate_Success(t *testing.T) {
	err := Validate(registerPayload{Email: "alice@example.com", Password: "longenough"})
	assert.NoError(t, err)
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(registerPayload{Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 8 characters", fields["password"])
}

func TestValidate_DecimalGte(t *testing.T) {
	ok := pricedPayload{Title: "Laptop", Price: decimal.RequireFromString("999.99")}
	assert.NoError(t, Validate(ok))

	bad := pricedPayload{Title: "Laptop", Price: decimal.RequireFromString("-0.01")}
	err := Validate(bad)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be greater than or equal to 0", valErr.Fields()["price"])
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(pricedPayload{Price: decimal.Zero})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'title' is required")
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"title":"Phone","price":"10.50"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()

	var dst pricedPayload
	require.NoError(t, DecodeAndValidate(w, r, &dst, 1<<20))
	assert.Equal(t, "Phone", dst.Title)
	assert.True(t, dst.Price.Equal(decimal.RequireFromString("10.5")))
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not-json"))
	w := httptest.NewRecorder()

	var dst pricedPayload
	err := DecodeAndValidate(w, r, &dst, 1<<20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_BodyTooLarge(t *testing.T) {
	body := `{"title":"` + strings.Repeat("x", 2048) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()

	var dst pricedPayload
	err := DecodeAndValidate(w, r, &dst, 512)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
