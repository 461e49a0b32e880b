package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/collegeerp/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestStruct struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
	Age   int    `json:"age" validate:"required,gte=18"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		valid := TestStruct{Name: "John Doe", Email: "john@example.com", Age: 25}
		assert.NoError(t, vh.ValidateStruct(&valid))
	})

	t.Run("invalid struct - missing required fields", func(t *testing.T) {
		invalid := TestStruct{
			Name: "J", // Too short
			Age:  16,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 3)
	})

	t.Run("field names follow json tags", func(t *testing.T) {
		invalid := TestStruct{Name: "John Doe", Email: "invalid-email", Age: 25}

		validationErrors, ok := vh.ValidateStruct(&invalid).(validator.ValidationErrors)
		require.True(t, ok)
		require.Len(t, validationErrors, 1)
		assert.Equal(t, "email", validationErrors[0].Field())
		assert.Equal(t, "email", validationErrors[0].Tag())
	})
}

func TestValidationHelper_FeeRules(t *testing.T) {
	vh := NewValidationHelper()
	total := decimal.NewFromInt(1000)
	valid := func() CreateFeeRequest {
		return CreateFeeRequest{
			RollNumber:   "CS2024001",
			AcademicYear: "2024-25",
			Semester:     1,
			FeeType:      "Tuition Fee",
			TotalAmount:  &total,
			DueDate:      mustDate(t, `"2024-08-31"`),
		}
	}

	t.Run("valid fee", func(t *testing.T) {
		req := valid()
		assert.NoError(t, vh.ValidateStruct(&req))
	})

	tests := []struct {
		name   string
		mutate func(*CreateFeeRequest)
		field  string
	}{
		{"unknown fee type", func(r *CreateFeeRequest) { r.FeeType = "Canteen Fee" }, "feeType"},
		{"semester out of range", func(r *CreateFeeRequest) { r.Semester = 9 }, "semester"},
		{"missing total", func(r *CreateFeeRequest) { r.TotalAmount = nil }, "totalAmount"},
		{"negative fine", func(r *CreateFeeRequest) { r.Fine = decimal.NewFromInt(-1) }, "fine"},
		{"missing due date", func(r *CreateFeeRequest) { r.DueDate = DateInput{} }, "dueDate"},
		{"unknown payment mode", func(r *CreateFeeRequest) { r.PaymentMode = "Barter" }, "paymentMode"},
		{"sub-cent total", func(r *CreateFeeRequest) { v := decimal.RequireFromString("100.004"); r.TotalAmount = &v }, "totalAmount"},
		{"total beyond column range", func(r *CreateFeeRequest) { v := decimal.New(1, 10); r.TotalAmount = &v }, "totalAmount"},
		{"sub-cent fine", func(r *CreateFeeRequest) { r.Fine = decimal.RequireFromString("0.004") }, "fine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)

			var fieldErrs validator.ValidationErrors
			require.True(t, errors.As(vh.ValidateStruct(&req), &fieldErrs))
			assert.Equal(t, tt.field, fieldErrs[0].Field())
		})
	}

	t.Run("payment must be positive", func(t *testing.T) {
		req := PaymentRequest{PaidAmount: decimal.Zero, PaymentMode: "UPI"}
		assert.Error(t, vh.ValidateStruct(&req))
	})

	t.Run("payment in whole cents", func(t *testing.T) {
		ok := PaymentRequest{PaidAmount: decimal.RequireFromString("2500.50"), PaymentMode: "UPI"}
		assert.NoError(t, vh.ValidateStruct(&ok))

		subCent := PaymentRequest{PaidAmount: decimal.RequireFromString("2500.505"), PaymentMode: "UPI"}
		var fieldErrs validator.ValidationErrors
		require.True(t, errors.As(vh.ValidateStruct(&subCent), &fieldErrs))
		assert.Equal(t, "paidAmount", fieldErrs[0].Field())
		assert.Equal(t, "money", fieldErrs[0].Tag())
	})

	t.Run("partial update amounts", func(t *testing.T) {
		discount := decimal.RequireFromString("10.999")
		req := UpdateFeeRequest{Discount: &discount}
		assert.Error(t, vh.ValidateStruct(&req))
	})
}

func mustDate(t *testing.T, raw string) DateInput {
	t.Helper()
	var d DateInput
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	return d
}

func TestDateInput_UnmarshalJSON(t *testing.T) {
	plain := mustDate(t, `"2024-08-31"`)
	assert.Equal(t, 2024, plain.Year())
	assert.Equal(t, 31, plain.Day())

	stamp := mustDate(t, `"2024-08-31T10:30:00Z"`)
	assert.Equal(t, 10, stamp.Hour())

	var bad DateInput
	assert.Error(t, json.Unmarshal([]byte(`"31/08/2024"`), &bad))
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Success)
		assert.Equal(t, "Something went wrong", response.Message)
		assert.Nil(t, response.Errors)
	})

	t.Run("error response with validation errors", func(t *testing.T) {
		vh := NewValidationHelper()
		validationErr := vh.ValidateStruct(&TestStruct{Name: "J", Email: "invalid-email", Age: 16})
		require.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Validation failed", response.Message)
		assert.Contains(t, response.Errors, "name")
		assert.Contains(t, response.Errors, "email")
		assert.Contains(t, response.Errors, "age")
	})
}

func TestSendServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", newError(ErrNotFound, "Fee detail not found"), http.StatusNotFound, "Fee detail not found"},
		{"conflict", newError(ErrConflict, "duplicate"), http.StatusConflict, "duplicate"},
		{"locked", ErrAccountLocked, http.StatusLocked, "Account is temporarily locked due to too many failed login attempts. Please try again later."},
		{"credentials", fmt.Errorf("login: %w", ErrInvalidCredentials), http.StatusUnauthorized, "Invalid credentials"},
		{"model validation", models.ErrAmountPrecision, http.StatusBadRequest, "monetary fields allow at most 2 decimal places"},
		{"internal hides detail", errors.New("pq: connection refused"), http.StatusInternalServerError, "Error fetching"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SendServiceError(w, "TEST", tt.err, "Error fetching")

			assert.Equal(t, tt.status, w.Code)
			var response Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.message, response.Message)
		})
	}
}

func TestDecodeJSONBody(t *testing.T) {
	t.Run("rejects unknown fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"email":"a@b.c","password":"x","role":"root"}`))
		var req LoginRequest
		assert.False(t, decodeJSONBody(w, r, &req))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects trailing data", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"email":"a@b.c"}{}`))
		var req LoginRequest
		assert.False(t, decodeJSONBody(w, r, &req))
	})
}

func TestSendList(t *testing.T) {
	w := httptest.NewRecorder()
	SendList[string](w, nil)

	var response Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Count)
	assert.Equal(t, 0, *response.Count)
	assert.Equal(t, []any{}, response.Data)
}
