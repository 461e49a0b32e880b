package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/collegeerp/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Count   *int              `json:"count,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"` // Validation details
}

// ErrorResponse represents error response structure
type ErrorResponse = Response

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(DateInput); ok && !d.IsZero() {
			return d.Time
		}
		return nil
	}, DateInput{})
	v.RegisterValidation("money", validMoney)
	v.RegisterValidation("fee_type", oneOfStrings(feeTypes))
	v.RegisterValidation("payment_mode", oneOfStrings(paymentModes))
	v.RegisterValidation("department", oneOfStrings(studentDepartments))
	v.RegisterValidation("staff_department", oneOfStrings(staffDepartments))
	v.RegisterValidation("designation", oneOfStrings(designations))
	return &ValidationHelper{validator: v}
}

func oneOfStrings(allowed []string) validator.Func {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(fl validator.FieldLevel) bool {
		_, ok := set[fl.Field().String()]
		return ok
	}
}

// validMoney accepts amounts the NUMERIC(14, 2) columns store exactly.
// Decimals reach it as float64 through the custom type func above.
func validMoney(fl validator.FieldLevel) bool {
	var d decimal.Decimal
	switch v := fl.Field().Interface().(type) {
	case float64:
		d = decimal.NewFromFloat(v)
	case decimal.Decimal:
		d = v
	default:
		return false
	}
	return models.CheckAmount(d) == nil
}

var (
	feeTypes = []string{
		models.FeeTypeTuition, models.FeeTypeLibrary, models.FeeTypeLab, models.FeeTypeSports, models.FeeTypeExam,
		models.FeeTypeDevelopment, models.FeeTypeTransport, models.FeeTypeHostel, models.FeeTypeOther,
	}
	paymentModes = []string{
		models.PaymentModeCash, models.PaymentModeCheque, models.PaymentModeOnlineTransfer, models.PaymentModeCard, models.PaymentModeUPI,
	}
	studentDepartments = []string{"Computer Science", "Electronics", "Mechanical", "Civil", "Electrical", "IT", "MBA", "BBA"}
	staffDepartments   = append(append([]string{}, studentDepartments...), "Administration", "Library", "Sports", "Accounts")
	designations       = []string{
		"Professor", "Associate Professor", "Assistant Professor", "Lecturer", "Lab Assistant", "HOD",
		"Principal", "Vice Principal", "Librarian", "Clerk", "Accountant", "Peon",
	}
)

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// decodeJSONBody reads exactly one JSON object into dst, writing a 400 response on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

// decodeAndValidate combines decodeJSONBody with struct validation.
func (vh *ValidationHelper) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decodeJSONBody(w, r, dst) {
		return false
	}
	if err := vh.ValidateStruct(dst); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := Response{Success: false, Message: message}
	var fieldErrs validator.ValidationErrors
	if validationErr != nil && errors.As(validationErr, &fieldErrs) {
		errorResp.Errors = make(map[string]string)
		for _, err := range fieldErrs {
			errorResp.Errors[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// SendJSON writes a success envelope.
func SendJSON(w http.ResponseWriter, statusCode int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Success: true, Message: message, Data: data})
}

// SendList writes a success envelope with an item count.
func SendList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	count := len(items)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Response{Success: true, Data: items, Count: &count})
}
