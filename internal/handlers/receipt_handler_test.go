package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/collegeerp/backend/internal/audit"
	"github.com/collegeerp/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReceiptRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fees := services.NewFeeService(db, nil, audit.NewAuditLogger(), time.Minute)
	handler := NewReceiptHandler(services.NewReceiptService(fees))

	r := chi.NewRouter()
	r.Get("/fees/{id}/receipt", handler.GetReceipt)
	return r, dbMock
}

func TestReceiptHandler_GetReceipt(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		router, _ := newReceiptRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fees/abc/receipt", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown fee", func(t *testing.T) {
		router, dbMock := newReceiptRouter(t)
		dbMock.ExpectQuery("SELECT (.+) FROM fee_details").WillReturnRows(sqlmock.NewRows([]string{"id"}))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fees/"+uuid.NewString()+"/receipt", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		var resp services.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
	})
}
