package handlers

import (
	"net/http"

	"github.com/collegeerp/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ReceiptHandler struct {
	service *services.ReceiptService
}

func NewReceiptHandler(service *services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{service: service}
}

// GetReceipt returns the receipt of a settled fee
// @Summary Fee receipt
// @Description Receipt details plus a base64 PNG QR code encoding the receipt number
// @Tags fees
// @Produce json
// @Security BearerAuth
// @Param id path string true "Fee ID"
// @Success 200 {object} services.Response{data=services.Receipt}
// @Failure 400 {object} services.Response
// @Failure 404 {object} services.Response "Fee not settled"
// @Router /fees/{id}/receipt [get]
func (h *ReceiptHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	feeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid fee ID", http.StatusBadRequest, nil)
		return
	}

	receipt, err := h.service.GenerateReceipt(r.Context(), feeID)
	if err != nil {
		services.SendServiceError(w, "RECEIPT", err, "Error generating receipt")
		return
	}

	services.SendJSON(w, http.StatusOK, "", receipt)
}
