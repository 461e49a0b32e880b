package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/collegeerp/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

const receiptQRSize = 256

// Receipt is the printable proof of a fully settled fee.
type Receipt struct {
	ReceiptNumber string          `json:"receiptNumber"`
	FeeID         uuid.UUID       `json:"feeId"`
	RollNumber    string          `json:"rollNumber"`
	AcademicYear  string          `json:"academicYear"`
	Semester      int             `json:"semester"`
	FeeType       string          `json:"feeType"`
	TotalAmount   decimal.Decimal `json:"totalAmount" swaggertype:"string"`
	Fine          decimal.Decimal `json:"fine" swaggertype:"string"`
	Discount      decimal.Decimal `json:"discount" swaggertype:"string"`
	PaidAmount    decimal.Decimal `json:"paidAmount" swaggertype:"string"`
	PaymentMode   string          `json:"paymentMode"`
	TransactionID string          `json:"transactionId,omitempty"`
	PaymentDate   *time.Time      `json:"paymentDate,omitempty"`
	QRImage       string          `json:"qrImage"` // base64 PNG
}

// qrPayload is what the receipt QR code encodes.
type qrPayload struct {
	ReceiptNumber string `json:"receiptNumber"`
	FeeID         string `json:"feeId"`
	RollNumber    string `json:"rollNumber"`
	PaidAmount    string `json:"paidAmount"`
}

type ReceiptService struct {
	fees *FeeService
}

func NewReceiptService(fees *FeeService) *ReceiptService {
	return &ReceiptService{fees: fees}
}

// GenerateReceipt builds the receipt for a settled fee. Fees without a
// receipt number have not been settled through a payment and have no receipt.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, feeID uuid.UUID) (*Receipt, error) {
	fee, err := s.fees.GetFee(ctx, feeID)
	if err != nil {
		return nil, err
	}
	if fee.ReceiptNumber == "" || fee.PaymentStatus != models.PaymentStatusPaid {
		return nil, newError(ErrNotFound, "No receipt issued for this fee yet")
	}

	qrImage, err := receiptQRCode(fee)
	if err != nil {
		return nil, fmt.Errorf("receipt qr: %w", err)
	}

	return &Receipt{
		ReceiptNumber: fee.ReceiptNumber,
		FeeID:         fee.ID,
		RollNumber:    fee.RollNumber,
		AcademicYear:  fee.AcademicYear,
		Semester:      fee.Semester,
		FeeType:       fee.FeeType,
		TotalAmount:   fee.TotalAmount,
		Fine:          fee.Fine,
		Discount:      fee.Discount,
		PaidAmount:    fee.PaidAmount,
		PaymentMode:   fee.PaymentMode,
		TransactionID: fee.TransactionID,
		PaymentDate:   fee.PaymentDate,
		QRImage:       qrImage,
	}, nil
}

func receiptQRCode(fee *models.FeeDetail) (string, error) {
	data, err := json.Marshal(qrPayload{
		ReceiptNumber: fee.ReceiptNumber,
		FeeID:         fee.ID.String(),
		RollNumber:    fee.RollNumber,
		PaidAmount:    fee.PaidAmount.StringFixed(2),
	})
	if err != nil {
		return "", err
	}

	qr, err := qrcode.New(string(data), qrcode.Medium)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(receiptQRSize)); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
