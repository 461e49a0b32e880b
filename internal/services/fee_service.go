package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/collegeerp/backend/internal/audit"
	"github.com/collegeerp/backend/internal/auth"
	"github.com/collegeerp/backend/internal/database"
	"github.com/collegeerp/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const feeStatsCacheKey = "fees:stats"

const feeColumns = `id, student_id, roll_number, academic_year, semester, fee_type, total_amount, paid_amount, due_amount, fine, discount, payment_status, due_date, payment_date, payment_mode, transaction_id, receipt_number, remarks, created_by, updated_by, version, created_at, updated_at`

type FeeService struct {
	db        *sql.DB
	store     *database.RedisStore
	validator *ValidationHelper
	audit     audit.Logger
	statsTTL  time.Duration
	now       func() time.Time
}

// CreateFeeRequest represents a new fee obligation
// @Description Fee creation payload. dueAmount and paymentStatus are derived.
type CreateFeeRequest struct {
	RollNumber    string           `json:"rollNumber" validate:"required,max=50" example:"CS2024001"`
	AcademicYear  string           `json:"academicYear" validate:"required,max=20" example:"2024-25"`
	Semester      int              `json:"semester" validate:"required,min=1,max=8" example:"1"`
	FeeType       string           `json:"feeType" validate:"required,fee_type" example:"Tuition Fee"`
	TotalAmount   *decimal.Decimal `json:"totalAmount" validate:"required,gte=0,money" swaggertype:"string" example:"50000"`
	PaidAmount    decimal.Decimal  `json:"paidAmount" validate:"gte=0,money" swaggertype:"string" example:"0"`
	Fine          decimal.Decimal  `json:"fine" validate:"gte=0,money" swaggertype:"string" example:"0"`
	Discount      decimal.Decimal  `json:"discount" validate:"gte=0,money" swaggertype:"string" example:"0"`
	DueDate       DateInput        `json:"dueDate" validate:"required" swaggertype:"string" example:"2024-08-31"`
	PaymentMode   string           `json:"paymentMode,omitempty" validate:"omitempty,payment_mode"`
	TransactionID string           `json:"transactionId,omitempty" validate:"max=100"`
	Remarks       string           `json:"remarks,omitempty" validate:"max=500"`
}

// UpdateFeeRequest carries a partial update; nil fields are left unchanged.
type UpdateFeeRequest struct {
	AcademicYear  *string          `json:"academicYear,omitempty" validate:"omitempty,max=20"`
	Semester      *int             `json:"semester,omitempty" validate:"omitempty,min=1,max=8"`
	FeeType       *string          `json:"feeType,omitempty" validate:"omitempty,fee_type"`
	TotalAmount   *decimal.Decimal `json:"totalAmount,omitempty" validate:"omitempty,gte=0,money" swaggertype:"string"`
	PaidAmount    *decimal.Decimal `json:"paidAmount,omitempty" validate:"omitempty,gte=0,money" swaggertype:"string"`
	Fine          *decimal.Decimal `json:"fine,omitempty" validate:"omitempty,gte=0,money" swaggertype:"string"`
	Discount      *decimal.Decimal `json:"discount,omitempty" validate:"omitempty,gte=0,money" swaggertype:"string"`
	DueDate       *DateInput       `json:"dueDate,omitempty" swaggertype:"string"`
	PaymentMode   *string          `json:"paymentMode,omitempty" validate:"omitempty,payment_mode"`
	TransactionID *string          `json:"transactionId,omitempty" validate:"omitempty,max=100"`
	Remarks       *string          `json:"remarks,omitempty" validate:"omitempty,max=500"`
}

// PaymentRequest records one payment against a fee
// @Description Payment posting payload
type PaymentRequest struct {
	PaidAmount    decimal.Decimal `json:"paidAmount" validate:"gt=0,money" swaggertype:"string" example:"25000"`
	PaymentMode   string          `json:"paymentMode" validate:"required,payment_mode" enums:"Cash,Cheque,Online Transfer,Card,UPI" example:"UPI"`
	TransactionID string          `json:"transactionId,omitempty" validate:"max=100" example:"UPI123456"`
	Remarks       string          `json:"remarks,omitempty" validate:"max=500"`
}

func NewFeeService(db *sql.DB, store *database.RedisStore, auditLogger audit.Logger, statsTTL time.Duration) *FeeService {
	return &FeeService{
		db:        db,
		store:     store,
		validator: NewValidationHelper(),
		audit:     auditLogger,
		statsTTL:  statsTTL,
		now:       time.Now,
	}
}

func scanFee(row interface{ Scan(...any) error }) (*models.FeeDetail, error) {
	var f models.FeeDetail
	err := row.Scan(&f.ID, &f.StudentID, &f.RollNumber, &f.AcademicYear, &f.Semester, &f.FeeType,
		&f.TotalAmount, &f.PaidAmount, &f.DueAmount, &f.Fine, &f.Discount, &f.PaymentStatus,
		&f.DueDate, &f.PaymentDate, &f.PaymentMode, &f.TransactionID, &f.ReceiptNumber, &f.Remarks,
		&f.CreatedBy, &f.UpdatedBy, &f.Version, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFee inserts a fee for an existing student. The (roll number, year,
// semester, type) tuple is unique; a racing insert is caught by the constraint.
func (s *FeeService) CreateFee(ctx context.Context, req CreateFeeRequest, actorID *uuid.UUID) (*models.FeeDetail, error) {
	rollNumber := strings.TrimSpace(req.RollNumber)

	var studentID uuid.UUID
	err := s.db.QueryRowContext(ctx, `SELECT id FROM students WHERE roll_number = $1`, rollNumber).Scan(&studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "Student not found with this roll number")
	}
	if err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM fee_details
			WHERE roll_number = $1 AND academic_year = $2 AND semester = $3 AND fee_type = $4
		)`, rollNumber, req.AcademicYear, req.Semester, req.FeeType).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check duplicate fee: %w", err)
	}
	if exists {
		return nil, newError(ErrConflict, "Fee detail already exists for this student, academic year, semester, and fee type")
	}

	now := s.now()
	fee := &models.FeeDetail{
		ID:            uuid.New(),
		StudentID:     studentID,
		RollNumber:    rollNumber,
		AcademicYear:  req.AcademicYear,
		Semester:      req.Semester,
		FeeType:       req.FeeType,
		TotalAmount:   *req.TotalAmount,
		PaidAmount:    req.PaidAmount,
		Fine:          req.Fine,
		Discount:      req.Discount,
		DueDate:       req.DueDate.Time,
		PaymentMode:   models.PaymentModeNotPaid,
		TransactionID: req.TransactionID,
		Remarks:       req.Remarks,
		CreatedBy:     actorID,
		UpdatedBy:     actorID,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.PaymentMode != "" {
		fee.PaymentMode = req.PaymentMode
	}
	if fee.PaidAmount.IsPositive() {
		fee.PaymentDate = &now
	}
	if err := fee.ValidateAmounts(); err != nil {
		return nil, err
	}
	fee.Recompute(now)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fee_details (`+feeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		fee.ID, fee.StudentID, fee.RollNumber, fee.AcademicYear, fee.Semester, fee.FeeType,
		fee.TotalAmount, fee.PaidAmount, fee.DueAmount, fee.Fine, fee.Discount, fee.PaymentStatus,
		fee.DueDate, fee.PaymentDate, fee.PaymentMode, fee.TransactionID, fee.ReceiptNumber, fee.Remarks,
		fee.CreatedBy, fee.UpdatedBy, fee.Version, fee.CreatedAt, fee.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrConflict, "Fee detail already exists for this student, academic year, semester, and fee type")
		}
		return nil, fmt.Errorf("insert fee: %w", err)
	}

	s.invalidateStats(ctx)
	log.Printf("[FEES] Fee created - ID: %s, Roll: %s, Type: %s, Status: %s", fee.ID, fee.RollNumber, fee.FeeType, fee.PaymentStatus)
	return fee, nil
}

// RecordPayment posts a payment under a row lock. The version check makes a
// lost update impossible even if the row lock is bypassed.
func (s *FeeService) RecordPayment(ctx context.Context, feeID uuid.UUID, req PaymentRequest, actorID *uuid.UUID) (*models.FeeDetail, error) {
	var fee *models.FeeDetail
	err := s.withLockedFee(ctx, feeID, func(f *models.FeeDetail, now time.Time) error {
		fee = f
		return f.ApplyPayment(models.Payment{
			Amount:        req.PaidAmount,
			Mode:          req.PaymentMode,
			TransactionID: req.TransactionID,
			Remarks:       req.Remarks,
			RecordedBy:    actorID,
		}, now)
	})
	if err != nil {
		s.audit.LogError(feeID.String(), actorString(actorID), err)
		return nil, err
	}

	s.audit.LogPayment(fee.ID.String(), actorString(actorID), req.PaidAmount, string(fee.PaymentStatus), fee.ReceiptNumber)
	log.Printf("[FEES] Payment recorded - Fee: %s, Amount: %s, Status: %s", fee.ID, req.PaidAmount, fee.PaymentStatus)
	return fee, nil
}

// UpdateFee applies a partial update and re-derives dueAmount and status.
func (s *FeeService) UpdateFee(ctx context.Context, feeID uuid.UUID, req UpdateFeeRequest, actorID *uuid.UUID) (*models.FeeDetail, error) {
	var fee *models.FeeDetail
	err := s.withLockedFee(ctx, feeID, func(f *models.FeeDetail, now time.Time) error {
		fee = f
		applyFeeUpdate(f, req, now)
		if err := f.ValidateAmounts(); err != nil {
			return err
		}
		if actorID != nil {
			f.UpdatedBy = actorID
		}
		f.Recompute(now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[FEES] Fee updated - ID: %s, Status: %s", fee.ID, fee.PaymentStatus)
	return fee, nil
}

func applyFeeUpdate(f *models.FeeDetail, req UpdateFeeRequest, now time.Time) {
	if req.AcademicYear != nil {
		f.AcademicYear = *req.AcademicYear
	}
	if req.Semester != nil {
		f.Semester = *req.Semester
	}
	if req.FeeType != nil {
		f.FeeType = *req.FeeType
	}
	if req.TotalAmount != nil {
		f.TotalAmount = *req.TotalAmount
	}
	if req.PaidAmount != nil {
		if req.PaidAmount.GreaterThan(f.PaidAmount) {
			f.PaymentDate = &now
		}
		f.PaidAmount = *req.PaidAmount
	}
	if req.Fine != nil {
		f.Fine = *req.Fine
	}
	if req.Discount != nil {
		f.Discount = *req.Discount
	}
	if req.DueDate != nil && !req.DueDate.IsZero() {
		f.DueDate = req.DueDate.Time
	}
	if req.PaymentMode != nil {
		f.PaymentMode = *req.PaymentMode
	}
	if req.TransactionID != nil {
		f.TransactionID = *req.TransactionID
	}
	if req.Remarks != nil {
		f.Remarks = *req.Remarks
	}
}

// withLockedFee loads the fee FOR UPDATE, lets mutate change it and writes it
// back guarded by its version, all in one transaction.
func (s *FeeService) withLockedFee(ctx context.Context, feeID uuid.UUID, mutate func(*models.FeeDetail, time.Time) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	fee, err := scanFee(tx.QueryRowContext(ctx, `SELECT `+feeColumns+` FROM fee_details WHERE id = $1 FOR UPDATE`, feeID))
	if errors.Is(err, sql.ErrNoRows) {
		return newError(ErrNotFound, "Fee detail not found")
	}
	if err != nil {
		return fmt.Errorf("lock fee %s: %w", feeID, err)
	}

	now := s.now()
	if err := mutate(fee, now); err != nil {
		return err
	}

	if err := s.updateFeeTx(ctx, tx, fee, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.invalidateStats(ctx)
	return nil
}

func (s *FeeService) updateFeeTx(ctx context.Context, tx *sql.Tx, fee *models.FeeDetail, now time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE fee_details
		SET academic_year = $1, semester = $2, fee_type = $3, total_amount = $4, paid_amount = $5,
			due_amount = $6, fine = $7, discount = $8, payment_status = $9, due_date = $10,
			payment_date = $11, payment_mode = $12, transaction_id = $13, receipt_number = $14,
			remarks = $15, updated_by = $16, version = version + 1, updated_at = $17
		WHERE id = $18 AND version = $19`,
		fee.AcademicYear, fee.Semester, fee.FeeType, fee.TotalAmount, fee.PaidAmount,
		fee.DueAmount, fee.Fine, fee.Discount, fee.PaymentStatus, fee.DueDate,
		fee.PaymentDate, fee.PaymentMode, fee.TransactionID, fee.ReceiptNumber,
		fee.Remarks, fee.UpdatedBy, now, fee.ID, fee.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return newError(ErrConflict, "Fee detail already exists for this student, academic year, semester, and fee type")
		}
		return fmt.Errorf("update fee %s: %w", fee.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return newError(ErrConflict, "Fee detail was modified concurrently, please retry")
	}

	fee.Version++
	fee.UpdatedAt = now
	return nil
}

// GetFee returns the fee with derived fields evaluated at the current time,
// so a stored Pending record past its due date reads as Overdue.
func (s *FeeService) GetFee(ctx context.Context, feeID uuid.UUID) (*models.FeeDetail, error) {
	fee, err := scanFee(s.db.QueryRowContext(ctx, `SELECT `+feeColumns+` FROM fee_details WHERE id = $1`, feeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "Fee detail not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get fee %s: %w", feeID, err)
	}
	fee.Recompute(s.now())
	return fee, nil
}

// ListFeesByRollNumber returns a student's fees, newest academic year first.
func (s *FeeService) ListFeesByRollNumber(ctx context.Context, rollNumber string) ([]models.FeeDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+feeColumns+` FROM fee_details
		WHERE roll_number = $1
		ORDER BY academic_year DESC, semester DESC`,
		strings.TrimSpace(rollNumber))
	if err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	defer rows.Close()

	now := s.now()
	var fees []models.FeeDetail
	for rows.Next() {
		fee, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fee: %w", err)
		}
		fee.Recompute(now)
		fees = append(fees, *fee)
	}
	return fees, rows.Err()
}

// DeleteFee removes a fee record regardless of its payment state.
func (s *FeeService) DeleteFee(ctx context.Context, feeID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM fee_details WHERE id = $1`, feeID)
	if err != nil {
		return fmt.Errorf("delete fee %s: %w", feeID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return newError(ErrNotFound, "Fee detail not found")
	}
	s.invalidateStats(ctx)
	return nil
}

// Stats aggregates every fee with statuses evaluated now. Results are cached
// briefly and dropped on any fee mutation.
func (s *FeeService) Stats(ctx context.Context) (*models.FeeStats, error) {
	var cached models.FeeStats
	if s.store.GetJSON(ctx, feeStatsCacheKey, &cached) {
		return &cached, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT total_amount, paid_amount, fine, discount, due_date FROM fee_details`)
	if err != nil {
		return nil, fmt.Errorf("fee stats: %w", err)
	}
	defer rows.Close()

	now := s.now()
	stats := &models.FeeStats{}
	byStatus := map[models.PaymentStatus]*models.FeeStatusBreakdown{}
	for rows.Next() {
		var f models.FeeDetail
		if err := rows.Scan(&f.TotalAmount, &f.PaidAmount, &f.Fine, &f.Discount, &f.DueDate); err != nil {
			return nil, fmt.Errorf("scan fee stats: %w", err)
		}
		f.Recompute(now)
		stats.Add(f)

		b, ok := byStatus[f.PaymentStatus]
		if !ok {
			b = &models.FeeStatusBreakdown{Status: f.PaymentStatus}
			byStatus[f.PaymentStatus] = b
		}
		b.Count++
		b.Amount = b.Amount.Add(f.TotalAmount)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, st := range []models.PaymentStatus{models.PaymentStatusPaid, models.PaymentStatusPartial, models.PaymentStatusPending, models.PaymentStatusOverdue} {
		if b, ok := byStatus[st]; ok {
			stats.StatusWise = append(stats.StatusWise, *b)
		}
	}

	if s.statsTTL > 0 {
		s.store.SetJSON(ctx, feeStatsCacheKey, stats, s.statsTTL)
	}
	return stats, nil
}

func (s *FeeService) invalidateStats(ctx context.Context) {
	s.store.Delete(ctx, feeStatsCacheKey)
}

func actorString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func actorFromRequest(r *http.Request) *uuid.UUID {
	if id, ok := auth.AdminIDFromContext(r.Context()); ok {
		return &id
	}
	return nil
}

func parseIDParam(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid "+what+" ID", http.StatusBadRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

// Create handles fee creation
// @Summary Create fee record
// @Tags fees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateFeeRequest true "Fee"
// @Success 201 {object} Response{data=models.FeeDetail}
// @Failure 400 {object} Response
// @Failure 404 {object} Response "Student not found"
// @Failure 409 {object} Response "Duplicate fee"
// @Router /fees [post]
func (s *FeeService) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateFeeRequest
	if !s.validator.decodeAndValidate(w, r, &req) {
		return
	}

	fee, err := s.CreateFee(r.Context(), req, actorFromRequest(r))
	if err != nil {
		SendServiceError(w, "FEES", err, "Error creating fee detail")
		return
	}
	SendJSON(w, http.StatusCreated, "Fee detail created successfully", fee)
}

// Get returns one fee record
// @Summary Get fee record
// @Tags fees
// @Produce json
// @Security BearerAuth
// @Param id path string true "Fee ID"
// @Success 200 {object} Response{data=models.FeeDetail}
// @Failure 404 {object} Response
// @Router /fees/{id} [get]
func (s *FeeService) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "fee")
	if !ok {
		return
	}
	fee, err := s.GetFee(r.Context(), id)
	if err != nil {
		SendServiceError(w, "FEES", err, "Error fetching fee detail")
		return
	}
	SendJSON(w, http.StatusOK, "", fee)
}

// ListByStudent returns every fee of a student
// @Summary List fees of a student
// @Tags fees
// @Produce json
// @Security BearerAuth
// @Param rollNumber path string true "Roll number"
// @Success 200 {object} Response{data=[]models.FeeDetail}
// @Router /fees/student/{rollNumber} [get]
func (s *FeeService) ListByStudent(w http.ResponseWriter, r *http.Request) {
	fees, err := s.ListFeesByRollNumber(r.Context(), chi.URLParam(r, "rollNumber"))
	if err != nil {
		SendServiceError(w, "FEES", err, "Error fetching student fee details")
		return
	}
	SendList(w, fees)
}

// Update handles partial fee updates
// @Summary Update fee record
// @Tags fees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Fee ID"
// @Param request body UpdateFeeRequest true "Changed fields"
// @Success 200 {object} Response{data=models.FeeDetail}
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /fees/{id} [put]
func (s *FeeService) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "fee")
	if !ok {
		return
	}
	var req UpdateFeeRequest
	if !s.validator.decodeAndValidate(w, r, &req) {
		return
	}

	fee, err := s.UpdateFee(r.Context(), id, req, actorFromRequest(r))
	if err != nil {
		SendServiceError(w, "FEES", err, "Error updating fee detail")
		return
	}
	SendJSON(w, http.StatusOK, "Fee detail updated successfully", fee)
}

// Delete removes a fee record
// @Summary Delete fee record
// @Tags fees
// @Produce json
// @Security BearerAuth
// @Param id path string true "Fee ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /fees/{id} [delete]
func (s *FeeService) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "fee")
	if !ok {
		return
	}
	if err := s.DeleteFee(r.Context(), id); err != nil {
		SendServiceError(w, "FEES", err, "Error deleting fee detail")
		return
	}
	log.Printf("[FEES] Fee deleted - ID: %s", id)
	SendJSON(w, http.StatusOK, "Fee detail deleted successfully", nil)
}

// PostPayment records a payment
// @Summary Record payment
// @Description Adds paidAmount to the fee. A receipt number is issued once fully settled.
// @Tags fees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Fee ID"
// @Param request body PaymentRequest true "Payment"
// @Success 200 {object} Response{data=models.FeeDetail}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /fees/{id}/payment [post]
func (s *FeeService) PostPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "fee")
	if !ok {
		return
	}
	var req PaymentRequest
	if !s.validator.decodeAndValidate(w, r, &req) {
		return
	}

	fee, err := s.RecordPayment(r.Context(), id, req, actorFromRequest(r))
	if err != nil {
		SendServiceError(w, "FEES", err, "Error recording payment")
		return
	}
	SendJSON(w, http.StatusOK, "Payment recorded successfully", fee)
}

// Dashboard returns fee statistics
// @Summary Fee statistics
// @Tags fees
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.FeeStats}
// @Router /fees/stats/dashboard [get]
func (s *FeeService) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Stats(r.Context())
	if err != nil {
		SendServiceError(w, "FEES", err, "Error fetching statistics")
		return
	}
	SendJSON(w, http.StatusOK, "", stats)
}
