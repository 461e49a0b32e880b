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

	"github.com/collegeerp/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const staffColumns = `id, employee_id, first_name, last_name, email, phone, date_of_birth, gender, address, department, designation, qualification, experience, joining_date, salary, status, subjects, blood_group, emergency_contact, photo_url, created_by, created_at, updated_at`

type StaffService struct {
	db        *sql.DB
	validator *ValidationHelper
	now       func() time.Time
}

// StaffRequest is used for both create and full update.
type StaffRequest struct {
	EmployeeID       string                  `json:"employeeId" validate:"required,max=50" example:"EMP001"`
	FirstName        string                  `json:"firstName" validate:"required,max=100"`
	LastName         string                  `json:"lastName" validate:"required,max=100"`
	Email            string                  `json:"email" validate:"required,email"`
	Phone            string                  `json:"phone" validate:"required,len=10,numeric"`
	DateOfBirth      DateInput               `json:"dateOfBirth" validate:"required" swaggertype:"string"`
	Gender           string                  `json:"gender" validate:"required,oneof=Male Female Other"`
	Address          models.Address          `json:"address"`
	Department       string                  `json:"department" validate:"required,staff_department"`
	Designation      string                  `json:"designation" validate:"required,designation"`
	Qualification    string                  `json:"qualification" validate:"required,max=200"`
	Experience       int                     `json:"experience" validate:"gte=0"`
	JoiningDate      *DateInput              `json:"joiningDate,omitempty" swaggertype:"string"`
	Salary           *decimal.Decimal        `json:"salary" validate:"required,gte=0,money" swaggertype:"string"`
	Status           string                  `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive 'On Leave' Resigned"`
	Subjects         []string                `json:"subjects,omitempty" validate:"dive,required,max=100"`
	BloodGroup       string                  `json:"bloodGroup,omitempty" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	EmergencyContact models.EmergencyContact `json:"emergencyContact"`
	PhotoURL         string                  `json:"photoUrl,omitempty" validate:"omitempty,url"`
}

func NewStaffService(db *sql.DB) *StaffService {
	return &StaffService{
		db:        db,
		validator: NewValidationHelper(),
		now:       time.Now,
	}
}

func scanStaff(row interface{ Scan(...any) error }) (*models.Staff, error) {
	var st models.Staff
	err := row.Scan(&st.ID, &st.EmployeeID, &st.FirstName, &st.LastName, &st.Email, &st.Phone,
		&st.DateOfBirth, &st.Gender, &st.Address, &st.Department, &st.Designation, &st.Qualification,
		&st.Experience, &st.JoiningDate, &st.Salary, &st.Status, &st.Subjects, &st.BloodGroup,
		&st.EmergencyContact, &st.PhotoURL, &st.CreatedBy, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (req StaffRequest) apply(st *models.Staff, now time.Time) {
	st.EmployeeID = strings.TrimSpace(req.EmployeeID)
	st.FirstName = strings.TrimSpace(req.FirstName)
	st.LastName = strings.TrimSpace(req.LastName)
	st.Email = normalizeEmail(req.Email)
	st.Phone = req.Phone
	st.DateOfBirth = req.DateOfBirth.Time
	st.Gender = req.Gender
	st.Address = req.Address
	st.Department = req.Department
	st.Designation = req.Designation
	st.Qualification = req.Qualification
	st.Experience = req.Experience
	if req.JoiningDate != nil && !req.JoiningDate.IsZero() {
		st.JoiningDate = req.JoiningDate.Time
	} else if st.JoiningDate.IsZero() {
		st.JoiningDate = now
	}
	st.Salary = *req.Salary
	st.Status = req.Status
	if st.Status == "" {
		st.Status = models.StaffStatusActive
	}
	st.Subjects = pq.StringArray(req.Subjects)
	if st.Subjects == nil {
		st.Subjects = pq.StringArray{}
	}
	st.BloodGroup = req.BloodGroup
	st.EmergencyContact = req.EmergencyContact
	st.PhotoURL = req.PhotoURL
}

func (s *StaffService) CreateStaff(ctx context.Context, req StaffRequest, actorID *uuid.UUID) (*models.Staff, error) {
	now := s.now()
	st := &models.Staff{ID: uuid.New(), CreatedBy: actorID, CreatedAt: now, UpdatedAt: now}
	req.apply(st, now)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (`+staffColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		st.ID, st.EmployeeID, st.FirstName, st.LastName, st.Email, st.Phone, st.DateOfBirth, st.Gender,
		st.Address, st.Department, st.Designation, st.Qualification, st.Experience, st.JoiningDate,
		st.Salary, st.Status, st.Subjects, st.BloodGroup, st.EmergencyContact, st.PhotoURL,
		st.CreatedBy, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrConflict, "Staff with this employee ID or email already exists")
		}
		return nil, fmt.Errorf("insert staff: %w", err)
	}

	log.Printf("[STAFF] Staff created - ID: %s, Employee: %s", st.ID, st.EmployeeID)
	return st, nil
}

func (s *StaffService) GetStaff(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	return s.getStaffWhere(ctx, "id = $1", id)
}

func (s *StaffService) GetStaffByEmployeeID(ctx context.Context, employeeID string) (*models.Staff, error) {
	return s.getStaffWhere(ctx, "employee_id = $1", strings.TrimSpace(employeeID))
}

func (s *StaffService) getStaffWhere(ctx context.Context, cond string, arg any) (*models.Staff, error) {
	st, err := scanStaff(s.db.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE `+cond, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "Staff member not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get staff: %w", err)
	}
	return st, nil
}

func (s *StaffService) UpdateStaff(ctx context.Context, id uuid.UUID, req StaffRequest) (*models.Staff, error) {
	now := s.now()
	st := &models.Staff{ID: id, UpdatedAt: now}
	req.apply(st, now)

	row := s.db.QueryRowContext(ctx, `
		UPDATE staff
		SET employee_id = $1, first_name = $2, last_name = $3, email = $4, phone = $5, date_of_birth = $6,
			gender = $7, address = $8, department = $9, designation = $10, qualification = $11, experience = $12,
			joining_date = $13, salary = $14, status = $15, subjects = $16, blood_group = $17,
			emergency_contact = $18, photo_url = $19, updated_at = $20
		WHERE id = $21
		RETURNING created_by, created_at`,
		st.EmployeeID, st.FirstName, st.LastName, st.Email, st.Phone, st.DateOfBirth,
		st.Gender, st.Address, st.Department, st.Designation, st.Qualification, st.Experience,
		st.JoiningDate, st.Salary, st.Status, st.Subjects, st.BloodGroup,
		st.EmergencyContact, st.PhotoURL, st.UpdatedAt, st.ID)
	err := row.Scan(&st.CreatedBy, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "Staff member not found")
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrConflict, "Staff with this employee ID or email already exists")
		}
		return nil, fmt.Errorf("update staff: %w", err)
	}
	return st, nil
}

func (s *StaffService) DeleteStaff(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete staff: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return newError(ErrNotFound, "Staff member not found")
	}
	return nil
}

func (s *StaffService) Stats(ctx context.Context) (*models.StaffStats, error) {
	stats := &models.StaffStats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1) FROM staff`,
		models.StaffStatusActive).Scan(&stats.TotalStaff, &stats.ActiveStaff)
	if err != nil {
		return nil, fmt.Errorf("staff stats: %w", err)
	}

	if stats.DepartmentWise, err = groupCounts(ctx, s.db,
		`SELECT department, COUNT(*) FROM staff GROUP BY department ORDER BY department`); err != nil {
		return nil, fmt.Errorf("staff stats by department: %w", err)
	}
	if stats.DesignationWise, err = groupCounts(ctx, s.db,
		`SELECT designation, COUNT(*) FROM staff GROUP BY designation ORDER BY designation`); err != nil {
		return nil, fmt.Errorf("staff stats by designation: %w", err)
	}
	return stats, nil
}

// Create handles staff creation
// @Summary Create staff member
// @Tags staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body StaffRequest true "Staff"
// @Success 201 {object} Response{data=models.Staff}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /staff [post]
func (s *StaffService) Create(w http.ResponseWriter, r *http.Request) {
	var req StaffRequest
	if !s.validator.decodeAndValidate(w, r, &req) {
		return
	}
	st, err := s.CreateStaff(r.Context(), req, actorFromRequest(r))
	if err != nil {
		SendServiceError(w, "STAFF", err, "Error creating staff member")
		return
	}
	SendJSON(w, http.StatusCreated, "Staff member created successfully", st)
}

// Get returns a staff member
// @Summary Get staff member
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param id path string true "Staff ID"
// @Success 200 {object} Response{data=models.Staff}
// @Failure 404 {object} Response
// @Router /staff/{id} [get]
func (s *StaffService) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "staff")
	if !ok {
		return
	}
	st, err := s.GetStaff(r.Context(), id)
	if err != nil {
		SendServiceError(w, "STAFF", err, "Error fetching staff member")
		return
	}
	SendJSON(w, http.StatusOK, "", st)
}

// GetByEmployeeID returns a staff member by employee id
// @Summary Get staff member by employee ID
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param employeeId path string true "Employee ID"
// @Success 200 {object} Response{data=models.Staff}
// @Failure 404 {object} Response
// @Router /staff/employee/{employeeId} [get]
func (s *StaffService) GetByEmployeeID(w http.ResponseWriter, r *http.Request) {
	st, err := s.GetStaffByEmployeeID(r.Context(), chi.URLParam(r, "employeeId"))
	if err != nil {
		SendServiceError(w, "STAFF", err, "Error fetching staff member")
		return
	}
	SendJSON(w, http.StatusOK, "", st)
}

// Update replaces a staff record
// @Summary Update staff member
// @Tags staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Staff ID"
// @Param request body StaffRequest true "Staff"
// @Success 200 {object} Response{data=models.Staff}
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /staff/{id} [put]
func (s *StaffService) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "staff")
	if !ok {
		return
	}
	var req StaffRequest
	if !s.validator.decodeAndValidate(w, r, &req) {
		return
	}
	st, err := s.UpdateStaff(r.Context(), id, req)
	if err != nil {
		SendServiceError(w, "STAFF", err, "Error updating staff member")
		return
	}
	SendJSON(w, http.StatusOK, "Staff member updated successfully", st)
}

// Delete removes a staff member
// @Summary Delete staff member
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param id path string true "Staff ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /staff/{id} [delete]
func (s *StaffService) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "staff")
	if !ok {
		return
	}
	if err := s.DeleteStaff(r.Context(), id); err != nil {
		SendServiceError(w, "STAFF", err, "Error deleting staff member")
		return
	}
	log.Printf("[STAFF] Staff deleted - ID: %s", id)
	SendJSON(w, http.StatusOK, "Staff member deleted successfully", nil)
}

// Dashboard returns staff counts
// @Summary Staff statistics
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.StaffStats}
// @Router /staff/stats/dashboard [get]
func (s *StaffService) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Stats(r.Context())
	if err != nil {
		SendServiceError(w, "STAFF", err, "Error fetching statistics")
		return
	}
	SendJSON(w, http.StatusOK, "", stats)
}
