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

	"github.com/collegeerp/backend/internal/database"
	"github.com/collegeerp/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const studentColumns = `id, roll_number, first_name, last_name, email, phone, date_of_birth, gender, address, department, semester, batch, admission_date, status, parent_name, parent_phone, blood_group, photo_url, created_by, created_at, updated_at`

type StudentService struct {
	db        *sql.DB
	store     *database.RedisStore
	validator *ValidationHelper
	now       func() time.Time
}

// StudentRequest is used for both create and full update.
type StudentRequest struct {
	RollNumber    string         `json:"rollNumber" validate:"required,max=50" example:"CS2024001"`
	FirstName     string         `json:"firstName" validate:"required,max=100"`
	LastName      string         `json:"lastName" validate:"required,max=100"`
	Email         string         `json:"email" validate:"required,email"`
	Phone         string         `json:"phone" validate:"required,len=10,numeric"`
	DateOfBirth   DateInput      `json:"dateOfBirth" validate:"required" swaggertype:"string"`
	Gender        string         `json:"gender" validate:"required,oneof=Male Female Other"`
	Address       models.Address `json:"address"`
	Department    string         `json:"department" validate:"required,department"`
	Semester      int            `json:"semester" validate:"required,min=1,max=8"`
	Batch         string         `json:"batch" validate:"required,max=20" example:"2024-2028"`
	AdmissionDate *DateInput     `json:"admissionDate,omitempty" swaggertype:"string"`
	Status        string         `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive Graduated Suspended"`
	ParentName    string         `json:"parentName" validate:"required,max=200"`
	ParentPhone   string         `json:"parentPhone" validate:"required,len=10,numeric"`
	BloodGroup    string         `json:"bloodGroup,omitempty" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	PhotoURL      string         `json:"photoUrl,omitempty" validate:"omitempty,url"`
}

func NewStudentService(db *sql.DB, store *database.RedisStore) *StudentService {
	return &StudentService{
		db:        db,
		store:     store,
		validator: NewValidationHelper(),
		now:       time.Now,
	}
}

func scanStudent(row interface{ Scan(...any) error }) (*models.Student, error) {
	var st models.Student
	err := row.Scan(&st.ID, &st.RollNumber, &st.FirstName, &st.LastName, &st.Email, &st.Phone,
		&st.DateOfBirth, &st.Gender, &st.Address, &st.Department, &st.Semester, &st.Batch,
		&st.AdmissionDate, &st.Status, &st.ParentName, &st.ParentPhone, &st.BloodGroup,
		&st.PhotoURL, &st.CreatedBy, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// apply copies the request onto st, normalising identifiers.
func (req StudentRequest) apply(st *models.Student, now time.Time) {
	st.RollNumber = strings.TrimSpace(req.RollNumber)
	st.FirstName = strings.TrimSpace(req.FirstName)
	st.LastName = strings.TrimSpace(req.LastName)
	st.Email = normalizeEmail(req.Email)
	st.Phone = req.Phone
	st.DateOfBirth = req.DateOfBirth.Time
	st.Gender = req.Gender
	st.Address = req.Address
	st.Department = req.Department
	st.Semester = req.Semester
	st.Batch = req.Batch
	if req.AdmissionDate != nil && !req.AdmissionDate.IsZero() {
		st.AdmissionDate = req.AdmissionDate.Time
	} else if st.AdmissionDate.IsZero() {
		st.AdmissionDate = now
	}
	st.Status = req.Status
	if st.Status == "" {
		st.Status = models.StudentStatusActive
	}
	st.ParentName = req.ParentName
	st.ParentPhone = req.ParentPhone
	st.BloodGroup = req.BloodGroup
	st.PhotoURL = req.PhotoURL
}

func (s *StudentService) CreateStudent(ctx context.Context, req StudentRequest, actorID *uuid.UUID) (*models.Student, error) {
	now := s.now()
	st := &models.Student{ID: uuid.New(), CreatedBy: actorID, CreatedAt: now, UpdatedAt: now}
	req.apply(st, now)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		st.ID, st.RollNumber, st.FirstName, st.LastName, st.Email, st.Phone, st.DateOfBirth, st.Gender,
		st.Address, st.Department, st.Semester, st.Batch, st.AdmissionDate, st.Status, st.ParentName,
		st.ParentPhone, st.BloodGroup, st.PhotoURL, st.CreatedBy, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrConflict, "Student with this roll number or email already exists")
		}
		return nil, fmt.Errorf("insert student: %w", err)
	}

	log.Printf("[STUDENTS] Student created - ID: %s, Roll: %s", st.ID, st.RollNumber)
	return st, nil
}

func (s *StudentService) GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	return s.getStudentWhere(ctx, "id = $1", id)
}

func (s *StudentService) GetStudentByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	return s.getStudentWhere(ctx, "roll_number = $1", strings.TrimSpace(rollNumber))
}

func (s *StudentService) getStudentWhere(ctx context.Context, cond string, arg any) (*models.Student, error) {
	st, err := scanStudent(s.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE `+cond, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "Student not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return st, nil
}

// UpdateStudent replaces the student's editable fields. A roll number change
// is propagated to the student's fees in the same transaction.
func (s *StudentService) UpdateStudent(ctx context.Context, id uuid.UUID, req StudentRequest) (*models.Student, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	st, err := scanStudent(tx.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "Student not found")
	}
	if err != nil {
		return nil, fmt.Errorf("lock student: %w", err)
	}

	oldRoll := st.RollNumber
	now := s.now()
	req.apply(st, now)
	st.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		UPDATE students
		SET roll_number = $1, first_name = $2, last_name = $3, email = $4, phone = $5, date_of_birth = $6,
			gender = $7, address = $8, department = $9, semester = $10, batch = $11, admission_date = $12,
			status = $13, parent_name = $14, parent_phone = $15, blood_group = $16, photo_url = $17, updated_at = $18
		WHERE id = $19`,
		st.RollNumber, st.FirstName, st.LastName, st.Email, st.Phone, st.DateOfBirth,
		st.Gender, st.Address, st.Department, st.Semester, st.Batch, st.AdmissionDate,
		st.Status, st.ParentName, st.ParentPhone, st.BloodGroup, st.PhotoURL, st.UpdatedAt, st.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrConflict, "Student with this roll number or email already exists")
		}
		return nil, fmt.Errorf("update student: %w", err)
	}

	if oldRoll != st.RollNumber {
		if _, err := tx.ExecContext(ctx, `UPDATE fee_details SET roll_number = $1 WHERE student_id = $2`, st.RollNumber, st.ID); err != nil {
			return nil, fmt.Errorf("update fee roll numbers: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return st, nil
}

// DeleteStudent removes the student and, by cascade, their fees.
func (s *StudentService) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return newError(ErrNotFound, "Student not found")
	}
	s.store.Delete(ctx, feeStatsCacheKey)
	return nil
}

func (s *StudentService) Stats(ctx context.Context) (*models.StudentStats, error) {
	stats := &models.StudentStats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1) FROM students`,
		models.StudentStatusActive).Scan(&stats.TotalStudents, &stats.ActiveStudents)
	if err != nil {
		return nil, fmt.Errorf("student stats: %w", err)
	}

	stats.DepartmentWise, err = groupCounts(ctx, s.db,
		`SELECT department, COUNT(*) FROM students GROUP BY department ORDER BY department`)
	if err != nil {
		return nil, fmt.Errorf("student stats by department: %w", err)
	}
	return stats, nil
}

// Create handles student creation
// @Summary Create student
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body StudentRequest true "Student"
// @Success 201 {object} Response{data=models.Student}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /students [post]
func (s *StudentService) Create(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if !s.validator.decodeAndValidate(w, r, &req) {
		return
	}
	st, err := s.CreateStudent(r.Context(), req, actorFromRequest(r))
	if err != nil {
		SendServiceError(w, "STUDENTS", err, "Error creating student")
		return
	}
	SendJSON(w, http.StatusCreated, "Student created successfully", st)
}

// Get returns a student by id
// @Summary Get student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} Response{data=models.Student}
// @Failure 404 {object} Response
// @Router /students/{id} [get]
func (s *StudentService) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "student")
	if !ok {
		return
	}
	st, err := s.GetStudent(r.Context(), id)
	if err != nil {
		SendServiceError(w, "STUDENTS", err, "Error fetching student")
		return
	}
	SendJSON(w, http.StatusOK, "", st)
}

// GetByRollNumber returns a student by roll number
// @Summary Get student by roll number
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param rollNumber path string true "Roll number"
// @Success 200 {object} Response{data=models.Student}
// @Failure 404 {object} Response
// @Router /students/roll/{rollNumber} [get]
func (s *StudentService) GetByRollNumber(w http.ResponseWriter, r *http.Request) {
	st, err := s.GetStudentByRollNumber(r.Context(), chi.URLParam(r, "rollNumber"))
	if err != nil {
		SendServiceError(w, "STUDENTS", err, "Error fetching student")
		return
	}
	SendJSON(w, http.StatusOK, "", st)
}

// Update replaces a student record
// @Summary Update student
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param request body StudentRequest true "Student"
// @Success 200 {object} Response{data=models.Student}
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /students/{id} [put]
func (s *StudentService) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "student")
	if !ok {
		return
	}
	var req StudentRequest
	if !s.validator.decodeAndValidate(w, r, &req) {
		return
	}
	st, err := s.UpdateStudent(r.Context(), id, req)
	if err != nil {
		SendServiceError(w, "STUDENTS", err, "Error updating student")
		return
	}
	SendJSON(w, http.StatusOK, "Student updated successfully", st)
}

// Delete removes a student
// @Summary Delete student
// @Description Also deletes the student's fee records
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /students/{id} [delete]
func (s *StudentService) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "student")
	if !ok {
		return
	}
	if err := s.DeleteStudent(r.Context(), id); err != nil {
		SendServiceError(w, "STUDENTS", err, "Error deleting student")
		return
	}
	log.Printf("[STUDENTS] Student deleted - ID: %s", id)
	SendJSON(w, http.StatusOK, "Student deleted successfully", nil)
}

// Dashboard returns student counts
// @Summary Student statistics
// @Tags students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.StudentStats}
// @Router /students/stats/dashboard [get]
func (s *StudentService) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Stats(r.Context())
	if err != nil {
		SendServiceError(w, "STUDENTS", err, "Error fetching statistics")
		return
	}
	SendJSON(w, http.StatusOK, "", stats)
}
