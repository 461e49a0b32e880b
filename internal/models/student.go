package models

import (
	"time"

	"github.com/google/uuid"
)

// Student status
const (
	StudentStatusActive    = "Active"
	StudentStatusInactive  = "Inactive"
	StudentStatusGraduated = "Graduated"
	StudentStatusSuspended = "Suspended"
)

// Student is an enrolled student. RollNumber is copied onto every FeeDetail.
type Student struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	RollNumber    string     `json:"rollNumber" db:"roll_number"`
	FirstName     string     `json:"firstName" db:"first_name"`
	LastName      string     `json:"lastName" db:"last_name"`
	Email         string     `json:"email" db:"email"`
	Phone         string     `json:"phone" db:"phone"`
	DateOfBirth   time.Time  `json:"dateOfBirth" db:"date_of_birth"`
	Gender        string     `json:"gender" db:"gender"`
	Address       Address    `json:"address" db:"address"`
	Department    string     `json:"department" db:"department"`
	Semester      int        `json:"semester" db:"semester"`
	Batch         string     `json:"batch" db:"batch"`
	AdmissionDate time.Time  `json:"admissionDate" db:"admission_date"`
	Status        string     `json:"status" db:"status"`
	ParentName    string     `json:"parentName" db:"parent_name"`
	ParentPhone   string     `json:"parentPhone" db:"parent_phone"`
	BloodGroup    string     `json:"bloodGroup,omitempty" db:"blood_group"`
	PhotoURL      string     `json:"photoUrl,omitempty" db:"photo_url"`
	CreatedBy     *uuid.UUID `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
