package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Staff status
const (
	StaffStatusActive   = "Active"
	StaffStatusInactive = "Inactive"
	StaffStatusOnLeave  = "On Leave"
	StaffStatusResigned = "Resigned"
)

type Staff struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	EmployeeID       string           `json:"employeeId" db:"employee_id"`
	FirstName        string           `json:"firstName" db:"first_name"`
	LastName         string           `json:"lastName" db:"last_name"`
	Email            string           `json:"email" db:"email"`
	Phone            string           `json:"phone" db:"phone"`
	DateOfBirth      time.Time        `json:"dateOfBirth" db:"date_of_birth"`
	Gender           string           `json:"gender" db:"gender"`
	Address          Address          `json:"address" db:"address"`
	Department       string           `json:"department" db:"department"`
	Designation      string           `json:"designation" db:"designation"`
	Qualification    string           `json:"qualification" db:"qualification"`
	Experience       int              `json:"experience" db:"experience"`
	JoiningDate      time.Time        `json:"joiningDate" db:"joining_date"`
	Salary           decimal.Decimal  `json:"salary" db:"salary"`
	Status           string           `json:"status" db:"status"`
	Subjects         pq.StringArray   `json:"subjects" db:"subjects" swaggertype:"array,string"`
	BloodGroup       string           `json:"bloodGroup,omitempty" db:"blood_group"`
	EmergencyContact EmergencyContact `json:"emergencyContact" db:"emergency_contact"`
	PhotoURL         string           `json:"photoUrl,omitempty" db:"photo_url"`
	CreatedBy        *uuid.UUID       `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt" db:"updated_at"`
}
