package database

import (
	"database/sql"
	"fmt"
	"log"
)

var schema = []struct {
	name  string
	query string
}{
	{"create admins", `
		CREATE TABLE IF NOT EXISTS admins (
			id UUID PRIMARY KEY,
			username VARCHAR(50) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'admin',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			login_attempts INTEGER NOT NULL DEFAULT 0 CHECK (login_attempts >= 0),
			lock_until TIMESTAMPTZ,
			last_login TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"create students", `
		CREATE TABLE IF NOT EXISTS students (
			id UUID PRIMARY KEY,
			roll_number VARCHAR(50) NOT NULL UNIQUE,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			phone VARCHAR(10) NOT NULL,
			date_of_birth DATE NOT NULL,
			gender VARCHAR(10) NOT NULL,
			address JSONB NOT NULL DEFAULT '{}',
			department VARCHAR(50) NOT NULL,
			semester SMALLINT NOT NULL CHECK (semester BETWEEN 1 AND 8),
			batch VARCHAR(20) NOT NULL,
			admission_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			status VARCHAR(20) NOT NULL DEFAULT 'Active',
			parent_name VARCHAR(200) NOT NULL,
			parent_phone VARCHAR(10) NOT NULL,
			blood_group VARCHAR(3) NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			created_by UUID REFERENCES admins(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"create staff", `
		CREATE TABLE IF NOT EXISTS staff (
			id UUID PRIMARY KEY,
			employee_id VARCHAR(50) NOT NULL UNIQUE,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			phone VARCHAR(10) NOT NULL,
			date_of_birth DATE NOT NULL,
			gender VARCHAR(10) NOT NULL,
			address JSONB NOT NULL DEFAULT '{}',
			department VARCHAR(50) NOT NULL,
			designation VARCHAR(50) NOT NULL,
			qualification VARCHAR(200) NOT NULL,
			experience INTEGER NOT NULL CHECK (experience >= 0),
			joining_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			salary NUMERIC(14, 2) NOT NULL CHECK (salary >= 0),
			status VARCHAR(20) NOT NULL DEFAULT 'Active',
			subjects TEXT[] NOT NULL DEFAULT '{}',
			blood_group VARCHAR(3) NOT NULL DEFAULT '',
			emergency_contact JSONB NOT NULL DEFAULT '{}',
			photo_url TEXT NOT NULL DEFAULT '',
			created_by UUID REFERENCES admins(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"create fee_details", `
		CREATE TABLE IF NOT EXISTS fee_details (
			id UUID PRIMARY KEY,
			student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
			roll_number VARCHAR(50) NOT NULL,
			academic_year VARCHAR(20) NOT NULL,
			semester SMALLINT NOT NULL CHECK (semester BETWEEN 1 AND 8),
			fee_type VARCHAR(30) NOT NULL,
			total_amount NUMERIC(14, 2) NOT NULL CHECK (total_amount >= 0),
			paid_amount NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (paid_amount >= 0),
			due_amount NUMERIC(14, 2) NOT NULL DEFAULT 0,
			fine NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (fine >= 0),
			discount NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (discount >= 0),
			payment_status VARCHAR(10) NOT NULL DEFAULT 'Pending',
			due_date TIMESTAMPTZ NOT NULL,
			payment_date TIMESTAMPTZ,
			payment_mode VARCHAR(20) NOT NULL DEFAULT 'Not Paid',
			transaction_id VARCHAR(100) NOT NULL DEFAULT '',
			receipt_number VARCHAR(100) NOT NULL DEFAULT '',
			remarks TEXT NOT NULL DEFAULT '',
			created_by UUID REFERENCES admins(id) ON DELETE SET NULL,
			updated_by UUID REFERENCES admins(id) ON DELETE SET NULL,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT fee_details_tuple_key UNIQUE (roll_number, academic_year, semester, fee_type)
		)`},
	{"index fee_details roll_number", `CREATE INDEX IF NOT EXISTS idx_fee_details_roll_number ON fee_details (roll_number)`},
	{"index fee_details payment_status", `CREATE INDEX IF NOT EXISTS idx_fee_details_payment_status ON fee_details (payment_status)`},
	{"widen fee_details money columns", `
		ALTER TABLE fee_details
			ALTER COLUMN total_amount TYPE NUMERIC(14, 2),
			ALTER COLUMN paid_amount TYPE NUMERIC(14, 2),
			ALTER COLUMN due_amount TYPE NUMERIC(14, 2),
			ALTER COLUMN fine TYPE NUMERIC(14, 2),
			ALTER COLUMN discount TYPE NUMERIC(14, 2)`},
}

// RunMigrations applies the schema. Every statement is idempotent.
func RunMigrations(db *sql.DB) error {
	log.Println("Running database migrations...")

	for _, m := range schema {
		if _, err := db.Exec(m.query); err != nil {
			log.Printf("Failed to run migration %q: %v", m.name, err)
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
