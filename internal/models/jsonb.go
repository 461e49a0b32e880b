package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Address is stored as JSONB
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Pincode string `json:"pincode,omitempty"`
	Country string `json:"country,omitempty"`
}

// Value implements driver.Valuer for Address
func (a Address) Value() (driver.Value, error) {
	if a.Country == "" {
		a.Country = "India"
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for Address
func (a *Address) Scan(value any) error {
	return scanJSONB(value, a)
}

// EmergencyContact is stored as JSONB
type EmergencyContact struct {
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Relation string `json:"relation,omitempty"`
}

// Value implements driver.Valuer for EmergencyContact
func (c EmergencyContact) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for EmergencyContact
func (c *EmergencyContact) Scan(value any) error {
	return scanJSONB(value, c)
}

func scanJSONB(value any, dst any) error {
	if value == nil {
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, dst)
}
