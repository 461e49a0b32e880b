package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateInput accepts RFC 3339 timestamps as well as plain YYYY-MM-DD dates
// sent by HTML date inputs.
type DateInput struct {
	time.Time
}

func (d *DateInput) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d DateInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time)
}
