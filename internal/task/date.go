package task

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateOnlyLayout = "2006-01-02"

// Date is a due date in a request body. It accepts RFC 3339 timestamps and
// plain calendar dates such as "2025-01-15", which are read as midnight UTC.
// A JSON null leaves a *Date field nil.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("due_date must be a string: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		d.Time = t
		return nil
	}

	t, err := time.ParseInLocation(dateOnlyLayout, raw, time.UTC)
	if err != nil {
		return fmt.Errorf("due_date %q is neither a date nor an RFC 3339 timestamp", raw)
	}
	d.Time = t
	return nil
}

// timePtr converts an optional request date to the model's representation
func (d *Date) timePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
