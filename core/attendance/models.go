package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/mwanzohq/mwanzo/core"
)

// Record marks a student present or absent on a given date.
// At most one record exists per (student, date); a record is locked the
// moment it is created and rejects edits from then on.
type Record struct {
	ID        int         `json:"id"`
	StudentID int         `json:"student_id"`
	Date      time.Time   `json:"date"` // date only, UTC midnight
	IsPresent bool        `json:"is_present"`
	Notes     null.String `json:"notes,omitempty"`
	IsLocked  bool        `json:"is_locked"`
}

type NewRecord struct {
	StudentID int       `json:"student_id" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	IsPresent bool      `json:"is_present"`
	Notes     string    `json:"notes" validate:"max=500"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.Notes = core.CleanString(nr.Notes)
	return validate.Struct(nr)
}

// UpdateRecord is only honored for records that are not locked.
type UpdateRecord struct {
	IsPresent *bool  `json:"is_present"`
	Notes     string `json:"notes" validate:"max=500"`
}

// TruncateToDate drops the time-of-day portion, keeping the UTC date.
func TruncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
