package timetable

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core"
)

// Weekday is a 0-6, Sunday-based day of the week.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func (d Weekday) Valid() bool { return d >= Sunday && d <= Saturday }

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
// It marshals to/from "HH:MM".
type TimeOfDay int

const minutesPerDay = 24 * 60

var errBadTime = errors.New(`time must be formatted as "HH:MM"`)

func NewTimeOfDay(hour, min int) TimeOfDay {
	return TimeOfDay(hour*60 + min)
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hour, min int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &hour, &min); err != nil {
		return 0, errBadTime
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, errBadTime
	}
	return NewTimeOfDay(hour, min), nil
}

func (t TimeOfDay) Valid() bool { return t >= 0 && t < minutesPerDay }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errBadTime
	}
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = tod
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) { return int64(t), nil }

func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*t = TimeOfDay(v)
		return nil
	case int:
		*t = TimeOfDay(v)
		return nil
	}
	return errors.Errorf("cannot scan %T into TimeOfDay", src)
}

// Entry is a scheduled (class, subject, day, time-range) slot.
type Entry struct {
	ID        int       `json:"id"`
	ClassID   int       `json:"class_id"`
	SubjectID int       `json:"subject_id"`
	Day       Weekday   `json:"day"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`

	// populated on queries
	ClassName   string `json:"class_name,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}

// OverlapsWith reports whether e conflicts with other: same class, same day,
// intersecting half-open time ranges.
func (e Entry) OverlapsWith(other Entry) bool {
	return e.ClassID == other.ClassID &&
		e.Day == other.Day &&
		Overlaps(e.StartTime, e.EndTime, other.StartTime, other.EndTime)
}

// NewEntry carries a candidate timetable slot.
type NewEntry struct {
	ClassID   int       `json:"class_id" validate:"required"`
	SubjectID int       `json:"subject_id" validate:"required"`
	Day       Weekday   `json:"day"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
}

// Validate checks the candidate before any conflict lookup: a valid day
// and times, with EndTime strictly after StartTime.
func (ne *NewEntry) Validate() error {
	var flds []core.FieldError
	if !ne.Day.Valid() {
		flds = append(flds, core.FieldError{Field: "day", Error: "day must be between 0 (Sunday) and 6 (Saturday)"})
	}
	if !ne.StartTime.Valid() {
		flds = append(flds, core.FieldError{Field: "start_time", Error: errBadTime.Error()})
	}
	if !ne.EndTime.Valid() {
		flds = append(flds, core.FieldError{Field: "end_time", Error: errBadTime.Error()})
	}
	if len(flds) == 0 && ne.EndTime <= ne.StartTime {
		flds = append(flds, core.FieldError{Field: "end_time", Error: "end_time must be after start_time"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (ne *NewEntry) entry() Entry {
	return Entry{
		ClassID:   ne.ClassID,
		SubjectID: ne.SubjectID,
		Day:       ne.Day,
		StartTime: ne.StartTime,
		EndTime:   ne.EndTime,
	}
}
