package school

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/account"
)

type Class struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// populated on detail queries
	Students []Student `json:"students,omitempty"`
}

type Subject struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Student struct {
	ID             int       `json:"id"`
	UserID         string    `json:"user_id"`
	ClassID        null.Int  `json:"class_id"`
	EnrollmentDate time.Time `json:"enrollment_date"` // UTC

	// populated on detail queries
	User  *account.User `json:"user,omitempty"`
	Class *Class        `json:"class,omitempty"`
}

type Teacher struct {
	ID     int    `json:"id"`
	UserID string `json:"user_id"`

	// populated on detail queries
	User        *account.User       `json:"user,omitempty"`
	Assignments []SubjectAssignment `json:"assignments,omitempty"`
}

// SubjectAssignment binds one teacher to one subject within one class.
// Unique per (subject, class): only one teacher may teach a given subject
// in a given class.
type SubjectAssignment struct {
	ID        int `json:"id"`
	TeacherID int `json:"teacher_id"`
	SubjectID int `json:"subject_id"`
	ClassID   int `json:"class_id"`

	SubjectName string `json:"subject_name,omitempty"`
	ClassName   string `json:"class_name,omitempty"`
}

type NewClass struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type UpdateClass struct {
	Name        string `json:"name" validate:"omitempty,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (uc *UpdateClass) Validate(orig Class, validate *validator.Validate) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	uc.Description = core.CleanString(uc.Description)
	return validate.Struct(uc)
}

type NewSubject struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	return validate.Struct(ns)
}

type UpdateSubject struct {
	Name        string `json:"name" validate:"omitempty,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (us *UpdateSubject) Validate(orig Subject, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	us.Description = core.CleanString(us.Description)
	return validate.Struct(us)
}

// NewStudent enrolls an existing student account as a Student profile.
type NewStudent struct {
	UserID         string    `json:"user_id" validate:"required"`
	ClassID        *int      `json:"class_id"`
	EnrollmentDate time.Time `json:"enrollment_date"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.UserID = core.CleanString(ns.UserID)
	return validate.Struct(ns)
}

type UpdateStudent struct {
	ClassID        *int      `json:"class_id"`
	EnrollmentDate time.Time `json:"enrollment_date"`
}

type NewTeacher struct {
	UserID string `json:"user_id" validate:"required"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.UserID = core.CleanString(nt.UserID)
	return validate.Struct(nt)
}

type NewAssignment struct {
	TeacherID int `json:"teacher_id" validate:"required"`
	SubjectID int `json:"subject_id" validate:"required"`
	ClassID   int `json:"class_id" validate:"required"`
}

// AssignmentResult summarizes a batch subject assignment: duplicates and
// references to missing records are skipped, not fatal.
type AssignmentResult struct {
	AssignedCount int                 `json:"assigned_count"`
	SkippedCount  int                 `json:"skipped_count"`
	Assigned      []SubjectAssignment `json:"assigned"`
	Skipped       []NewAssignment     `json:"skipped"`
}
