package assessment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/mwanzohq/mwanzo/core"
)

type Exam struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	SubjectID int       `json:"subject_id"`
	ClassID   int       `json:"class_id"`
	ExamDate  time.Time `json:"exam_date"` // UTC

	// populated on queries
	SubjectName string `json:"subject_name,omitempty"`
	ClassName   string `json:"class_name,omitempty"`
}

type Grade struct {
	ID        int         `json:"id"`
	StudentID int         `json:"student_id"`
	ExamID    int         `json:"exam_id"`
	Marks     float64     `json:"marks"`
	Comments  null.String `json:"comments,omitempty"`

	// populated on queries
	ExamName string `json:"exam_name,omitempty"`
}

type NewExam struct {
	Name      string    `json:"name" validate:"required,max=100"`
	SubjectID int       `json:"subject_id" validate:"required"`
	ClassID   int       `json:"class_id" validate:"required"`
	ExamDate  time.Time `json:"exam_date" validate:"required"`
}

func (ne *NewExam) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	return validate.Struct(ne)
}

// NewGrade records a student's marks for an exam.
// Marks are bounded 0-100 inclusive; both bounds are themselves valid.
type NewGrade struct {
	StudentID int     `json:"student_id" validate:"required"`
	ExamID    int     `json:"exam_id" validate:"required"`
	Marks     float64 `json:"marks" validate:"gte=0,lte=100"`
	Comments  string  `json:"comments" validate:"max=500"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Comments = core.CleanString(ng.Comments)
	return validate.Struct(ng)
}

// UpdateGrade amends the marks and/or comments of an existing grade.
type UpdateGrade struct {
	Marks    *float64 `json:"marks" validate:"omitempty,gte=0,lte=100"`
	Comments string   `json:"comments" validate:"max=500"`
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	ug.Comments = core.CleanString(ug.Comments)
	return validate.Struct(ug)
}
