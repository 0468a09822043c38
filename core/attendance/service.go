package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/school"
)

var (
	// errors
	ErrNotFound  = errors.New("attendance record not found")
	ErrDuplicate = errors.New("attendance already marked for this student on this date")
	ErrLocked    = errors.New("attendance record is locked")
)

type (
	Repository interface {
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecordByID(ctx context.Context, id int) (Record, error)
		// RecordExists reports whether a record exists for (studentID, date).
		RecordExists(ctx context.Context, studentID int, date time.Time) (bool, error)
		// QueryRecordsByStudentID scopes to [from, to] when the bounds are non-nil.
		QueryRecordsByStudentID(ctx context.Context, studentID int, from, to *time.Time) ([]Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		DeleteRecordByID(ctx context.Context, id int) error
	}

	studentGetter interface {
		GetStudent(ctx context.Context, id int) (school.Student, error)
	}

	Service struct {
		repo     Repository
		students studentGetter
	}
)

func NewService(repo Repository, students studentGetter) *Service {
	return &Service{repo: repo, students: students}
}

// Mark creates an attendance record for a student on a date. A second
// record for the same (student, date) is rejected before any write; the
// unique index backstops races. The record is locked on creation.
func (svc *Service) Mark(ctx context.Context, nr NewRecord) (Record, error) {
	if _, err := svc.students.GetStudent(ctx, nr.StudentID); err != nil {
		if errors.Cause(err) == school.ErrStudentNotFound {
			return Record{}, core.NewValidationError(school.ErrStudentNotFound, core.FieldError{Field: "student_id", Error: school.ErrStudentNotFound.Error()})
		}
		return Record{}, errors.Wrap(err, "finding student")
	}

	date := TruncateToDate(nr.Date)
	exists, err := svc.repo.RecordExists(ctx, nr.StudentID, date)
	if err != nil {
		return Record{}, errors.Wrap(err, "checking duplicate attendance")
	}
	if exists {
		return Record{}, core.NewValidationError(ErrDuplicate)
	}

	rec := Record{
		StudentID: nr.StudentID,
		Date:      date,
		IsPresent: nr.IsPresent,
		IsLocked:  true,
	}
	if nr.Notes != "" {
		rec.Notes = null.StringFrom(nr.Notes)
	}

	rec, err = svc.repo.CreateRecord(ctx, rec)
	if err != nil {
		// racing duplicate caught by the unique index
		if errors.Cause(err) == ErrDuplicate {
			return Record{}, core.NewValidationError(ErrDuplicate)
		}
		return Record{}, err
	}
	return rec, nil
}

func (svc *Service) Get(ctx context.Context, id int) (Record, error) {
	return svc.repo.GetRecordByID(ctx, id)
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID int, from, to *time.Time) ([]Record, error) {
	if from != nil {
		f := TruncateToDate(*from)
		from = &f
	}
	if to != nil {
		t := TruncateToDate(*to)
		to = &t
	}
	return svc.repo.QueryRecordsByStudentID(ctx, studentID, from, to)
}

// Update amends an unlocked record. Records are locked on creation, so
// this only ever succeeds for rows unlocked out-of-band by an operator.
func (svc *Service) Update(ctx context.Context, id int, ur UpdateRecord) (Record, error) {
	rec, err := svc.repo.GetRecordByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.IsLocked {
		return Record{}, core.NewValidationError(ErrLocked)
	}
	if ur.IsPresent != nil {
		rec.IsPresent = *ur.IsPresent
	}
	if ur.Notes != "" {
		rec.Notes = null.StringFrom(core.CleanString(ur.Notes))
	}
	return svc.repo.UpdateRecord(ctx, rec)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteRecordByID(ctx, id)
}
