package assessment

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/school"
)

var (
	// errors
	ErrExamNotFound   = errors.New("exam not found")
	ErrGradeNotFound  = errors.New("grade not found")
	ErrInvalidStudent = errors.New("invalid student")
	ErrInvalidExam    = errors.New("invalid exam")
	ErrDuplicateGrade = errors.New("student already has a grade for this exam")
)

type (
	Repository interface {
		CreateExam(ctx context.Context, ex Exam) (Exam, error)
		GetExamByID(ctx context.Context, id int) (Exam, error)
		// QueryExams returns all exams, scoped to a class when classID is non-nil.
		QueryExams(ctx context.Context, classID *int) ([]Exam, error)
		UpdateExam(ctx context.Context, ex Exam) (Exam, error)
		DeleteExamByID(ctx context.Context, id int) error

		CreateGrade(ctx context.Context, g Grade) (Grade, error)
		GradeExists(ctx context.Context, studentID, examID int) (bool, error)
		GetGradeByID(ctx context.Context, id int) (Grade, error)
		QueryGradesByStudentID(ctx context.Context, studentID int) ([]Grade, error)
		UpdateGrade(ctx context.Context, g Grade) (Grade, error)
		DeleteGradeByID(ctx context.Context, id int) error
	}

	// studentGetter is the slice of the school service needed here.
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

// Exams

func (svc *Service) CreateExam(ctx context.Context, ne NewExam) (Exam, error) {
	return svc.repo.CreateExam(ctx, Exam{
		Name:      ne.Name,
		SubjectID: ne.SubjectID,
		ClassID:   ne.ClassID,
		ExamDate:  ne.ExamDate.UTC(),
	})
}

func (svc *Service) GetExam(ctx context.Context, id int) (Exam, error) {
	return svc.repo.GetExamByID(ctx, id)
}

func (svc *Service) QueryExams(ctx context.Context, classID *int) ([]Exam, error) {
	return svc.repo.QueryExams(ctx, classID)
}

func (svc *Service) UpdateExam(ctx context.Context, id int, ne NewExam) (Exam, error) {
	if _, err := svc.repo.GetExamByID(ctx, id); err != nil {
		return Exam{}, err
	}
	return svc.repo.UpdateExam(ctx, Exam{
		ID:        id,
		Name:      ne.Name,
		SubjectID: ne.SubjectID,
		ClassID:   ne.ClassID,
		ExamDate:  ne.ExamDate.UTC(),
	})
}

func (svc *Service) DeleteExam(ctx context.Context, id int) error {
	return svc.repo.DeleteExamByID(ctx, id)
}

// Grades

// CreateGrade records marks for a student on an exam. The referenced
// student and exam must both exist; marks bounds are enforced by input
// validation before this point and rechecked here. A student gets at
// most one grade per exam; the unique index backstops races, and
// amendments go through UpdateGrade.
func (svc *Service) CreateGrade(ctx context.Context, ng NewGrade) (Grade, error) {
	if ng.Marks < 0 || ng.Marks > 100 {
		return Grade{}, core.NewValidationError(nil, core.FieldError{Field: "marks", Error: "marks must be between 0 and 100"})
	}
	if _, err := svc.students.GetStudent(ctx, ng.StudentID); err != nil {
		if errors.Cause(err) == school.ErrStudentNotFound {
			return Grade{}, core.NewValidationError(ErrInvalidStudent, core.FieldError{Field: "student_id", Error: ErrInvalidStudent.Error()})
		}
		return Grade{}, errors.Wrap(err, "finding student")
	}
	if _, err := svc.repo.GetExamByID(ctx, ng.ExamID); err != nil {
		if errors.Cause(err) == ErrExamNotFound {
			return Grade{}, core.NewValidationError(ErrInvalidExam, core.FieldError{Field: "exam_id", Error: ErrInvalidExam.Error()})
		}
		return Grade{}, errors.Wrap(err, "finding exam")
	}
	exists, err := svc.repo.GradeExists(ctx, ng.StudentID, ng.ExamID)
	if err != nil {
		return Grade{}, errors.Wrap(err, "checking duplicate grade")
	}
	if exists {
		return Grade{}, core.NewValidationError(ErrDuplicateGrade)
	}

	g := Grade{
		StudentID: ng.StudentID,
		ExamID:    ng.ExamID,
		Marks:     ng.Marks,
	}
	if ng.Comments != "" {
		g.Comments = null.StringFrom(ng.Comments)
	}
	g, err = svc.repo.CreateGrade(ctx, g)
	if err != nil {
		// racing duplicate caught by the unique index
		if errors.Cause(err) == ErrDuplicateGrade {
			return Grade{}, core.NewValidationError(ErrDuplicateGrade)
		}
		return Grade{}, err
	}
	return g, nil
}

func (svc *Service) GetGrade(ctx context.Context, id int) (Grade, error) {
	return svc.repo.GetGradeByID(ctx, id)
}

func (svc *Service) QueryGradesByStudent(ctx context.Context, studentID int) ([]Grade, error) {
	return svc.repo.QueryGradesByStudentID(ctx, studentID)
}

func (svc *Service) UpdateGrade(ctx context.Context, id int, ug UpdateGrade) (Grade, error) {
	g, err := svc.repo.GetGradeByID(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	if ug.Marks != nil {
		if *ug.Marks < 0 || *ug.Marks > 100 {
			return Grade{}, core.NewValidationError(nil, core.FieldError{Field: "marks", Error: "marks must be between 0 and 100"})
		}
		g.Marks = *ug.Marks
	}
	if ug.Comments != "" {
		g.Comments = null.StringFrom(ug.Comments)
	}
	g.ExamName = ""
	return svc.repo.UpdateGrade(ctx, g)
}

func (svc *Service) DeleteGrade(ctx context.Context, id int) error {
	return svc.repo.DeleteGradeByID(ctx, id)
}
