package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core/school"
)

// ErrProfileNotFound means an authenticated account has no Teacher/Student
// profile behind it. A data-integrity condition, not a crash: callers map
// it to a 404-equivalent.
var ErrProfileNotFound = errors.New("profile not found")

// AdminStats are unscoped counts across the whole school.
type AdminStats struct {
	TotalStudents int `json:"total_students"`
	TotalTeachers int `json:"total_teachers"`
	TotalClasses  int `json:"total_classes"`
	TotalExams    int `json:"total_exams"`
}

// TeacherStats are scoped to the classes the teacher is assigned to
// via subject assignments, classes deduplicated.
type TeacherStats struct {
	TotalClasses  int `json:"total_classes"`
	TotalStudents int `json:"total_students"`
	TotalExams    int `json:"total_exams"`
}

type StudentStats struct {
	ClassName    string  `json:"class_name"`
	TotalExams   int     `json:"total_exams"`
	AverageGrade float64 `json:"average_grade"`
}

type (
	Repository interface {
		CountStudents(ctx context.Context) (int, error)
		CountTeachers(ctx context.Context) (int, error)
		CountClasses(ctx context.Context) (int, error)
		CountExams(ctx context.Context) (int, error)

		// AssignedClassIDs returns the distinct classes a teacher is
		// assigned to via subject assignments.
		AssignedClassIDs(ctx context.Context, teacherID int) ([]int, error)
		CountStudentsInClasses(ctx context.Context, classIDs []int) (int, error)
		CountExamsInClasses(ctx context.Context, classIDs []int) (int, error)

		// StudentGradeMarks returns the marks of all grade rows for a student.
		StudentGradeMarks(ctx context.Context, studentID int) ([]float64, error)
	}

	// profileResolver is the slice of the school service needed to map an
	// authenticated account onto its role profile.
	profileResolver interface {
		GetTeacherByUserID(ctx context.Context, userID string) (school.Teacher, error)
		GetStudentByUserID(ctx context.Context, userID string) (school.Student, error)
		GetClass(ctx context.Context, id int) (school.Class, error)
	}

	Service struct {
		repo     Repository
		profiles profileResolver
	}
)

func NewService(repo Repository, profiles profileResolver) *Service {
	return &Service{repo: repo, profiles: profiles}
}

// AdminStats computes global counts. Read-only, no side effects.
func (svc *Service) AdminStats(ctx context.Context) (AdminStats, error) {
	var stats AdminStats
	var err error

	if stats.TotalStudents, err = svc.repo.CountStudents(ctx); err != nil {
		return AdminStats{}, errors.Wrap(err, "counting students")
	}
	if stats.TotalTeachers, err = svc.repo.CountTeachers(ctx); err != nil {
		return AdminStats{}, errors.Wrap(err, "counting teachers")
	}
	if stats.TotalClasses, err = svc.repo.CountClasses(ctx); err != nil {
		return AdminStats{}, errors.Wrap(err, "counting classes")
	}
	if stats.TotalExams, err = svc.repo.CountExams(ctx); err != nil {
		return AdminStats{}, errors.Wrap(err, "counting exams")
	}
	return stats, nil
}

// TeacherStats computes counts scoped to the caller's assigned classes.
// The caller identity is an explicit parameter, never ambient state.
func (svc *Service) TeacherStats(ctx context.Context, userID string) (TeacherStats, error) {
	tch, err := svc.profiles.GetTeacherByUserID(ctx, userID)
	if err != nil {
		if errors.Cause(err) == school.ErrTeacherNotFound {
			return TeacherStats{}, ErrProfileNotFound
		}
		return TeacherStats{}, errors.Wrap(err, "resolving teacher profile")
	}

	classIDs, err := svc.repo.AssignedClassIDs(ctx, tch.ID)
	if err != nil {
		return TeacherStats{}, errors.Wrap(err, "listing assigned classes")
	}
	stats := TeacherStats{TotalClasses: len(classIDs)}
	if len(classIDs) == 0 {
		return stats, nil
	}

	if stats.TotalStudents, err = svc.repo.CountStudentsInClasses(ctx, classIDs); err != nil {
		return TeacherStats{}, errors.Wrap(err, "counting students")
	}
	if stats.TotalExams, err = svc.repo.CountExamsInClasses(ctx, classIDs); err != nil {
		return TeacherStats{}, errors.Wrap(err, "counting exams")
	}
	return stats, nil
}

// StudentStats computes the caller's own class name, grade count and
// average marks. A student with no grades averages to 0, not an error.
func (svc *Service) StudentStats(ctx context.Context, userID string) (StudentStats, error) {
	std, err := svc.profiles.GetStudentByUserID(ctx, userID)
	if err != nil {
		if errors.Cause(err) == school.ErrStudentNotFound {
			return StudentStats{}, ErrProfileNotFound
		}
		return StudentStats{}, errors.Wrap(err, "resolving student profile")
	}

	var stats StudentStats
	if std.ClassID.Valid {
		cls, err := svc.profiles.GetClass(ctx, int(std.ClassID.Int))
		if err != nil && errors.Cause(err) != school.ErrClassNotFound {
			return StudentStats{}, errors.Wrap(err, "finding class")
		}
		stats.ClassName = cls.Name
	}

	marks, err := svc.repo.StudentGradeMarks(ctx, std.ID)
	if err != nil {
		return StudentStats{}, errors.Wrap(err, "listing grade marks")
	}
	stats.TotalExams = len(marks)
	stats.AverageGrade = mean(marks)
	return stats, nil
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
