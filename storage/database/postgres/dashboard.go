package postgres

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/dashboard"
)

type dashboardRepository struct {
	db core.DBExecutor
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db core.DBExecutor) dashboard.Repository {
	return &dashboardRepository{db: db}
}

func (repo *dashboardRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting")
	}
	return count, nil
}

func (repo *dashboardRepository) CountStudents(ctx context.Context) (int, error) {
	return repo.count(ctx, `SELECT COUNT(*) FROM students`)
}

func (repo *dashboardRepository) CountTeachers(ctx context.Context) (int, error) {
	return repo.count(ctx, `SELECT COUNT(*) FROM teachers`)
}

func (repo *dashboardRepository) CountClasses(ctx context.Context) (int, error) {
	return repo.count(ctx, `SELECT COUNT(*) FROM classes`)
}

func (repo *dashboardRepository) CountExams(ctx context.Context) (int, error) {
	return repo.count(ctx, `SELECT COUNT(*) FROM exams`)
}

func (repo *dashboardRepository) AssignedClassIDs(ctx context.Context, teacherID int) ([]int, error) {
	var ids []int
	query := `SELECT DISTINCT class_id FROM subject_assignments WHERE teacher_id = $1 ORDER BY class_id`
	if err := repo.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying assigned classes")
	}
	return ids, nil
}

func (repo *dashboardRepository) CountStudentsInClasses(ctx context.Context, classIDs []int) (int, error) {
	return repo.count(ctx, `SELECT COUNT(*) FROM students WHERE class_id = ANY($1)`, pqIntArray(classIDs))
}

func (repo *dashboardRepository) CountExamsInClasses(ctx context.Context, classIDs []int) (int, error) {
	return repo.count(ctx, `SELECT COUNT(*) FROM exams WHERE class_id = ANY($1)`, pqIntArray(classIDs))
}

func (repo *dashboardRepository) StudentGradeMarks(ctx context.Context, studentID int) ([]float64, error) {
	var marks []float64
	query := `SELECT marks FROM grades WHERE student_id = $1`
	if err := repo.db.SelectContext(ctx, &marks, query, studentID); err != nil {
		return nil, errors.Wrap(err, "querying grade marks")
	}
	return marks, nil
}
