package inmemdb

import (
	"context"
	"sort"

	"github.com/mwanzohq/mwanzo/core/dashboard"
)

type dashboardRepository struct {
	db *DB
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *DB) dashboard.Repository {
	return &dashboardRepository{db: db}
}

func (repo *dashboardRepository) CountStudents(ctx context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.students), nil
}

func (repo *dashboardRepository) CountTeachers(ctx context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.teachers), nil
}

func (repo *dashboardRepository) CountClasses(ctx context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.classes), nil
}

func (repo *dashboardRepository) CountExams(ctx context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.exams), nil
}

func (repo *dashboardRepository) AssignedClassIDs(ctx context.Context, teacherID int) ([]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[int]bool)
	var ids []int
	for _, sa := range repo.db.assignments {
		if sa.TeacherID == teacherID && !seen[sa.ClassID] {
			seen[sa.ClassID] = true
			ids = append(ids, sa.ClassID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (repo *dashboardRepository) CountStudentsInClasses(ctx context.Context, classIDs []int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, std := range repo.db.students {
		if std.ClassID.Valid && containsInt(classIDs, std.ClassID.Int) {
			count++
		}
	}
	return count, nil
}

func (repo *dashboardRepository) CountExamsInClasses(ctx context.Context, classIDs []int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, ex := range repo.db.exams {
		if containsInt(classIDs, ex.ClassID) {
			count++
		}
	}
	return count, nil
}

func (repo *dashboardRepository) StudentGradeMarks(ctx context.Context, studentID int) ([]float64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var marks []float64
	for _, g := range repo.db.grades {
		if g.StudentID == studentID {
			marks = append(marks, g.Marks)
		}
	}
	return marks, nil
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
