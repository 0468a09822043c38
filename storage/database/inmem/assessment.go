package inmemdb

import (
	"context"
	"sort"

	"github.com/mwanzohq/mwanzo/core/assessment"
)

type assessmentRepository struct {
	db *DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) assessment.Repository {
	return &assessmentRepository{db: db}
}

// Exams

func (repo *assessmentRepository) CreateExam(ctx context.Context, ex assessment.Exam) (assessment.Exam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ex.ID = repo.db.nextID()
	repo.db.exams[ex.ID] = &ex
	return repo.examDetail(ex), nil
}

func (repo *assessmentRepository) GetExamByID(ctx context.Context, id int) (assessment.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ex, ok := repo.db.exams[id]; ok {
		return repo.examDetail(*ex), nil
	}
	return assessment.Exam{}, assessment.ErrExamNotFound
}

func (repo *assessmentRepository) QueryExams(ctx context.Context, classID *int) ([]assessment.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var exams []assessment.Exam
	for _, ex := range repo.db.exams {
		if classID != nil && ex.ClassID != *classID {
			continue
		}
		exams = append(exams, repo.examDetail(*ex))
	}
	sort.Slice(exams, func(i, j int) bool { return exams[i].ID < exams[j].ID })
	return exams, nil
}

func (repo *assessmentRepository) UpdateExam(ctx context.Context, ex assessment.Exam) (assessment.Exam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.exams[ex.ID]; !ok {
		return assessment.Exam{}, assessment.ErrExamNotFound
	}
	repo.db.exams[ex.ID] = &ex
	return repo.examDetail(ex), nil
}

func (repo *assessmentRepository) DeleteExamByID(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.exams[id]; !ok {
		return assessment.ErrExamNotFound
	}
	delete(repo.db.exams, id)
	for gid, g := range repo.db.grades {
		if g.ExamID == id {
			delete(repo.db.grades, gid)
		}
	}
	return nil
}

// Grades

func (repo *assessmentRepository) CreateGrade(ctx context.Context, g assessment.Grade) (assessment.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.grades {
		if other.StudentID == g.StudentID && other.ExamID == g.ExamID {
			return assessment.Grade{}, assessment.ErrDuplicateGrade
		}
	}

	g.ID = repo.db.nextID()
	repo.db.grades[g.ID] = &g
	return repo.gradeDetail(g), nil
}

func (repo *assessmentRepository) GradeExists(ctx context.Context, studentID, examID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, g := range repo.db.grades {
		if g.StudentID == studentID && g.ExamID == examID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *assessmentRepository) GetGradeByID(ctx context.Context, id int) (assessment.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.grades[id]; ok {
		return repo.gradeDetail(*g), nil
	}
	return assessment.Grade{}, assessment.ErrGradeNotFound
}

func (repo *assessmentRepository) QueryGradesByStudentID(ctx context.Context, studentID int) ([]assessment.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var grades []assessment.Grade
	for _, g := range repo.db.grades {
		if g.StudentID == studentID {
			grades = append(grades, repo.gradeDetail(*g))
		}
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].ID < grades[j].ID })
	return grades, nil
}

func (repo *assessmentRepository) UpdateGrade(ctx context.Context, g assessment.Grade) (assessment.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.grades[g.ID]
	if !ok {
		return assessment.Grade{}, assessment.ErrGradeNotFound
	}
	orig.Marks = g.Marks
	orig.Comments = g.Comments
	return repo.gradeDetail(*orig), nil
}

func (repo *assessmentRepository) DeleteGradeByID(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.grades[id]; !ok {
		return assessment.ErrGradeNotFound
	}
	delete(repo.db.grades, id)
	return nil
}

// helpers; must be called with at least the read lock held

func (repo *assessmentRepository) examDetail(ex assessment.Exam) assessment.Exam {
	if sub, ok := repo.db.subjects[ex.SubjectID]; ok {
		ex.SubjectName = sub.Name
	}
	if cls, ok := repo.db.classes[ex.ClassID]; ok {
		ex.ClassName = cls.Name
	}
	return ex
}

func (repo *assessmentRepository) gradeDetail(g assessment.Grade) assessment.Grade {
	if ex, ok := repo.db.exams[g.ExamID]; ok {
		g.ExamName = ex.Name
	}
	return g
}
