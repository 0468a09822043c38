package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/assessment"
)

type assessmentRepository struct {
	db core.DBExecutor
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db core.DBExecutor) assessment.Repository {
	return &assessmentRepository{db: db}
}

// Exams

const examSelect = `
	SELECT e.id, e.name, e.subject_id, e.class_id, e.exam_date,
	       s.name AS subject_name, c.name AS class_name
	FROM exams e
	JOIN subjects s ON s.id = e.subject_id
	JOIN classes c ON c.id = e.class_id`

type examRow struct {
	ID          int       `db:"id"`
	Name        string    `db:"name"`
	SubjectID   int       `db:"subject_id"`
	ClassID     int       `db:"class_id"`
	ExamDate    time.Time `db:"exam_date"`
	SubjectName string    `db:"subject_name"`
	ClassName   string    `db:"class_name"`
}

func (r examRow) exam() assessment.Exam {
	return assessment.Exam(r)
}

func (repo *assessmentRepository) CreateExam(ctx context.Context, ex assessment.Exam) (assessment.Exam, error) {
	query := `INSERT INTO exams (name, subject_id, class_id, exam_date) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.db.GetContext(ctx, &ex.ID, query, ex.Name, ex.SubjectID, ex.ClassID, ex.ExamDate); err != nil {
		return assessment.Exam{}, errors.Wrap(err, "inserting exam")
	}
	return repo.GetExamByID(ctx, ex.ID)
}

func (repo *assessmentRepository) GetExamByID(ctx context.Context, id int) (assessment.Exam, error) {
	var row examRow
	if err := repo.db.GetContext(ctx, &row, examSelect+` WHERE e.id = $1`, id); err != nil {
		if isNoRows(err) {
			return assessment.Exam{}, assessment.ErrExamNotFound
		}
		return assessment.Exam{}, errors.Wrap(err, "getting exam")
	}
	return row.exam(), nil
}

func (repo *assessmentRepository) QueryExams(ctx context.Context, classID *int) ([]assessment.Exam, error) {
	query := examSelect
	var args []interface{}
	if classID != nil {
		query += ` WHERE e.class_id = $1`
		args = append(args, *classID)
	}
	query += ` ORDER BY e.exam_date, e.id`

	var rows []examRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying exams")
	}
	exams := make([]assessment.Exam, 0, len(rows))
	for _, r := range rows {
		exams = append(exams, r.exam())
	}
	return exams, nil
}

func (repo *assessmentRepository) UpdateExam(ctx context.Context, ex assessment.Exam) (assessment.Exam, error) {
	query := `UPDATE exams SET name = $1, subject_id = $2, class_id = $3, exam_date = $4 WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query, ex.Name, ex.SubjectID, ex.ClassID, ex.ExamDate, ex.ID)
	if err != nil {
		return assessment.Exam{}, errors.Wrap(err, "updating exam")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assessment.Exam{}, assessment.ErrExamNotFound
	}
	return repo.GetExamByID(ctx, ex.ID)
}

func (repo *assessmentRepository) DeleteExamByID(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting exam")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assessment.ErrExamNotFound
	}
	return nil
}

// Grades

const gradeSelect = `
	SELECT g.id, g.student_id, g.exam_id, g.marks, g.comments, e.name AS exam_name
	FROM grades g
	JOIN exams e ON e.id = g.exam_id`

type gradeRow struct {
	ID        int         `db:"id"`
	StudentID int         `db:"student_id"`
	ExamID    int         `db:"exam_id"`
	Marks     float64     `db:"marks"`
	Comments  null.String `db:"comments"`
	ExamName  string      `db:"exam_name"`
}

func (r gradeRow) grade() assessment.Grade {
	return assessment.Grade(r)
}

func (repo *assessmentRepository) CreateGrade(ctx context.Context, g assessment.Grade) (assessment.Grade, error) {
	query := `INSERT INTO grades (student_id, exam_id, marks, comments) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.db.GetContext(ctx, &g.ID, query, g.StudentID, g.ExamID, g.Marks, g.Comments); err != nil {
		if isForeignKeyViolation(err) {
			return assessment.Grade{}, assessment.ErrInvalidStudent
		}
		if isUniqueViolation(err) {
			return assessment.Grade{}, assessment.ErrDuplicateGrade
		}
		return assessment.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return repo.GetGradeByID(ctx, g.ID)
}

func (repo *assessmentRepository) GradeExists(ctx context.Context, studentID, examID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM grades WHERE student_id = $1 AND exam_id = $2)`
	if err := repo.db.GetContext(ctx, &exists, query, studentID, examID); err != nil {
		return false, errors.Wrap(err, "checking grade")
	}
	return exists, nil
}

func (repo *assessmentRepository) GetGradeByID(ctx context.Context, id int) (assessment.Grade, error) {
	var row gradeRow
	if err := repo.db.GetContext(ctx, &row, gradeSelect+` WHERE g.id = $1`, id); err != nil {
		if isNoRows(err) {
			return assessment.Grade{}, assessment.ErrGradeNotFound
		}
		return assessment.Grade{}, errors.Wrap(err, "getting grade")
	}
	return row.grade(), nil
}

func (repo *assessmentRepository) QueryGradesByStudentID(ctx context.Context, studentID int) ([]assessment.Grade, error) {
	var rows []gradeRow
	query := gradeSelect + ` WHERE g.student_id = $1 ORDER BY g.id`
	if err := repo.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]assessment.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, r.grade())
	}
	return grades, nil
}

func (repo *assessmentRepository) UpdateGrade(ctx context.Context, g assessment.Grade) (assessment.Grade, error) {
	query := `UPDATE grades SET marks = $1, comments = $2 WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, query, g.Marks, g.Comments, g.ID)
	if err != nil {
		return assessment.Grade{}, errors.Wrap(err, "updating grade")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assessment.Grade{}, assessment.ErrGradeNotFound
	}
	return repo.GetGradeByID(ctx, g.ID)
}

func (repo *assessmentRepository) DeleteGradeByID(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM grades WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assessment.ErrGradeNotFound
	}
	return nil
}
