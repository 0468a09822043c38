package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/school"
)

type schoolRepository struct {
	db core.DBExecutor
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db core.DBExecutor) school.Repository {
	return &schoolRepository{db: db}
}

// Classes

func (repo *schoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	query := `INSERT INTO classes (name, description) VALUES ($1, $2) RETURNING id`
	if err := repo.db.GetContext(ctx, &cls.ID, query, cls.Name, cls.Description); err != nil {
		if isUniqueViolation(err) {
			return school.Class{}, school.ErrClassExists
		}
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo *schoolRepository) QueryClasses(ctx context.Context) ([]school.Class, error) {
	var classes []school.Class
	query := `SELECT id, name, description FROM classes ORDER BY id`
	if err := repo.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

func (repo *schoolRepository) GetClassByID(ctx context.Context, id int) (school.Class, error) {
	var cls school.Class
	query := `SELECT id, name, description FROM classes WHERE id = $1`
	if err := repo.db.GetContext(ctx, &cls, query, id); err != nil {
		if isNoRows(err) {
			return school.Class{}, school.ErrClassNotFound
		}
		return school.Class{}, errors.Wrap(err, "getting class")
	}

	students, err := repo.QueryStudents(ctx, &id)
	if err != nil {
		return school.Class{}, err
	}
	cls.Students = students
	return cls, nil
}

func (repo *schoolRepository) UpdateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	query := `UPDATE classes SET name = $1, description = $2 WHERE id = $3 RETURNING id, name, description`
	var updated school.Class
	if err := repo.db.GetContext(ctx, &updated, query, cls.Name, cls.Description, cls.ID); err != nil {
		if isNoRows(err) {
			return school.Class{}, school.ErrClassNotFound
		}
		if isUniqueViolation(err) {
			return school.Class{}, school.ErrClassExists
		}
		return school.Class{}, errors.Wrap(err, "updating class")
	}
	return updated, nil
}

func (repo *schoolRepository) DeleteClassByID(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrClassNotFound
	}
	return nil
}

// Subjects

func (repo *schoolRepository) CreateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	query := `INSERT INTO subjects (name, description) VALUES ($1, $2) RETURNING id`
	if err := repo.db.GetContext(ctx, &sub.ID, query, sub.Name, sub.Description); err != nil {
		return school.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo *schoolRepository) QuerySubjects(ctx context.Context) ([]school.Subject, error) {
	var subjects []school.Subject
	query := `SELECT id, name, description FROM subjects ORDER BY id`
	if err := repo.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo *schoolRepository) GetSubjectByID(ctx context.Context, id int) (school.Subject, error) {
	var sub school.Subject
	query := `SELECT id, name, description FROM subjects WHERE id = $1`
	if err := repo.db.GetContext(ctx, &sub, query, id); err != nil {
		if isNoRows(err) {
			return school.Subject{}, school.ErrSubjectNotFound
		}
		return school.Subject{}, errors.Wrap(err, "getting subject")
	}
	return sub, nil
}

func (repo *schoolRepository) UpdateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	query := `UPDATE subjects SET name = $1, description = $2 WHERE id = $3 RETURNING id, name, description`
	var updated school.Subject
	if err := repo.db.GetContext(ctx, &updated, query, sub.Name, sub.Description, sub.ID); err != nil {
		if isNoRows(err) {
			return school.Subject{}, school.ErrSubjectNotFound
		}
		return school.Subject{}, errors.Wrap(err, "updating subject")
	}
	return updated, nil
}

func (repo *schoolRepository) DeleteSubjectByID(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrSubjectNotFound
	}
	return nil
}

// Students

type studentRow struct {
	ID             int       `db:"id"`
	UserID         string    `db:"user_id"`
	ClassID        null.Int  `db:"class_id"`
	EnrollmentDate time.Time `db:"enrollment_date"`

	UserRow  userRow     `db:"usr"`
	ClassRow classRowOpt `db:"cls"`
}

type classRowOpt struct {
	ID          null.Int    `db:"id"`
	Name        null.String `db:"name"`
	Description null.String `db:"description"`
}

const studentSelect = `
	SELECT s.id, s.user_id, s.class_id, s.enrollment_date,
	       u.id "usr.id", u.first_name "usr.first_name", u.last_name "usr.last_name",
	       u.email "usr.email", u.admission_number "usr.admission_number", u.role "usr.role",
	       u.status "usr.status", u.email_confirmed "usr.email_confirmed",
	       u.password_hash "usr.password_hash", u.created_at "usr.created_at",
	       u.updated_at "usr.updated_at", u.last_login "usr.last_login",
	       c.id "cls.id", c.name "cls.name", c.description "cls.description"
	FROM students s
	JOIN users u ON u.id = s.user_id
	LEFT JOIN classes c ON c.id = s.class_id`

func (r studentRow) student() school.Student {
	std := school.Student{
		ID:             r.ID,
		UserID:         r.UserID,
		ClassID:        r.ClassID,
		EnrollmentDate: r.EnrollmentDate,
	}
	usr := r.UserRow.user()
	std.User = &usr
	if r.ClassRow.ID.Valid {
		std.Class = &school.Class{
			ID:          r.ClassRow.ID.Int,
			Name:        r.ClassRow.Name.String,
			Description: r.ClassRow.Description.String,
		}
	}
	return std
}

func (repo *schoolRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	query := `INSERT INTO students (user_id, class_id, enrollment_date) VALUES ($1, $2, $3) RETURNING id`
	if err := repo.db.GetContext(ctx, &std.ID, query, std.UserID, std.ClassID, std.EnrollmentDate); err != nil {
		if isUniqueViolation(err) {
			return school.Student{}, school.ErrProfileExists
		}
		if isForeignKeyViolation(err) {
			return school.Student{}, school.ErrInvalidUser
		}
		return school.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo *schoolRepository) GetStudentByID(ctx context.Context, id int) (school.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, studentSelect+` WHERE s.id = $1`, id); err != nil {
		if isNoRows(err) {
			return school.Student{}, school.ErrStudentNotFound
		}
		return school.Student{}, errors.Wrap(err, "getting student")
	}
	return row.student(), nil
}

func (repo *schoolRepository) GetStudentByUserID(ctx context.Context, userID string) (school.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, studentSelect+` WHERE s.user_id = $1`, userID); err != nil {
		if isNoRows(err) {
			return school.Student{}, school.ErrStudentNotFound
		}
		return school.Student{}, errors.Wrap(err, "getting student")
	}
	return row.student(), nil
}

func (repo *schoolRepository) QueryStudents(ctx context.Context, classID *int) ([]school.Student, error) {
	query := studentSelect
	var args []interface{}
	if classID != nil {
		query += ` WHERE s.class_id = $1`
		args = append(args, *classID)
	}
	query += ` ORDER BY s.id`

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	query := `UPDATE students SET class_id = $1, enrollment_date = $2 WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, query, std.ClassID, std.EnrollmentDate, std.ID)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.Student{}, school.ErrStudentNotFound
	}
	return repo.GetStudentByID(ctx, std.ID)
}

func (repo *schoolRepository) DeleteStudentByID(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrStudentNotFound
	}
	return nil
}

// Teachers

type teacherRow struct {
	ID     int    `db:"id"`
	UserID string `db:"user_id"`

	UserRow userRow `db:"usr"`
}

const teacherSelect = `
	SELECT t.id, t.user_id,
	       u.id "usr.id", u.first_name "usr.first_name", u.last_name "usr.last_name",
	       u.email "usr.email", u.admission_number "usr.admission_number", u.role "usr.role",
	       u.status "usr.status", u.email_confirmed "usr.email_confirmed",
	       u.password_hash "usr.password_hash", u.created_at "usr.created_at",
	       u.updated_at "usr.updated_at", u.last_login "usr.last_login"
	FROM teachers t
	JOIN users u ON u.id = t.user_id`

func (r teacherRow) teacher() school.Teacher {
	tch := school.Teacher{ID: r.ID, UserID: r.UserID}
	usr := r.UserRow.user()
	tch.User = &usr
	return tch
}

func (repo *schoolRepository) CreateTeacher(ctx context.Context, tch school.Teacher) (school.Teacher, error) {
	query := `INSERT INTO teachers (user_id) VALUES ($1) RETURNING id`
	if err := repo.db.GetContext(ctx, &tch.ID, query, tch.UserID); err != nil {
		if isUniqueViolation(err) {
			return school.Teacher{}, school.ErrProfileExists
		}
		if isForeignKeyViolation(err) {
			return school.Teacher{}, school.ErrInvalidUser
		}
		return school.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return tch, nil
}

func (repo *schoolRepository) GetTeacherByID(ctx context.Context, id int) (school.Teacher, error) {
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, teacherSelect+` WHERE t.id = $1`, id); err != nil {
		if isNoRows(err) {
			return school.Teacher{}, school.ErrTeacherNotFound
		}
		return school.Teacher{}, errors.Wrap(err, "getting teacher")
	}
	tch := row.teacher()
	sas, err := repo.QueryAssignmentsByTeacherID(ctx, tch.ID)
	if err != nil {
		return school.Teacher{}, err
	}
	tch.Assignments = sas
	return tch, nil
}

func (repo *schoolRepository) GetTeacherByUserID(ctx context.Context, userID string) (school.Teacher, error) {
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, teacherSelect+` WHERE t.user_id = $1`, userID); err != nil {
		if isNoRows(err) {
			return school.Teacher{}, school.ErrTeacherNotFound
		}
		return school.Teacher{}, errors.Wrap(err, "getting teacher")
	}
	tch := row.teacher()
	sas, err := repo.QueryAssignmentsByTeacherID(ctx, tch.ID)
	if err != nil {
		return school.Teacher{}, err
	}
	tch.Assignments = sas
	return tch, nil
}

func (repo *schoolRepository) QueryTeachers(ctx context.Context) ([]school.Teacher, error) {
	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, teacherSelect+` ORDER BY t.id`); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}

	teachers := make([]school.Teacher, 0, len(rows))
	for _, r := range rows {
		tch := r.teacher()
		sas, err := repo.QueryAssignmentsByTeacherID(ctx, tch.ID)
		if err != nil {
			return nil, err
		}
		tch.Assignments = sas
		teachers = append(teachers, tch)
	}
	return teachers, nil
}

func (repo *schoolRepository) DeleteTeacherByID(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrTeacherNotFound
	}
	return nil
}

// Subject assignments

const assignmentSelect = `
	SELECT sa.id, sa.teacher_id, sa.subject_id, sa.class_id,
	       sub.name AS subject_name, c.name AS class_name
	FROM subject_assignments sa
	JOIN subjects sub ON sub.id = sa.subject_id
	JOIN classes c ON c.id = sa.class_id`

type assignmentRow struct {
	ID          int    `db:"id"`
	TeacherID   int    `db:"teacher_id"`
	SubjectID   int    `db:"subject_id"`
	ClassID     int    `db:"class_id"`
	SubjectName string `db:"subject_name"`
	ClassName   string `db:"class_name"`
}

func (r assignmentRow) assignment() school.SubjectAssignment {
	return school.SubjectAssignment(r)
}

func (repo *schoolRepository) CreateAssignment(ctx context.Context, sa school.SubjectAssignment) (school.SubjectAssignment, error) {
	query := `INSERT INTO subject_assignments (teacher_id, subject_id, class_id) VALUES ($1, $2, $3) RETURNING id`
	if err := repo.db.GetContext(ctx, &sa.ID, query, sa.TeacherID, sa.SubjectID, sa.ClassID); err != nil {
		if isUniqueViolation(err) {
			return school.SubjectAssignment{}, school.ErrSubjectTaken
		}
		return school.SubjectAssignment{}, errors.Wrap(err, "inserting assignment")
	}

	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, assignmentSelect+` WHERE sa.id = $1`, sa.ID); err != nil {
		return school.SubjectAssignment{}, errors.Wrap(err, "getting assignment")
	}
	return row.assignment(), nil
}

func (repo *schoolRepository) AssignmentExists(ctx context.Context, subjectID, classID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM subject_assignments WHERE subject_id = $1 AND class_id = $2)`
	if err := repo.db.GetContext(ctx, &exists, query, subjectID, classID); err != nil {
		return false, errors.Wrap(err, "checking assignment")
	}
	return exists, nil
}

func (repo *schoolRepository) QueryAssignmentsByTeacherID(ctx context.Context, teacherID int) ([]school.SubjectAssignment, error) {
	var rows []assignmentRow
	query := assignmentSelect + ` WHERE sa.teacher_id = $1 ORDER BY sa.id`
	if err := repo.db.SelectContext(ctx, &rows, query, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	sas := make([]school.SubjectAssignment, 0, len(rows))
	for _, r := range rows {
		sas = append(sas, r.assignment())
	}
	return sas, nil
}

func (repo *schoolRepository) DeleteAssignmentByID(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subject_assignments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrAssignmentNotFound
	}
	return nil
}
