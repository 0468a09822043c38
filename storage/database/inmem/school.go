package inmemdb

import (
	"context"
	"sort"

	"github.com/mwanzohq/mwanzo/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

// Classes

func (repo *schoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.classes {
		if other.Name == cls.Name {
			return school.Class{}, school.ErrClassExists
		}
	}

	cls.ID = repo.db.nextID()
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *schoolRepository) QueryClasses(ctx context.Context) ([]school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := make([]school.Class, 0, len(repo.db.classes))
	for _, c := range repo.db.classes {
		classes = append(classes, *c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID < classes[j].ID })
	return classes, nil
}

func (repo *schoolRepository) GetClassByID(ctx context.Context, id int) (school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cls, ok := repo.db.classes[id]
	if !ok {
		return school.Class{}, school.ErrClassNotFound
	}
	detail := *cls
	detail.Students = repo.studentsInClass(id)
	return detail, nil
}

func (repo *schoolRepository) UpdateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.classes[cls.ID]
	if !ok {
		return school.Class{}, school.ErrClassNotFound
	}
	if cls.Name != "" {
		for id, other := range repo.db.classes {
			if id != cls.ID && other.Name == cls.Name {
				return school.Class{}, school.ErrClassExists
			}
		}
		orig.Name = cls.Name
	}
	orig.Description = cls.Description
	return *orig, nil
}

func (repo *schoolRepository) DeleteClassByID(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return school.ErrClassNotFound
	}
	delete(repo.db.classes, id)
	for _, std := range repo.db.students {
		if std.ClassID.Valid && std.ClassID.Int == id {
			std.ClassID.Valid = false
		}
	}
	return nil
}

// Subjects

func (repo *schoolRepository) CreateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub.ID = repo.db.nextID()
	repo.db.subjects[sub.ID] = &sub
	return sub, nil
}

func (repo *schoolRepository) QuerySubjects(ctx context.Context) ([]school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]school.Subject, 0, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		subjects = append(subjects, *s)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects, nil
}

func (repo *schoolRepository) GetSubjectByID(ctx context.Context, id int) (school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.subjects[id]; ok {
		return *sub, nil
	}
	return school.Subject{}, school.ErrSubjectNotFound
}

func (repo *schoolRepository) UpdateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.subjects[sub.ID]
	if !ok {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	if sub.Name != "" {
		orig.Name = sub.Name
	}
	orig.Description = sub.Description
	return *orig, nil
}

func (repo *schoolRepository) DeleteSubjectByID(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return school.ErrSubjectNotFound
	}
	delete(repo.db.subjects, id)
	return nil
}

// Students

func (repo *schoolRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	std.ID = repo.db.nextID()
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *schoolRepository) GetStudentByID(ctx context.Context, id int) (school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	std, ok := repo.db.students[id]
	if !ok {
		return school.Student{}, school.ErrStudentNotFound
	}
	return repo.studentDetail(*std), nil
}

func (repo *schoolRepository) GetStudentByUserID(ctx context.Context, userID string) (school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, std := range repo.db.students {
		if std.UserID == userID {
			return repo.studentDetail(*std), nil
		}
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) QueryStudents(ctx context.Context, classID *int) ([]school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var students []school.Student
	for _, std := range repo.db.students {
		if classID != nil && !(std.ClassID.Valid && std.ClassID.Int == *classID) {
			continue
		}
		students = append(students, repo.studentDetail(*std))
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.students[std.ID]
	if !ok {
		return school.Student{}, school.ErrStudentNotFound
	}
	orig.ClassID = std.ClassID
	if !std.EnrollmentDate.IsZero() {
		orig.EnrollmentDate = std.EnrollmentDate
	}
	return repo.studentDetail(*orig), nil
}

func (repo *schoolRepository) DeleteStudentByID(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return school.ErrStudentNotFound
	}
	delete(repo.db.students, id)
	return nil
}

// Teachers

func (repo *schoolRepository) CreateTeacher(ctx context.Context, tch school.Teacher) (school.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	tch.ID = repo.db.nextID()
	repo.db.teachers[tch.ID] = &tch
	return tch, nil
}

func (repo *schoolRepository) GetTeacherByID(ctx context.Context, id int) (school.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tch, ok := repo.db.teachers[id]
	if !ok {
		return school.Teacher{}, school.ErrTeacherNotFound
	}
	return repo.teacherDetail(*tch), nil
}

func (repo *schoolRepository) GetTeacherByUserID(ctx context.Context, userID string) (school.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, tch := range repo.db.teachers {
		if tch.UserID == userID {
			return repo.teacherDetail(*tch), nil
		}
	}
	return school.Teacher{}, school.ErrTeacherNotFound
}

func (repo *schoolRepository) QueryTeachers(ctx context.Context) ([]school.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	teachers := make([]school.Teacher, 0, len(repo.db.teachers))
	for _, tch := range repo.db.teachers {
		teachers = append(teachers, repo.teacherDetail(*tch))
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].ID < teachers[j].ID })
	return teachers, nil
}

func (repo *schoolRepository) DeleteTeacherByID(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.teachers[id]; !ok {
		return school.ErrTeacherNotFound
	}
	delete(repo.db.teachers, id)
	for said, sa := range repo.db.assignments {
		if sa.TeacherID == id {
			delete(repo.db.assignments, said)
		}
	}
	return nil
}

// Subject assignments

func (repo *schoolRepository) CreateAssignment(ctx context.Context, sa school.SubjectAssignment) (school.SubjectAssignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.assignments {
		if existing.SubjectID == sa.SubjectID && existing.ClassID == sa.ClassID {
			return school.SubjectAssignment{}, school.ErrSubjectTaken
		}
	}
	sa.ID = repo.db.nextID()
	repo.db.assignments[sa.ID] = &sa
	return repo.assignmentDetail(sa), nil
}

func (repo *schoolRepository) AssignmentExists(ctx context.Context, subjectID, classID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sa := range repo.db.assignments {
		if sa.SubjectID == subjectID && sa.ClassID == classID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *schoolRepository) QueryAssignmentsByTeacherID(ctx context.Context, teacherID int) ([]school.SubjectAssignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryAssignments(teacherID), nil
}

func (repo *schoolRepository) DeleteAssignmentByID(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return school.ErrAssignmentNotFound
	}
	delete(repo.db.assignments, id)
	return nil
}

// helpers; all must be called with at least the read lock held

func (repo *schoolRepository) studentsInClass(classID int) []school.Student {
	var students []school.Student
	for _, std := range repo.db.students {
		if std.ClassID.Valid && std.ClassID.Int == classID {
			students = append(students, *std)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students
}

func (repo *schoolRepository) studentDetail(std school.Student) school.Student {
	if usr, ok := repo.db.users[std.UserID]; ok {
		u := *usr
		std.User = &u
	}
	if std.ClassID.Valid {
		if cls, ok := repo.db.classes[std.ClassID.Int]; ok {
			c := *cls
			std.Class = &c
		}
	}
	return std
}

func (repo *schoolRepository) teacherDetail(tch school.Teacher) school.Teacher {
	if usr, ok := repo.db.users[tch.UserID]; ok {
		u := *usr
		tch.User = &u
	}
	tch.Assignments = repo.queryAssignments(tch.ID)
	return tch
}

func (repo *schoolRepository) queryAssignments(teacherID int) []school.SubjectAssignment {
	var sas []school.SubjectAssignment
	for _, sa := range repo.db.assignments {
		if sa.TeacherID == teacherID {
			sas = append(sas, repo.assignmentDetail(*sa))
		}
	}
	sort.Slice(sas, func(i, j int) bool { return sas[i].ID < sas[j].ID })
	return sas
}

func (repo *schoolRepository) assignmentDetail(sa school.SubjectAssignment) school.SubjectAssignment {
	if sub, ok := repo.db.subjects[sa.SubjectID]; ok {
		sa.SubjectName = sub.Name
	}
	if cls, ok := repo.db.classes[sa.ClassID]; ok {
		sa.ClassName = cls.Name
	}
	return sa
}
