package school

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/account"
)

var (
	// errors
	ErrClassNotFound      = errors.New("class not found")
	ErrClassExists        = errors.New("a class with this name already exists")
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrTeacherNotFound    = errors.New("teacher not found")
	ErrInvalidUser        = errors.New("invalid user or role")
	ErrProfileExists      = errors.New("a profile for this user already exists")
	ErrSubjectTaken       = errors.New("this subject is already assigned to a teacher for this class")
	ErrAssignmentNotFound = errors.New("subject assignment not found")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		QueryClasses(ctx context.Context) ([]Class, error)
		// GetClassByID returns the class with its Students populated.
		GetClassByID(ctx context.Context, id int) (Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClassByID(ctx context.Context, id int) error

		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		QuerySubjects(ctx context.Context) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id int) (Subject, error)
		UpdateSubject(ctx context.Context, sub Subject) (Subject, error)
		DeleteSubjectByID(ctx context.Context, id int) error

		CreateStudent(ctx context.Context, std Student) (Student, error)
		// GetStudentByID returns the student with User and Class populated.
		GetStudentByID(ctx context.Context, id int) (Student, error)
		GetStudentByUserID(ctx context.Context, userID string) (Student, error)
		QueryStudents(ctx context.Context, classID *int) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudentByID(ctx context.Context, id int) error

		CreateTeacher(ctx context.Context, tch Teacher) (Teacher, error)
		GetTeacherByID(ctx context.Context, id int) (Teacher, error)
		GetTeacherByUserID(ctx context.Context, userID string) (Teacher, error)
		// QueryTeachers returns teachers with User and Assignments populated.
		QueryTeachers(ctx context.Context) ([]Teacher, error)
		DeleteTeacherByID(ctx context.Context, id int) error

		CreateAssignment(ctx context.Context, sa SubjectAssignment) (SubjectAssignment, error)
		AssignmentExists(ctx context.Context, subjectID, classID int) (bool, error)
		QueryAssignmentsByTeacherID(ctx context.Context, teacherID int) ([]SubjectAssignment, error)
		DeleteAssignmentByID(ctx context.Context, id int) error
	}

	Service struct {
		repo   Repository
		usrSvc account.ServiceInterface
	}
)

func NewService(repo Repository, usrSvc account.ServiceInterface) *Service {
	return &Service{repo: repo, usrSvc: usrSvc}
}

// Classes

// CreateClass creates a class. Class names are unique school-wide.
func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	cls, err := svc.repo.CreateClass(ctx, Class{Name: nc.Name, Description: nc.Description})
	if err != nil {
		if errors.Cause(err) == ErrClassExists {
			return Class{}, core.NewValidationError(ErrClassExists, core.FieldError{Field: "name", Error: ErrClassExists.Error()})
		}
		return Class{}, err
	}
	return cls, nil
}

func (svc *Service) QueryClasses(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryClasses(ctx)
}

func (svc *Service) GetClass(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) UpdateClass(ctx context.Context, id int, uc UpdateClass) (Class, error) {
	cls, err := svc.repo.UpdateClass(ctx, Class{ID: id, Name: uc.Name, Description: uc.Description})
	if err != nil {
		if errors.Cause(err) == ErrClassExists {
			return Class{}, core.NewValidationError(ErrClassExists, core.FieldError{Field: "name", Error: ErrClassExists.Error()})
		}
		return Class{}, err
	}
	return cls, nil
}

func (svc *Service) DeleteClass(ctx context.Context, id int) error {
	return svc.repo.DeleteClassByID(ctx, id)
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	return svc.repo.CreateSubject(ctx, Subject{Name: ns.Name, Description: ns.Description})
}

func (svc *Service) QuerySubjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}

func (svc *Service) GetSubject(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) UpdateSubject(ctx context.Context, id int, us UpdateSubject) (Subject, error) {
	return svc.repo.UpdateSubject(ctx, Subject{ID: id, Name: us.Name, Description: us.Description})
}

func (svc *Service) DeleteSubject(ctx context.Context, id int) error {
	return svc.repo.DeleteSubjectByID(ctx, id)
}

// Students

// CreateStudent enrolls a student-role account as a Student profile.
// The account must exist, hold the student role and not be enrolled yet.
func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	usr, err := svc.usrSvc.GetByID(ctx, ns.UserID)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return Student{}, core.NewValidationError(ErrInvalidUser, core.FieldError{Field: "user_id", Error: ErrInvalidUser.Error()})
		}
		return Student{}, errors.Wrap(err, "finding user")
	}
	if !usr.IsStudent() {
		return Student{}, core.NewValidationError(ErrInvalidUser, core.FieldError{Field: "user_id", Error: ErrInvalidUser.Error()})
	}
	if _, err = svc.repo.GetStudentByUserID(ctx, ns.UserID); err == nil {
		return Student{}, core.NewValidationError(ErrProfileExists, core.FieldError{Field: "user_id", Error: ErrProfileExists.Error()})
	} else if errors.Cause(err) != ErrStudentNotFound {
		return Student{}, errors.Wrap(err, "checking existing profile")
	}

	std := Student{
		UserID:         ns.UserID,
		ClassID:        null.IntFromPtr(ns.ClassID),
		EnrollmentDate: ns.EnrollmentDate.UTC(),
	}
	if std.EnrollmentDate.IsZero() {
		std.EnrollmentDate = time.Now().UTC()
	}
	if ns.ClassID != nil {
		if _, err = svc.repo.GetClassByID(ctx, *ns.ClassID); err != nil {
			if errors.Cause(err) == ErrClassNotFound {
				return Student{}, core.NewValidationError(ErrClassNotFound, core.FieldError{Field: "class_id", Error: ErrClassNotFound.Error()})
			}
			return Student{}, errors.Wrap(err, "finding class")
		}
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) GetStudent(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetStudentByUserID(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudentByUserID(ctx, userID)
}

func (svc *Service) QueryStudents(ctx context.Context, classID *int) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, classID)
}

func (svc *Service) UpdateStudent(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if us.ClassID != nil {
		if _, err = svc.repo.GetClassByID(ctx, *us.ClassID); err != nil {
			if errors.Cause(err) == ErrClassNotFound {
				return Student{}, core.NewValidationError(ErrClassNotFound, core.FieldError{Field: "class_id", Error: ErrClassNotFound.Error()})
			}
			return Student{}, errors.Wrap(err, "finding class")
		}
		std.ClassID = null.IntFromPtr(us.ClassID)
	}
	if !us.EnrollmentDate.IsZero() {
		std.EnrollmentDate = us.EnrollmentDate.UTC()
	}
	std.User, std.Class = nil, nil
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *Service) DeleteStudent(ctx context.Context, id int) error {
	return svc.repo.DeleteStudentByID(ctx, id)
}

// Teachers

func (svc *Service) CreateTeacher(ctx context.Context, nt NewTeacher) (Teacher, error) {
	usr, err := svc.usrSvc.GetByID(ctx, nt.UserID)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return Teacher{}, core.NewValidationError(ErrInvalidUser, core.FieldError{Field: "user_id", Error: ErrInvalidUser.Error()})
		}
		return Teacher{}, errors.Wrap(err, "finding user")
	}
	if !usr.IsTeacher() {
		return Teacher{}, core.NewValidationError(ErrInvalidUser, core.FieldError{Field: "user_id", Error: ErrInvalidUser.Error()})
	}
	if _, err = svc.repo.GetTeacherByUserID(ctx, nt.UserID); err == nil {
		return Teacher{}, core.NewValidationError(ErrProfileExists, core.FieldError{Field: "user_id", Error: ErrProfileExists.Error()})
	} else if errors.Cause(err) != ErrTeacherNotFound {
		return Teacher{}, errors.Wrap(err, "checking existing profile")
	}
	return svc.repo.CreateTeacher(ctx, Teacher{UserID: nt.UserID})
}

func (svc *Service) GetTeacher(ctx context.Context, id int) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *Service) GetTeacherByUserID(ctx context.Context, userID string) (Teacher, error) {
	return svc.repo.GetTeacherByUserID(ctx, userID)
}

func (svc *Service) QueryTeachers(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx)
}

func (svc *Service) DeleteTeacher(ctx context.Context, id int) error {
	return svc.repo.DeleteTeacherByID(ctx, id)
}

// AssignSubjects processes a batch of subject assignments. Entries whose
// teacher, subject or class cannot be found, and duplicates per
// (subject, class), are skipped rather than failing the batch.
func (svc *Service) AssignSubjects(ctx context.Context, nas []NewAssignment) (AssignmentResult, error) {
	res := AssignmentResult{
		Assigned: []SubjectAssignment{},
		Skipped:  []NewAssignment{},
	}
	for _, na := range nas {
		skip, err := svc.shouldSkipAssignment(ctx, na)
		if err != nil {
			return AssignmentResult{}, err
		}
		if skip {
			res.Skipped = append(res.Skipped, na)
			continue
		}

		sa, err := svc.repo.CreateAssignment(ctx, SubjectAssignment{
			TeacherID: na.TeacherID,
			SubjectID: na.SubjectID,
			ClassID:   na.ClassID,
		})
		if err != nil {
			// racing duplicate caught by the unique index
			if errors.Cause(err) == ErrSubjectTaken {
				res.Skipped = append(res.Skipped, na)
				continue
			}
			return AssignmentResult{}, errors.Wrap(err, "creating assignment")
		}
		res.Assigned = append(res.Assigned, sa)
	}
	res.AssignedCount = len(res.Assigned)
	res.SkippedCount = len(res.Skipped)
	return res, nil
}

func (svc *Service) shouldSkipAssignment(ctx context.Context, na NewAssignment) (bool, error) {
	if _, err := svc.repo.GetTeacherByID(ctx, na.TeacherID); err != nil {
		if errors.Cause(err) == ErrTeacherNotFound {
			return true, nil
		}
		return false, errors.Wrap(err, "finding teacher")
	}
	if _, err := svc.repo.GetSubjectByID(ctx, na.SubjectID); err != nil {
		if errors.Cause(err) == ErrSubjectNotFound {
			return true, nil
		}
		return false, errors.Wrap(err, "finding subject")
	}
	if _, err := svc.repo.GetClassByID(ctx, na.ClassID); err != nil {
		if errors.Cause(err) == ErrClassNotFound {
			return true, nil
		}
		return false, errors.Wrap(err, "finding class")
	}
	exists, err := svc.repo.AssignmentExists(ctx, na.SubjectID, na.ClassID)
	if err != nil {
		return false, errors.Wrap(err, "checking assignment uniqueness")
	}
	return exists, nil
}
