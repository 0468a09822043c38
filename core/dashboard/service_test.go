package dashboard

import (
	"context"
	"testing"

	"github.com/volatiletech/null/v8"

	"github.com/mwanzohq/mwanzo/core/school"
)

type mockRepo struct {
	students, teachers, classes, exams int
	assignedClasses                    []int
	classStudents, classExams          int
	marks                              []float64
}

func (r *mockRepo) CountStudents(ctx context.Context) (int, error) { return r.students, nil }
func (r *mockRepo) CountTeachers(ctx context.Context) (int, error) { return r.teachers, nil }
func (r *mockRepo) CountClasses(ctx context.Context) (int, error)  { return r.classes, nil }
func (r *mockRepo) CountExams(ctx context.Context) (int, error)    { return r.exams, nil }
func (r *mockRepo) AssignedClassIDs(ctx context.Context, teacherID int) ([]int, error) {
	return r.assignedClasses, nil
}
func (r *mockRepo) CountStudentsInClasses(ctx context.Context, classIDs []int) (int, error) {
	return r.classStudents, nil
}
func (r *mockRepo) CountExamsInClasses(ctx context.Context, classIDs []int) (int, error) {
	return r.classExams, nil
}
func (r *mockRepo) StudentGradeMarks(ctx context.Context, studentID int) ([]float64, error) {
	return r.marks, nil
}

type mockProfiles struct {
	teacher *school.Teacher
	student *school.Student
	class   *school.Class
}

func (p *mockProfiles) GetTeacherByUserID(ctx context.Context, userID string) (school.Teacher, error) {
	if p.teacher == nil {
		return school.Teacher{}, school.ErrTeacherNotFound
	}
	return *p.teacher, nil
}
func (p *mockProfiles) GetStudentByUserID(ctx context.Context, userID string) (school.Student, error) {
	if p.student == nil {
		return school.Student{}, school.ErrStudentNotFound
	}
	return *p.student, nil
}
func (p *mockProfiles) GetClass(ctx context.Context, id int) (school.Class, error) {
	if p.class == nil {
		return school.Class{}, school.ErrClassNotFound
	}
	return *p.class, nil
}

func TestAdminStats(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{students: 120, teachers: 8, classes: 4, exams: 16}
	svc := NewService(repo, &mockProfiles{})

	stats, err := svc.AdminStats(ctx)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	want := AdminStats{TotalStudents: 120, TotalTeachers: 8, TotalClasses: 4, TotalExams: 16}
	if stats != want {
		t.Errorf("expected %+v, got %+v", want, stats)
	}
}

func TestTeacherStats(t *testing.T) {
	ctx := context.Background()

	t.Run("no profile", func(t *testing.T) {
		svc := NewService(&mockRepo{}, &mockProfiles{})
		if _, err := svc.TeacherStats(ctx, "uid"); err != ErrProfileNotFound {
			t.Errorf("expected ErrProfileNotFound, got %v", err)
		}
	})

	t.Run("no assignments", func(t *testing.T) {
		profiles := &mockProfiles{teacher: &school.Teacher{ID: 7}}
		svc := NewService(&mockRepo{classStudents: 99, classExams: 99}, profiles)

		stats, err := svc.TeacherStats(ctx, "uid")
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if stats != (TeacherStats{}) {
			t.Errorf("expected zero stats, got %+v", stats)
		}
	})

	t.Run("assigned classes", func(t *testing.T) {
		repo := &mockRepo{assignedClasses: []int{1, 3}, classStudents: 55, classExams: 6}
		svc := NewService(repo, &mockProfiles{teacher: &school.Teacher{ID: 7}})

		stats, err := svc.TeacherStats(ctx, "uid")
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		want := TeacherStats{TotalClasses: 2, TotalStudents: 55, TotalExams: 6}
		if stats != want {
			t.Errorf("expected %+v, got %+v", want, stats)
		}
	})
}

func TestStudentStats(t *testing.T) {
	ctx := context.Background()

	t.Run("no profile", func(t *testing.T) {
		svc := NewService(&mockRepo{}, &mockProfiles{})
		if _, err := svc.StudentStats(ctx, "uid"); err != ErrProfileNotFound {
			t.Errorf("expected ErrProfileNotFound, got %v", err)
		}
	})

	t.Run("average of marks", func(t *testing.T) {
		repo := &mockRepo{marks: []float64{70, 80, 90}}
		profiles := &mockProfiles{
			student: &school.Student{ID: 3, ClassID: null.IntFrom(1)},
			class:   &school.Class{ID: 1, Name: "Form 1"},
		}
		svc := NewService(repo, profiles)

		stats, err := svc.StudentStats(ctx, "uid")
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		want := StudentStats{ClassName: "Form 1", TotalExams: 3, AverageGrade: 80}
		if stats != want {
			t.Errorf("expected %+v, got %+v", want, stats)
		}
	})

	t.Run("no grades", func(t *testing.T) {
		profiles := &mockProfiles{student: &school.Student{ID: 3}}
		svc := NewService(&mockRepo{}, profiles)

		stats, err := svc.StudentStats(ctx, "uid")
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if stats.AverageGrade != 0 || stats.TotalExams != 0 {
			t.Errorf("expected zero grades, got %+v", stats)
		}
	})
}
