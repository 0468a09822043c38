package assessment_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/assessment"
	"github.com/mwanzohq/mwanzo/core/school"
	inmemdb "github.com/mwanzohq/mwanzo/storage/database/inmem"
)

type fakeStudents struct {
	ids map[int]bool
}

func (f *fakeStudents) GetStudent(ctx context.Context, id int) (school.Student, error) {
	if f.ids[id] {
		return school.Student{ID: id}, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func TestCreateGrade(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewAssessmentRepository(inmemdb.Open())
	svc := assessment.NewService(repo, &fakeStudents{ids: map[int]bool{1: true, 2: true}})

	exam, err := svc.CreateExam(ctx, assessment.NewExam{
		Name:      "Midterm",
		SubjectID: 1,
		ClassID:   1,
		ExamDate:  time.Now(),
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	tests := []struct {
		name     string
		input    assessment.NewGrade
		wantVErr bool
		wantErr  error // expected ValidationError.Err when wantVErr
	}{
		{"unknown student", assessment.NewGrade{StudentID: 99, ExamID: exam.ID, Marks: 50}, true, assessment.ErrInvalidStudent},
		{"unknown exam", assessment.NewGrade{StudentID: 1, ExamID: 999, Marks: 50}, true, assessment.ErrInvalidExam},
		{"marks too high", assessment.NewGrade{StudentID: 1, ExamID: exam.ID, Marks: 100.5}, true, nil},
		{"negative marks", assessment.NewGrade{StudentID: 1, ExamID: exam.ID, Marks: -1}, true, nil},
		{"lower bound", assessment.NewGrade{StudentID: 1, ExamID: exam.ID, Marks: 0}, false, nil},
		{"upper bound", assessment.NewGrade{StudentID: 2, ExamID: exam.ID, Marks: 100}, false, nil},
		{"second grade for same student and exam", assessment.NewGrade{StudentID: 1, ExamID: exam.ID, Marks: 60}, true, assessment.ErrDuplicateGrade},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := svc.CreateGrade(ctx, tt.input)
			if tt.wantVErr {
				vErr, ok := errors.Cause(err).(*core.ValidationError)
				if !ok || vErr.Err != tt.wantErr {
					t.Fatalf("expected validation error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if g.ID == 0 || g.Marks != tt.input.Marks {
				t.Errorf("unexpected grade %+v", g)
			}
		})
	}
}

func TestUpdateGrade(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewAssessmentRepository(inmemdb.Open())
	svc := assessment.NewService(repo, &fakeStudents{ids: map[int]bool{1: true}})

	exam, _ := svc.CreateExam(ctx, assessment.NewExam{Name: "Final", SubjectID: 1, ClassID: 1, ExamDate: time.Now()})
	g, err := svc.CreateGrade(ctx, assessment.NewGrade{StudentID: 1, ExamID: exam.ID, Marks: 40})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	marks := 72.5
	got, err := svc.UpdateGrade(ctx, g.ID, assessment.UpdateGrade{Marks: &marks, Comments: "resit"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.Marks != marks || got.Comments.String != "resit" {
		t.Errorf("unexpected grade %+v", got)
	}

	bad := 101.0
	if _, err = svc.UpdateGrade(ctx, g.ID, assessment.UpdateGrade{Marks: &bad}); err == nil {
		t.Error("expected out-of-range marks to be rejected")
	}

	if _, err = svc.UpdateGrade(ctx, 999, assessment.UpdateGrade{Marks: &marks}); errors.Cause(err) != assessment.ErrGradeNotFound {
		t.Errorf("expected ErrGradeNotFound, got %v", err)
	}
}
