package timetable_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/timetable"
	inmemdb "github.com/mwanzohq/mwanzo/storage/database/inmem"
)

func newEntry(classID int, day timetable.Weekday, start, end timetable.TimeOfDay) timetable.NewEntry {
	return timetable.NewEntry{
		ClassID:   classID,
		SubjectID: 1,
		Day:       day,
		StartTime: start,
		EndTime:   end,
	}
}

func TestCreateRejectsConflicts(t *testing.T) {
	ctx := context.Background()
	svc := timetable.NewService(inmemdb.NewTimetableRepository(inmemdb.Open()))

	nineToTen := newEntry(1, timetable.Monday, timetable.NewTimeOfDay(9, 0), timetable.NewTimeOfDay(10, 0))
	if _, err := svc.Create(ctx, nineToTen); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	tests := []struct {
		name     string
		input    timetable.NewEntry
		conflict bool
	}{
		{"overlapping same class+day", newEntry(1, timetable.Monday, timetable.NewTimeOfDay(9, 30), timetable.NewTimeOfDay(10, 30)), true},
		{"contained", newEntry(1, timetable.Monday, timetable.NewTimeOfDay(9, 15), timetable.NewTimeOfDay(9, 45)), true},
		{"back-to-back", newEntry(1, timetable.Monday, timetable.NewTimeOfDay(10, 0), timetable.NewTimeOfDay(11, 0)), false},
		{"other day", newEntry(1, timetable.Tuesday, timetable.NewTimeOfDay(9, 0), timetable.NewTimeOfDay(10, 0)), false},
		{"other class", newEntry(2, timetable.Monday, timetable.NewTimeOfDay(9, 0), timetable.NewTimeOfDay(10, 0)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			if tt.conflict {
				vErr, ok := errors.Cause(err).(*core.ValidationError)
				if !ok || vErr.Err != timetable.ErrConflict {
					t.Fatalf("expected conflict rejection, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected nil error, got %v", err)
			}
		})
	}
}

func TestUpdateExcludesSelf(t *testing.T) {
	ctx := context.Background()
	svc := timetable.NewService(inmemdb.NewTimetableRepository(inmemdb.Open()))

	e, err := svc.Create(ctx, newEntry(1, timetable.Monday, timetable.NewTimeOfDay(9, 0), timetable.NewTimeOfDay(10, 0)))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if _, err = svc.Create(ctx, newEntry(1, timetable.Monday, timetable.NewTimeOfDay(11, 0), timetable.NewTimeOfDay(12, 0))); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// shifting an entry within its own slot must not conflict with itself
	got, err := svc.Update(ctx, e.ID, newEntry(1, timetable.Monday, timetable.NewTimeOfDay(9, 30), timetable.NewTimeOfDay(10, 30)))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.StartTime != timetable.NewTimeOfDay(9, 30) {
		t.Errorf("unexpected entry %+v", got)
	}

	// but moving onto another entry must
	_, err = svc.Update(ctx, e.ID, newEntry(1, timetable.Monday, timetable.NewTimeOfDay(11, 30), timetable.NewTimeOfDay(12, 30)))
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok || vErr.Err != timetable.ErrConflict {
		t.Fatalf("expected conflict rejection, got %v", err)
	}

	if _, err = svc.Update(ctx, 999, newEntry(1, timetable.Monday, timetable.NewTimeOfDay(8, 0), timetable.NewTimeOfDay(9, 0))); errors.Cause(err) != timetable.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
