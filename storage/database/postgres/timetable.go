package postgres

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/timetable"
)

const entrySelect = `
	SELECT e.id, e.class_id, e.subject_id, e.day, e.start_min, e.end_min,
	       c.name AS class_name, s.name AS subject_name
	FROM timetable_entries e
	JOIN classes c ON c.id = e.class_id
	JOIN subjects s ON s.id = e.subject_id`

type entryRow struct {
	ID          int                 `db:"id"`
	ClassID     int                 `db:"class_id"`
	SubjectID   int                 `db:"subject_id"`
	Day         int                 `db:"day"`
	StartMin    timetable.TimeOfDay `db:"start_min"`
	EndMin      timetable.TimeOfDay `db:"end_min"`
	ClassName   string              `db:"class_name"`
	SubjectName string              `db:"subject_name"`
}

func (r entryRow) entry() timetable.Entry {
	return timetable.Entry{
		ID:          r.ID,
		ClassID:     r.ClassID,
		SubjectID:   r.SubjectID,
		Day:         timetable.Weekday(r.Day),
		StartTime:   r.StartMin,
		EndTime:     r.EndMin,
		ClassName:   r.ClassName,
		SubjectName: r.SubjectName,
	}
}

type timetableRepository struct {
	db core.DBExecutor
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db core.DBExecutor) timetable.Repository {
	return &timetableRepository{db: db}
}

func (repo *timetableRepository) CreateEntry(ctx context.Context, e timetable.Entry) (timetable.Entry, error) {
	query := `
	INSERT INTO timetable_entries (class_id, subject_id, day, start_min, end_min)
	VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := repo.db.GetContext(ctx, &e.ID, query,
		e.ClassID, e.SubjectID, int(e.Day), int(e.StartTime), int(e.EndTime))
	if err != nil {
		// a racing writer beat us past the service-level check
		if isExclusionViolation(err) {
			return timetable.Entry{}, timetable.ErrConflict
		}
		return timetable.Entry{}, errors.Wrap(err, "inserting timetable entry")
	}
	return repo.GetEntryByID(ctx, e.ID)
}

func (repo *timetableRepository) GetEntryByID(ctx context.Context, id int) (timetable.Entry, error) {
	var row entryRow
	if err := repo.db.GetContext(ctx, &row, entrySelect+` WHERE e.id = $1`, id); err != nil {
		if isNoRows(err) {
			return timetable.Entry{}, timetable.ErrNotFound
		}
		return timetable.Entry{}, errors.Wrap(err, "getting timetable entry")
	}
	return row.entry(), nil
}

func (repo *timetableRepository) QueryEntriesByClassID(ctx context.Context, classID int) ([]timetable.Entry, error) {
	var rows []entryRow
	query := entrySelect + ` WHERE e.class_id = $1 ORDER BY e.day, e.start_min`
	if err := repo.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, errors.Wrap(err, "querying timetable entries")
	}
	entries := make([]timetable.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}

func (repo *timetableRepository) UpdateEntry(ctx context.Context, e timetable.Entry) (timetable.Entry, error) {
	query := `
	UPDATE timetable_entries
	SET class_id = $1, subject_id = $2, day = $3, start_min = $4, end_min = $5
	WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, query,
		e.ClassID, e.SubjectID, int(e.Day), int(e.StartTime), int(e.EndTime), e.ID)
	if err != nil {
		if isExclusionViolation(err) {
			return timetable.Entry{}, timetable.ErrConflict
		}
		return timetable.Entry{}, errors.Wrap(err, "updating timetable entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return timetable.Entry{}, timetable.ErrNotFound
	}
	return repo.GetEntryByID(ctx, e.ID)
}

func (repo *timetableRepository) DeleteEntryByID(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting timetable entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return timetable.ErrNotFound
	}
	return nil
}

func (repo *timetableRepository) HasConflict(ctx context.Context, candidate timetable.Entry, excludeID int) (bool, error) {
	// half-open [start, end): strict inequalities match the range overlap
	// semantics of the table's exclusion constraint
	query := `
	SELECT EXISTS (
		SELECT 1 FROM timetable_entries
		WHERE class_id = $1 AND day = $2
		  AND start_min < $4 AND end_min > $3
		  AND ($5 = 0 OR id <> $5)
	)`
	var exists bool
	err := repo.db.GetContext(ctx, &exists, query,
		candidate.ClassID, int(candidate.Day), int(candidate.StartTime), int(candidate.EndTime), excludeID)
	if err != nil {
		return false, errors.Wrap(err, "checking timetable conflict")
	}
	return exists, nil
}
