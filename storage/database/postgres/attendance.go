package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/attendance"
)

const recordColumns = `id, student_id, date, is_present, notes, is_locked`

type recordRow struct {
	ID        int         `db:"id"`
	StudentID int         `db:"student_id"`
	Date      time.Time   `db:"date"`
	IsPresent bool        `db:"is_present"`
	Notes     null.String `db:"notes"`
	IsLocked  bool        `db:"is_locked"`
}

func (r recordRow) record() attendance.Record {
	return attendance.Record(r)
}

type attendanceRepository struct {
	db core.DBExecutor
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db core.DBExecutor) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	query := `
	INSERT INTO attendance_records (student_id, date, is_present, notes, is_locked)
	VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := repo.db.GetContext(ctx, &rec.ID, query,
		rec.StudentID, rec.Date, rec.IsPresent, rec.Notes, rec.IsLocked)
	if err != nil {
		// a racing writer beat us past the service-level check
		if isUniqueViolation(err) {
			return attendance.Record{}, attendance.ErrDuplicate
		}
		return attendance.Record{}, errors.Wrap(err, "inserting attendance record")
	}
	return rec, nil
}

func (repo *attendanceRepository) GetRecordByID(ctx context.Context, id int) (attendance.Record, error) {
	var row recordRow
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if isNoRows(err) {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "getting attendance record")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) RecordExists(ctx context.Context, studentID int, date time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM attendance_records WHERE student_id = $1 AND date = $2)`
	if err := repo.db.GetContext(ctx, &exists, query, studentID, date); err != nil {
		return false, errors.Wrap(err, "checking attendance record")
	}
	return exists, nil
}

func (repo *attendanceRepository) QueryRecordsByStudentID(ctx context.Context, studentID int, from, to *time.Time) ([]attendance.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE student_id = $1`
	args := []interface{}{studentID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(` AND date >= $%d`, len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(` AND date <= $%d`, len(args))
	}
	query += ` ORDER BY date`

	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	query := `
	UPDATE attendance_records SET is_present = $1, notes = $2, is_locked = $3
	WHERE id = $4 RETURNING ` + recordColumns
	var row recordRow
	err := repo.db.GetContext(ctx, &row, query, rec.IsPresent, rec.Notes, rec.IsLocked, rec.ID)
	if err != nil {
		if isNoRows(err) {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "updating attendance record")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) DeleteRecordByID(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}
