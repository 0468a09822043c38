package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/mwanzohq/mwanzo/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// the unique index equivalent
	for _, existing := range repo.db.records {
		if existing.StudentID == rec.StudentID && existing.Date.Equal(rec.Date) {
			return attendance.Record{}, attendance.ErrDuplicate
		}
	}
	rec.ID = repo.db.nextID()
	repo.db.records[rec.ID] = &rec
	return rec, nil
}

func (repo *attendanceRepository) GetRecordByID(ctx context.Context, id int) (attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.records[id]; ok {
		return *rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) RecordExists(ctx context.Context, studentID int, date time.Time) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, rec := range repo.db.records {
		if rec.StudentID == studentID && rec.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *attendanceRepository) QueryRecordsByStudentID(ctx context.Context, studentID int, from, to *time.Time) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var records []attendance.Record
	for _, rec := range repo.db.records {
		if rec.StudentID != studentID {
			continue
		}
		if from != nil && rec.Date.Before(*from) {
			continue
		}
		if to != nil && rec.Date.After(*to) {
			continue
		}
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, nil
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.records[rec.ID]
	if !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	orig.IsPresent = rec.IsPresent
	orig.Notes = rec.Notes
	orig.IsLocked = rec.IsLocked
	return *orig, nil
}

func (repo *attendanceRepository) DeleteRecordByID(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.records[id]; !ok {
		return attendance.ErrNotFound
	}
	delete(repo.db.records, id)
	return nil
}
