package inmemdb

import (
	"context"
	"sort"

	"github.com/mwanzohq/mwanzo/core/timetable"
)

type timetableRepository struct {
	db *DB
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *DB) timetable.Repository {
	return &timetableRepository{db: db}
}

func (repo *timetableRepository) CreateEntry(ctx context.Context, e timetable.Entry) (timetable.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// the exclusion constraint equivalent
	for _, existing := range repo.db.entries {
		if e.OverlapsWith(*existing) {
			return timetable.Entry{}, timetable.ErrConflict
		}
	}
	e.ID = repo.db.nextID()
	repo.db.entries[e.ID] = &e
	return repo.entryDetail(e), nil
}

func (repo *timetableRepository) GetEntryByID(ctx context.Context, id int) (timetable.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.entries[id]; ok {
		return repo.entryDetail(*e), nil
	}
	return timetable.Entry{}, timetable.ErrNotFound
}

func (repo *timetableRepository) QueryEntriesByClassID(ctx context.Context, classID int) ([]timetable.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []timetable.Entry
	for _, e := range repo.db.entries {
		if e.ClassID == classID {
			entries = append(entries, repo.entryDetail(*e))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Day != entries[j].Day {
			return entries[i].Day < entries[j].Day
		}
		return entries[i].StartTime < entries[j].StartTime
	})
	return entries, nil
}

func (repo *timetableRepository) UpdateEntry(ctx context.Context, e timetable.Entry) (timetable.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.entries[e.ID]; !ok {
		return timetable.Entry{}, timetable.ErrNotFound
	}
	for _, existing := range repo.db.entries {
		if existing.ID != e.ID && e.OverlapsWith(*existing) {
			return timetable.Entry{}, timetable.ErrConflict
		}
	}
	repo.db.entries[e.ID] = &e
	return repo.entryDetail(e), nil
}

func (repo *timetableRepository) DeleteEntryByID(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.entries[id]; !ok {
		return timetable.ErrNotFound
	}
	delete(repo.db.entries, id)
	return nil
}

func (repo *timetableRepository) HasConflict(ctx context.Context, candidate timetable.Entry, excludeID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.entries {
		if excludeID != 0 && e.ID == excludeID {
			continue
		}
		if candidate.OverlapsWith(*e) {
			return true, nil
		}
	}
	return false, nil
}

// entryDetail must be called with at least the read lock held.
func (repo *timetableRepository) entryDetail(e timetable.Entry) timetable.Entry {
	if cls, ok := repo.db.classes[e.ClassID]; ok {
		e.ClassName = cls.Name
	}
	if sub, ok := repo.db.subjects[e.SubjectID]; ok {
		e.SubjectName = sub.Name
	}
	return e
}
