package timetable

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core"
)

var (
	// errors
	ErrNotFound = errors.New("timetable entry not found")
	ErrConflict = errors.New("timetable conflict detected")
)

type (
	Repository interface {
		CreateEntry(ctx context.Context, e Entry) (Entry, error)
		GetEntryByID(ctx context.Context, id int) (Entry, error)
		QueryEntriesByClassID(ctx context.Context, classID int) ([]Entry, error)
		UpdateEntry(ctx context.Context, e Entry) (Entry, error)
		DeleteEntryByID(ctx context.Context, id int) error
		// HasConflict reports whether any stored entry for the candidate's
		// (class, day) overlaps its [start, end) range. excludeID, when
		// non-zero, leaves that entry out of the scan so an update does not
		// conflict with itself. First match suffices.
		HasConflict(ctx context.Context, candidate Entry, excludeID int) (bool, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create rejects the candidate before any write when it overlaps an
// existing slot. The exclusion constraint on the table backstops races;
// the repository maps its violation to ErrConflict as well.
func (svc *Service) Create(ctx context.Context, ne NewEntry) (Entry, error) {
	if err := ne.Validate(); err != nil {
		return Entry{}, err
	}
	candidate := ne.entry()

	conflict, err := svc.repo.HasConflict(ctx, candidate, 0)
	if err != nil {
		return Entry{}, errors.Wrap(err, "checking conflict")
	}
	if conflict {
		return Entry{}, core.NewValidationError(ErrConflict)
	}
	return svc.repo.CreateEntry(ctx, candidate)
}

func (svc *Service) Update(ctx context.Context, id int, ne NewEntry) (Entry, error) {
	if err := ne.Validate(); err != nil {
		return Entry{}, err
	}
	if _, err := svc.repo.GetEntryByID(ctx, id); err != nil {
		return Entry{}, err
	}
	candidate := ne.entry()
	candidate.ID = id

	conflict, err := svc.repo.HasConflict(ctx, candidate, id)
	if err != nil {
		return Entry{}, errors.Wrap(err, "checking conflict")
	}
	if conflict {
		return Entry{}, core.NewValidationError(ErrConflict)
	}
	return svc.repo.UpdateEntry(ctx, candidate)
}

func (svc *Service) QueryByClass(ctx context.Context, classID int) ([]Entry, error) {
	return svc.repo.QueryEntriesByClassID(ctx, classID)
}

func (svc *Service) Get(ctx context.Context, id int) (Entry, error) {
	return svc.repo.GetEntryByID(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteEntryByID(ctx, id)
}
