package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/account"
)

type userRepository struct {
	db *DB
}

var _ account.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) account.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []account.User {
	users := make([]account.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...account.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email && !isExcluded(usr, excludedUsers) {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr account.User) (account.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return account.User{}, account.ErrEmailExists
		}
	}

	usr.ID = uuid.New().String()
	now := time.Now().UTC()
	usr.CreatedAt, usr.UpdatedAt = now, now
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := repo.query()
	if filter == nil || filter.IsEmpty() {
		return users, nil
	}

	var filtered []account.User
	for _, u := range users {
		if matchesFilter(u, filter) {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

func matchesFilter(u account.User, filter *account.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		match := strings.Contains(strings.ToLower(u.FirstName), s) ||
			strings.Contains(strings.ToLower(u.LastName), s) ||
			strings.Contains(strings.ToLower(u.Email), s) ||
			strings.Contains(strings.ToLower(u.AdmissionNumber.String), s)
		if r, ok := account.ParseRole(filter.Search); ok {
			match = match || u.Role == r
		}
		if !match {
			return false
		}
	}
	if filter.Role != "" && string(u.Role) != filter.Role {
		return false
	}
	if filter.Status != "" && string(u.Status) != filter.Status {
		return false
	}
	if !filter.CreatedFrom.IsZero() && u.CreatedAt.Before(filter.CreatedFrom.UTC()) {
		return false
	}
	if !filter.CreatedTo.IsZero() && u.CreatedAt.After(filter.CreatedTo.UTC()) {
		return false
	}
	return true
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (account.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return account.User{}, account.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (account.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return account.User{}, account.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr account.User, confirmed *bool) (account.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	origUsr, ok := repo.db.users[usr.ID]
	if !ok {
		return account.User{}, account.ErrNotFound
	}
	if usr.FirstName != "" {
		origUsr.FirstName = usr.FirstName
	}
	if usr.LastName != "" {
		origUsr.LastName = usr.LastName
	}
	if usr.Email != "" {
		origUsr.Email = usr.Email
	}
	if usr.AdmissionNumber.Valid {
		origUsr.AdmissionNumber = usr.AdmissionNumber
	}
	if usr.Role != "" {
		origUsr.Role = usr.Role
	}
	if usr.Status != "" {
		origUsr.Status = usr.Status
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if confirmed != nil {
		origUsr.EmailConfirmed = *confirmed
	}
	origUsr.UpdatedAt = time.Now().UTC()

	return *origUsr, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr account.User) (account.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origUsr, ok := repo.db.users[usr.ID]
	if !ok {
		return account.User{}, account.ErrNotFound
	}
	origUsr.LastLogin = time.Now().UTC()
	return *origUsr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.users, id)
	}
	return nil
}

func isExcluded(usr account.User, excludedUsers []account.User) bool {
	for _, excl := range excludedUsers {
		if excl.ID == usr.ID {
			return true
		}
	}
	return false
}
