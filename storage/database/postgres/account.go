package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/account"
)

const userColumns = `id, first_name, last_name, email, admission_number, role, status, email_confirmed, password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID              string      `db:"id"`
	FirstName       string      `db:"first_name"`
	LastName        string      `db:"last_name"`
	Email           string      `db:"email"`
	AdmissionNumber null.String `db:"admission_number"`
	Role            string      `db:"role"`
	Status          string      `db:"status"`
	EmailConfirmed  bool        `db:"email_confirmed"`
	PasswordHash    []byte      `db:"password_hash"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
	LastLogin       null.Time   `db:"last_login"`
}

func (r userRow) user() account.User {
	return account.User{
		ID:              r.ID,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           r.Email,
		AdmissionNumber: r.AdmissionNumber,
		Role:            account.Role(r.Role),
		Status:          account.Status(r.Status),
		EmailConfirmed:  r.EmailConfirmed,
		PasswordHash:    r.PasswordHash,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		LastLogin:       r.LastLogin.Time,
	}
}

type userRepository struct {
	db core.DBExecutor
}

var _ account.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DBExecutor) account.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...account.User) error {
	query := `SELECT COUNT(*) FROM users WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, pqStringArray(ids))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return account.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr account.User) (account.User, error) {
	usr.ID = uuid.New().String()
	now := time.Now().UTC()
	usr.CreatedAt, usr.UpdatedAt = now, now

	query := `
	INSERT INTO users (` + userColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL)`
	_, err := repo.db.ExecContext(ctx, query,
		usr.ID, usr.FirstName, usr.LastName, usr.Email, usr.AdmissionNumber,
		usr.Role, usr.Status, usr.EmailConfirmed, usr.PasswordHash,
		usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return account.User{}, account.ErrEmailExists
		}
		return account.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil && !filter.IsEmpty() {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			cond := fmt.Sprintf(
				"(first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR email ILIKE %[1]s OR admission_number ILIKE %[1]s", p)
			if r, ok := account.ParseRole(filter.Search); ok {
				cond += fmt.Sprintf(" OR role = %s", arg(string(r)))
			}
			conds = append(conds, cond+")")
		}
		if filter.Role != "" {
			conds = append(conds, fmt.Sprintf("role = %s", arg(filter.Role)))
		}
		if filter.Status != "" {
			conds = append(conds, fmt.Sprintf("status = %s", arg(filter.Status)))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, fmt.Sprintf("created_at <= %s", arg(filter.CreatedTo.UTC())))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, "created_at ASC")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]account.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (account.User, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if isNoRows(err) {
			return account.User{}, account.ErrNotFound
		}
		return account.User{}, errors.Wrap(err, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (account.User, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	if err := repo.db.GetContext(ctx, &row, query, email); err != nil {
		if isNoRows(err) {
			return account.User{}, account.ErrNotFound
		}
		return account.User{}, errors.Wrap(err, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr account.User, confirmed *bool) (account.User, error) {
	// only save set fields
	var (
		sets []string
		args []interface{}
	)
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if usr.FirstName != "" {
		set("first_name", usr.FirstName)
	}
	if usr.LastName != "" {
		set("last_name", usr.LastName)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.AdmissionNumber.Valid {
		set("admission_number", usr.AdmissionNumber)
	}
	if usr.Role != "" {
		set("role", usr.Role)
	}
	if usr.Status != "" {
		set("status", usr.Status)
	}
	if usr.PasswordHash != nil {
		set("password_hash", usr.PasswordHash)
	}
	if confirmed != nil {
		set("email_confirmed", *confirmed)
	}
	set("updated_at", time.Now().UTC())

	args = append(args, usr.ID)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "), len(args),
	)

	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNoRows(err) {
			return account.User{}, account.ErrNotFound
		}
		if isUniqueViolation(err) {
			return account.User{}, account.ErrEmailExists
		}
		return account.User{}, errors.Wrap(err, "updating user")
	}
	return row.user(), nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr account.User) (account.User, error) {
	var row userRow
	query := `UPDATE users SET last_login = NOW() WHERE id = $1 RETURNING ` + userColumns
	if err := repo.db.GetContext(ctx, &row, query, usr.ID); err != nil {
		if isNoRows(err) {
			return account.User{}, account.ErrNotFound
		}
		return account.User{}, errors.Wrap(err, "setting last login")
	}
	return row.user(), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM users WHERE id = ANY($1)`
	if _, err := repo.db.ExecContext(ctx, query, pqStringArray(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
