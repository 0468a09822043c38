package account

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/mwanzohq/mwanzo/core"
)

// Role is the closed set of account roles. Authorization rules compare
// Role values, never raw claim strings.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

var AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole maps a raw string onto the Role enum, case-insensitively.
func ParseRole(s string) (Role, bool) {
	r := Role(core.CleanString(s, true))
	return r, r.Valid()
}

// Status tracks the lifecycle of an account within the school.
type Status string

const (
	StatusActive    Status = "active"
	StatusGraduated Status = "graduated"
	StatusSuspended Status = "suspended"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusGraduated, StatusSuspended:
		return true
	}
	return false
}

type User struct {
	ID              string      `json:"id"`
	FirstName       string      `json:"first_name"`
	LastName        string      `json:"last_name"`
	Email           string      `json:"email"`
	AdmissionNumber null.String `json:"admission_number,omitempty"`
	Role            Role        `json:"role"`
	Status          Status      `json:"status"`
	EmailConfirmed  bool        `json:"email_confirmed"`
	PasswordHash    []byte      `json:"-"`
	CreatedAt       time.Time   `json:"created_at"` // UTC
	UpdatedAt       time.Time   `json:"updated_at"` // UTC
	LastLogin       time.Time   `json:"last_login"` // UTC
}

func (u *User) FullName() string {
	return core.CleanString(u.FirstName + " " + u.LastName)
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsParent() bool  { return u.Role == RoleParent }

func (u *User) IsActive() bool { return u.Status == StatusActive }

// NewUser contains information needed to register a new User.
type NewUser struct {
	FirstName       string `json:"first_name" validate:"required,max=50"`
	LastName        string `json:"last_name" validate:"required,max=50"`
	Email           string `json:"email" validate:"required,email"`
	AdmissionNumber string `json:"admission_number" validate:"omitempty,max=20,admission_number"`
	Role            string `json:"role" validate:"required,role"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.AdmissionNumber = core.CleanString(nu.AdmissionNumber)
	nu.Role = core.CleanString(nu.Role, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Role and Status changes are admin-only; the handler enforces that.
type UpdateUser struct {
	FirstName       string `json:"first_name" validate:"omitempty,max=50"`
	LastName        string `json:"last_name" validate:"omitempty,max=50"`
	Email           string `json:"email" validate:"omitempty,email"`
	AdmissionNumber string `json:"admission_number" validate:"omitempty,max=20,admission_number"`
	Role            string `json:"role" validate:"omitempty,role"`
	Status          string `json:"status" validate:"omitempty,status"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	if fname := core.CleanString(uu.FirstName); fname != "" {
		uu.FirstName = fname
	} else {
		uu.FirstName = origUsr.FirstName
	}
	if lname := core.CleanString(uu.LastName); lname != "" {
		uu.LastName = lname
	} else {
		uu.LastName = origUsr.LastName
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	uu.AdmissionNumber = core.CleanString(uu.AdmissionNumber)
	uu.Role = core.CleanString(uu.Role, true /* lower */)
	uu.Status = core.CleanString(uu.Status, true /* lower */)

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(uu.Email, origUsr)
}

type QueryFilter struct {
	// Search does a case-insensitive match on FirstName, LastName, Email
	// or AdmissionNumber; it also matches a Role when it parses as one.
	Search      string    `query:"q"`
	Role        string    `query:"role"`
	Status      string    `query:"status"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.Status == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
