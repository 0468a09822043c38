package account

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrNotConfirmed   = errors.New("email address not confirmed")
	ErrInvalidToken   = errors.New("invalid confirmation token")
	ErrTokenExpired   = errors.New("confirmation token expired")
	ErrAlreadyConfirm = errors.New("email address already confirmed")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// UpdateUser updates non-zero fields of usr; confirmed, when non-nil,
		// sets the email-confirmed flag.
		UpdateUser(ctx context.Context, usr User, confirmed *bool) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	ServiceInterface interface {
		CheckEmailUniqueness(email string, exclUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Create(ctx context.Context, nu NewUser, confirmed bool) (User, error)
		ConfirmEmail(ctx context.Context, uid, token string) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		SetPassword(ctx context.Context, usr User, pwd string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	initTokenParams(conf)
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *Service) CheckEmailUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a new unconfirmed User and emails them a confirmation link.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	usr, err := svc.Create(ctx, nu, false /* confirmed */)
	if err != nil {
		return User{}, err
	}
	svc.sendConfirmationEmail(usr)
	return usr, nil
}

// Create persists a new User. Admin-created accounts skip email confirmation.
func (svc *Service) Create(ctx context.Context, nu NewUser, confirmed bool) (User, error) {
	role, ok := ParseRole(nu.Role)
	if !ok {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: roleText})
	}

	now := time.Now().UTC()
	usr := User{
		FirstName:      nu.FirstName,
		LastName:       nu.LastName,
		Email:          nu.Email,
		Role:           role,
		Status:         StatusActive,
		EmailConfirmed: confirmed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if nu.AdmissionNumber != "" {
		usr.AdmissionNumber.SetValid(nu.AdmissionNumber)
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// ConfirmEmail validates a confirmation token and marks the account confirmed.
func (svc *Service) ConfirmEmail(ctx context.Context, uid, token string) (User, error) {
	id, err := DecodeUID(uid)
	if err != nil {
		return User{}, ErrInvalidToken
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidToken
		}
		return User{}, errors.Wrap(err, "finding user by ID")
	}
	if usr.EmailConfirmed {
		return usr, ErrAlreadyConfirm
	}
	if err = verifyToken(usr, token); err != nil {
		return User{}, err
	}

	confirmed := true
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, &confirmed)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		FirstName: uu.FirstName,
		LastName:  uu.LastName,
		Email:     uu.Email,
		UpdatedAt: time.Now().UTC(),
	}
	if uu.AdmissionNumber != "" {
		usr.AdmissionNumber.SetValid(uu.AdmissionNumber)
	}
	if uu.Role != "" {
		role, ok := ParseRole(uu.Role)
		if !ok {
			return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: roleText})
		}
		usr.Role = role
	}
	if uu.Status != "" {
		status := Status(uu.Status)
		if !status.Valid() {
			return User{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: statusText})
		}
		usr.Status = status
	}
	return svc.repo.UpdateUser(ctx, usr, nil)
}

func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	return svc.repo.SetLastLogin(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

func (svc *Service) sendConfirmationEmail(usr User) {
	link := fmt.Sprintf("%s/confirm-email?uid=%s&token=%s", svc.conf.FrontendBaseURL, EncodeUID(usr), makeToken(usr))
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject: "Confirm your email address",
		TextContent: fmt.Sprintf(
			"Hi %s,\n\nWelcome to %s! Please confirm your email address by following this link:\n\n%s\n",
			usr.FirstName, svc.conf.AppName, link,
		),
	})
}
