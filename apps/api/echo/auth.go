package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/account"
	"github.com/mwanzohq/mwanzo/core/school"
)

const (
	claimsContextKey = "userToken"
	userContextKey   = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
// StudentID/TeacherID are the caller's profile IDs, resolved once at
// token issuance so scoped endpoints need no extra lookup.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	StudentID    int    `json:"student_id,omitempty"`
	TeacherID    int    `json:"teacher_id,omitempty"`
}

// AccountRole maps the raw role claim back onto the closed Role enum.
func (c Claims) AccountRole() (account.Role, bool) {
	return account.ParseRole(c.Role)
}

type authenticator struct {
	conf      *core.Config
	usrSvc    account.ServiceInterface
	schoolSvc *school.Service
}

func (a *authenticator) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(a.conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    claimsContextKey,
		Claims:        new(Claims),
	}
}

// claimsFor builds the Claims for usr, resolving the matching profile ID
// for student and teacher accounts. A missing profile is not an error:
// the account may not be enrolled yet.
func (a *authenticator) claimsFor(ctx context.Context, usr account.User, origIat ...int64) (*Claims, error) {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
		Role:         usr.Role.String(),
	}

	switch usr.Role {
	case account.RoleStudent:
		std, err := a.schoolSvc.GetStudentByUserID(ctx, usr.ID)
		if err == nil {
			claims.StudentID = std.ID
		} else if errors.Cause(err) != school.ErrStudentNotFound {
			return nil, errors.Wrap(err, "resolving student profile")
		}
	case account.RoleTeacher:
		tch, err := a.schoolSvc.GetTeacherByUserID(ctx, usr.ID)
		if err == nil {
			claims.TeacherID = tch.ID
		} else if errors.Cause(err) != school.ErrTeacherNotFound {
			return nil, errors.Wrap(err, "resolving teacher profile")
		}
	}
	return claims, nil
}

func (a *authenticator) authenticate(ctx context.Context, email, pwd string) (*Claims, error) {
	usr, err := a.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !usr.EmailConfirmed {
		return nil, errEmailNotConfirmed
	}
	if !usr.IsActive() {
		return nil, errAccountDeactivated
	}
	usr, err = a.usrSvc.SetLastLogin(ctx, usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return a.claimsFor(ctx, usr)
}

// generateToken generates a signed JWT token string representing the user Claims.
func (a *authenticator) generateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)

	ss, err := token.SignedString([]byte(a.conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, a.usrSvc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.IsActive() {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims, err := a.claimsFor(ctx.Request().Context(), usr, claims.OrigIssuedAt)
	if err != nil {
		return "", err
	}
	token, err := a.generateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(claimsContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc account.ServiceInterface, clms ...Claims) (account.User, error) {
	if usr, ok := ctx.Get(userContextKey).(account.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return account.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return account.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(userContextKey, usr)
	return usr, nil
}
