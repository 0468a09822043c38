package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/account"
	"github.com/mwanzohq/mwanzo/core/audit"
)

type authApi struct {
	auth     *authenticator
	svc      account.ServiceInterface
	auditSvc *audit.Service
	validate *validator.Validate
}

func registerAuthAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc account.ServiceInterface,
	auditSvc *audit.Service,
	validate *validator.Validate,
) {
	api := authApi{
		auth:     auth,
		svc:      svc,
		auditSvc: auditSvc,
		validate: validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login` & `/register`
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.GET("/confirm-email", api.confirmEmail) // emailed link
	ag.POST("/confirm-email", api.confirmEmail)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *authApi) register(ctx echo.Context) error {
	var data account.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	api.auditSvc.Record(ctx.Request().Context(), usr.ID, "register", "user", usr.ID, usr.Email)

	return ctx.JSON(http.StatusCreated, usr)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := api.auth.authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.auth.generateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) confirmEmail(ctx echo.Context) error {
	var data ConfirmEmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmEmailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.ConfirmEmail(ctx.Request().Context(), data.UID, data.Token)
	if err != nil {
		switch errors.Cause(err) {
		case account.ErrNotFound, account.ErrInvalidToken, account.ErrTokenExpired, account.ErrAlreadyConfirm:
			return core.NewValidationError(errors.Cause(err))
		}
		return errors.Wrap(err, "confirming email")
	}
	api.auditSvc.Record(ctx.Request().Context(), usr.ID, "confirm-email", "user", usr.ID, "")

	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Email address confirmed. You can now log in."})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	ConfirmEmailRequest struct {
		UID   string `json:"uid" query:"uid" validate:"required"`
		Token string `json:"token" query:"token" validate:"required"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (cr *ConfirmEmailRequest) Validate(validate *validator.Validate) error {
	cr.UID = core.CleanString(cr.UID)
	cr.Token = core.CleanString(cr.Token)
	return validate.Struct(cr)
}
