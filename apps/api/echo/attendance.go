package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core/account"
	"github.com/mwanzohq/mwanzo/core/attendance"
	"github.com/mwanzohq/mwanzo/core/audit"
)

type attendanceApi struct {
	svc      *attendance.Service
	auditSvc *audit.Service
	validate *validator.Validate
}

func registerAttendanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *attendance.Service,
	auditSvc *audit.Service,
	validate *validator.Validate,
) {
	api := attendanceApi{
		svc:      svc,
		auditSvc: auditSvc,
		validate: validate,
	}

	ag := g.Group("/attendance", jwt)
	ag.POST("", api.mark, staffMiddleware())
	ag.GET("/student/:id", api.queryByStudent)
	ag.PUT("/:id", api.update, adminMiddleware())
	ag.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.Mark(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	api.audit(ctx, "create", rec.ID, rec.Date.Format("2006-01-02"))
	return ctx.JSON(http.StatusCreated, rec)
}

// queryByStudent serves staff for any student, and a student for their
// own records only. Optional `from`/`to` query params bound the dates.
func (api *attendanceApi) queryByStudent(ctx echo.Context) error {
	studentID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	role, ok := claims.AccountRole()
	if !ok {
		return errHttpForbidden
	}
	switch role {
	case account.RoleAdmin, account.RoleTeacher:
	case account.RoleStudent:
		if claims.StudentID != studentID {
			return errHttpForbidden
		}
	default:
		return errHttpForbidden
	}

	from, err := dateQueryParam(ctx, "from")
	if err != nil {
		return err
	}
	to, err := dateQueryParam(ctx, "to")
	if err != nil {
		return err
	}

	records, err := api.svc.QueryByStudent(ctx.Request().Context(), studentID, from, to)
	if err != nil {
		return errors.Wrap(err, "querying records")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data attendance.UpdateRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	rec, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "updating record"), attendance.ErrNotFound)
	}
	api.audit(ctx, "update", rec.ID, "")
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return httpNotFound(errors.Wrap(err, "deleting record"), attendance.ErrNotFound)
	}
	api.audit(ctx, "delete", id, "")
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) audit(ctx echo.Context, action string, id int, details string) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return
	}
	api.auditSvc.Record(ctx.Request().Context(), claims.Subject, action, "attendance_record", strconv.Itoa(id), details)
}

// dateQueryParam parses an optional YYYY-MM-DD query param.
func dateQueryParam(ctx echo.Context, name string) (*time.Time, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be a YYYY-MM-DD date")
	}
	return &t, nil
}
