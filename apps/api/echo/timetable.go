package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/audit"
	"github.com/mwanzohq/mwanzo/core/timetable"
	"github.com/mwanzohq/mwanzo/services/metrics"
)

type timetableApi struct {
	svc      *timetable.Service
	auditSvc *audit.Service
	validate *validator.Validate
}

func registerTimetableAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *timetable.Service,
	auditSvc *audit.Service,
	validate *validator.Validate,
) {
	api := timetableApi{
		svc:      svc,
		auditSvc: auditSvc,
		validate: validate,
	}

	tg := g.Group("/timetable", jwt)
	tg.POST("", api.create, adminMiddleware())
	tg.GET("/class/:id", api.queryByClass)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update, adminMiddleware())
	tg.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *timetableApi) create(ctx echo.Context) error {
	var data timetable.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}

	entry, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return api.conflictError(errors.Wrap(err, "creating entry"))
	}
	api.audit(ctx, "create", entry.ID)
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *timetableApi) queryByClass(ctx echo.Context) error {
	classID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	entries, err := api.svc.QueryByClass(ctx.Request().Context(), classID)
	if err != nil {
		return errors.Wrap(err, "querying entries")
	}
	if entries == nil {
		entries = []timetable.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *timetableApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	entry, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "finding entry"), timetable.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *timetableApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data timetable.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}

	entry, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return api.conflictError(httpNotFound(errors.Wrap(err, "updating entry"), timetable.ErrNotFound))
	}
	api.audit(ctx, "update", entry.ID)
	return ctx.JSON(http.StatusOK, entry)
}

func (api *timetableApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return httpNotFound(errors.Wrap(err, "deleting entry"), timetable.ErrNotFound)
	}
	api.audit(ctx, "delete", id)
	return ctx.NoContent(http.StatusNoContent)
}

// conflictError counts rejected conflicting writes and normalizes the
// repository's raced-constraint error to the same 400 as the pre-check.
func (api *timetableApi) conflictError(err error) error {
	switch cause := errors.Cause(err).(type) {
	case *core.ValidationError:
		if cause.Err == timetable.ErrConflict {
			metrics.TimetableConflicts.Inc()
		}
	default:
		if errors.Cause(err) == timetable.ErrConflict {
			metrics.TimetableConflicts.Inc()
			return core.NewValidationError(timetable.ErrConflict)
		}
	}
	return err
}

func (api *timetableApi) audit(ctx echo.Context, action string, id int) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return
	}
	api.auditSvc.Record(ctx.Request().Context(), claims.Subject, action, "timetable_entry", strconv.Itoa(id), "")
}
