package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core/account"
	"github.com/mwanzohq/mwanzo/core/dashboard"
)

type dashboardApi struct {
	svc *dashboard.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *dashboard.Service) {
	api := dashboardApi{svc: svc}

	dg := g.Group("/dashboard", jwt)
	dg.GET("/admin", api.adminStats, adminMiddleware())
	dg.GET("/teacher", api.teacherStats, roleMiddleware(account.RoleTeacher))
	dg.GET("/student", api.studentStats, roleMiddleware(account.RoleStudent))
}

// Handlers

func (api *dashboardApi) adminStats(ctx echo.Context) error {
	stats, err := api.svc.AdminStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing admin stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *dashboardApi) teacherStats(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	stats, err := api.svc.TeacherStats(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "computing teacher stats"), dashboard.ErrProfileNotFound)
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *dashboardApi) studentStats(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	stats, err := api.svc.StudentStats(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "computing student stats"), dashboard.ErrProfileNotFound)
	}
	return ctx.JSON(http.StatusOK, stats)
}
