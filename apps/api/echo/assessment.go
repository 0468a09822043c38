package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core/account"
	"github.com/mwanzohq/mwanzo/core/assessment"
	"github.com/mwanzohq/mwanzo/core/audit"
)

type assessmentApi struct {
	svc      *assessment.Service
	auditSvc *audit.Service
	validate *validator.Validate
}

func registerAssessmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *assessment.Service,
	auditSvc *audit.Service,
	validate *validator.Validate,
) {
	api := assessmentApi{
		svc:      svc,
		auditSvc: auditSvc,
		validate: validate,
	}

	eg := g.Group("/exams", jwt)
	eg.POST("", api.createExam, staffMiddleware())
	eg.GET("", api.queryExams)
	eg.GET("/:id", api.retrieveExam)
	eg.PUT("/:id", api.updateExam, staffMiddleware())
	eg.DELETE("/:id", api.destroyExam, adminMiddleware())

	gg := g.Group("/grades", jwt)
	gg.POST("", api.createGrade, staffMiddleware())
	gg.GET("/student/:id", api.queryGradesByStudent)
	gg.PUT("/:id", api.updateGrade, staffMiddleware())
	gg.DELETE("/:id", api.destroyGrade, staffMiddleware())
}

// Exam handlers

func (api *assessmentApi) createExam(ctx echo.Context) error {
	var data assessment.NewExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	exam, err := api.svc.CreateExam(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	api.audit(ctx, "create", "exam", exam.ID, exam.Name)
	return ctx.JSON(http.StatusCreated, exam)
}

func (api *assessmentApi) queryExams(ctx echo.Context) error {
	var classID *int
	if raw := ctx.QueryParam("class_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return ctx.JSON(http.StatusOK, []assessment.Exam{})
		}
		classID = &id
	}

	exams, err := api.svc.QueryExams(ctx.Request().Context(), classID)
	if err != nil {
		return errors.Wrap(err, "querying exams")
	}
	if exams == nil {
		exams = []assessment.Exam{}
	}
	return ctx.JSON(http.StatusOK, exams)
}

func (api *assessmentApi) retrieveExam(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	exam, err := api.svc.GetExam(ctx.Request().Context(), id)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "finding exam"), assessment.ErrExamNotFound)
	}
	return ctx.JSON(http.StatusOK, exam)
}

func (api *assessmentApi) updateExam(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data assessment.NewExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	exam, err := api.svc.UpdateExam(ctx.Request().Context(), id, data)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "updating exam"), assessment.ErrExamNotFound)
	}
	api.audit(ctx, "update", "exam", exam.ID, "")
	return ctx.JSON(http.StatusOK, exam)
}

func (api *assessmentApi) destroyExam(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.DeleteExam(ctx.Request().Context(), id); err != nil {
		return httpNotFound(errors.Wrap(err, "deleting exam"), assessment.ErrExamNotFound)
	}
	api.audit(ctx, "delete", "exam", id, "")
	return ctx.NoContent(http.StatusNoContent)
}

// Grade handlers

func (api *assessmentApi) createGrade(ctx echo.Context) error {
	var data assessment.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.CreateGrade(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	api.audit(ctx, "create", "grade", grade.ID, strconv.FormatFloat(grade.Marks, 'f', -1, 64))
	return ctx.JSON(http.StatusCreated, grade)
}

// queryGradesByStudent serves staff for any student, and a student for
// their own grades only.
func (api *assessmentApi) queryGradesByStudent(ctx echo.Context) error {
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

	grades, err := api.svc.QueryGradesByStudent(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []assessment.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *assessmentApi) updateGrade(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data assessment.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.UpdateGrade(ctx.Request().Context(), id, data)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "updating grade"), assessment.ErrGradeNotFound)
	}
	api.audit(ctx, "update", "grade", grade.ID, "")
	return ctx.JSON(http.StatusOK, grade)
}

func (api *assessmentApi) destroyGrade(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.DeleteGrade(ctx.Request().Context(), id); err != nil {
		return httpNotFound(errors.Wrap(err, "deleting grade"), assessment.ErrGradeNotFound)
	}
	api.audit(ctx, "delete", "grade", id, "")
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assessmentApi) audit(ctx echo.Context, action, entity string, id int, details string) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return
	}
	api.auditSvc.Record(ctx.Request().Context(), claims.Subject, action, entity, strconv.Itoa(id), details)
}
