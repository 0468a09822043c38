package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core/audit"
	"github.com/mwanzohq/mwanzo/core/school"
)

type schoolApi struct {
	svc      *school.Service
	auditSvc *audit.Service
	validate *validator.Validate
}

func registerSchoolAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *school.Service,
	auditSvc *audit.Service,
	validate *validator.Validate,
) {
	api := schoolApi{
		svc:      svc,
		auditSvc: auditSvc,
		validate: validate,
	}

	cg := g.Group("/classes", jwt)
	cg.POST("", api.createClass, adminMiddleware())
	cg.GET("", api.queryClasses)
	cg.GET("/:id", api.retrieveClass)
	cg.PUT("/:id", api.updateClass, adminMiddleware())
	cg.DELETE("/:id", api.destroyClass, adminMiddleware())

	sg := g.Group("/subjects", jwt)
	sg.POST("", api.createSubject, adminMiddleware())
	sg.GET("", api.querySubjects)
	sg.GET("/:id", api.retrieveSubject)
	sg.PUT("/:id", api.updateSubject, adminMiddleware())
	sg.DELETE("/:id", api.destroySubject, adminMiddleware())

	stg := g.Group("/students", jwt)
	stg.POST("", api.createStudent, adminMiddleware())
	stg.GET("", api.queryStudents, staffMiddleware())
	stg.GET("/:id", api.retrieveStudent, staffMiddleware())
	stg.PUT("/:id", api.updateStudent, adminMiddleware())
	stg.DELETE("/:id", api.destroyStudent, adminMiddleware())

	tg := g.Group("/teachers", jwt)
	tg.POST("", api.createTeacher, adminMiddleware())
	tg.GET("", api.queryTeachers, adminMiddleware())
	tg.GET("/:id", api.retrieveTeacher, staffMiddleware())
	tg.DELETE("/:id", api.destroyTeacher, adminMiddleware())
	tg.POST("/assign-subjects", api.assignSubjects, adminMiddleware())
}

// Class handlers

func (api *schoolApi) createClass(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	api.audit(ctx, "create", "class", cls.ID, cls.Name)
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	classes, err := api.svc.QueryClasses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolApi) retrieveClass(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	cls, err := api.svc.GetClass(ctx.Request().Context(), id)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "finding class"), school.ErrClassNotFound)
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) updateClass(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	orig, err := api.svc.GetClass(ctx.Request().Context(), id)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "finding class"), school.ErrClassNotFound)
	}

	var data school.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	cls, err := api.svc.UpdateClass(ctx.Request().Context(), id, data)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "updating class"), school.ErrClassNotFound)
	}
	api.audit(ctx, "update", "class", cls.ID, "")
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) destroyClass(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.DeleteClass(ctx.Request().Context(), id); err != nil {
		return httpNotFound(errors.Wrap(err, "deleting class"), school.ErrClassNotFound)
	}
	api.audit(ctx, "delete", "class", id, "")
	return ctx.NoContent(http.StatusNoContent)
}

// Subject handlers

func (api *schoolApi) createSubject(ctx echo.Context) error {
	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	api.audit(ctx, "create", "subject", sub.ID, sub.Name)
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *schoolApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []school.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *schoolApi) retrieveSubject(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	sub, err := api.svc.GetSubject(ctx.Request().Context(), id)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "finding subject"), school.ErrSubjectNotFound)
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *schoolApi) updateSubject(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	orig, err := api.svc.GetSubject(ctx.Request().Context(), id)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "finding subject"), school.ErrSubjectNotFound)
	}

	var data school.UpdateSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	sub, err := api.svc.UpdateSubject(ctx.Request().Context(), id, data)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "updating subject"), school.ErrSubjectNotFound)
	}
	api.audit(ctx, "update", "subject", sub.ID, "")
	return ctx.JSON(http.StatusOK, sub)
}

func (api *schoolApi) destroySubject(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.DeleteSubject(ctx.Request().Context(), id); err != nil {
		return httpNotFound(errors.Wrap(err, "deleting subject"), school.ErrSubjectNotFound)
	}
	api.audit(ctx, "delete", "subject", id, "")
	return ctx.NoContent(http.StatusNoContent)
}

// Student handlers

func (api *schoolApi) createStudent(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	api.audit(ctx, "create", "student", std.ID, std.UserID)
	return ctx.JSON(http.StatusCreated, std)
}

func (api *schoolApi) queryStudents(ctx echo.Context) error {
	var classID *int
	if raw := ctx.QueryParam("class_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return ctx.JSON(http.StatusOK, []school.Student{})
		}
		classID = &id
	}

	students, err := api.svc.QueryStudents(ctx.Request().Context(), classID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []school.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) retrieveStudent(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	std, err := api.svc.GetStudent(ctx.Request().Context(), id)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "finding student"), school.ErrStudentNotFound)
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *schoolApi) updateStudent(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data school.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	std, err := api.svc.UpdateStudent(ctx.Request().Context(), id, data)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "updating student"), school.ErrStudentNotFound)
	}
	api.audit(ctx, "update", "student", std.ID, "")
	return ctx.JSON(http.StatusOK, std)
}

func (api *schoolApi) destroyStudent(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.DeleteStudent(ctx.Request().Context(), id); err != nil {
		return httpNotFound(errors.Wrap(err, "deleting student"), school.ErrStudentNotFound)
	}
	api.audit(ctx, "delete", "student", id, "")
	return ctx.NoContent(http.StatusNoContent)
}

// Teacher handlers

func (api *schoolApi) createTeacher(ctx echo.Context) error {
	var data school.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tch, err := api.svc.CreateTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	api.audit(ctx, "create", "teacher", tch.ID, tch.UserID)
	return ctx.JSON(http.StatusCreated, tch)
}

func (api *schoolApi) queryTeachers(ctx echo.Context) error {
	teachers, err := api.svc.QueryTeachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []school.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *schoolApi) retrieveTeacher(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	tch, err := api.svc.GetTeacher(ctx.Request().Context(), id)
	if err != nil {
		return httpNotFound(errors.Wrap(err, "finding teacher"), school.ErrTeacherNotFound)
	}
	return ctx.JSON(http.StatusOK, tch)
}

func (api *schoolApi) destroyTeacher(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.DeleteTeacher(ctx.Request().Context(), id); err != nil {
		return httpNotFound(errors.Wrap(err, "deleting teacher"), school.ErrTeacherNotFound)
	}
	api.audit(ctx, "delete", "teacher", id, "")
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) assignSubjects(ctx echo.Context) error {
	var data AssignSubjectsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignSubjectsRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	res, err := api.svc.AssignSubjects(ctx.Request().Context(), data.Assignments)
	if err != nil {
		return errors.Wrap(err, "assigning subjects")
	}
	if claims, cErr := getContextClaims(ctx); cErr == nil {
		api.auditSvc.Record(
			ctx.Request().Context(), claims.Subject, "assign-subjects", "teacher", "",
			strconv.Itoa(res.AssignedCount)+" assigned",
		)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *schoolApi) audit(ctx echo.Context, action, entity string, id int, details string) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return
	}
	api.auditSvc.Record(ctx.Request().Context(), claims.Subject, action, entity, strconv.Itoa(id), details)
}

type AssignSubjectsRequest struct {
	Assignments []school.NewAssignment `json:"assignments" validate:"required,min=1,dive"`
}
