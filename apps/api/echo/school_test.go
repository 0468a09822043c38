package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mwanzohq/mwanzo/core/account"
	"github.com/mwanzohq/mwanzo/core/school"
)

func (app *testApp) createClass(t *testing.T, name string) school.Class {
	t.Helper()
	cls, err := app.schoolSvc.CreateClass(context.Background(), school.NewClass{Name: name})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return cls
}

func (app *testApp) createSubject(t *testing.T, name string) school.Subject {
	t.Helper()
	sub, err := app.schoolSvc.CreateSubject(context.Background(), school.NewSubject{Name: name})
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return sub
}

func (app *testApp) enrollStudent(t *testing.T, usr account.User, classID *int) school.Student {
	t.Helper()
	std, err := app.schoolSvc.CreateStudent(context.Background(), school.NewStudent{UserID: usr.ID, ClassID: classID})
	if err != nil {
		t.Fatalf("enrollStudent() failed: %v", err)
	}
	return std
}

func (app *testApp) hireTeacher(t *testing.T, usr account.User) school.Teacher {
	t.Helper()
	tch, err := app.schoolSvc.CreateTeacher(context.Background(), school.NewTeacher{UserID: usr.ID})
	if err != nil {
		t.Fatalf("hireTeacher() failed: %v", err)
	}
	return tch
}

func Test_schoolApi_classes(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Admin", "Boss", "admin@test.cd", "LordOfTheRings", account.RoleAdmin, true)
	student := app.createUser(t, "Stu", "Dent", "student@test.cd", "LordOfTheRings", account.RoleStudent, true)
	adminToken := app.getToken(t, admin)
	studentToken := app.getToken(t, student)

	t.Run("create requires admin", func(t *testing.T) {
		body := marchallObj(t, school.NewClass{Name: "Form 1"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", studentToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	var created school.Class
	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, school.NewClass{Name: "Form 1", Description: "first years"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", adminToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		body := marchallObj(t, school.NewClass{Name: "Form 1"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", adminToken, body)
		app.server.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "a class with this name already exists"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("name is required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", adminToken, []byte("{}"))
		app.server.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("any authed user lists classes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes", studentToken)
		app.server.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, created)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("update", func(t *testing.T) {
		body := marchallObj(t, school.UpdateClass{Description: "the first years"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/classes/1", adminToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var cls school.Class
		if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if cls.Name != "Form 1" || cls.Description != "the first years" {
			t.Errorf("unexpected class %+v", cls)
		}
	})

	t.Run("unknown id 404s", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/999", adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/classes/1", adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNoContent)
		}
	})
}

func Test_schoolApi_students(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Admin", "Boss", "admin@test.cd", "LordOfTheRings", account.RoleAdmin, true)
	stuUsr := app.createUser(t, "Stu", "Dent", "student@test.cd", "LordOfTheRings", account.RoleStudent, true)
	tchUsr := app.createUser(t, "Tea", "Cher", "teacher@test.cd", "LordOfTheRings", account.RoleTeacher, true)
	adminToken := app.getToken(t, admin)

	cls := app.createClass(t, "Form 1")

	t.Run("enroll", func(t *testing.T) {
		body := marchallObj(t, school.NewStudent{UserID: stuUsr.ID, ClassID: &cls.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", adminToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})

	t.Run("wrong role account is rejected", func(t *testing.T) {
		body := marchallObj(t, school.NewStudent{UserID: tchUsr.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", adminToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("duplicate profile is rejected", func(t *testing.T) {
		body := marchallObj(t, school.NewStudent{UserID: stuUsr.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", adminToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("teacher lists students", func(t *testing.T) {
		app.hireTeacher(t, tchUsr)
		req, rec := newAuthRequest(http.MethodGet, "/v1/students", app.getToken(t, tchUsr))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var students []school.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &students); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(students) != 1 || students[0].UserID != stuUsr.ID {
			t.Errorf("unexpected students %+v", students)
		}
	})
}

func Test_schoolApi_assignSubjects(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Admin", "Boss", "admin@test.cd", "LordOfTheRings", account.RoleAdmin, true)
	tchUsr := app.createUser(t, "Tea", "Cher", "teacher@test.cd", "LordOfTheRings", account.RoleTeacher, true)
	adminToken := app.getToken(t, admin)

	tch := app.hireTeacher(t, tchUsr)
	cls := app.createClass(t, "Form 1")
	math := app.createSubject(t, "Mathematics")
	bio := app.createSubject(t, "Biology")

	body := marchallObj(t, AssignSubjectsRequest{Assignments: []school.NewAssignment{
		{TeacherID: tch.ID, SubjectID: math.ID, ClassID: cls.ID},
		{TeacherID: tch.ID, SubjectID: bio.ID, ClassID: cls.ID},
		{TeacherID: tch.ID, SubjectID: math.ID, ClassID: cls.ID}, // dup: skipped
		{TeacherID: tch.ID, SubjectID: 999, ClassID: cls.ID},     // unknown subject: skipped
	}})
	req, rec := newAuthRequest(http.MethodPost, "/v1/teachers/assign-subjects", adminToken, body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var res school.AssignmentResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if res.AssignedCount != 2 {
		t.Errorf("AssignedCount = %d; want 2", res.AssignedCount)
	}
	if res.SkippedCount != 2 {
		t.Errorf("SkippedCount = %d; want 2", res.SkippedCount)
	}
}
