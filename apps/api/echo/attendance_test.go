package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/mwanzohq/mwanzo/core/account"
	"github.com/mwanzohq/mwanzo/core/attendance"
)

func Test_attendanceApi(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Admin", "Boss", "admin@test.cd", "LordOfTheRings", account.RoleAdmin, true)
	tchUsr := app.createUser(t, "Tea", "Cher", "teacher@test.cd", "LordOfTheRings", account.RoleTeacher, true)
	stuUsr := app.createUser(t, "Stu", "Dent", "student@test.cd", "LordOfTheRings", account.RoleStudent, true)
	otherUsr := app.createUser(t, "Other", "Dude", "other@test.cd", "LordOfTheRings", account.RoleStudent, true)

	cls := app.createClass(t, "Form 1")
	app.hireTeacher(t, tchUsr)
	std := app.enrollStudent(t, stuUsr, &cls.ID)
	other := app.enrollStudent(t, otherUsr, &cls.ID)

	adminToken := app.getToken(t, admin)
	teacherToken := app.getToken(t, tchUsr)
	studentToken := app.getToken(t, stuUsr)

	day := time.Date(2026, time.March, 2, 10, 30, 0, 0, time.UTC) // mid-morning; date part is kept

	t.Run("teacher marks attendance", func(t *testing.T) {
		body := marchallObj(t, attendance.NewRecord{StudentID: std.ID, Date: day, IsPresent: true})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", teacherToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var rec0 attendance.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &rec0); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if !rec0.IsLocked {
			t.Error("expected the record to be locked on creation")
		}
		if !rec0.Date.Equal(time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Date = %v; want midnight UTC", rec0.Date)
		}
	})

	t.Run("student cannot mark attendance", func(t *testing.T) {
		body := marchallObj(t, attendance.NewRecord{StudentID: std.ID, Date: day.AddDate(0, 0, 1), IsPresent: true})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", studentToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("same day twice is rejected", func(t *testing.T) {
		body := marchallObj(t, attendance.NewRecord{StudentID: std.ID, Date: day.Add(3 * time.Hour), IsPresent: false})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", teacherToken, body)
		app.server.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "attendance already marked for this student on this date"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("locked record rejects edits", func(t *testing.T) {
		present := false
		body := marchallObj(t, attendance.UpdateRecord{IsPresent: &present})
		req, rec := newAuthRequest(http.MethodPut, "/v1/attendance/1", adminToken, body)
		app.server.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "attendance record is locked"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("student reads own records", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance/student/"+strconv.Itoa(std.ID), studentToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var records []attendance.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("len(records) = %d; want 1", len(records))
		}
	})

	t.Run("student cannot read another student's records", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance/student/"+strconv.Itoa(other.ID), studentToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("date range filter", func(t *testing.T) {
		path := "/v1/attendance/student/" + strconv.Itoa(std.ID) + "?from=2026-03-03&to=2026-03-09"
		req, rec := newAuthRequest(http.MethodGet, path, teacherToken)
		app.server.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("garbled date filter is rejected", func(t *testing.T) {
		path := "/v1/attendance/student/" + strconv.Itoa(std.ID) + "?from=lol"
		req, rec := newAuthRequest(http.MethodGet, path, teacherToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("admin deletes a record", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/attendance/1", adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNoContent)
		}
	})
}
