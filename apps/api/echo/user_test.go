package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mwanzohq/mwanzo/core/account"
)

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Admin", "Boss", "admin@test.cd", "LordOfTheRings", account.RoleAdmin, true)
	teacher := app.createUser(t, "Tea", "Cher", "teacher@test.cd", "LordOfTheRings", account.RoleTeacher, true)
	student := app.createUser(t, "Stu", "Dent", "student@test.cd", "LordOfTheRings", account.RoleStudent, true)

	adminToken := app.getToken(t, admin)

	path := func(params map[string]string) string {
		v := make(url.Values)
		for k, val := range params {
			v.Add(k, val)
		}
		return "/v1/users?" + v.Encode()
	}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: app.getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", path: "/v1/users", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, admin, teacher, student),
		},
		{
			name: "filter by role", path: path(map[string]string{"role": "teacher"}), token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, teacher),
		},
		{
			name: "search by name", path: path(map[string]string{"q": "dent"}), token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, student),
		},
		{
			name: "search (unknown)", path: path(map[string]string{"q": "lol"}), token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_detail(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Admin", "Boss", "admin@test.cd", "LordOfTheRings", account.RoleAdmin, true)
	student := app.createUser(t, "Stu", "Dent", "student@test.cd", "LordOfTheRings", account.RoleStudent, true)
	other := app.createUser(t, "Other", "Dude", "other@test.cd", "LordOfTheRings", account.RoleStudent, true)

	adminToken := app.getToken(t, admin)
	studentToken := app.getToken(t, student)

	t.Run("self retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+student.ID, studentToken)
		app.server.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, student)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("peeking at others 404s", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, studentToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("admin retrieves anyone", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, adminToken)
		app.server.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, other)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("self update cannot touch role", func(t *testing.T) {
		body := marchallObj(t, account.UpdateUser{Role: "admin"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, studentToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("self update names", func(t *testing.T) {
		body := marchallObj(t, account.UpdateUser{FirstName: "Stuart"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, studentToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr account.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if usr.FirstName != "Stuart" {
			t.Errorf("FirstName = %s; want Stuart", usr.FirstName)
		}
	})

	t.Run("admin cannot delete themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin deletes another", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+other.ID, adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Admin", "Boss", "admin@test.cd", "LordOfTheRings", account.RoleAdmin, true)
	adminToken := app.getToken(t, admin)

	body := marchallObj(t, account.NewUser{
		FirstName:       "New",
		LastName:        "Teacher",
		Email:           "newt@test.cd",
		Role:            "teacher",
		Password:        "LordOfTheRings",
		PasswordConfirm: "LordOfTheRings",
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/users", adminToken, body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var usr account.User
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if !usr.EmailConfirmed {
		t.Error("expected an admin-created account to be pre-confirmed")
	}
}

func Test_userApi_export(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Admin", "Boss", "admin@test.cd", "LordOfTheRings", account.RoleAdmin, true)
	app.createUser(t, "Tea", "Cher", "teacher@test.cd", "LordOfTheRings", account.RoleTeacher, true)

	req, rec := newAuthRequest(http.MethodGet, "/v1/users/export", app.getToken(t, admin))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Users")
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 accounts
}
