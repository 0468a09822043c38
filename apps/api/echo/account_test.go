package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	"github.com/dgrijalva/jwt-go"

	"github.com/mwanzohq/mwanzo/core/account"
	emailsvc "github.com/mwanzohq/mwanzo/services/email"
)

func Test_authApi_register(t *testing.T) {
	app := setup(t)

	body := marchallObj(t, account.NewUser{
		FirstName:       "Jo",
		LastName:        "Damas",
		Email:           "jo@test.cd",
		Role:            "student",
		Password:        "LordOfTheRings",
		PasswordConfirm: "LordOfTheRings",
	})

	req, rec := newRequest(http.MethodPost, "/v1/auth/register", body)
	app.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var usr account.User
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if usr.EmailConfirmed {
		t.Error("expected a fresh registration to be unconfirmed")
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("SentMessages = %d; want 1", len(emailsvc.SentMessages))
	}

	t.Run("duplicate email is rejected", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/register", body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("malformed admission number is rejected", func(t *testing.T) {
		body := marchallObj(t, account.NewUser{
			FirstName:       "Ade",
			LastName:        "Damas",
			Email:           "ade@test.cd",
			Role:            "student",
			AdmissionNumber: "ADM 2024/001",
			Password:        "LordOfTheRings",
			PasswordConfirm: "LordOfTheRings",
		})
		req, rec := newRequest(http.MethodPost, "/v1/auth/register", body)
		app.server.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"admission_number": "only letters, digits, hyphens and underscores are allowed"}),
		}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_authApi_confirmEmail(t *testing.T) {
	app := setup(t)

	body := marchallObj(t, account.NewUser{
		FirstName:       "Jo",
		LastName:        "Damas",
		Email:           "jo@test.cd",
		Role:            "student",
		Password:        "LordOfTheRings",
		PasswordConfirm: "LordOfTheRings",
	})
	req, rec := newRequest(http.MethodPost, "/v1/auth/register", body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %s", rec.Body.String())
	}

	// pull the confirmation link out of the sent email
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("SentMessages = %d; want 1", len(emailsvc.SentMessages))
	}
	re := regexp.MustCompile(`/confirm-email\?uid=([^&\s]+)&token=([^&\s]+)`)
	match := re.FindStringSubmatch(emailsvc.SentMessages[0].TextContent)
	if match == nil {
		t.Fatalf("no confirmation link in email:\n%s", emailsvc.SentMessages[0].TextContent)
	}
	link, uid, token := match[0], match[1], match[2]

	t.Run("garbage token is rejected", func(t *testing.T) {
		body := marchallObj(t, ConfirmEmailRequest{UID: uid, Token: "lol-lol"})
		req, rec := newRequest(http.MethodPost, "/v1/auth/confirm-email", body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("emailed link confirms", func(t *testing.T) {
		// the link must work as-is, no client needed
		req, rec := newRequest(http.MethodGet, "/v1/auth"+link)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("token is single-use", func(t *testing.T) {
		body := marchallObj(t, ConfirmEmailRequest{UID: uid, Token: token})
		req, rec := newRequest(http.MethodPost, "/v1/auth/confirm-email", body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	usr := app.createUser(t, "Active", "User", "active@test.cd", "LordOfTheRings", account.RoleTeacher, true)
	unconfirmed := app.createUser(t, "Fresh", "User", "fresh@test.cd", "LordOfTheRings", account.RoleStudent, false)

	suspended := app.createUser(t, "Bad", "User", "bad@test.cd", "LordOfTheRings", account.RoleStudent, true)
	if _, err := app.usrSvc.Update(context.Background(), suspended.ID, account.UpdateUser{Status: "suspended"}); err != nil {
		t.Fatalf("suspending user failed: %v", err)
	}

	login := func(email, pwd string) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "empty body", body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown email", body: login("lol@test.cd", "LordOfTheRings"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: login(usr.Email, "lol"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unconfirmed email", body: login(unconfirmed.Email, "LordOfTheRings"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "email address not confirmed"}),
		},
		{
			name: "suspended account", body: login(suspended.Email, "LordOfTheRings"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("valid credentials get a token", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", login(usr.Email, "LordOfTheRings"))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		var res LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		claims := new(Claims)
		_, err := jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(testConfig().SecretKey), nil
		})
		if err != nil {
			t.Fatalf("parsing token: %v", err)
		}
		if claims.Subject != usr.ID {
			t.Errorf("Subject = %s; want %s", claims.Subject, usr.ID)
		}
		if claims.Role != "teacher" {
			t.Errorf("Role = %s; want teacher", claims.Role)
		}
	})
}

func Test_authApi_refreshToken(t *testing.T) {
	app := setup(t)

	usr := app.createUser(t, "Active", "User", "active@test.cd", "LordOfTheRings", account.RoleAdmin, true)
	token := app.getToken(t, usr)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/token-refresh")
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("fresh token refreshes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var res LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if res.Token == "" {
			t.Error("expected a new token")
		}
	})
}
