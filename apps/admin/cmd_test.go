package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/mwanzohq/mwanzo/core/account"
	inmemdb "github.com/mwanzohq/mwanzo/storage/database/inmem"
)

func setup(t *testing.T) (*commandLine, account.Repository) {
	t.Helper()
	usrRepo := inmemdb.NewUserRepository(inmemdb.Open())
	return &commandLine{usrRepo: usrRepo}, usrRepo
}

func createUser(t *testing.T, repo account.Repository, email, pwd string, role account.Role) account.User {
	t.Helper()
	usr := account.User{
		FirstName:      "Test",
		LastName:       "User",
		Email:          email,
		Role:           role,
		Status:         account.StatusActive,
		EmailConfirmed: true,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed, %v", err)
	}
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, usrRepo := setup(t)

	usr := createUser(t, usrRepo, "awe@test.cd", "mdr", account.RoleTeacher)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: extra{pwd: "lol"}, wantErr: account.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, usrRepo := setup(t)

	existing := createUser(t, usrRepo, "old@test.cd", "mdr", account.RoleStudent)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("sikret"), nil }

	t.Run("creates a pre-confirmed admin", func(t *testing.T) {
		args := []string{"admin", "adduser", "-email", "boss@test.cd", "-first", "Big", "-last", "Boss"}
		if err := cli.run(args); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}

		usr, err := usrRepo.GetUserByEmail(context.Background(), "boss@test.cd")
		if err != nil {
			t.Fatalf("GetUserByEmail() failed, %v", err)
		}
		if !usr.IsAdmin() {
			t.Errorf("Role = %s; want admin", usr.Role)
		}
		if !usr.EmailConfirmed {
			t.Error("expected account to be pre-confirmed")
		}
		if err := usr.CheckPassword("sikret"); err != nil {
			t.Error("password not set")
		}
	})

	t.Run("updates an existing account", func(t *testing.T) {
		args := []string{"admin", "adduser", "-email", existing.Email, "-role", "teacher"}
		if err := cli.run(args); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}

		usr, err := usrRepo.GetUserByID(context.Background(), existing.ID)
		if err != nil {
			t.Fatalf("GetUserByID() failed, %v", err)
		}
		if !usr.IsTeacher() {
			t.Errorf("Role = %s; want teacher", usr.Role)
		}
		if bytes.Equal(usr.PasswordHash, existing.PasswordHash) {
			t.Error("failed to update password")
		}
	})

	t.Run("rejects an unknown role", func(t *testing.T) {
		args := []string{"admin", "adduser", "-email", "x@test.cd", "-role", "headmaster"}
		err := cli.run(args)
		if err == nil || err.Error() != `invalid role "headmaster"` {
			t.Errorf("cli.run() error = %v; want invalid role", err)
		}
	})
}
