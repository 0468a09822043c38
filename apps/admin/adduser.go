package main

import (
	"context"
	"fmt"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/account"
)

// addUser updates or creates an account.User. CLI-created accounts are
// pre-confirmed and active.
func (cli *commandLine) addUser(email, first, last, role, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	parsedRole, ok := account.ParseRole(role)
	if !ok {
		return fmt.Errorf("invalid role %q", role)
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != account.ErrNotFound {
			return err
		}
		usr = account.User{
			Email:          email,
			FirstName:      core.CleanString(first),
			LastName:       core.CleanString(last),
			Role:           parsedRole,
			Status:         account.StatusActive,
			EmailConfirmed: true,
		}
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	usr.Role = parsedRole
	usr.Status = account.StatusActive
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	confirmed := true
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &confirmed)
	return err
}
