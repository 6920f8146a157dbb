package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/saifdine/daura/core"
	"github.com/saifdine/daura/core/user"
)

// addSuperUser creates an admin account, or promotes and re-keys an existing
// one when the email is already taken.
func (cli *commandLine) addSuperUser(name, email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		_, err = cli.usrSvc.Create(ctx, user.NewUser{
			Name:            name,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           user.AllRoles,
		})
		return err
	}

	active := true
	_, err = cli.usrSvc.Update(ctx, usr.ID, user.UpdateUser{
		Name:            name,
		IsActive:        &active,
		Roles:           user.AllRoles,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	return err
}
