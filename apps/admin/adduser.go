package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

// addUser updates or creates an active user.User. Admins get every admin role, others are students.
func (cli *commandLine) addUser(ctx context.Context, name, uname, email, pwd string, isAdmin bool) (user.User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	lookup := uname
	if lookup == "" {
		lookup = email
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: lookup})
	create := false
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, errors.Wrap(err, "finding user")
		}
		create = true
		usr = user.User{Username: uname, Email: email, Roles: []string{user.RoleStudent}, CreatedAt: time.Now().UTC()}
	}

	if name = core.CleanString(name); name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = usr.Username
	}
	if email != "" {
		usr.Email = email
	}
	if isAdmin {
		usr.Roles = append([]string(nil), user.AdminRoles...)
	}
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, errors.Wrap(err, "setting password")
	}

	if create {
		usr, err = cli.usrRepo.CreateUser(ctx, usr)
		return usr, errors.Wrap(err, "creating user")
	}
	usr, err = cli.usrRepo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}
