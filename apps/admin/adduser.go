package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/user"
)

var cliRoles = map[string][]string{
	"admin":   user.AdminRoles,
	"teacher": user.TeacherRoles,
	"student": user.StudentRoles,
}

// addUser updates or creates an active user.User with the given role.
func (cli *commandLine) addUser(name, uname, email, role, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	roles, ok := cliRoles[core.CleanString(role, true)]
	if !ok {
		return fmt.Errorf("unknown role %q", role)
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	isNew := err == user.ErrNotFound
	if err != nil && !isNew {
		return err
	}
	if isNew {
		now := time.Now().UTC()
		usr = user.User{Email: email, CreatedAt: now}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if uname != "" {
		usr.Username = uname
	}
	if err = cli.usrRepo.CheckUsernameUniqueness(ctx, usr.Username, "", usr); err != nil {
		return err
	}
	usr.Roles = roles
	usr.UpdatedAt = time.Now().UTC()
	usr.SetActive(true)
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if isNew {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
