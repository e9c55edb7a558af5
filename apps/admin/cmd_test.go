package main

import (
	"context"
	"database/sql"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/tests"
)

func setup(t *testing.T) *commandLine {
	t.Helper()
	return &commandLine{
		usrRepo: inmemdb.NewUserRepository(inmemdb.Open()),
		out:     io.Discard,
	}
}

func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		assert.EqualError(t, err, tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var gotCommand string
	var gotArgs []string
	orig := migrateFunc
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		gotCommand, gotArgs = command, args
		if command == "lol" {
			return errors.New(`"lol": no such command`)
		}
		return nil
	}
	t.Cleanup(func() { migrateFunc = orig })

	tests := []struct {
		cliTest
		wantCommand string
		wantArgs    []string
	}{
		{cliTest: cliTest{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`}, wantCommand: "lol", wantArgs: []string{}},
		{cliTest: cliTest{name: "up", args: []string{"migrate", "up"}}, wantCommand: "up", wantArgs: []string{}},
		{cliTest: cliTest{name: "up-to", args: []string{"migrate", "up-to", "2"}}, wantCommand: "up-to", wantArgs: []string{"2"}},
		{cliTest: cliTest{name: "create", args: []string{"migrate", "create", "course", "sql"}}, wantCommand: "create", wantArgs: []string{"course", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCommand, gotArgs = "", nil
			tt.check(t, cli.run(tt.args))
			assert.Equal(t, tt.wantCommand, gotCommand)
			assert.Equal(t, tt.wantArgs, gotArgs)
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, cli.usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "admin"`},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "--username", "awe"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "--username", usr.Email}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := cli.run(tt.args)
			tt.check(t, err)
			if err != nil {
				return
			}
			refreshed, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.pwd))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	existing := testutil.CreateUser(t, cli.usrRepo, "Old Name", "old", "old@test.cd", "mdr", []string{user.RoleStudent}, false)

	tests := []struct {
		cliTest
		lookup    string
		wantName  string
		wantRoles []string
	}{
		{cliTest: cliTest{name: "no identifiers", args: []string{"adduser"}, pwd: "x", wantErr: errHelp}},
		{cliTest: cliTest{name: "no password", args: []string{"adduser", "--username", "new"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "unexpected args", args: []string{"adduser", "new"}, pwd: "x", wantErrStr: `unknown command "new" for "admin adduser"`}},
		{
			cliTest:   cliTest{name: "new student", args: []string{"adduser", "--username", "New", "--email", "new@test.cd"}, pwd: "s3cret"},
			lookup:    "new",
			wantName:  "new",
			wantRoles: []string{user.RoleStudent},
		},
		{
			cliTest:   cliTest{name: "new admin", args: []string{"adduser", "--username", "boss", "--name", "The Boss", "--admin"}, pwd: "s3cret"},
			lookup:    "boss",
			wantName:  "The Boss",
			wantRoles: user.AdminRoles,
		},
		{
			cliTest:   cliTest{name: "existing user is activated", args: []string{"adduser", "--email", existing.Email, "--admin"}, pwd: "s3cret"},
			lookup:    existing.Username,
			wantName:  existing.Name,
			wantRoles: user.AdminRoles,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			tt.check(t, cli.run(tt.args))
			if tt.lookup == "" {
				return
			}
			usr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: tt.lookup})
			require.NoError(t, err)
			assert.True(t, usr.IsActive)
			assert.Equal(t, tt.wantName, usr.Name)
			assert.Equal(t, tt.wantRoles, usr.Roles)
			assert.NoError(t, usr.CheckPassword(tt.pwd))
		})
	}

	users, err := cli.usrRepo.QueryUsers(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, users, 3, "existing users are updated in place")
}
