package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eslclass/core/user"
	"github.com/trezcool/eslclass/storage/database/dummy"
	"github.com/trezcool/eslclass/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	usrRepo = dummydb.NewUserRepository(dummydb.Open())
	return &commandLine{usrRepo: usrRepo}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
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
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "lesson_tags", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	existing := testutil.CreateStudent(t, usrRepo, "Juma", "juma@school.test")
	testutil.CreateUser(t, usrRepo, "Taken", "taken", "taken@school.test", "", nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "new@school.test"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-email", "new@school.test", "-role", "janitor"}, extra: "LolC@t123", wantErrStr: `unknown role "janitor"`},
		{
			name: "username taken", args: []string{"adduser", "-email", "new@school.test", "-username", "taken"},
			extra: "LolC@t123", wantErr: user.ErrUsernameExists,
		},
		{name: "create admin", args: []string{"adduser", "-email", " Head@School.test ", "-name", "Head"}, extra: "LolC@t123"},
		{name: "promote existing", args: []string{"adduser", "-email", existing.Email, "-role", "teacher"}, extra: "N3w-P@ss"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(t, pwd)
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	ctx := context.Background()
	head, err := usrRepo.GetUserByEmail(ctx, "head@school.test")
	require.NoError(t, err)
	assert.Equal(t, "Head", head.Name)
	assert.True(t, head.IsAdmin())
	assert.True(t, head.Active())
	assert.NoError(t, head.CheckPassword("LolC@t123"))

	promoted, err := usrRepo.GetUserByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, promoted.IsTeacher())
	assert.Equal(t, "Juma", promoted.Name)
	assert.NoError(t, promoted.CheckPassword("N3w-P@ss"))

	users, err := usrRepo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@school.test", "mdr", nil, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", "AWE@school.test"}, extra: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(t, pwd)
			err := cli.run(append([]string{"admin"}, tt.args...))
			checkErr(t, tt, err)

			if err == nil {
				refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				require.NoError(t, err)
				assert.NoError(t, refreshed.CheckPassword(pwd))
			}
		})
	}
}
