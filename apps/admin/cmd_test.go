package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.App) {
	app := testutil.NewApp(t)
	return &commandLine{usrSvc: app.UserSvc, translator: app.Translator}, app
}

// mockPasswords makes the password prompt answer with pwds in order, repeating the last one.
func mockPasswords(t *testing.T, pwds ...string) {
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })

	var calls int
	readPasswordFunc = func(fd int) ([]byte, error) {
		if len(pwds) == 0 {
			return nil, nil
		}
		i := calls
		if i >= len(pwds) {
			i = len(pwds) - 1
		}
		calls++
		return []byte(pwds[i]), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	invalid    bool // want a *core.ValidationError
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.True(t, errors.Is(err, tt.wantErr), "cli.run() error = %v, wantErr %v", err, tt.wantErr)
	case tt.invalid:
		var verr *core.ValidationError
		assert.True(t, errors.As(err, &verr), "cli.run() error = %v, want a validation error", err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
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
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course_tags", "sql"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_createAdmin(t *testing.T) {
	cli, app := setup(t)
	ctx := context.Background()

	prof := testutil.CreateUser(t, app.Users, user.RoleProf, "CS", "prof@academia.test", testutil.Unapproved())

	tests := []cliTest{
		{name: "no args", args: []string{"createadmin"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"createadmin", "-email", "root@academia.test"}, wantErr: errHelp},
		{name: "invalid email", args: []string{"createadmin", "-email", "lol"}, extra: []string{"Kin-shasa-243"}, invalid: true},
		{name: "weak password", args: []string{"createadmin", "-email", "root@academia.test"}, extra: []string{"short"}, invalid: true},
		{name: "passwords mismatch", args: []string{"createadmin", "-email", "root@academia.test"}, extra: []string{"Kin-shasa-243", "Kin-shasa-244"}, invalid: true},
		{name: "create", args: []string{"createadmin", "-email", "Root@academia.test"}, extra: []string{"Kin-shasa-243"}},
		{name: "promote existing", args: []string{"createadmin", "-email", prof.Email, "-nom", "Mbala", "-prenom", "Jo"}, extra: []string{"Kin-shasa-243"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			pwds, _ := tt.extra.([]string)
			mockPasswords(t, pwds...)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	root, err := app.UserSvc.GetByEmail(ctx, "root@academia.test")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, root.Role)
	assert.Equal(t, "Admin", root.LastName)
	assert.Equal(t, "System", root.FirstName)
	assert.Equal(t, "Administration", root.Department)
	assert.True(t, root.IsApproved)
	assert.True(t, root.IsActive)
	assert.NoError(t, root.CheckPassword("Kin-shasa-243"))

	promoted, err := app.UserSvc.GetByID(ctx, prof.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, promoted.Role)
	assert.Equal(t, "Mbala", promoted.LastName)
	assert.True(t, promoted.IsApproved)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, app := setup(t)

	usr := testutil.CreateUser(t, app.Users, user.RoleEmployer, "IT", "awe@academia.test")

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@academia.test"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@academia.test"}, extra: []string{"Kin-shasa-243"}, wantErr: user.ErrNotFound},
		{name: "passwords mismatch", args: []string{"resetpassword", "-email", usr.Email}, extra: []string{"Kin-shasa-243", "nope"}, invalid: true},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: []string{"Kin-shasa-243"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			pwds, _ := tt.extra.([]string)
			mockPasswords(t, pwds...)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	refreshed, err := app.UserSvc.GetByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash))
	assert.NoError(t, refreshed.CheckPassword("Kin-shasa-243"))
}
