package main

import (
	"flag"
	"fmt"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/academia/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	usrSvc     *user.Service
	translator ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, redo, version...)")
	fmt.Println("  createadmin -email EMAIL [-nom NOM] [-prenom PRENOM] [-department DEPT] - create or promote an administrator")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
}

// promptPassword reads a password and its confirmation from the terminal.
func promptPassword(confirm bool) (pwd, pwdConfirm string, err error) {
	fmt.Print("Enter password:")
	p, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", "", err
	}
	if !confirm || len(p) == 0 {
		return string(p), string(p), nil
	}

	fmt.Print("Confirm password:")
	c, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", "", err
	}
	return string(p), string(c), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	createAdminEmail := createAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")
	createAdminLastName := createAdminCmd.String("nom", "Admin", "The admin's last name.")
	createAdminFirstName := createAdminCmd.String("prenom", "System", "The admin's first name.")
	createAdminDept := createAdminCmd.String("department", "Administration", "The admin's department.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminEmail == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		pwd, pwdConfirm, err := promptPassword(true)
		if err != nil {
			return err
		}
		if pwd == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(user.NewAdmin{
			LastName:        *createAdminLastName,
			FirstName:       *createAdminFirstName,
			Department:      *createAdminDept,
			Email:           *createAdminEmail,
			Password:        pwd,
			PasswordConfirm: pwdConfirm,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, pwdConfirm, err := promptPassword(true)
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(user.ResetUserPassword{
			Email:           *resetPasswordEmail,
			Password:        pwd,
			PasswordConfirm: pwdConfirm,
		})

	default:
		cli.printUsage()
		return errHelp
	}
}
