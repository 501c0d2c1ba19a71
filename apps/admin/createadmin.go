package main

import (
	"context"
	"fmt"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

func (cli *commandLine) createAdmin(na user.NewAdmin) error {
	usr, err := cli.usrSvc.CreateAdmin(context.Background(), na)
	if err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}
	fmt.Printf("Admin %s <%s> is ready (id %d)\n", usr.FullName(), usr.Email, usr.ID)
	return nil
}
