package main

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

func (cli *commandLine) resetPassword(rp user.ResetUserPassword) error {
	if _, err := cli.usrSvc.ResetPassword(context.Background(), rp); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}
	return nil
}
