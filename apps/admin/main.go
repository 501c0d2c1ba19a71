package main

import (
	"context"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/storage/database/sqlxrepos"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	ctx := context.Background()

	// set up DB
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db: db,
		usrSvc: user.NewService(
			database.NewTransactor(db),
			sqlxrepos.NewUserRepository(db),
			emailsvc.NewConsoleService(conf, logger),
			validate,
			conf.Site(),
		),
		translator: translator,
	}
	err = cli.run(os.Args)
	if cErr := db.Close(); cErr != nil {
		logger.Error("closing database", cErr)
	}
	if err != nil {
		if !errors.Is(err, errHelp) {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
