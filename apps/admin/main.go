package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/storage/database"
	"github.com/trezcool/eslclass/storage/database/sqlx"
)

var logger *zap.SugaredLogger

func main() {
	zl, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up zap: %v\n", err)
		os.Exit(1)
	}
	logger = zl.Named("admin").Sugar()

	// set up DB
	errAndDie(database.CreateIfNotExist(core.Conf))
	db, err := database.Open(core.Conf)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: sqlxrepos.NewUserRepository(db),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	_ = zl.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
