package main

import (
	"log"
	"os"

	"github.com/saifdine/daura/core"
	"github.com/saifdine/daura/core/course"
	"github.com/saifdine/daura/core/user"
	emailsvc "github.com/saifdine/daura/services/email"
	"github.com/saifdine/daura/storage/database"
	sqlxrepos "github.com/saifdine/daura/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	errAndDie(database.CreateIfNotExist(core.Conf))
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// start CLI
	cli := commandLine{
		db:     db.DB,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService()),
		crsSvc: course.NewService(sqlxrepos.NewCourseRepository(db)),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
