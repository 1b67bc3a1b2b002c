package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "bloodalert",
		Usage: "Blood donation alert matching and response coordination",
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
			seedCommand,
			matchCommand,
			expireCommand,
			archiveCommand,
			nanoidCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
