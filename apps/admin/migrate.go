package main

import (
	"github.com/trezcool/goose"

	"github.com/trezcool/metricampus/fs"
	"github.com/trezcool/metricampus/storage/database"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	db, err := cli.database()
	if err != nil {
		return err
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], db.DB, appfs.FS, database.MigrationsDir, arguments...)
}
