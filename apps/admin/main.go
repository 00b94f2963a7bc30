package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/metricampus/core"
	"github.com/trezcool/metricampus/core/schedule"
	logsvc "github.com/trezcool/metricampus/services/logger"
	"github.com/trezcool/metricampus/storage/database"
	sqlxrepos "github.com/trezcool/metricampus/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf, "admin")
	if err != nil {
		fmt.Printf("setting up zap: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewZapLogger(zl)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:       conf,
		logger:     logger,
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
		openDB: func() (*sqlx.DB, error) {
			return openDB(conf)
		},
		newRepo: func(db *sqlx.DB) schedule.Repository {
			return sqlxrepos.NewBlockRepository(db)
		},
	}
	err = cli.run(os.Args)

	if cli.db != nil {
		if cerr := cli.db.Close(); cerr != nil {
			logger.Error("closing database", cerr)
		}
	}
	_ = logger.Sync()

	if err != nil {
		if err != errHelp && err != errRejectedRows {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}

func openDB(conf *core.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
