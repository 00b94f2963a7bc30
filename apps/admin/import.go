package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/metricampus/core/schedule"
	importsvc "github.com/trezcool/metricampus/services/importer"
)

func (cli *commandLine) importBlocks(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening import file")
	}
	defer func() { _ = file.Close() }()

	f, err := importsvc.Read(path, file)
	if err != nil {
		return err
	}

	db, err := cli.database()
	if err != nil {
		return err
	}
	svc, err := schedule.NewService(cli.newRepo(db), nil /* cache */, cli.logger, cli.validate, cli.translator, cli.conf)
	if err != nil {
		return err
	}

	summary, err := f.Import(context.Background(), svc)
	if err != nil {
		return err
	}
	return cli.printSummary(summary)
}

func (cli *commandLine) printSummary(summary schedule.ImportSummary) error {
	fmt.Fprintf(cli.out, "created: %d, updated: %d, rejected: %d\n", summary.Created, summary.Updated, len(summary.Errors))
	bySheet := len(summary.Sheets) > 1
	if bySheet {
		for _, sheet := range summary.Sheets {
			fmt.Fprintf(cli.out, "  sheet %s: created: %d, updated: %d, rejected: %d\n",
				sheet.Sheet, sheet.Created, sheet.Updated, sheet.Rejected)
		}
	}
	if len(summary.Errors) == 0 {
		return nil
	}

	for _, rowErr := range summary.Errors {
		fields := make([]string, 0, len(rowErr.Errors))
		for field := range rowErr.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		msgs := make([]string, 0, len(fields))
		for _, field := range fields {
			msgs = append(msgs, field+": "+rowErr.Errors[field])
		}
		where := fmt.Sprintf("line %d", rowErr.Line)
		if bySheet {
			where = fmt.Sprintf("sheet %s, line %d", rowErr.Sheet, rowErr.Line)
		}
		fmt.Fprintf(cli.out, "  %s: %s\n", where, strings.Join(msgs, "; "))
	}
	return errRejectedRows
}
