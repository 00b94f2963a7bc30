package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/metricampus/core"
	"github.com/trezcool/metricampus/core/schedule"
)

var (
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) } // mockable

	errHelp         = errors.New("help provided")
	errRejectedRows = errors.New("some rows were rejected")
)

type commandLine struct {
	conf       *core.Config
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer

	// the database is opened on demand: render -file works offline
	openDB  func() (*sqlx.DB, error)
	newRepo func(db *sqlx.DB) schedule.Repository
	db      *sqlx.DB
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command, e.g. up, down, status")
	fmt.Println("  import -file FILE.xlsx|FILE.csv - create or update class blocks from a workbook or a CSV file")
	fmt.Println("  render [-file WEEK.yaml] [-format svg|json] [-out FILE] - render the weekly grid")
}

func (cli *commandLine) database() (*sqlx.DB, error) {
	if cli.db == nil {
		db, err := cli.openDB()
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		cli.db = db
	}
	return cli.db, nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "The .xlsx or CSV file to import. Rows with an id update the existing block.")

	renderCmd := flag.NewFlagSet("render", flag.ContinueOnError)
	renderFile := renderCmd.String("file", "", "A YAML week file. The database is rendered when empty.")
	renderFormat := renderCmd.String("format", "svg", "Output format: svg or json.")
	renderOut := renderCmd.String("out", "", "Output file. Defaults to stdout.")
	renderWidth := renderCmd.Int("width", 0, "SVG width in px.")
	renderRowHeight := renderCmd.Int("row-height", 0, "SVG row height in px.")
	renderSearch := renderCmd.String("search", "", "Only render blocks matching the search.")
	renderDays := renderCmd.String("days", "", "Only render these days, e.g. 1,3,5.")
	renderGroup := renderCmd.String("group-id", "", "Only render blocks of this group.")
	renderTeacher := renderCmd.String("teacher-id", "", "Only render blocks of this teacher.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return parseErr(err)
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importBlocks(*importFile)
	case "render":
		if err := renderCmd.Parse(args[2:]); err != nil {
			return parseErr(err)
		}
		days, err := parseDays(*renderDays)
		if err != nil {
			return err
		}
		return cli.render(renderOptions{
			file:      *renderFile,
			format:    strings.ToLower(*renderFormat),
			out:       *renderOut,
			width:     *renderWidth,
			rowHeight: *renderRowHeight,
			filter: schedule.QueryFilter{
				Search:    *renderSearch,
				Days:      days,
				GroupID:   *renderGroup,
				TeacherID: *renderTeacher,
			},
		})
	default:
		cli.printUsage()
		return errHelp
	}
}

func parseErr(err error) error {
	if err == flag.ErrHelp {
		return errHelp
	}
	return err
}

// parseDays parses a comma-separated list of days, e.g. "1,3,5".
func parseDays(value string) ([]int, error) {
	var days []int
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		day, err := strconv.Atoi(s)
		if err != nil || day < 1 || day > 7 {
			return nil, errors.Errorf("invalid day %q, expected 1 (Monday) - 7 (Sunday)", s)
		}
		days = append(days, day)
	}
	return days, nil
}
