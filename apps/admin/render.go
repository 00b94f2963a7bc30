package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/metricampus/core/layout"
	"github.com/trezcool/metricampus/core/schedule"
	rendersvc "github.com/trezcool/metricampus/services/render"
	inmemdb "github.com/trezcool/metricampus/storage/database/inmem"
)

type renderOptions struct {
	file      string
	format    string
	out       string
	width     int
	rowHeight int
	filter    schedule.QueryFilter
}

// weekFile describes a week offline, e.g.
//
//	window: {start_hour: 8, end_hour: 14, row_minutes: 30}
//	days: 5
//	blocks:
//	  - {day_of_week: 1, start_time: "08:00", end_time: "10:00", subject_name: Calculus I, group_name: 1A}
type weekFile struct {
	Window *layout.Window           `yaml:"window"`
	Days   int                      `yaml:"days"`
	Blocks []schedule.NewClassBlock `yaml:"blocks"`
}

func readWeekFile(r io.Reader) (weekFile, error) {
	var wf weekFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&wf); err != nil && err != io.EOF {
		return weekFile{}, errors.Wrap(err, "decoding week file")
	}
	return wf, nil
}

func (cli *commandLine) render(opts renderOptions) error {
	if opts.format != "svg" && opts.format != "json" {
		return errors.Errorf("unknown format %q, expected svg or json", opts.format)
	}
	if opts.out == "" && opts.format == "svg" && isTerminalFunc() {
		return errors.New("refusing to write SVG to a terminal, use -out or a redirection")
	}

	ctx := context.Background()
	svc, err := cli.renderService(ctx, opts.file)
	if err != nil {
		return err
	}
	week, err := svc.Week(ctx, opts.filter)
	if err != nil {
		return errors.Wrap(err, "laying out week")
	}

	w := cli.out
	if opts.out != "" {
		file, err := os.Create(opts.out)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer func() { _ = file.Close() }()
		w = file
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(week)
	default:
		return rendersvc.SVG(w, week, rendersvc.Options{Width: opts.width, RowHeight: opts.rowHeight})
	}
}

// renderService returns a schedule service over the database, or over the blocks of the week file if any.
func (cli *commandLine) renderService(ctx context.Context, path string) (schedule.Service, error) {
	if path == "" {
		db, err := cli.database()
		if err != nil {
			return nil, err
		}
		return schedule.NewService(cli.newRepo(db), nil /* cache */, cli.logger, cli.validate, cli.translator, cli.conf)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening week file")
	}
	defer func() { _ = file.Close() }()

	wf, err := readWeekFile(file)
	if err != nil {
		return nil, err
	}

	conf := *cli.conf
	if wf.Window != nil {
		conf.Grid.StartHour = wf.Window.StartHour
		conf.Grid.EndHour = wf.Window.EndHour
		conf.Grid.RowMinutes = wf.Window.RowMinutes
	}
	if wf.Days > 0 {
		conf.Grid.Days = wf.Days
	}

	repo := inmemdb.NewBlockRepository(inmemdb.Open())
	svc, err := schedule.NewService(repo, nil /* cache */, cli.logger, cli.validate, cli.translator, &conf)
	if err != nil {
		return nil, err
	}

	rows := make([]schedule.ImportRow, 0, len(wf.Blocks))
	for i, nb := range wf.Blocks {
		rows = append(rows, schedule.ImportRow{Line: i + 1, Block: nb})
	}
	summary, err := svc.Import(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(summary.Errors) > 0 {
		fmt.Fprintln(cli.out, "invalid blocks (line is the block number):")
		return nil, cli.printSummary(summary)
	}
	return svc, nil
}
