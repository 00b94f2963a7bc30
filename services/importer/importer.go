// Package importsvc reads class blocks from spreadsheet files: .xlsx workbooks and CSV exports.
package importsvc

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/metricampus/core/schedule"
)

// columns maps accepted header names (english & spanish) to their canonical column.
var columns = map[string]string{
	"id":         "id",
	"day":        "day",
	"dia":        "day",
	"día":        "day",
	"start":      "start",
	"inicio":     "start",
	"end":        "end",
	"fin":        "end",
	"subject_id": "subject_id",
	"subject":    "subject",
	"materia":    "subject",
	"teacher_id": "teacher_id",
	"teacher":    "teacher",
	"docente":    "teacher",
	"group_id":   "group_id",
	"group":      "group",
	"grupo":      "group",
	"room":       "room",
	"aula":       "room",
	"modality":   "modality",
	"modalidad":  "modality",
}

var requiredColumns = []string{"day", "start", "end", "subject", "group"}

var dayNumbers = map[string]int{
	"monday": 1, "mon": 1, "lunes": 1, "lun": 1,
	"tuesday": 2, "tue": 2, "martes": 2, "mar": 2,
	"wednesday": 3, "wed": 3, "miercoles": 3, "miércoles": 3, "mie": 3, "mié": 3,
	"thursday": 4, "thu": 4, "jueves": 4, "jue": 4,
	"friday": 5, "fri": 5, "viernes": 5, "vie": 5,
	"saturday": 6, "sat": 6, "sabado": 6, "sábado": 6, "sab": 6, "sáb": 6,
	"sunday": 7, "sun": 7, "domingo": 7, "dom": 7,
}

var modalities = map[string]schedule.Modality{
	"on_site":    schedule.ModalityOnSite,
	"onsite":     schedule.ModalityOnSite,
	"presencial": schedule.ModalityOnSite,
	"online":     schedule.ModalityOnline,
	"virtual":    schedule.ModalityOnline,
	"hybrid":     schedule.ModalityHybrid,
	"hibrido":    schedule.ModalityHybrid,
	"híbrido":    schedule.ModalityHybrid,
}

// ParseDay accepts 1 (Monday) - 7 (Sunday) or a day name. It returns 0 for anything else.
func ParseDay(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 7 {
			return n
		}
		return 0
	}
	return dayNumbers[s]
}

// File is the content of an import file.
type File struct {
	// Sheets lists the sheets holding a header, in file order.
	Sheets []string
	Rows   []schedule.ImportRow
	// Errors holds the rows rejected while reading.
	Errors []schedule.RowError
}

// Read reads an import file, picking the format from its name: .xlsx is read as a workbook, anything else as CSV.
// A CSV file is a single sheet named after the file.
func Read(filename string, r io.Reader) (File, error) {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	if strings.EqualFold(ext, ".xlsx") {
		return ReadXLSX(r)
	}
	return ReadCSV(r, strings.TrimSuffix(base, ext))
}

// Import upserts the rows of f through svc. The summary reports every rejected row, by sheet and line.
func (f File) Import(ctx context.Context, svc schedule.Service) (schedule.ImportSummary, error) {
	summary, err := svc.Import(ctx, f.Rows)
	if err != nil {
		return summary, err
	}
	summary.AddRejected(f.Sheets, f.Errors...)
	return summary, nil
}

// parseHeader maps canonical columns to their index in header.
// Header names are case-insensitive, unknown columns are ignored.
func parseHeader(header []string) (map[string]int, error) {
	colIdx := make(map[string]int)
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if canonical, ok := columns[name]; ok {
			if _, dup := colIdx[canonical]; !dup {
				colIdx[canonical] = i
			}
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return colIdx, nil
}

// addRecord maps record, read from line of sheet, to an import row.
// Rows whose day cannot be read are rejected; the rest are left to schedule validation.
func (f *File) addRecord(sheet string, colIdx map[string]int, line int, record []string) {
	get := func(col string) string {
		if i, ok := colIdx[col]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	nb := schedule.NewClassBlock{
		ID:          get("id"),
		StartTime:   get("start"),
		EndTime:     get("end"),
		SubjectID:   get("subject_id"),
		SubjectName: get("subject"),
		TeacherID:   get("teacher_id"),
		TeacherName: get("teacher"),
		GroupID:     get("group_id"),
		GroupName:   get("group"),
		Room:        get("room"),
		Modality:    get("modality"),
	}
	if mod, ok := modalities[strings.ToLower(nb.Modality)]; ok {
		nb.Modality = string(mod)
	}

	day := get("day")
	nb.DayOfWeek = ParseDay(day)
	if nb.DayOfWeek == 0 {
		f.Errors = append(f.Errors, schedule.RowError{
			Sheet:  sheet,
			Line:   line,
			Errors: map[string]string{"day_of_week": fmt.Sprintf("invalid day %q", day)},
		})
		return
	}
	f.Rows = append(f.Rows, schedule.ImportRow{Sheet: sheet, Line: line, Block: nb})
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
