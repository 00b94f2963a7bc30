package importsvc

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/metricampus/core/schedule"
)

// ReadCSV reads class blocks from a header-driven CSV file, as a single sheet.
// Lines are 1-based, the header being line 1.
func ReadCSV(r io.Reader, sheet string) (File, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return File{}, errors.New("empty file")
	}
	if err != nil {
		return File{}, errors.Wrap(err, "reading CSV header")
	}
	colIdx, err := parseHeader(header)
	if err != nil {
		return File{}, err
	}

	f := File{Sheets: []string{sheet}}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				f.Errors = append(f.Errors, schedule.RowError{
					Sheet:  sheet,
					Line:   parseErr.StartLine,
					Errors: map[string]string{"row": parseErr.Err.Error()},
				})
				continue
			}
			return File{}, errors.Wrap(err, "reading CSV")
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		f.addRecord(sheet, colIdx, line, record)
	}
	return f, nil
}
