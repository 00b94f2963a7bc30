package importsvc

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads class blocks from every sheet of a workbook. Each sheet starts with its own header row;
// sheets without any value are skipped. Lines are the sheet's 1-based row numbers.
func ReadXLSX(r io.Reader) (File, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return File{}, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = wb.Close() }()

	var f File
	for _, sheet := range wb.GetSheetList() {
		records, err := wb.GetRows(sheet)
		if err != nil {
			return File{}, errors.Wrapf(err, "reading sheet %q", sheet)
		}

		headerAt := -1
		for i, record := range records {
			if !isBlank(record) {
				headerAt = i
				break
			}
		}
		if headerAt < 0 {
			continue
		}

		colIdx, err := parseHeader(records[headerAt])
		if err != nil {
			return File{}, errors.Wrapf(err, "sheet %q", sheet)
		}
		f.Sheets = append(f.Sheets, sheet)
		for i := headerAt + 1; i < len(records); i++ {
			if isBlank(records[i]) {
				continue
			}
			f.addRecord(sheet, colIdx, i+1, records[i])
		}
	}

	if len(f.Sheets) == 0 {
		return File{}, errors.New("empty file")
	}
	return f, nil
}
