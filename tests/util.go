package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/metricampus/core"
	"github.com/trezcool/metricampus/core/layout"
	"github.com/trezcool/metricampus/core/schedule"
)

// Config returns the configuration used by tests: default grid, no cache.
func Config() *core.Config {
	return &core.Config{
		Env:      "TEST",
		Debug:    false,
		TestMode: true,
		AppName:  "Metricampus",
		Server: core.ServerConfig{
			DisableReqLogs:    true,
			MaxImportFileSize: 1 << 20,
		},
		Grid: core.GridConfig{StartHour: 7, EndHour: 20, RowMinutes: 30, Days: 6},
	}
}

// Validator returns a validator with all app validators registered.
func Validator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	return validate, translator
}

// CreateBlock inserts a block straight into repo.
func CreateBlock(
	t *testing.T,
	repo schedule.Repository,
	day int,
	start, end, subject, group string,
	meta ...string, // teacher, room
) schedule.ClassBlock {
	now := time.Now().UTC()
	blk := schedule.ClassBlock{
		ID:          uuid.New().String(),
		DayOfWeek:   day,
		StartTime:   layout.MustParseClock(start),
		EndTime:     layout.MustParseClock(end),
		SubjectName: subject,
		GroupName:   group,
		Modality:    schedule.ModalityOnSite,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(meta) > 0 {
		blk.TeacherName = meta[0]
	}
	if len(meta) > 1 {
		blk.Room = meta[1]
	}

	blk, err := repo.CreateBlock(context.Background(), blk)
	if err != nil {
		t.Fatalf("CreateBlock() failed: %v", err)
	}
	return blk
}

// Sheet is a worksheet of a test workbook.
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// Workbook returns an .xlsx file holding sheets after the default, empty, "Sheet1".
func Workbook(t *testing.T, sheets ...Sheet) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	for _, sheet := range sheets {
		if _, err := wb.NewSheet(sheet.Name); err != nil {
			t.Fatalf("NewSheet(%q) failed: %v", sheet.Name, err)
		}
		for i := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName() failed: %v", err)
			}
			if err = wb.SetSheetRow(sheet.Name, cell, &sheet.Rows[i]); err != nil {
				t.Fatalf("SetSheetRow(%q, %s) failed: %v", sheet.Name, cell, err)
			}
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() failed: %v", err)
	}
	return buf.Bytes()
}
