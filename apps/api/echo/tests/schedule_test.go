package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/metricampus/core/layout"
	"github.com/trezcool/metricampus/core/schedule"
	"github.com/trezcool/metricampus/tests"
)

const blocksPath = "/v1/schedule/blocks"

func Test_scheduleApi_query(t *testing.T) {
	app, repo := setup(t)

	calc1 := testutil.CreateBlock(t, repo, 1, "08:00", "10:00", "Calculus I", "1A", "Ana", "B-12")
	phys := testutil.CreateBlock(t, repo, 1, "09:00", "11:00", "Physics", "1B", "Luis", "B-14")
	chem := testutil.CreateBlock(t, repo, 3, "07:00", "08:30", "Chemistry", "1A", "Ana", "Lab 1")
	calc2 := testutil.CreateBlock(t, repo, 2, "14:00", "16:00", "Calculus II", "2A", "Marta", "B-12")

	empty := marchallList(t)

	tests := []httpTest{
		{name: "Get all", path: blocksPath, wantData: marchallList(t, calc1, phys, calc2, chem)},
		// filtering
		{name: "search (unknown)", path: blocksPath + "?search=lol", wantData: empty},
		{name: "search=CALC", path: blocksPath + "?search=CALC", wantData: marchallList(t, calc1, calc2)},
		{name: "search=ana", path: blocksPath + "?search=ana", wantData: marchallList(t, calc1, chem)},
		{name: "day=1", path: blocksPath + "?day=1", wantData: marchallList(t, calc1, phys)},
		{name: "day=3,1", path: blocksPath + "?day=3&day=1", wantData: marchallList(t, calc1, phys, chem)},
		{name: "day (invalid)", path: blocksPath + "?day=abc", wantData: empty},
		{name: "room=b-12", path: blocksPath + "?room=b-12", wantData: marchallList(t, calc1, calc2)},
		{name: "modality=online", path: blocksPath + "?modality=online", wantData: empty},
		{name: "all combo", path: blocksPath + "?search=calc&day=2&room=B-12", wantData: marchallList(t, calc2)},
		// ordering
		{
			name: "order by -start_time", path: blocksPath + "?ordering=-start_time",
			wantData: marchallList(t, calc2, phys, calc1, chem),
		},
		{
			name: "order by teacher_name,-start_time", path: blocksPath + "?ordering=teacher_name,-start_time",
			wantData: marchallList(t, calc1, chem, phys, calc2),
		},
		{
			name: "order by unknown field", path: blocksPath + "?ordering=lol",
			wantData: marchallList(t, calc1, phys, calc2, chem),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.wantCode = http.StatusOK
			req, rec := newRequest(http.MethodGet, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_scheduleApi_create(t *testing.T) {
	app, _ := setup(t)

	validData := func() schedule.NewClassBlock {
		return schedule.NewClassBlock{
			DayOfWeek:   1,
			StartTime:   "08:00",
			EndTime:     "10:00",
			SubjectName: "  Calculus I ",
			TeacherName: "Ana",
			GroupName:   "1A",
			Room:        "B-12",
		}
	}

	tests := []struct {
		name     string
		data     schedule.NewClassBlock
		wantCode int
		wantData map[string]string
	}{
		{name: "valid", data: validData(), wantCode: http.StatusCreated},
		{
			name: "missing subject & group",
			data: func() schedule.NewClassBlock {
				nb := validData()
				nb.SubjectName = "   "
				nb.GroupName = ""
				return nb
			}(),
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"subject_name": "this field is required", "group_name": "this field is required"},
		},
		{
			name: "invalid times",
			data: func() schedule.NewClassBlock {
				nb := validData()
				nb.StartTime = "8h"
				nb.EndTime = "25:00"
				return nb
			}(),
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"start_time": "invalid time, expected HH:MM", "end_time": "invalid time, expected HH:MM"},
		},
		{
			name: "ends before it starts",
			data: func() schedule.NewClassBlock {
				nb := validData()
				nb.EndTime = "07:30"
				return nb
			}(),
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"end_time": "end time must be after start time"},
		},
		{
			name: "zero length",
			data: func() schedule.NewClassBlock {
				nb := validData()
				nb.EndTime = nb.StartTime
				return nb
			}(),
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"end_time": "end time must be after start time"},
		},
		{
			name: "invalid modality",
			data: func() schedule.NewClassBlock {
				nb := validData()
				nb.Modality = "Remote"
				return nb
			}(),
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"modality": "invalid modality, expected one of on_site, online or hybrid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, blocksPath, marchallObj(t, tt.data))
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: marchallObj(t, tt.wantData)}, rec)
				return
			}

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			var blk schedule.ClassBlock
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &blk))

			_, err := uuid.Parse(blk.ID)
			assert.NoError(t, err)
			assert.Equal(t, 1, blk.DayOfWeek)
			assert.Equal(t, layout.MustParseClock("08:00"), blk.StartTime)
			assert.Equal(t, layout.MustParseClock("10:00"), blk.EndTime)
			assert.Equal(t, "Calculus I", blk.SubjectName)
			assert.Equal(t, schedule.ModalityOnSite, blk.Modality)
			assert.False(t, blk.CreatedAt.IsZero())

			// created block is listed
			req, rec = newRequest(http.MethodGet, blocksPath)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, blk)}, rec)
		})
	}
}

func Test_scheduleApi_retrieve(t *testing.T) {
	app, repo := setup(t)
	blk := testutil.CreateBlock(t, repo, 2, "10:00", "12:00", "Physics", "1B")

	tests := []httpTest{
		{name: "not found", path: blocksPath + "/" + uuid.New().String(), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "found", path: blocksPath + "/" + blk.ID, wantCode: http.StatusOK, wantData: marchallObj(t, blk)},
		{name: "found (upper-cased id)", path: blocksPath + "/" + strings.ToUpper(blk.ID), wantCode: http.StatusOK, wantData: marchallObj(t, blk)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_scheduleApi_update(t *testing.T) {
	app, repo := setup(t)
	blk := testutil.CreateBlock(t, repo, 1, "08:00", "10:00", "Calculus I", "1A", "Ana", "B-12")
	path := blocksPath + "/" + blk.ID

	t.Run("not found", func(t *testing.T) {
		req, rec := newRequest(http.MethodPut, blocksPath+"/"+uuid.New().String(), []byte(`{"room": "A-1"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("invalid", func(t *testing.T) {
		req, rec := newRequest(http.MethodPut, path, []byte(`{"end_time": "07:00"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"end_time": "end time must be after start time"}`),
		}, rec)
	})

	t.Run("valid", func(t *testing.T) {
		req, rec := newRequest(http.MethodPut, path, []byte(`{"start_time": "09:00", "room": "", "teacher_name": null, "day_of_week": 4}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got schedule.ClassBlock
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, blk.ID, got.ID)
		assert.Equal(t, 4, got.DayOfWeek)
		assert.Equal(t, layout.MustParseClock("09:00"), got.StartTime)
		assert.Equal(t, blk.EndTime, got.EndTime)
		assert.Equal(t, "Ana", got.TeacherName, "null keeps the teacher")
		assert.Equal(t, "", got.Room, "empty string clears the room")
		assert.True(t, got.CreatedAt.Equal(blk.CreatedAt))

		stored, err := repo.GetBlockByID(req.Context(), blk.ID)
		require.NoError(t, err)
		assert.Equal(t, got.StartTime, stored.StartTime)
	})
}

func Test_scheduleApi_destroy(t *testing.T) {
	app, repo := setup(t)
	blk1 := testutil.CreateBlock(t, repo, 1, "08:00", "10:00", "Calculus I", "1A")
	blk2 := testutil.CreateBlock(t, repo, 1, "10:00", "12:00", "Physics", "1A")
	blk3 := testutil.CreateBlock(t, repo, 2, "08:00", "10:00", "Chemistry", "1A")
	blk4 := testutil.CreateBlock(t, repo, 3, "08:00", "10:00", "Biology", "1A")

	tests := []httpTest{
		{name: "not found", path: blocksPath + "/" + uuid.New().String(), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "single", path: blocksPath + "/" + blk1.ID, wantCode: http.StatusNoContent},
		{name: "multiple (none)", path: blocksPath, wantCode: http.StatusNoContent},
		{
			name: "multiple", path: fmt.Sprintf("%s?id=%s&id=%s&id=%s", blocksPath, blk2.ID, strings.ToUpper(blk3.ID), uuid.New()),
			wantCode: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodDelete, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	req, rec := newRequest(http.MethodGet, blocksPath)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, blk4)}, rec)
}

func newUploadRequest(t *testing.T, path, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, httptest.NewRecorder()
}

func Test_scheduleApi_import(t *testing.T) {
	importPath := blocksPath + "/import"

	t.Run("missing file", func(t *testing.T) {
		app, _ := setup(t)
		req, rec := newRequest(http.MethodPost, importPath)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"file": "this field is required"}`)}, rec)
	})

	t.Run("missing columns", func(t *testing.T) {
		app, _ := setup(t)
		req, rec := newUploadRequest(t, importPath, "blocks.csv", []byte("day,start\n1,08:00\n"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"file": "missing columns: end, subject, group"}`),
		}, rec)
	})

	t.Run("file too large", func(t *testing.T) {
		app, _ := setup(t)
		content := append([]byte("day,start,end,subject,group\n"), bytes.Repeat([]byte("x"), 1<<20)...)
		req, rec := newUploadRequest(t, importPath, "blocks.csv", content)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"file": "file too large, max 1048576 bytes"}`),
		}, rec)
	})

	t.Run("upsert", func(t *testing.T) {
		app, repo := setup(t)
		existing := testutil.CreateBlock(t, repo, 5, "08:00", "10:00", "Old Subject", "1A")

		content := "id,day,start,end,subject,group,teacher\n" +
			existing.ID + ",viernes,08:00,10:00,Statistics,1A,Ana\n" + // line 2: updated
			",lunes,08:00,10:00,Calculus I,1A,Ana\n" + // line 3: created
			",funday,08:00,09:00,Chess,Club,\n" + // line 4: invalid day
			",2,10:00,09:00,Physics,1B,\n" + // line 5: ends before it starts
			",3,09:00,11:00,Chemistry,1A,\n" // line 6: created

		req, rec := newUploadRequest(t, importPath, "blocks.csv", []byte(content))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, schedule.ImportSummary{
				Created: 2,
				Updated: 1,
				Errors: []schedule.RowError{
					{Sheet: "blocks", Line: 4, Errors: map[string]string{"day_of_week": `invalid day "funday"`}},
					{Sheet: "blocks", Line: 5, Errors: map[string]string{"end_time": "end time must be after start time"}},
				},
				Sheets: []schedule.SheetSummary{{Sheet: "blocks", Created: 2, Updated: 1, Rejected: 2}},
			}),
		}, rec)

		updated, err := repo.GetBlockByID(req.Context(), existing.ID)
		require.NoError(t, err)
		assert.Equal(t, "Statistics", updated.SubjectName)
		assert.Equal(t, "Ana", updated.TeacherName)

		blocks, err := repo.QueryBlocks(req.Context(), schedule.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, blocks, 3)
	})

	t.Run("workbook", func(t *testing.T) {
		app, repo := setup(t)
		existing := testutil.CreateBlock(t, repo, 1, "08:00", "10:00", "Old Subject", "1A")

		content := testutil.Workbook(t,
			testutil.Sheet{Name: "Mañana", Rows: [][]interface{}{
				{"id", "dia", "inicio", "fin", "materia", "grupo"},
				{existing.ID, "lunes", "08:00", "10:00", "Statistics", "1A"},
				{"", "martes", "08:00", "10:00", "Calculus I", "1A"},
			}},
			testutil.Sheet{Name: "Tarde", Rows: [][]interface{}{
				{"day", "start", "end", "subject", "group"},
				{"funday", "14:00", "15:00", "Chess", "Club"},
				{3, "15:00", "14:00", "Physics", "1B"},
				{3, "14:00", "16:00", "Chemistry", "1B"},
			}},
		)

		req, rec := newUploadRequest(t, importPath, "week.xlsx", content)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, schedule.ImportSummary{
				Created: 2,
				Updated: 1,
				Errors: []schedule.RowError{
					{Sheet: "Tarde", Line: 2, Errors: map[string]string{"day_of_week": `invalid day "funday"`}},
					{Sheet: "Tarde", Line: 3, Errors: map[string]string{"end_time": "end time must be after start time"}},
				},
				Sheets: []schedule.SheetSummary{
					{Sheet: "Mañana", Created: 1, Updated: 1},
					{Sheet: "Tarde", Created: 1, Rejected: 2},
				},
			}),
		}, rec)

		updated, err := repo.GetBlockByID(req.Context(), existing.ID)
		require.NoError(t, err)
		assert.Equal(t, "Statistics", updated.SubjectName)
	})

	t.Run("workbook missing columns", func(t *testing.T) {
		app, _ := setup(t)
		content := testutil.Workbook(t, testutil.Sheet{Name: "Lunes", Rows: [][]interface{}{{"day", "start"}}})
		req, rec := newUploadRequest(t, importPath, "week.xlsx", content)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"file": "sheet \"Lunes\": missing columns: end, subject, group"}`),
		}, rec)
	})
}

func Test_scheduleApi_week(t *testing.T) {
	app, repo := setup(t)
	calc := testutil.CreateBlock(t, repo, 1, "08:00", "10:00", "Calculus I", "1A", "Ana", "B-12")
	phys := testutil.CreateBlock(t, repo, 1, "09:00", "11:00", "Physics", "1B", "Luis", "B-14")
	testutil.CreateBlock(t, repo, 7, "10:00", "11:00", "Sunday Lab", "1A")

	getWeek := func(t *testing.T, path string) schedule.WeekLayout {
		req, rec := newRequest(http.MethodGet, path)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var week schedule.WeekLayout
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &week))
		return week
	}

	t.Run("all", func(t *testing.T) {
		week := getWeek(t, "/v1/schedule/week")

		assert.Equal(t, layout.Window{StartHour: 7, EndHour: 20, RowMinutes: 30}, week.Window)
		assert.Len(t, week.Rows, 26)
		assert.Equal(t, layout.MustParseClock("07:00"), week.Rows[0])

		require.Len(t, week.Days, 7, "sunday holds a block")
		assert.Equal(t, "Monday", week.Days[0].Name)
		assert.Equal(t, "Sunday", week.Days[6].Name)
		assert.Empty(t, week.Days[5].Blocks)

		monday := week.Days[0].Blocks
		require.Len(t, monday, 2)
		assert.Equal(t, calc.ID, monday[0].ID)
		assert.Equal(t, 0, monday[0].Column)
		assert.Equal(t, 2, monday[0].ColumnCount)
		assert.Equal(t, phys.ID, monday[1].ID)
		assert.Equal(t, 1, monday[1].Column)
		assert.Equal(t, 2, monday[1].ColumnCount)
		assert.Equal(t, 50.0, monday[1].Geometry.Left)
		assert.Equal(t, 5, monday[1].Geometry.Row)
		assert.Equal(t, 4, monday[1].Geometry.RowSpan)
	})

	t.Run("filtered", func(t *testing.T) {
		week := getWeek(t, "/v1/schedule/week?group_id=&search=physics")

		require.Len(t, week.Days, 6)
		require.Len(t, week.Days[0].Blocks, 1)
		assert.Equal(t, phys.ID, week.Days[0].Blocks[0].ID)
		assert.Equal(t, 0, week.Days[0].Blocks[0].Column)
		assert.Equal(t, 1, week.Days[0].Blocks[0].ColumnCount)
		assert.Equal(t, 100.0, week.Days[0].Blocks[0].Geometry.Width)
	})

	t.Run("invalid filter", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/schedule/week?day=abc")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("svg", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/schedule/week.svg")
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))

		body := rec.Body.String()
		assert.True(t, strings.HasPrefix(body, "<svg "))
		assert.Contains(t, body, ">Monday</text>")
		assert.Contains(t, body, ">Sunday</text>")
		assert.Equal(t, 4, strings.Count(body, "<rect "), "background + 3 blocks")
	})
}
