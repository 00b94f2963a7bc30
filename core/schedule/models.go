package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/metricampus/core"
	"github.com/trezcool/metricampus/core/layout"
)

type Modality string

const (
	ModalityOnSite Modality = "on_site"
	ModalityOnline Modality = "online"
	ModalityHybrid Modality = "hybrid"
)

var Modalities = []Modality{ModalityOnSite, ModalityOnline, ModalityHybrid}

func (m Modality) IsValid() bool {
	for _, mod := range Modalities {
		if m == mod {
			return true
		}
	}
	return false
}

// OrderingFields are the fields QueryBlocks can be ordered by.
var OrderingFields = []string{
	"day_of_week", "start_time", "end_time", "subject_name", "teacher_name", "group_name", "room", "created_at",
}

var defaultOrderings = []core.DBOrdering{
	{Field: "day_of_week", Ascending: true},
	{Field: "start_time", Ascending: true},
	{Field: "end_time", Ascending: true},
}

// ClassBlock is a class scheduled weekly on a day, e.g. "Calculus I, group 1A, Monday 08:00-10:00, room B-12".
type ClassBlock struct {
	ID          string       `json:"id"`
	DayOfWeek   int          `json:"day_of_week"` // 1 (Monday) - 7 (Sunday)
	StartTime   layout.Clock `json:"start_time"`
	EndTime     layout.Clock `json:"end_time"`
	SubjectID   string       `json:"subject_id"`
	SubjectName string       `json:"subject_name"`
	TeacherID   string       `json:"teacher_id"`
	TeacherName string       `json:"teacher_name"`
	GroupID     string       `json:"group_id"`
	GroupName   string       `json:"group_name"`
	Room        string       `json:"room"`
	Modality    Modality     `json:"modality"`
	CreatedAt   time.Time    `json:"created_at"` // UTC
	UpdatedAt   time.Time    `json:"updated_at"` // UTC
}

// LayoutBlock is the block as seen by the grid layout.
func (b ClassBlock) LayoutBlock() layout.Block {
	return layout.Block{
		ID:        b.ID,
		DayOfWeek: b.DayOfWeek,
		Start:     b.StartTime,
		End:       b.EndTime,
		Meta: map[string]string{
			"subject":  b.SubjectName,
			"teacher":  b.TeacherName,
			"group":    b.GroupName,
			"room":     b.Room,
			"modality": string(b.Modality),
		},
	}
}

// NewClassBlock contains information needed to create a new ClassBlock.
// ID is only honored by bulk imports, where it updates the existing block.
type NewClassBlock struct {
	ID          string `json:"id,omitempty" yaml:"id" validate:"omitempty,uuid"`
	DayOfWeek   int    `json:"day_of_week" yaml:"day_of_week" validate:"min=1,max=7"`
	StartTime   string `json:"start_time" yaml:"start_time" validate:"required,clock"`
	EndTime     string `json:"end_time" yaml:"end_time" validate:"required,clock"`
	SubjectID   string `json:"subject_id" yaml:"subject_id" validate:"omitempty,max=64"`
	SubjectName string `json:"subject_name" yaml:"subject_name" validate:"required,notblank,max=120"`
	TeacherID   string `json:"teacher_id" yaml:"teacher_id" validate:"omitempty,max=64"`
	TeacherName string `json:"teacher_name" yaml:"teacher_name" validate:"omitempty,max=120"`
	GroupID     string `json:"group_id" yaml:"group_id" validate:"omitempty,max=64"`
	GroupName   string `json:"group_name" yaml:"group_name" validate:"required,notblank,max=120"`
	Room        string `json:"room" yaml:"room" validate:"omitempty,max=50"`
	Modality    string `json:"modality" yaml:"modality" validate:"omitempty,modality"`
}

func (nb *NewClassBlock) Clean() {
	nb.ID = core.CleanString(nb.ID, true /* lower */)
	nb.StartTime = core.CleanString(nb.StartTime)
	nb.EndTime = core.CleanString(nb.EndTime)
	nb.SubjectID = core.CleanString(nb.SubjectID)
	nb.SubjectName = core.CleanString(nb.SubjectName)
	nb.TeacherID = core.CleanString(nb.TeacherID)
	nb.TeacherName = core.CleanString(nb.TeacherName)
	nb.GroupID = core.CleanString(nb.GroupID)
	nb.GroupName = core.CleanString(nb.GroupName)
	nb.Room = core.CleanString(nb.Room)
	nb.Modality = core.CleanString(nb.Modality, true /* lower */)
	if nb.Modality == "" {
		nb.Modality = string(ModalityOnSite)
	}
}

func (nb *NewClassBlock) Validate(validate *validator.Validate) error {
	nb.Clean()
	return validate.Struct(nb)
}

// block converts a validated NewClassBlock.
func (nb NewClassBlock) block() (ClassBlock, error) {
	start, err := layout.ParseClock(nb.StartTime)
	if err != nil {
		return ClassBlock{}, core.NewValidationError(err, core.FieldError{Field: "start_time", Error: clockText})
	}
	end, err := layout.ParseClock(nb.EndTime)
	if err != nil {
		return ClassBlock{}, core.NewValidationError(err, core.FieldError{Field: "end_time", Error: clockText})
	}
	return ClassBlock{
		ID:          nb.ID,
		DayOfWeek:   nb.DayOfWeek,
		StartTime:   start,
		EndTime:     end,
		SubjectID:   nb.SubjectID,
		SubjectName: nb.SubjectName,
		TeacherID:   nb.TeacherID,
		TeacherName: nb.TeacherName,
		GroupID:     nb.GroupID,
		GroupName:   nb.GroupName,
		Room:        nb.Room,
		Modality:    Modality(nb.Modality),
	}, nil
}

// UpdateClassBlock defines what information may be provided to modify an existing ClassBlock.
// zero values keep the original; nil pointers keep it too, empty strings behind pointers clear it.
type UpdateClassBlock struct {
	DayOfWeek   int     `json:"day_of_week"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	SubjectID   *string `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	TeacherID   *string `json:"teacher_id"`
	TeacherName *string `json:"teacher_name"`
	GroupID     *string `json:"group_id"`
	GroupName   string  `json:"group_name"`
	Room        *string `json:"room"`
	Modality    string  `json:"modality"`
}

// Apply merges the update into the original block.
func (ub UpdateClassBlock) Apply(orig ClassBlock) NewClassBlock {
	nb := NewClassBlock{
		DayOfWeek:   orig.DayOfWeek,
		StartTime:   orig.StartTime.String(),
		EndTime:     orig.EndTime.String(),
		SubjectID:   orig.SubjectID,
		SubjectName: orig.SubjectName,
		TeacherID:   orig.TeacherID,
		TeacherName: orig.TeacherName,
		GroupID:     orig.GroupID,
		GroupName:   orig.GroupName,
		Room:        orig.Room,
		Modality:    string(orig.Modality),
	}

	if ub.DayOfWeek != 0 {
		nb.DayOfWeek = ub.DayOfWeek
	}
	if s := core.CleanString(ub.StartTime); s != "" {
		nb.StartTime = s
	}
	if s := core.CleanString(ub.EndTime); s != "" {
		nb.EndTime = s
	}
	if s := core.CleanString(ub.SubjectName); s != "" {
		nb.SubjectName = s
	}
	if s := core.CleanString(ub.GroupName); s != "" {
		nb.GroupName = s
	}
	if s := core.CleanString(ub.Modality); s != "" {
		nb.Modality = s
	}
	setIfNotNil(&nb.SubjectID, ub.SubjectID)
	setIfNotNil(&nb.TeacherID, ub.TeacherID)
	setIfNotNil(&nb.TeacherName, ub.TeacherName)
	setIfNotNil(&nb.GroupID, ub.GroupID)
	setIfNotNil(&nb.Room, ub.Room)
	return nb
}

func setIfNotNil(dst, src *string) {
	if src != nil {
		*dst = *src
	}
}

type QueryFilter struct {
	Search    string `query:"search"`
	Days      []int  `query:"day"`
	TeacherID string `query:"teacher_id"`
	GroupID   string `query:"group_id"`
	Room      string `query:"room"`
	Modality  string `query:"modality"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && len(qf.Days) == 0 && qf.TeacherID == "" && qf.GroupID == "" && qf.Room == "" &&
		qf.Modality == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.GroupID = core.CleanString(qf.GroupID)
	qf.Room = core.CleanString(qf.Room)
	qf.Modality = core.CleanString(qf.Modality, true /* lower */)
	sort.Ints(qf.Days)
}

// Key identifies the filter, e.g. for caching.
func (qf QueryFilter) Key() string {
	days := make([]string, 0, len(qf.Days))
	for _, d := range qf.Days {
		days = append(days, fmt.Sprint(d))
	}
	return fmt.Sprintf(
		"search=%s;days=%s;teacher=%s;group=%s;room=%s;modality=%s",
		strings.ToLower(qf.Search), strings.Join(days, ","), qf.TeacherID, qf.GroupID, qf.Room, qf.Modality,
	)
}

// Match applies an AND of the set fields.
// Search does a case-insensitive match on one of SubjectName, TeacherName, GroupName or Room.
func (qf QueryFilter) Match(b ClassBlock) bool {
	if len(qf.Days) > 0 {
		found := false
		for _, d := range qf.Days {
			if d == b.DayOfWeek {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.TeacherID != "" && qf.TeacherID != b.TeacherID {
		return false
	}
	if qf.GroupID != "" && qf.GroupID != b.GroupID {
		return false
	}
	if qf.Room != "" && !strings.EqualFold(qf.Room, b.Room) {
		return false
	}
	if qf.Modality != "" && qf.Modality != string(b.Modality) {
		return false
	}
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		if !strings.Contains(strings.ToLower(b.SubjectName), search) &&
			!strings.Contains(strings.ToLower(b.TeacherName), search) &&
			!strings.Contains(strings.ToLower(b.GroupName), search) &&
			!strings.Contains(strings.ToLower(b.Room), search) {
			return false
		}
	}
	return true
}

// PlacedBlock is a ClassBlock positioned in the weekly grid.
type PlacedBlock struct {
	ClassBlock
	StartMinute int             `json:"start_minute"`
	EndMinute   int             `json:"end_minute"`
	Column      int             `json:"column"`
	ColumnCount int             `json:"column_count"`
	Geometry    layout.Geometry `json:"geometry"`
}

type DayLayout struct {
	DayOfWeek int           `json:"day_of_week"`
	Name      string        `json:"name"`
	Blocks    []PlacedBlock `json:"blocks"`
}

type WeekLayout struct {
	Window layout.Window  `json:"window"`
	Rows   []layout.Clock `json:"rows"`
	Days   []DayLayout    `json:"days"`
}

// ImportRow is a NewClassBlock read from line Line of sheet Sheet of an import file.
type ImportRow struct {
	Sheet string
	Line  int
	Block NewClassBlock
}

type RowError struct {
	Sheet  string            `json:"sheet"`
	Line   int               `json:"line"`
	Errors map[string]string `json:"errors"`
}

type SheetSummary struct {
	Sheet    string `json:"sheet"`
	Created  int    `json:"created"`
	Updated  int    `json:"updated"`
	Rejected int    `json:"rejected"`
}

type ImportSummary struct {
	Created int            `json:"created"`
	Updated int            `json:"updated"`
	Errors  []RowError     `json:"errors"`
	Sheets  []SheetSummary `json:"sheets"`
}

func (s *ImportSummary) sheet(name string) *SheetSummary {
	for i := range s.Sheets {
		if s.Sheets[i].Sheet == name {
			return &s.Sheets[i]
		}
	}
	s.Sheets = append(s.Sheets, SheetSummary{Sheet: name})
	return &s.Sheets[len(s.Sheets)-1]
}

// AddRejected adds rows rejected before reaching the service.
// Sheets are then listed in the order of sheets, including empty ones, and Errors are sorted by sheet and line.
func (s *ImportSummary) AddRejected(sheets []string, rejected ...RowError) {
	for _, name := range sheets {
		s.sheet(name)
	}
	for _, rowErr := range rejected {
		s.sheet(rowErr.Sheet).Rejected++
		s.Errors = append(s.Errors, rowErr)
	}

	rank := make(map[string]int, len(sheets))
	for i, name := range sheets {
		rank[name] = i
	}
	rankOf := func(name string) int {
		if i, ok := rank[name]; ok {
			return i
		}
		return len(sheets)
	}
	sort.SliceStable(s.Sheets, func(i, j int) bool { return rankOf(s.Sheets[i].Sheet) < rankOf(s.Sheets[j].Sheet) })
	sort.SliceStable(s.Errors, func(i, j int) bool {
		a, b := s.Errors[i], s.Errors[j]
		if ra, rb := rankOf(a.Sheet), rankOf(b.Sheet); ra != rb {
			return ra < rb
		}
		return a.Line < b.Line
	})
}
