package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/metricampus/core"
	"github.com/trezcool/metricampus/core/layout"
	"github.com/trezcool/metricampus/core/schedule"
)

const (
	blockTable   = "class_block"
	blockColumns = "id, day_of_week, start_minute, end_minute, subject_id, subject_name, teacher_id, teacher_name, " +
		"group_id, group_name, room, modality, created_at, updated_at"
)

// orderingColumns maps schedule.OrderingFields to columns.
var orderingColumns = map[string]string{
	"day_of_week":  "day_of_week",
	"start_time":   "start_minute",
	"end_time":     "end_minute",
	"subject_name": "subject_name",
	"teacher_name": "teacher_name",
	"group_name":   "group_name",
	"room":         "room",
	"created_at":   "created_at",
}

type blockRow struct {
	ID          string       `db:"id"`
	DayOfWeek   int          `db:"day_of_week"`
	StartMinute layout.Clock `db:"start_minute"`
	EndMinute   layout.Clock `db:"end_minute"`
	SubjectID   null.String  `db:"subject_id"`
	SubjectName string       `db:"subject_name"`
	TeacherID   null.String  `db:"teacher_id"`
	TeacherName null.String  `db:"teacher_name"`
	GroupID     null.String  `db:"group_id"`
	GroupName   string       `db:"group_name"`
	Room        null.String  `db:"room"`
	Modality    string       `db:"modality"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

func toRow(blk schedule.ClassBlock) blockRow {
	return blockRow{
		ID:          blk.ID,
		DayOfWeek:   blk.DayOfWeek,
		StartMinute: blk.StartTime,
		EndMinute:   blk.EndTime,
		SubjectID:   null.NewString(blk.SubjectID, blk.SubjectID != ""),
		SubjectName: blk.SubjectName,
		TeacherID:   null.NewString(blk.TeacherID, blk.TeacherID != ""),
		TeacherName: null.NewString(blk.TeacherName, blk.TeacherName != ""),
		GroupID:     null.NewString(blk.GroupID, blk.GroupID != ""),
		GroupName:   blk.GroupName,
		Room:        null.NewString(blk.Room, blk.Room != ""),
		Modality:    string(blk.Modality),
		CreatedAt:   blk.CreatedAt.UTC(),
		UpdatedAt:   blk.UpdatedAt.UTC(),
	}
}

func (row blockRow) block() schedule.ClassBlock {
	return schedule.ClassBlock{
		ID:          row.ID,
		DayOfWeek:   row.DayOfWeek,
		StartTime:   row.StartMinute,
		EndTime:     row.EndMinute,
		SubjectID:   row.SubjectID.String,
		SubjectName: row.SubjectName,
		TeacherID:   row.TeacherID.String,
		TeacherName: row.TeacherName.String,
		GroupID:     row.GroupID.String,
		GroupName:   row.GroupName,
		Room:        row.Room.String,
		Modality:    schedule.Modality(row.Modality),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type blockRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*blockRepository)(nil) // interface compliance check

func NewBlockRepository(db *sqlx.DB) *blockRepository {
	return &blockRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to schedule.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return schedule.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo blockRepository) CreateBlock(ctx context.Context, blk schedule.ClassBlock) (schedule.ClassBlock, error) {
	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (:id, :day_of_week, :start_minute, :end_minute, :subject_id, :subject_name, "+
			":teacher_id, :teacher_name, :group_id, :group_name, :room, :modality, :created_at, :updated_at)",
		blockTable, blockColumns,
	)
	row := toRow(blk)
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return schedule.ClassBlock{}, errors.Wrap(err, "inserting class block")
	}
	return row.block(), nil
}

func (repo blockRepository) GetBlockByID(ctx context.Context, id string) (schedule.ClassBlock, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.ClassBlock{}, schedule.ErrNotFound
	}
	var row blockRow
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", blockColumns, blockTable)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return schedule.ClassBlock{}, trapNoRowsErr(err, "finding class block by ID")
	}
	return row.block(), nil
}

func (repo blockRepository) QueryBlocks(
	ctx context.Context,
	filter schedule.QueryFilter,
	orderings ...core.DBOrdering,
) ([]schedule.ClassBlock, error) {
	q, args := buildQuery(filter, orderings)
	var rows []blockRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying class blocks")
	}

	blocks := make([]schedule.ClassBlock, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, row.block())
	}
	return blocks, nil
}

// likeEscaper escapes LIKE wildcards, backslash being Postgres' default escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// buildQuery returns the SELECT statement matching filter, with its positional args.
func buildQuery(filter schedule.QueryFilter, orderings []core.DBOrdering) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// blocks with SubjectName, TeacherName, GroupName or Room matching the search keyword
	if filter.Search != "" {
		val := arg("%" + likeEscaper.Replace(filter.Search) + "%")
		where = append(where, fmt.Sprintf(
			"(subject_name ILIKE %[1]s OR teacher_name ILIKE %[1]s OR group_name ILIKE %[1]s OR room ILIKE %[1]s)", val,
		))
	}
	if len(filter.Days) > 0 {
		days := make([]int64, 0, len(filter.Days))
		for _, d := range filter.Days {
			days = append(days, int64(d))
		}
		where = append(where, "day_of_week = ANY("+arg(pq.Array(days))+")")
	}
	if filter.TeacherID != "" {
		where = append(where, "teacher_id = "+arg(filter.TeacherID))
	}
	if filter.GroupID != "" {
		where = append(where, "group_id = "+arg(filter.GroupID))
	}
	if filter.Room != "" {
		where = append(where, "lower(room) = lower("+arg(filter.Room)+")")
	}
	if filter.Modality != "" {
		where = append(where, "modality = "+arg(filter.Modality))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("SELECT %s FROM %s", blockColumns, blockTable))
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	orderList := make([]string, 0, len(orderings)+1)
	for _, ord := range orderings {
		if col, ok := orderingColumns[ord.Field]; ok {
			orderList = append(orderList, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	orderList = append(orderList, "id ASC") // stable pages
	sb.WriteString(" ORDER BY ")
	sb.WriteString(strings.Join(orderList, ", "))

	return sb.String(), args
}

func (repo blockRepository) UpdateBlock(ctx context.Context, blk schedule.ClassBlock) (schedule.ClassBlock, error) {
	q := fmt.Sprintf(
		"UPDATE %s SET day_of_week = :day_of_week, start_minute = :start_minute, end_minute = :end_minute, "+
			"subject_id = :subject_id, subject_name = :subject_name, teacher_id = :teacher_id, "+
			"teacher_name = :teacher_name, group_id = :group_id, group_name = :group_name, room = :room, "+
			"modality = :modality, updated_at = :updated_at WHERE id = :id",
		blockTable,
	)
	row := toRow(blk)
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return schedule.ClassBlock{}, errors.Wrap(err, "updating class block")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return schedule.ClassBlock{}, errors.Wrap(err, "updating class block")
	}
	if n == 0 {
		return schedule.ClassBlock{}, schedule.ErrNotFound
	}
	return row.block(), nil
}

func (repo blockRepository) DeleteBlocksByID(ctx context.Context, ids ...string) error {
	validIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			validIDs = append(validIDs, id)
		}
	}
	if len(validIDs) == 0 {
		return nil
	}

	q, args, err := sqlx.In(fmt.Sprintf("DELETE FROM %s WHERE id IN (?)", blockTable), validIDs)
	if err != nil {
		return errors.Wrap(err, "deleting class blocks")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting class blocks")
	}
	return nil
}
