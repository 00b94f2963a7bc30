package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/metricampus/core"
	"github.com/trezcool/metricampus/core/schedule"
)

type blockRepository struct {
	db *blockTable
}

var _ schedule.Repository = (*blockRepository)(nil) // interface compliance check

func NewBlockRepository(db *DB) schedule.Repository {
	return &blockRepository{db: db.block}
}

func (repo *blockRepository) CreateBlock(_ context.Context, blk schedule.ClassBlock) (schedule.ClassBlock, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[blk.ID] = &blk
	return blk, nil
}

func (repo *blockRepository) GetBlockByID(_ context.Context, id string) (schedule.ClassBlock, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if blk, ok := repo.db.table[id]; ok {
		return *blk, nil
	}
	return schedule.ClassBlock{}, schedule.ErrNotFound
}

func (repo *blockRepository) QueryBlocks(
	_ context.Context,
	filter schedule.QueryFilter,
	orderings ...core.DBOrdering,
) ([]schedule.ClassBlock, error) {
	repo.db.RLock()
	blocks := make([]schedule.ClassBlock, 0, len(repo.db.table))
	for _, blk := range repo.db.table {
		if filter.Match(*blk) {
			blocks = append(blocks, *blk)
		}
	}
	repo.db.RUnlock()

	sort.SliceStable(blocks, func(i, j int) bool {
		for _, ord := range orderings {
			if c := compareField(blocks[i], blocks[j], ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return blocks[i].ID < blocks[j].ID
	})
	return blocks, nil
}

// compareField returns -1, 0 or 1 as a's field is less than, equal to or greater than b's.
func compareField(a, b schedule.ClassBlock, field string) int {
	switch field {
	case "day_of_week":
		return compareInts(a.DayOfWeek, b.DayOfWeek)
	case "start_time":
		return compareInts(a.StartTime.Minutes(), b.StartTime.Minutes())
	case "end_time":
		return compareInts(a.EndTime.Minutes(), b.EndTime.Minutes())
	case "subject_name":
		return strings.Compare(strings.ToLower(a.SubjectName), strings.ToLower(b.SubjectName))
	case "teacher_name":
		return strings.Compare(strings.ToLower(a.TeacherName), strings.ToLower(b.TeacherName))
	case "group_name":
		return strings.Compare(strings.ToLower(a.GroupName), strings.ToLower(b.GroupName))
	case "room":
		return strings.Compare(strings.ToLower(a.Room), strings.ToLower(b.Room))
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (repo *blockRepository) UpdateBlock(_ context.Context, blk schedule.ClassBlock) (schedule.ClassBlock, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[blk.ID]
	if !ok {
		return schedule.ClassBlock{}, schedule.ErrNotFound
	}
	blk.CreatedAt = orig.CreatedAt
	repo.db.table[blk.ID] = &blk
	return blk, nil
}

func (repo *blockRepository) DeleteBlocksByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
