package schedule_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/metricampus/core"
	"github.com/trezcool/metricampus/core/layout"
	"github.com/trezcool/metricampus/core/schedule"
	logsvc "github.com/trezcool/metricampus/services/logger"
	inmemdb "github.com/trezcool/metricampus/storage/database/inmem"
	"github.com/trezcool/metricampus/tests"
)

// memCache counts cache hits and flushes.
type memCache struct {
	weeks      map[string]schedule.WeekLayout
	generation int
	hits       int
	flushes    int
	failGet    bool
}

func newMemCache() *memCache {
	return &memCache{weeks: make(map[string]schedule.WeekLayout)}
}

func (c *memCache) GetWeek(_ context.Context, key string) (schedule.WeekLayout, string, bool, error) {
	if c.failGet {
		return schedule.WeekLayout{}, "", false, errors.New("cache down")
	}
	token := fmt.Sprintf("%d:%s", c.generation, key)
	week, ok := c.weeks[token]
	if ok {
		c.hits++
	}
	return week, token, ok, nil
}

func (c *memCache) SetWeek(_ context.Context, token string, week schedule.WeekLayout) error {
	c.weeks[token] = week
	return nil
}

func (c *memCache) Flush(context.Context) error {
	c.flushes++
	c.generation++
	c.weeks = make(map[string]schedule.WeekLayout)
	return nil
}

func setup(t *testing.T, cache schedule.LayoutCache) (schedule.Service, schedule.Repository) {
	repo := inmemdb.NewBlockRepository(inmemdb.Open())
	validate, translator := testutil.Validator()
	svc, err := schedule.NewService(
		repo, cache, logsvc.NewZapLogger(zap.NewNop()), validate, translator, testutil.Config(),
	)
	require.NoError(t, err)
	return svc, repo
}

func TestNewServiceInvalidGrid(t *testing.T) {
	validate, translator := testutil.Validator()
	logger := logsvc.NewZapLogger(zap.NewNop())

	conf := testutil.Config()
	conf.Grid.EndHour = conf.Grid.StartHour
	_, err := schedule.NewService(nil, nil, logger, validate, translator, conf)
	assert.Error(t, err)

	conf = testutil.Config()
	conf.Grid.Days = 0
	_, err = schedule.NewService(nil, nil, logger, validate, translator, conf)
	assert.Error(t, err)
}

func TestServiceCRUD(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	svc, _ := setup(t, cache)

	created, err := svc.Create(ctx, validBlock())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, layout.NewClock(8, 0), created.StartTime)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, 1, cache.flushes)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	upd := schedule.UpdateClassBlock{Room: new(string)}
	*upd.Room = "C-3"
	nb := upd.Apply(got)
	updated, err := svc.Update(ctx, created.ID, nb)
	require.NoError(t, err)
	assert.Equal(t, "C-3", updated.Room)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, 2, cache.flushes)

	_, err = svc.Update(ctx, "nope", nb)
	assert.Equal(t, schedule.ErrNotFound, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Equal(t, 3, cache.flushes)
	_, err = svc.Get(ctx, created.ID)
	assert.Equal(t, schedule.ErrNotFound, err)

	require.NoError(t, svc.Delete(ctx))
	assert.Equal(t, 3, cache.flushes, "nothing to delete, nothing to flush")
}

func TestServiceQuery(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t, nil)

	physics := testutil.CreateBlock(t, repo, 2, "08:00", "09:00", "Physics", "1A")
	calcLate := testutil.CreateBlock(t, repo, 1, "10:00", "12:00", "Calculus I", "1A")
	calcEarly := testutil.CreateBlock(t, repo, 1, "08:00", "10:00", "Calculus I", "1B")

	blocks, err := svc.Query(ctx, schedule.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, []string{calcEarly.ID, calcLate.ID, physics.ID}, []string{blocks[0].ID, blocks[1].ID, blocks[2].ID})

	blocks, err = svc.Query(ctx, schedule.QueryFilter{Search: " calc "}, core.DBOrdering{Field: "start_time"})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, calcLate.ID, blocks[0].ID)
}

func TestServiceWeek(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	svc, repo := setup(t, cache)

	a := testutil.CreateBlock(t, repo, 1, "08:00", "10:00", "Calculus I", "1A")
	b := testutil.CreateBlock(t, repo, 1, "09:00", "11:00", "Physics", "1B")
	c := testutil.CreateBlock(t, repo, 1, "11:00", "12:00", "Algebra", "1A")
	sunday := testutil.CreateBlock(t, repo, 7, "10:00", "11:00", "Chess", "Club")

	week, err := svc.Week(ctx, schedule.QueryFilter{})
	require.NoError(t, err)

	assert.Equal(t, layout.DefaultWindow, week.Window)
	assert.Len(t, week.Rows, 26)

	// Monday - Saturday always, Sunday because it has a block
	require.Len(t, week.Days, 7)
	assert.Equal(t, "Monday", week.Days[0].Name)
	assert.Empty(t, week.Days[1].Blocks)
	assert.NotNil(t, week.Days[1].Blocks)

	monday := make(map[string]schedule.PlacedBlock)
	for _, pb := range week.Days[0].Blocks {
		monday[pb.ID] = pb
	}
	require.Len(t, monday, 3)
	assert.Equal(t, 2, monday[a.ID].ColumnCount)
	assert.Equal(t, 2, monday[b.ID].ColumnCount)
	assert.NotEqual(t, monday[a.ID].Column, monday[b.ID].Column)
	assert.Equal(t, 1, monday[c.ID].ColumnCount, "back to back with a, new cluster")
	assert.Equal(t, "Physics", monday[b.ID].SubjectName)
	assert.InDelta(t, 50, monday[a.ID].Geometry.Width, 1e-9)
	assert.True(t, monday[a.ID].Geometry.Visible)
	assert.Equal(t, 3, monday[a.ID].Geometry.Row)

	require.Len(t, week.Days[6].Blocks, 1)
	assert.Equal(t, sunday.ID, week.Days[6].Blocks[0].ID)

	// cached until the next write
	_, err = svc.Week(ctx, schedule.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	require.NoError(t, svc.Delete(ctx, sunday.ID))
	week, err = svc.Week(ctx, schedule.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Len(t, week.Days, 6)
}

func TestServiceWeekCacheDown(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	cache.failGet = true
	svc, repo := setup(t, cache)

	testutil.CreateBlock(t, repo, 1, "08:00", "10:00", "Calculus I", "1A")

	week, err := svc.Week(ctx, schedule.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, week.Days[0].Blocks, 1)
}

func TestServiceImport(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	svc, repo := setup(t, cache)

	existing := testutil.CreateBlock(t, repo, 1, "08:00", "10:00", "Calculus I", "1A")

	update := validBlock()
	update.ID = existing.ID
	update.Room = "C-3"

	withID := validBlock()
	withID.ID = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"

	invalid := validBlock()
	invalid.EndTime = "07:00"

	summary, err := svc.Import(ctx, []schedule.ImportRow{
		{Line: 2, Block: validBlock()},
		{Line: 3, Block: update},
		{Line: 4, Block: invalid},
		{Line: 5, Block: withID},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Updated)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 4, summary.Errors[0].Line)
	assert.Equal(t, map[string]string{"end_time": "end time must be after start time"}, summary.Errors[0].Errors)
	assert.Equal(t, []schedule.SheetSummary{{Created: 2, Updated: 1, Rejected: 1}}, summary.Sheets)
	assert.Equal(t, 1, cache.flushes)

	got, err := svc.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "C-3", got.Room)
	assert.Equal(t, existing.CreatedAt, got.CreatedAt)

	_, err = svc.Get(ctx, withID.ID)
	assert.NoError(t, err)

	blocks, err := svc.Query(ctx, schedule.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, blocks, 3)
}

func TestServiceImportNothingValid(t *testing.T) {
	cache := newMemCache()
	svc, _ := setup(t, cache)

	summary, err := svc.Import(context.Background(), []schedule.ImportRow{{Line: 2}})
	require.NoError(t, err)
	assert.Zero(t, summary.Created)
	assert.Len(t, summary.Errors, 1)
	assert.Zero(t, cache.flushes)
}

// vanishingRepo loses every block between its lookup and its update.
type vanishingRepo struct {
	schedule.Repository
}

func (vanishingRepo) UpdateBlock(context.Context, schedule.ClassBlock) (schedule.ClassBlock, error) {
	return schedule.ClassBlock{}, schedule.ErrNotFound
}

func TestServiceImportKeepsErrorCause(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewBlockRepository(inmemdb.Open())
	validate, translator := testutil.Validator()
	svc, err := schedule.NewService(
		vanishingRepo{repo}, nil, logsvc.NewZapLogger(zap.NewNop()), validate, translator, testutil.Config(),
	)
	require.NoError(t, err)

	existing := testutil.CreateBlock(t, repo, 1, "08:00", "10:00", "Calculus I", "1A")
	nb := validBlock()
	nb.ID = existing.ID

	_, err = svc.Import(ctx, []schedule.ImportRow{{Sheet: "Lunes", Line: 7, Block: nb}})
	require.Error(t, err)
	assert.Equal(t, "line 7: class block not found", err.Error())
	assert.Equal(t, schedule.ErrNotFound, errors.Cause(err))
}
