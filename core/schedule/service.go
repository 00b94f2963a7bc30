package schedule

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/metricampus/core"
	"github.com/trezcool/metricampus/core/layout"
)

var (
	// errors
	ErrNotFound = errors.New("class block not found")
)

type (
	Repository interface {
		CreateBlock(ctx context.Context, block ClassBlock) (ClassBlock, error)
		GetBlockByID(ctx context.Context, id string) (ClassBlock, error)
		// QueryBlocks applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of SubjectName, TeacherName, GroupName or Room.
		QueryBlocks(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]ClassBlock, error)
		UpdateBlock(ctx context.Context, block ClassBlock) (ClassBlock, error)
		DeleteBlocksByID(ctx context.Context, ids ...string) error
	}

	// LayoutCache stores computed week layouts. It is flushed on every write.
	// GetWeek returns a token naming the slot the week was looked up in; SetWeek writes to that slot only,
	// so a week computed before a Flush is never stored as current.
	LayoutCache interface {
		GetWeek(ctx context.Context, key string) (week WeekLayout, token string, found bool, err error)
		SetWeek(ctx context.Context, token string, week WeekLayout) error
		Flush(ctx context.Context) error
	}

	Service interface {
		Window() layout.Window
		Create(ctx context.Context, nb NewClassBlock) (ClassBlock, error)
		// Import validates and upserts rows one by one: rows with an ID update the existing block.
		// Invalid rows are reported in the summary, they do not abort the import.
		Import(ctx context.Context, rows []ImportRow) (ImportSummary, error)
		Get(ctx context.Context, id string) (ClassBlock, error)
		Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]ClassBlock, error)
		Update(ctx context.Context, id string, nb NewClassBlock) (ClassBlock, error)
		Delete(ctx context.Context, ids ...string) error
		Week(ctx context.Context, filter QueryFilter) (WeekLayout, error)
	}

	service struct {
		repo       Repository
		cache      LayoutCache
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		window     layout.Window
		days       int
	}
)

var _ Service = (*service)(nil)

// NewService returns the schedule service. cache may be nil to disable layout caching.
func NewService(
	repo Repository,
	cache LayoutCache,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
) (Service, error) {
	window := layout.Window{
		StartHour:  conf.Grid.StartHour,
		EndHour:    conf.Grid.EndHour,
		RowMinutes: conf.Grid.RowMinutes,
	}
	if err := window.Validate(); err != nil {
		return nil, errors.Wrap(err, "schedule: invalid grid")
	}
	if conf.Grid.Days < 1 || conf.Grid.Days > layout.DaysPerWeek {
		return nil, errors.Errorf("schedule: invalid grid days: %d", conf.Grid.Days)
	}
	if cache == nil {
		cache = noCache{}
	}
	return &service{
		repo:       repo,
		cache:      cache,
		logger:     logger,
		validate:   validate,
		translator: translator,
		window:     window,
		days:       conf.Grid.Days,
	}, nil
}

func (svc *service) Window() layout.Window {
	return svc.window
}

func (svc *service) flushLayouts(ctx context.Context) {
	if err := svc.cache.Flush(ctx); err != nil {
		svc.logger.Warn("schedule: flushing layout cache", err)
	}
}

func (svc *service) Create(ctx context.Context, nb NewClassBlock) (ClassBlock, error) {
	blk, err := nb.block()
	if err != nil {
		return ClassBlock{}, err
	}
	now := time.Now().UTC()
	blk.ID = uuid.New().String()
	blk.CreatedAt = now
	blk.UpdatedAt = now

	blk, err = svc.repo.CreateBlock(ctx, blk)
	if err != nil {
		return ClassBlock{}, err
	}
	svc.flushLayouts(ctx)
	return blk, nil
}

func (svc *service) Import(ctx context.Context, rows []ImportRow) (ImportSummary, error) {
	summary := ImportSummary{Errors: []RowError{}, Sheets: []SheetSummary{}}
	defer func() {
		if summary.Created+summary.Updated > 0 {
			svc.flushLayouts(ctx)
		}
	}()

	for _, row := range rows {
		sheet := summary.sheet(row.Sheet)
		nb := row.Block
		fldErrs, err := svc.validateRow(&nb)
		if err != nil {
			return summary, err
		}
		if len(fldErrs) > 0 {
			summary.Errors = append(summary.Errors, RowError{Sheet: row.Sheet, Line: row.Line, Errors: fldErrs})
			sheet.Rejected++
			continue
		}

		blk, err := nb.block()
		if err != nil {
			return summary, err
		}
		now := time.Now().UTC()
		blk.UpdatedAt = now

		if nb.ID != "" {
			orig, err := svc.repo.GetBlockByID(ctx, nb.ID)
			switch {
			case err == nil:
				blk.CreatedAt = orig.CreatedAt
				if _, err = svc.repo.UpdateBlock(ctx, blk); err != nil {
					return summary, errors.Wrapf(err, "line %d", row.Line)
				}
				summary.Updated++
				sheet.Updated++
				continue
			case !errors.Is(err, ErrNotFound):
				return summary, errors.Wrapf(err, "line %d", row.Line)
			}
		} else {
			blk.ID = uuid.New().String()
		}

		blk.CreatedAt = now
		if _, err = svc.repo.CreateBlock(ctx, blk); err != nil {
			return summary, errors.Wrapf(err, "line %d", row.Line)
		}
		summary.Created++
		sheet.Created++
	}
	return summary, nil
}

// validateRow returns the field errors of nb, if any.
func (svc *service) validateRow(nb *NewClassBlock) (map[string]string, error) {
	err := nb.Validate(svc.validate)
	if err == nil {
		return nil, nil
	}
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return core.TranslateErrors(vErrs, svc.translator), nil
	}
	return nil, err
}

func (svc *service) Get(ctx context.Context, id string) (ClassBlock, error) {
	return svc.repo.GetBlockByID(ctx, core.CleanString(id, true /* lower */))
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]ClassBlock, error) {
	filter.Clean()
	if len(orderings) == 0 {
		orderings = defaultOrderings
	}
	return svc.repo.QueryBlocks(ctx, filter, orderings...)
}

func (svc *service) Update(ctx context.Context, id string, nb NewClassBlock) (ClassBlock, error) {
	orig, err := svc.repo.GetBlockByID(ctx, id)
	if err != nil {
		return ClassBlock{}, err
	}
	blk, err := nb.block()
	if err != nil {
		return ClassBlock{}, err
	}
	blk.ID = orig.ID
	blk.CreatedAt = orig.CreatedAt
	blk.UpdatedAt = time.Now().UTC()

	blk, err = svc.repo.UpdateBlock(ctx, blk)
	if err != nil {
		return ClassBlock{}, err
	}
	svc.flushLayouts(ctx)
	return blk, nil
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := svc.repo.DeleteBlocksByID(ctx, ids...); err != nil {
		return err
	}
	svc.flushLayouts(ctx)
	return nil
}

func (svc *service) Week(ctx context.Context, filter QueryFilter) (WeekLayout, error) {
	filter.Clean()
	key := filter.Key()

	week, token, found, err := svc.cache.GetWeek(ctx, key)
	if err != nil {
		svc.logger.Warn("schedule: reading layout cache", err)
	} else if found {
		return week, nil
	}

	blocks, err := svc.repo.QueryBlocks(ctx, filter, defaultOrderings...)
	if err != nil {
		return WeekLayout{}, err
	}
	week = BuildWeek(blocks, svc.window, svc.days)

	if token != "" {
		if err = svc.cache.SetWeek(ctx, token, week); err != nil {
			svc.logger.Warn("schedule: writing layout cache", err)
		}
	}
	return week, nil
}

// BuildWeek lays out blocks in the weekly grid.
// The first `days` days are always present; later days only when they hold blocks.
func BuildWeek(blocks []ClassBlock, window layout.Window, days int) WeekLayout {
	byID := make(map[string]ClassBlock, len(blocks))
	lblocks := make([]layout.Block, 0, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
		lblocks = append(lblocks, b.LayoutBlock())
	}

	placedWeek, _ := layout.LayoutWeek(lblocks)

	week := WeekLayout{
		Window: window,
		Rows:   window.Rows(),
		Days:   make([]DayLayout, 0, layout.DaysPerWeek),
	}
	for day := 1; day <= layout.DaysPerWeek; day++ {
		placed := placedWeek.Day(day)
		if day > days && len(placed) == 0 {
			continue
		}
		dl := DayLayout{
			DayOfWeek: day,
			Name:      layout.DayName(day),
			Blocks:    make([]PlacedBlock, 0, len(placed)),
		}
		for _, p := range placed {
			dl.Blocks = append(dl.Blocks, PlacedBlock{
				ClassBlock:  byID[p.ID],
				StartMinute: p.StartMinute,
				EndMinute:   p.EndMinute,
				Column:      p.Column,
				ColumnCount: p.ColumnCount,
				Geometry:    window.Place(p),
			})
		}
		week.Days = append(week.Days, dl)
	}
	return week
}

type noCache struct{}

func (noCache) GetWeek(context.Context, string) (WeekLayout, string, bool, error) {
	return WeekLayout{}, "", false, nil
}
func (noCache) SetWeek(context.Context, string, WeekLayout) error { return nil }
func (noCache) Flush(context.Context) error                       { return nil }
