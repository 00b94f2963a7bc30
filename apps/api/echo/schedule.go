package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/metricampus/core"
	"github.com/trezcool/metricampus/core/schedule"
	importsvc "github.com/trezcool/metricampus/services/importer"
	rendersvc "github.com/trezcool/metricampus/services/render"
)

var (
	errBlockNotFoundInCtx = errors.New("class block object not found in echo.Context")
)

type scheduleApi struct {
	svc           schedule.Service
	validate      *validator.Validate
	translator    ut.Translator
	maxImportSize int64
}

func registerScheduleAPI(
	g *echo.Group,
	svc schedule.Service,
	validate *validator.Validate,
	translator ut.Translator,
	maxImportSize int64,
) {
	api := scheduleApi{
		svc:           svc,
		validate:      validate,
		translator:    translator,
		maxImportSize: maxImportSize,
	}

	sg := g.Group("/schedule")
	sg.GET("/week", api.week)
	sg.GET("/week.svg", api.weekSVG)

	bg := sg.Group("/blocks")
	bg.GET("", api.query)
	bg.POST("", api.create)
	bg.DELETE("", api.destroyMultiple)
	bg.POST("/import", api.importFile)

	// detail endpoints
	dg := bg.Group("/:id", blockDetailMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// blockDetailMiddleware sets the block identified by the `id` path param as the context "object".
func blockDetailMiddleware(svc schedule.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			blk, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == schedule.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding class block by ID")
			}
			ctx.Set("object", blk)
			return next(ctx)
		}
	}
}

// Handlers

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewClassBlock
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassBlock")
	}
	data.ID = "" // set by the service
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	blk, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class block")
	}
	return ctx.JSON(http.StatusCreated, blk)
}

func (api *scheduleApi) query(ctx echo.Context) error {
	filter := new(schedule.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []schedule.ClassBlock{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, schedule.OrderingFields...)

	blocks, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying class blocks")
	}
	if blocks == nil {
		blocks = []schedule.ClassBlock{}
	}
	return ctx.JSON(http.StatusOK, blocks)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	blk, ok := ctx.Get("object").(schedule.ClassBlock)
	if !ok {
		return errors.Wrap(errBlockNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, blk)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	blk, ok := ctx.Get("object").(schedule.ClassBlock)
	if !ok {
		return errors.Wrap(errBlockNotFoundInCtx, "retrieving object from context")
	}

	var data schedule.UpdateClassBlock
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassBlock")
	}
	nb := data.Apply(blk)
	if err := nb.Validate(api.validate); err != nil {
		return err
	}

	blk, err := api.svc.Update(ctx.Request().Context(), blk.ID, nb)
	if err != nil {
		return errors.Wrap(err, "updating class block")
	}
	return ctx.JSON(http.StatusOK, blk)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	blk, ok := ctx.Get("object").(schedule.ClassBlock)
	if !ok {
		return errors.Wrap(errBlockNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), blk.ID); err != nil {
		return errors.Wrap(err, "deleting class block")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	query.Bind(ctx)
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting class blocks")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) importFile(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})
	}
	if api.maxImportSize > 0 && fh.Size > api.maxImportSize {
		return core.NewValidationError(nil, core.FieldError{
			Field: "file",
			Error: fmt.Sprintf("file too large, max %d bytes", api.maxImportSize),
		})
	}

	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = file.Close() }()

	f, err := importsvc.Read(fh.Filename, file)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
	}

	summary, err := f.Import(ctx.Request().Context(), api.svc)
	if err != nil {
		return errors.Wrap(err, "importing class blocks")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *scheduleApi) weekLayout(ctx echo.Context) (schedule.WeekLayout, error) {
	filter := new(schedule.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return schedule.WeekLayout{}, core.NewValidationError(err)
	}
	week, err := api.svc.Week(ctx.Request().Context(), *filter)
	if err != nil {
		return schedule.WeekLayout{}, errors.Wrap(err, "laying out week")
	}
	return week, nil
}

func (api *scheduleApi) week(ctx echo.Context) error {
	week, err := api.weekLayout(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *scheduleApi) weekSVG(ctx echo.Context) error {
	week, err := api.weekLayout(ctx)
	if err != nil {
		return err
	}
	ctx.Response().Header().Set(echo.HeaderContentType, "image/svg+xml")
	ctx.Response().WriteHeader(http.StatusOK)
	return rendersvc.SVG(ctx.Response(), week, rendersvc.Options{})
}
