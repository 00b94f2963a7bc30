package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/metricampus/core"
	"github.com/trezcool/metricampus/core/layout"
)

type (
	// LayoutDayRequest lays out blocks of a single day-track; their day_of_week is ignored.
	LayoutDayRequest struct {
		Window *layout.Window  `json:"window"`
		Blocks []layout.Block `json:"blocks" validate:"required,max=500"`
	}

	PlacedGeometry struct {
		layout.Placed
		Geometry layout.Geometry `json:"geometry"`
	}

	LayoutDayResponse struct {
		Window layout.Window    `json:"window"`
		Blocks []PlacedGeometry `json:"blocks"`
	}
)

type layoutApi struct {
	window   layout.Window
	validate *validator.Validate
}

func registerLayoutAPI(g *echo.Group, window layout.Window, validate *validator.Validate) {
	api := layoutApi{window: window, validate: validate}

	lg := g.Group("/layout")
	lg.POST("/day", api.day)
}

func (api *layoutApi) day(ctx echo.Context) error {
	var data LayoutDayRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LayoutDayRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	window := api.window
	if data.Window != nil {
		if err := data.Window.Validate(); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "window", Error: err.Error()})
		}
		window = *data.Window
	}

	placed := layout.LayoutDay(data.Blocks)
	resp := LayoutDayResponse{
		Window: window,
		Blocks: make([]PlacedGeometry, 0, len(placed)),
	}
	for _, p := range placed {
		resp.Blocks = append(resp.Blocks, PlacedGeometry{Placed: p, Geometry: window.Place(p)})
	}
	return ctx.JSON(http.StatusOK, resp)
}
