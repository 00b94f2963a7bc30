package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/metricampus/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the `ordering` query param, e.g. `?ordering=day_of_week,-start_time`.
// Only `allowed` fields are kept.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	ord.Orderings = core.ParseOrderings(val, allowed...)
}

type DestroyMultipleRequest struct {
	IDs []string `query:"id"`
}

func (req *DestroyMultipleRequest) Bind(ctx echo.Context) {
	for _, id := range ctx.QueryParams()["id"] {
		if id = core.CleanString(id, true /* lower */); id != "" {
			req.IDs = append(req.IDs, id)
		}
	}
}
