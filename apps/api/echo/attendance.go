package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

type attendanceApi struct {
	svc attendance.ServiceInterface
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc attendance.ServiceInterface) {
	api := attendanceApi{svc: svc}

	ag := g.Group("/attendance", jwt, teacherMiddleware())
	ag.POST("", api.create)
	ag.GET("/daily", api.daily)
	ag.PATCH("/:id", api.update)
	ag.DELETE("/:id", api.destroy)

	sg := g.Group("/students/:id/attendance", jwt, staffMiddleware())
	sg.GET("", api.history)
	sg.GET("/consensus", api.consensus)
}

// dateParam returns the "date" query param, today (UTC) when missing.
func dateParam(ctx echo.Context) string {
	if date := ctx.QueryParam("date"); date != "" {
		return date
	}
	return attendance.DateOf(attendance.NowFunc().UTC()).String()
}

// Handlers

func (api *attendanceApi) create(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data attendance.NewRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}

	rec, err := api.svc.Record(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data attendance.UpdateRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}

	rec, err := api.svc.Update(ctx.Request().Context(), p, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	deleted, err := api.svc.Delete(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	if !deleted {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) daily(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	view, err := api.svc.DailyView(ctx.Request().Context(), p, dateParam(ctx))
	if err != nil {
		return errors.Wrap(err, "building daily view")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *attendanceApi) history(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var q attendance.HistoryQuery
	if err = ctx.Bind(&q); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "limit", Error: "limit must be a number"})
	}

	recs, err := api.svc.StudentHistory(ctx.Request().Context(), p, ctx.Param("id"), q)
	if err != nil {
		return errors.Wrap(err, "getting student history")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) consensus(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	view, err := api.svc.Consensus(ctx.Request().Context(), p, ctx.Param("id"), dateParam(ctx))
	if err != nil {
		return errors.Wrap(err, "getting consensus")
	}
	return ctx.JSON(http.StatusOK, view)
}
