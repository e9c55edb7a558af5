package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/track"
)

type trackApi struct {
	srv *server
}

func registerTrackAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *server) {
	api := trackApi{srv: srv}

	tg := g.Group("/tracks", jwt)
	tg.GET("", api.query)
	tg.POST("", api.create, adminMiddleware())

	dg := tg.Group("/:id", api.trackMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/courses", api.addCourse, adminMiddleware())
}

// trackMiddleware loads the track of the `:id` path param into the context as "object".
// Unpublished tracks are only visible to admins.
func (api *trackApi) trackMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		t, err := api.srv.TrackSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == track.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding track by ID")
		}
		if !t.Published && !claims.IsAdmin {
			return errHttpNotFound
		}
		ctx.Set("object", t)
		return next(ctx)
	}
}

func (api *trackApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	filter := new(track.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []track.Track{})
	}
	filter.Clean()
	if !claims.IsAdmin {
		published := true
		filter.Published = &published
	}

	tracks, err := api.srv.TrackSvc.Query(ctx.Request().Context(), filter, bindOrdering(ctx, "title", "slug", "price", "created_at"))
	if err != nil {
		return errors.Wrap(err, "querying tracks")
	}
	if tracks == nil {
		tracks = []track.Track{}
	}
	return ctx.JSON(http.StatusOK, tracks)
}

func (api *trackApi) create(ctx echo.Context) error {
	var data track.NewTrack
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTrack")
	}
	if err := data.Validate(ctx.Request().Context(), api.srv.Validate, api.srv.TrackSvc); err != nil {
		return err
	}

	t, err := api.srv.TrackSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating track")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *trackApi) retrieve(ctx echo.Context) error {
	t, ok := ctx.Get("object").(track.Track)
	if !ok {
		return errors.New("track object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *trackApi) update(ctx echo.Context) error {
	t, ok := ctx.Get("object").(track.Track)
	if !ok {
		return errors.New("track object not found in echo.Context")
	}

	var data track.UpdateTrack
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTrack")
	}
	if err := data.Validate(t, api.srv.Validate); err != nil {
		return err
	}

	t, err := api.srv.TrackSvc.Update(ctx.Request().Context(), t, data)
	if err != nil {
		return errors.Wrap(err, "updating track")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *trackApi) destroy(ctx echo.Context) error {
	if err := api.srv.TrackSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting track")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *trackApi) addCourse(ctx echo.Context) error {
	var data track.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.srv.Validate); err != nil {
		return err
	}

	c, err := api.srv.TrackSvc.AddCourse(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding course")
	}
	return ctx.JSON(http.StatusCreated, c)
}
