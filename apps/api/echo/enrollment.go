package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/invoice"
)

type enrollmentApi struct {
	srv *server
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *server) {
	api := enrollmentApi{srv: srv}

	eg := g.Group("/enrollments", jwt)
	eg.GET("", api.query)
	eg.POST("", api.enroll)

	dg := eg.Group("/:id", api.enrollmentMiddleware)
	dg.GET("", api.retrieve)
	dg.POST("/cancel", api.cancel)
}

type EnrollResponse struct {
	Enrollment enrollment.Enrollment `json:"enrollment"`
	Invoice    *invoice.Invoice      `json:"invoice,omitempty"`
}

// enrollmentMiddleware loads the enrollment of the `:id` path param into the context as "object".
// Users only reach their own enrollments; admins reach all.
func (api *enrollmentApi) enrollmentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		e, err := api.srv.EnrollmentSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == enrollment.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding enrollment by ID")
		}
		if e.UserID != claims.Subject && !claims.IsAdmin {
			return errHttpNotFound
		}
		ctx.Set("object", e)
		return next(ctx)
	}
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	filter := new(enrollment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []enrollment.Enrollment{})
	}
	if claims.IsAdmin {
		filter.UserID = ctx.QueryParam("user_id")
	} else {
		filter.UserID = claims.Subject
	}

	enrollments, err := api.srv.EnrollmentSvc.Query(ctx.Request().Context(), filter, bindOrdering(ctx, "status", "created_at"))
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.srv.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := api.srv.Validate.Struct(data); err != nil {
		return err
	}

	e, inv, err := api.srv.EnrollmentSvc.Enroll(ctx.Request().Context(), usr.ID, data.TrackID)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, EnrollResponse{Enrollment: e, Invoice: inv})
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	e, ok := ctx.Get("object").(enrollment.Enrollment)
	if !ok {
		return errors.New("enrollment object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *enrollmentApi) cancel(ctx echo.Context) error {
	e, ok := ctx.Get("object").(enrollment.Enrollment)
	if !ok {
		return errors.New("enrollment object not found in echo.Context")
	}
	e, err := api.srv.EnrollmentSvc.Cancel(ctx.Request().Context(), e.ID)
	if err != nil {
		return errors.Wrap(err, "cancelling enrollment")
	}
	return ctx.JSON(http.StatusOK, e)
}
