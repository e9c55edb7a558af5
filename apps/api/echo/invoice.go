package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/invoice"
)

type invoiceApi struct {
	srv *server
}

func registerInvoiceAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *server) {
	api := invoiceApi{srv: srv}

	ig := g.Group("/invoices", jwt)
	ig.GET("", api.query)

	dg := ig.Group("/:id", api.invoiceMiddleware)
	dg.GET("", api.retrieve)
	dg.POST("/pay", api.pay, adminMiddleware())
	dg.POST("/void", api.void, adminMiddleware())
}

type SettleResponse struct {
	Enrollment enrollment.Enrollment `json:"enrollment"`
	Invoice    invoice.Invoice       `json:"invoice"`
}

// invoiceMiddleware loads the invoice of the `:id` path param into the context as "object".
// Users only reach their own invoices; admins reach all.
func (api *invoiceApi) invoiceMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		inv, err := api.srv.InvoiceSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == invoice.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding invoice by ID")
		}
		if inv.UserID != claims.Subject && !claims.IsAdmin {
			return errHttpNotFound
		}
		ctx.Set("object", inv)
		return next(ctx)
	}
}

func (api *invoiceApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	filter := new(invoice.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []invoice.Invoice{})
	}
	if claims.IsAdmin {
		filter.UserID = ctx.QueryParam("user_id")
	} else {
		filter.UserID = claims.Subject
	}

	invoices, err := api.srv.InvoiceSvc.Query(ctx.Request().Context(), filter, bindOrdering(ctx, "amount", "status", "issued_at", "paid_at"))
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	if invoices == nil {
		invoices = []invoice.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invoices)
}

func (api *invoiceApi) retrieve(ctx echo.Context) error {
	inv, ok := ctx.Get("object").(invoice.Invoice)
	if !ok {
		return errors.New("invoice object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, inv)
}

// pay records the payment of an invoice and activates its enrollment.
func (api *invoiceApi) pay(ctx echo.Context) error {
	e, inv, err := api.srv.EnrollmentSvc.SettleInvoice(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "settling invoice")
	}
	return ctx.JSON(http.StatusOK, SettleResponse{Enrollment: e, Invoice: inv})
}

func (api *invoiceApi) void(ctx echo.Context) error {
	inv, err := api.srv.InvoiceSvc.Void(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "voiding invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}
