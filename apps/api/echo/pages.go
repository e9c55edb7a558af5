package echoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/guard"
	"github.com/trezcool/academia/core/invoice"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/track"
	"github.com/trezcool/academia/core/user"
)

const contextNavigatorKey = "navigator"

type pages struct {
	srv *server
}

func registerPages(e *echo.Echo, srv *server) {
	p := pages{srv: srv}
	conf := srv.Conf.Session

	// landing pages
	e.GET("/", p.landing("root", conf.HomePath, conf.LoginPath))
	e.GET("/admin", p.landing("admin", conf.AdminHomePath, conf.AdminLoginPath))

	// guest-only pages
	guest := p.guestOnly(conf.HomePath)
	e.GET("/auth/login", p.loginForm, guest)
	e.POST("/auth/login", p.login, guest)
	e.GET("/auth/register", p.registerForm, guest)
	e.POST("/auth/register", p.register, guest)
	e.GET("/auth/verify-email", p.verifyEmail, guest)

	adminGuest := p.guestOnly(conf.AdminHomePath)
	e.GET("/admin/login", p.loginForm, adminGuest)
	e.POST("/admin/login", p.login, adminGuest)

	// protected pages
	protected := p.authOnly(conf.LoginPath)
	e.GET("/dashboard", p.dashboard, protected)
	e.GET("/tracks", p.tracks, protected)
	e.GET("/invoices", p.invoices, protected)
	e.POST("/auth/logout", p.logout, protected)

	e.GET("/admin/dashboard", p.adminDashboard, p.authOnly(conf.AdminLoginPath, user.RoleAdmin))
}

// landing serves a bootstrap page that sends the visitor to authenticated or unauthenticated
// once their session is restored. Leaving the page before the redirect cancels it.
func (p *pages) landing(name, authenticated, unauthenticated string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		store := session.NewStore()
		ctx.Set(contextStoreKey, store)

		nav := new(responseNavigator)
		r := guard.NewRedirector(store, nav, guard.RedirectorConfig{
			Authenticated:   authenticated,
			Unauthenticated: unauthenticated,
			Delay:           p.srv.Conf.Session.BootstrapDelay,
			Name:            name,
			Observer:        p.srv.Metrics,
		})
		r.Mount()
		defer r.Unmount()

		p.srv.hydrate(ctx, store, p.srv.sessionID(ctx))

		select {
		case <-r.Done():
			return p.navigate(ctx, nav)
		case <-ctx.Request().Context().Done():
			return nil
		}
	}
}

// authOnly guards protected pages with an AuthGuard mounted on the request session for the whole request.
func (p *pages) authOnly(loginPath string, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			store := p.srv.hydrateStore(ctx)
			nav := new(responseNavigator)
			ctx.Set(contextNavigatorKey, nav)

			g := guard.NewAuthGuard(store, nav,
				guard.WithObserver(p.srv.Metrics),
				guard.WithPath(loginPath),
				guard.RequireRoles(roles...),
			)
			d := g.Mount()
			defer g.Unmount()

			switch d.View {
			case guard.ViewChildren:
				return next(ctx)
			case guard.ViewForbidden:
				return ctx.Render(http.StatusForbidden, "forbidden", p.data(ctx, "Access denied"))
			case guard.ViewRedirecting:
				return p.navigate(ctx, nav)
			default:
				return ctx.Render(http.StatusOK, "loading", p.data(ctx, "Loading"))
			}
		}
	}
}

// guestOnly guards public-only pages with a GuestGuard: signed in visitors are sent to homePath.
func (p *pages) guestOnly(homePath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			store := p.srv.hydrateStore(ctx)
			nav := new(responseNavigator)
			ctx.Set(contextNavigatorKey, nav)

			g := guard.NewGuestGuard(store, nav,
				guard.WithObserver(p.srv.Metrics),
				guard.WithPath(homePath),
			)
			d := g.Mount()
			defer g.Unmount()

			switch d.View {
			case guard.ViewChildren:
				return next(ctx)
			case guard.ViewNothing:
				return p.navigate(ctx, nav)
			default:
				return ctx.Render(http.StatusOK, "loading", p.data(ctx, "Loading"))
			}
		}
	}
}

// navigate writes the navigation recorded by a guard as a redirect response with a placeholder body.
func (p *pages) navigate(ctx echo.Context, nav *responseNavigator) error {
	code, location, ok := nav.target()
	if !ok {
		return ctx.Render(http.StatusOK, "loading", p.data(ctx, "Loading"))
	}
	ctx.Response().Header().Set(echo.HeaderLocation, location)
	data := p.data(ctx, "Redirecting")
	data.Redirect = location
	return ctx.Render(code, "redirecting", data)
}

// navigated writes the navigation issued by the guard of the request while the handler ran, if any.
func (p *pages) navigated(ctx echo.Context) (bool, error) {
	nav, ok := ctx.Get(contextNavigatorKey).(*responseNavigator)
	if !ok {
		return false, nil
	}
	if _, _, ok = nav.target(); !ok {
		return false, nil
	}
	return true, p.navigate(ctx, nav)
}

func (p *pages) data(ctx echo.Context, title string) pageData {
	data := pageData{Title: title}
	if store, ok := contextStore(ctx); ok {
		if st := store.State(); st.IsAuthenticated() {
			id := st.Identity()
			data.Identity = &id
		}
	}
	return data
}

// formErrors turns a validation or authentication error into page messages; ok is false for any other error.
func (p *pages) formErrors(err error, data *pageData) (ok bool) {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		data.Errors = make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			data.Errors[vErr.Field()] = vErr.Translate(p.srv.Translator)
		}
		return true
	case *core.ValidationError:
		data.Errors = make(map[string]string, len(origErr.Fields))
		for _, fErr := range origErr.Fields {
			data.Errors[fErr.Field] = fErr.Error
		}
		if origErr.Err != nil {
			data.Message = origErr.Error()
		}
		return true
	case *echo.HTTPError:
		if origErr.Code < http.StatusInternalServerError {
			data.Message = fmt.Sprint(origErr.Message)
			return true
		}
	}
	return false
}

func (p *pages) loginForm(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "login", p.data(ctx, "Log in"))
}

// login signs the visitor in. The GuestGuard of the page observes the new session and redirects away.
func (p *pages) login(ctx echo.Context) error {
	var form LoginRequest
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data := p.data(ctx, "Log in")
	data.Form = map[string]string{"username": form.Username}

	err := form.Validate(p.srv.Validate)
	if err == nil {
		var (
			usr   user.User
			token string
		)
		if usr, token, err = p.srv.logIn(ctx, form.Username, form.Password); err == nil {
			store := p.srv.hydrateStore(ctx)
			if err = store.SetSession(token, usr.Identity()); err != nil {
				return errors.Wrap(err, "setting session")
			}
			if ok, err := p.navigated(ctx); ok {
				return err
			}
			return ctx.Redirect(http.StatusSeeOther, p.srv.Conf.Session.HomePath)
		}
	}
	if p.formErrors(err, &data) {
		return ctx.Render(http.StatusBadRequest, "login", data)
	}
	return err
}

func (p *pages) registerForm(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "register", p.data(ctx, "Sign up"))
}

func (p *pages) register(ctx echo.Context) error {
	var form user.NewUser
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	form.Roles = nil
	data := p.data(ctx, "Sign up")
	data.Form = map[string]string{"name": form.Name, "username": form.Username, "email": form.Email}

	reqCtx := ctx.Request().Context()
	err := form.Validate(reqCtx, p.srv.Validate, p.srv.UserSvc)
	if err == nil {
		if _, err = p.srv.UserSvc.Register(reqCtx, form); err == nil {
			data.Title = "Check your inbox"
			data.Message = "Your account has been created. Please follow the link we sent to " + form.Email + " to verify your email address."
			return ctx.Render(http.StatusCreated, "message", data)
		}
	}
	if p.formErrors(err, &data) {
		return ctx.Render(http.StatusBadRequest, "register", data)
	}
	return errors.Wrap(err, "registering user")
}

func (p *pages) verifyEmail(ctx echo.Context) error {
	var data user.VerifyUserEmail
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyUserEmail")
	}

	page := p.data(ctx, "Email verification")
	err := data.Validate(p.srv.Validate)
	if err == nil {
		if _, err = p.srv.UserSvc.VerifyEmail(ctx.Request().Context(), data); err == nil {
			page.Message = "Your email address has been verified."
			page.Redirect = p.srv.Conf.Session.LoginPath
			return ctx.Render(http.StatusOK, "message", page)
		}
	}
	if p.formErrors(err, &page) {
		page.Message = user.ErrInvalidToken.Error()
		return ctx.Render(http.StatusBadRequest, "message", page)
	}
	return errors.Wrap(err, "verifying email")
}

// logout ends the session. The AuthGuard of the page observes it and redirects to the login page.
func (p *pages) logout(ctx echo.Context) error {
	if err := p.srv.logOut(ctx); err != nil {
		return err
	}
	if ok, err := p.navigated(ctx); ok {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, p.srv.Conf.Session.LoginPath)
}

type dashboardRow struct {
	Title     string
	Status    enrollment.Status
	CreatedAt time.Time
}

func (p *pages) dashboard(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	data := p.data(ctx, "Dashboard")

	enrollments, err := p.srv.EnrollmentSvc.QueryForUser(reqCtx, data.Identity.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	rows := make([]dashboardRow, 0, len(enrollments))
	for _, e := range enrollments {
		if !e.IsOpen() {
			continue
		}
		t, err := p.srv.TrackSvc.GetByID(reqCtx, e.TrackID)
		if err != nil {
			return errors.Wrap(err, "finding track")
		}
		rows = append(rows, dashboardRow{Title: t.Title, Status: e.Status, CreatedAt: e.CreatedAt})
	}
	data.Data = rows
	return ctx.Render(http.StatusOK, "dashboard", data)
}

func (p *pages) tracks(ctx echo.Context) error {
	published := true
	tracks, err := p.srv.TrackSvc.Query(ctx.Request().Context(), &track.QueryFilter{Published: &published}, nil)
	if err != nil {
		return errors.Wrap(err, "querying tracks")
	}
	data := p.data(ctx, "Tracks")
	data.Data = tracks
	return ctx.Render(http.StatusOK, "tracks", data)
}

func (p *pages) invoices(ctx echo.Context) error {
	data := p.data(ctx, "Invoices")
	invoices, err := p.srv.InvoiceSvc.QueryForUser(ctx.Request().Context(), data.Identity.ID)
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	data.Data = invoices
	return ctx.Render(http.StatusOK, "invoices", data)
}

type adminStats struct {
	Users              int
	Tracks             int
	PendingEnrollments int
	UnpaidInvoices     int
}

func (p *pages) adminDashboard(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	users, err := p.srv.UserSvc.Query(reqCtx, nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	tracks, err := p.srv.TrackSvc.Query(reqCtx, nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying tracks")
	}
	pending, err := p.srv.EnrollmentSvc.Query(reqCtx, &enrollment.QueryFilter{Status: enrollment.StatusPending}, nil)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	unpaid, err := p.srv.InvoiceSvc.Query(reqCtx, &invoice.QueryFilter{Status: invoice.StatusUnpaid}, nil)
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}

	data := p.data(ctx, "Administration")
	data.Data = adminStats{
		Users:              len(users),
		Tracks:             len(tracks),
		PendingEnrollments: len(pending),
		UnpaidInvoices:     len(unpaid),
	}
	return ctx.Render(http.StatusOK, "admin_dashboard", data)
}
