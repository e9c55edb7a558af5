package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

const passwordResetRequested = "If the email address supplied is associated with an active account on this system, " +
	"an email will arrive in your inbox shortly with instructions to reset your password."

type accountApi struct {
	srv *server
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *server) {
	api := accountApi{srv: srv}

	ag := g.Group("/auth")

	// TODO: rate limit `/login`, `/password-reset` & `/password-reset-confirm`
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
	ag.GET("/check", api.check)
	ag.POST("/verify-email", api.verifyEmail)
	ag.POST("/verify-email/request", api.requestEmailVerification)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

type (
	LoginRequest struct {
		Username string `json:"username" form:"username" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	EmailRequest struct {
		Email string `json:"email" form:"email" validate:"required,email"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (er *EmailRequest) Validate(validate *validator.Validate) error {
	er.Email = core.CleanString(er.Email, true /* lower */)
	return validate.Struct(er)
}

func (api *accountApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	data.Roles = nil // sign ups are students
	if err := data.Validate(ctx.Request().Context(), api.srv.Validate, api.srv.UserSvc); err != nil {
		return err
	}

	usr, err := api.srv.UserSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, Response{
		Success: true,
		Message: "Account created. Please check your inbox to verify your email address.",
		User:    &usr,
	})
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.srv.Validate); err != nil {
		return err
	}

	usr, token, err := api.srv.logIn(ctx, data.Username, data.Password)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, Response{Success: true, Message: "Logged in.", User: &usr, Token: token})
}

func (api *accountApi) logout(ctx echo.Context) error {
	if err := api.srv.logOut(ctx); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, Response{Success: true, Message: "Logged out."})
}

// check reports whether the session cookie holds a valid session.
func (api *accountApi) check(ctx echo.Context) error {
	store := api.srv.hydrateStore(ctx)
	st := store.State()
	if !(st.IsAuthenticated() && st.Token() != "") {
		return ctx.JSON(http.StatusUnauthorized, Response{Message: "Not authenticated."})
	}

	usr, err := api.srv.UserSvc.GetByID(ctx.Request().Context(), st.Identity().ID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return ctx.JSON(http.StatusUnauthorized, Response{Message: "Not authenticated."})
		}
		return errors.Wrap(err, "finding session user")
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}
	return ctx.JSON(http.StatusOK, Response{Success: true, Message: "Authenticated.", User: &usr, Token: st.Token()})
}

func (api *accountApi) verifyEmail(ctx echo.Context) error {
	var data user.VerifyUserEmail
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyUserEmail")
	}
	if err := data.Validate(api.srv.Validate); err != nil {
		return err
	}

	usr, err := api.srv.UserSvc.VerifyEmail(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "verifying email")
	}
	return ctx.JSON(http.StatusOK, Response{Success: true, Message: "Email verified. You can now log in.", User: &usr})
}

func (api *accountApi) requestEmailVerification(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.srv.Validate); err != nil {
		return err
	}

	err := api.srv.UserSvc.RequestEmailVerification(ctx.Request().Context(), data.Email)
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		// do not return errors to attackers
		api.srv.Logger.Error("requesting email verification", errors.Wrap(err, "requesting email verification"))
	}
	return ctx.JSON(http.StatusOK, Response{
		Success: true,
		Message: "If the email address supplied is awaiting verification, a new link will arrive in your inbox shortly.",
	})
}

func (api *accountApi) resetPassword(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.srv.Validate); err != nil {
		return err
	}

	err := api.srv.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		// do not return errors to attackers
		api.srv.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, Response{Success: true, Message: passwordResetRequested})
}

func (api *accountApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.srv.Validate); err != nil {
		return err
	}

	if _, err := api.srv.UserSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, Response{Success: true, Message: "Password has been reset with the new password."})
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := api.srv.auth.refreshToken(ctx, api.srv.UserSvc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, Response{Success: true, Message: "Token refreshed.", Token: token})
}
