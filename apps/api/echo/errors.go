package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/invoice"
	"github.com/trezcool/academia/core/track"
	"github.com/trezcool/academia/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// Response is the envelope of every JSON response of the auth API and of every error.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	User    *user.User        `json:"user,omitempty"`
	Token   string            `json:"token,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func errorCode(err error) (int, bool) {
	switch errors.Cause(err) {
	case user.ErrNotFound, track.ErrNotFound, enrollment.ErrNotFound, invoice.ErrNotFound:
		return http.StatusNotFound, true
	case enrollment.ErrAlreadyEnrolled, enrollment.ErrTrackUnpublished, enrollment.ErrNotCancellable,
		invoice.ErrAlreadyPaid, invoice.ErrVoid:
		return http.StatusConflict, true
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		resp := Response{}
		var code int

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				resp.Message = fmt.Sprint(origErr.Message)
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			resp.Message = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			resp.Errors = make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				resp.Errors[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			resp.Message = "invalid data"
		case *core.ValidationError:
			if origErr.Fields != nil {
				resp.Errors = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					resp.Errors[fErr.Field] = fErr.Error
				}
				resp.Message = "invalid data"
			} else {
				resp.Message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if c, ok := errorCode(err); ok {
				code = c
				resp.Message = errors.Cause(err).Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			resp.Message = msg
			args := []interface{}{errors.Wrap(err, msg)}
			if person, ok := contextLogPerson(ctx); ok {
				args = append(args, person)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				resp.Message = err.Error()
			}
		}

		// Send response
		if ctx.Response().Committed {
			return
		}
		switch {
		case ctx.Request().Method == http.MethodHead: // Issue #608
			err = ctx.NoContent(code)
		case isPageRequest(ctx):
			err = ctx.Render(code, "error", pageData{Title: http.StatusText(code), Message: resp.Message})
		default:
			err = ctx.JSON(code, resp)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

// contextLogPerson identifies the visitor from the request JWT or page session, if any.
func contextLogPerson(ctx echo.Context) (core.LogPerson, bool) {
	if claims, err := getContextClaims(ctx); err == nil {
		return core.LogPerson{ID: claims.Subject, Username: claims.Username, Email: claims.Email}, true
	}
	if store, ok := contextStore(ctx); ok {
		if st := store.State(); st.IsAuthenticated() {
			id := st.Identity()
			return core.LogPerson{ID: id.ID, Username: id.Username, Email: id.Email}, true
		}
	}
	return core.LogPerson{}, false
}

func isPageRequest(ctx echo.Context) bool {
	p := ctx.Request().URL.Path
	return !strings.HasPrefix(p, "/api") && p != "/metrics" &&
		strings.Contains(ctx.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
