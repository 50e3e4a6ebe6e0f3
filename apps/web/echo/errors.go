package echoweb

import (
	"fmt"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/answercheck/core"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that renders
// our error page and knows how to handle our errors. signalShutdown is called
// whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(deps ServerDeps, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = fmt.Sprintf("%v", origErr.Message)
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = joinFieldErrors(translateFieldErrors(deps.Translator, origErr))
		case *core.ValidationError:
			code = http.StatusBadRequest
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = joinFieldErrors(fldErrs)
			} else {
				message = origErr.Error()
			}
		case *core.AuthError:
			code = http.StatusUnauthorized
			message = origErr.Error()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(http.StatusInternalServerError)

			logArgs := []interface{}{errors.Wrap(err, message)}
			if sess := deps.Sessions.Current(); sess.Identity != nil {
				logArgs = append(logArgs, *sess.Identity)
			}
			deps.Logger.Error(message, logArgs...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.Render(code, "error", page{Title: "Error", Error: message})
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func translateFieldErrors(translator ut.Translator, vErrs validator.ValidationErrors) map[string]string {
	fldErrs := make(map[string]string, len(vErrs))
	for _, vErr := range vErrs {
		fldErrs[vErr.Field()] = vErr.Translate(translator)
	}
	return fldErrs
}

func joinFieldErrors(fldErrs map[string]string) string {
	parts := make([]string, 0, len(fldErrs))
	for field, msg := range fldErrs {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}
