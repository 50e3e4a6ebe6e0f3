package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/answercheck/core/session"
)

const contextSessionKey = "session"

// Guard gates a page behind the session state. While the session is still
// bootstrapping it renders a neutral holding page without redirecting, so a
// slow restore never bounces a signed-in user to the login page. Once
// resolved, a missing identity and an identity with the wrong role are
// treated the same: both land on RedirectPath.
type Guard struct {
	Sessions     *session.Store
	RequiredRole string
	RedirectPath string // defaults to /login
}

func (g Guard) Middleware() echo.MiddlewareFunc {
	redirect := g.RedirectPath
	if redirect == "" {
		redirect = "/login"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess := g.Sessions.Current()
			if sess.Loading {
				return ctx.Render(http.StatusOK, "loading", page{Title: "Loading"})
			}
			if !sess.Authenticated() {
				return ctx.Redirect(http.StatusSeeOther, redirect)
			}
			if g.RequiredRole != "" && sess.Role != g.RequiredRole {
				return ctx.Redirect(http.StatusSeeOther, redirect)
			}
			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

func contextSession(ctx echo.Context) session.Session {
	if sess, ok := ctx.Get(contextSessionKey).(session.Session); ok {
		return sess
	}
	return session.Session{}
}
