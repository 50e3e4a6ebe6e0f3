package echoweb

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/answercheck/core"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

type SignupRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=8"`
}

func (sr *SignupRequest) Validate(validate *validator.Validate) error {
	sr.Username = core.CleanString(sr.Username)
	sr.Email = core.CleanString(sr.Email, true /* lower */)
	return validate.Struct(sr)
}

type authPages struct {
	deps ServerDeps
}

func registerAuthPages(e *echo.Echo, deps ServerDeps) {
	pages := authPages{deps: deps}

	e.GET("/login", pages.loginForm)
	e.POST("/login", pages.login)
	e.GET("/signup", pages.signupForm)
	e.POST("/signup", pages.signup)
	e.POST("/logout", pages.logout)
}

func (p *authPages) loginForm(ctx echo.Context) error {
	if p.deps.Sessions.Current().Authenticated() {
		return ctx.Redirect(http.StatusSeeOther, "/dashboard")
	}
	return ctx.Render(http.StatusOK, "login", p.loginPage(new(LoginRequest), "", nil))
}

func (p *authPages) login(ctx echo.Context) error {
	data := new(LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(p.deps.Validate); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			return ctx.Render(http.StatusBadRequest, "login", p.loginPage(data, "", translateFieldErrors(p.deps.Translator, vErrs)))
		}
		return errors.Wrap(err, "validating LoginRequest")
	}

	if _, err := p.deps.Sessions.Login(ctx.Request().Context(), data.Email, data.Password); err != nil {
		if authErr, ok := errors.Cause(err).(*core.AuthError); ok {
			return ctx.Render(http.StatusUnauthorized, "login", p.loginPage(data, authErr.Error(), nil))
		}
		return errors.Wrap(err, "logging in")
	}
	return ctx.Redirect(http.StatusSeeOther, "/dashboard")
}

func (p *authPages) signupForm(ctx echo.Context) error {
	if p.deps.Sessions.Current().Authenticated() {
		return ctx.Redirect(http.StatusSeeOther, "/dashboard")
	}
	return ctx.Render(http.StatusOK, "signup", p.signupPage(new(SignupRequest), "", nil))
}

func (p *authPages) signup(ctx echo.Context) error {
	data := new(SignupRequest)
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding to SignupRequest")
	}
	if err := data.Validate(p.deps.Validate); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			return ctx.Render(http.StatusBadRequest, "signup", p.signupPage(data, "", translateFieldErrors(p.deps.Translator, vErrs)))
		}
		return errors.Wrap(err, "validating SignupRequest")
	}

	if _, err := p.deps.Sessions.Signup(ctx.Request().Context(), data.Username, data.Email, data.Password); err != nil {
		if authErr, ok := errors.Cause(err).(*core.AuthError); ok {
			return ctx.Render(http.StatusUnauthorized, "signup", p.signupPage(data, authErr.Error(), nil))
		}
		return errors.Wrap(err, "signing up")
	}
	return ctx.Redirect(http.StatusSeeOther, "/dashboard")
}

func (p *authPages) logout(ctx echo.Context) error {
	if err := p.deps.Sessions.Logout(); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.Redirect(http.StatusSeeOther, "/login")
}

func (p *authPages) loginPage(data *LoginRequest, errMsg string, fldErrs map[string]string) page {
	return page{
		Title:       "Login",
		Session:     p.deps.Sessions.Current(),
		Error:       errMsg,
		FieldErrors: fldErrs,
		Data:        data,
	}
}

func (p *authPages) signupPage(data *SignupRequest, errMsg string, fldErrs map[string]string) page {
	return page{
		Title:       "Sign Up",
		Session:     p.deps.Sessions.Current(),
		Error:       errMsg,
		FieldErrors: fldErrs,
		Data:        data,
	}
}
