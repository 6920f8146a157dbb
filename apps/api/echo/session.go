package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/saifdine/daura/core/course"
)

type sessionApi struct {
	session *course.Session
}

// registerSessionAPI mounts the public attendance flow. These endpoints carry
// credentials in the request body instead of a JWT: the flow is a daily
// sign-in, not a logged-in session.
func registerSessionAPI(g *echo.Group, session *course.Session) {
	api := sessionApi{session: session}

	sg := g.Group("/session")
	sg.GET("", api.resolve)
	sg.POST("/identify", api.identify)
	sg.POST("/register", api.register)
	sg.POST("/check-in", api.checkIn)
	sg.POST("/certificate", api.certificate)
}

// Handlers

func (api *sessionApi) resolve(ctx echo.Context) error {
	res, err := api.session.Resolve(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "resolving session")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *sessionApi) identify(ctx echo.Context) error {
	var data course.CredentialsInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CredentialsInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ident, err := api.session.Identify(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ident)
}

func (api *sessionApi) register(ctx echo.Context) error {
	var data course.RegisterInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	progress, err := api.session.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, progress)
}

func (api *sessionApi) checkIn(ctx echo.Context) error {
	var data course.CredentialsInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CredentialsInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	progress, err := api.session.CheckIn(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *sessionApi) certificate(ctx echo.Context) error {
	var data course.CredentialsInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CredentialsInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cert, enr, err := api.session.Certificate(ctx.Request().Context(), data)
	if err != nil {
		return err
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="certificate-%d.pdf"`, enr.ID))
	return ctx.Blob(http.StatusOK, "application/pdf", cert)
}
