package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/saifdine/daura/core"
	"github.com/saifdine/daura/core/course"
)

// template uploads are certificate backgrounds; keep them small
const maxTemplateSize = 5 << 20 // 5MB

var (
	errTemplateTooLarge = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "template file exceeds 5MB")
	errTemplateNotPDF   = echo.NewHTTPError(http.StatusBadRequest, "template must be a PDF file")
)

type courseApi struct {
	svc     course.Service
	storage core.FileStorage
}

// registerCourseAPI mounts the admin course endpoints; all of them require an
// authenticated admin.
func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc course.Service, storage core.FileStorage) {
	api := courseApi{svc: svc, storage: storage}

	cg := g.Group("/courses", jwt, adminMiddleware)
	cg.POST("", api.create)
	cg.GET("", api.query)

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.POST("/deactivate", api.deactivate)
	dg.GET("/stats", api.stats)
	dg.GET("/enrollments", api.enrollments)
	dg.POST("/template", api.uploadTemplate)
	dg.DELETE("/template", api.removeTemplate)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	data.CreatedBy = claims.Subject

	if err := data.Validate(); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) deactivate(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Deactivate(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) stats(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *courseApi) enrollments(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}
	enrollments, err := api.svc.EnrollmentsWithAttendance(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if enrollments == nil {
		enrollments = []course.EnrollmentWithAttendance{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *courseApi) uploadTemplate(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}
	// fail fast before reading the upload
	if _, err := api.svc.GetByID(ctx.Request().Context(), id); err != nil {
		return err
	}

	fh, err := ctx.FormFile("template")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "template file is required")
	}
	if fh.Size > maxTemplateSize {
		return errTemplateTooLarge
	}
	if ct := fh.Header.Get("Content-Type"); ct != "application/pdf" {
		return errTemplateNotPDF
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening template upload")
	}
	defer f.Close()

	key := fmt.Sprintf("templates/course-%d.pdf", id)
	url, err := api.storage.Upload(ctx.Request().Context(), key, f, "application/pdf")
	if err != nil {
		return errors.Wrap(err, "storing template")
	}

	c, err := api.svc.SetTemplateURL(ctx.Request().Context(), id, url)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) removeTemplate(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if c.TemplateURL == "" {
		return ctx.NoContent(http.StatusNoContent)
	}

	key := fmt.Sprintf("templates/course-%d.pdf", id)
	if err := api.storage.Remove(ctx.Request().Context(), key); err != nil {
		return errors.Wrap(err, "removing template")
	}
	if _, err := api.svc.SetTemplateURL(ctx.Request().Context(), id, ""); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func courseID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}
