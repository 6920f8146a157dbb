package certificate

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/saifdine/daura/core"
	"github.com/saifdine/daura/core/course"
)

var (
	// ErrNotComplete is returned when the enrollment has not signed all days.
	ErrNotComplete = errors.New("attendance is not complete")

	// ErrGenerationFailed is returned when the document could not be produced;
	// the underlying cause is logged, not surfaced.
	ErrGenerationFailed = errors.New("certificate generation failed")
)

var nowFunc = time.Now // mockable

// Data carries everything a renderer needs to lay out one certificate.
type Data struct {
	FullName    string
	CourseTitle string
	IssuedAt    time.Time
	TemplateURL string // optional background template
}

// Renderer produces the certificate document bytes.
type Renderer interface {
	Render(ctx context.Context, data Data) ([]byte, error)
}

type Service interface {
	Issue(ctx context.Context, enrollmentID int) ([]byte, error)
}

// service gates issuance on full attendance before rendering.
type service struct {
	courseSvc course.Service
	renderer  Renderer
	logger    core.Logger
}

var _ Service = (*service)(nil)
var _ course.CertificateIssuer = (*service)(nil)

func NewService(courseSvc course.Service, renderer Renderer, logger core.Logger) *service {
	return &service{
		courseSvc: courseSvc,
		renderer:  renderer,
		logger:    logger,
	}
}

func (svc *service) Issue(ctx context.Context, enrollmentID int) ([]byte, error) {
	enr, err := svc.courseSvc.EnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	complete, err := svc.courseSvc.HasCompleteAttendance(ctx, enr.ID)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, ErrNotComplete
	}

	crs, err := svc.courseSvc.GetByID(ctx, enr.CourseID)
	if err != nil {
		return nil, err
	}

	doc, err := svc.renderer.Render(ctx, Data{
		FullName:    enr.FullName,
		CourseTitle: crs.Title,
		IssuedAt:    nowFunc(),
		TemplateURL: crs.TemplateURL,
	})
	if err != nil {
		svc.logger.Error("certificate rendering failed", err, "enrollment_id", enr.ID)
		return nil, ErrGenerationFailed
	}
	return doc, nil
}
