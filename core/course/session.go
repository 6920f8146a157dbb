package course

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/saifdine/daura/core"
	"github.com/saifdine/daura/core/user"
)

// State is what a visitor is presented with: a registration form, the daily
// sign-in form, a closed-course notice or the certificate download.
type State string

const (
	StateNoActiveCourse   State = "no_active_course"
	StateCourseClosed     State = "course_closed" // a course exists but today is outside its window
	StateRegistering      State = "registering"
	StateDailyCheckIn     State = "daily_check_in"
	StateCertificateReady State = "certificate_ready"
)

var (
	// errors
	ErrNotEnrolled        = errors.New("not enrolled in this course")
	ErrCourseClosed       = errors.New("course not active today")
	ErrRegistrationClosed = errors.New("registration is only open on day 1")
)

type (
	// CertificateIssuer renders the completion certificate for an enrollment.
	CertificateIssuer interface {
		Issue(ctx context.Context, enrollmentID int) ([]byte, error)
	}

	// Session drives the attendance flow for one visitor: it decides which
	// screen to present and issues the sign-up / sign-in / sign-attendance
	// side effects in order.
	Session struct {
		svc     Service
		userSvc user.Service
		mailSvc core.EmailService
		issuer  CertificateIssuer
		logger  core.Logger
	}

	Resolution struct {
		State     State   `json:"state"`
		Course    *Course `json:"course,omitempty"`
		DayNumber int     `json:"day_number,omitempty"`
	}

	Progress struct {
		State           State      `json:"state"`
		Course          Course     `json:"course"`
		Enrollment      Enrollment `json:"enrollment"`
		DayNumber       int        `json:"day_number"`
		AttendanceDays  []int      `json:"attendance_days"`
		AttendanceCount int        `json:"attendance_count"`
		IsComplete      bool       `json:"is_complete"`
	}

	RegisterInput struct {
		FullName        string `json:"full_name" validate:"required,min=3"`
		Email           string `json:"email" validate:"required,email"`
		Password        string `json:"password" validate:"required,min=8"`
		PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	}

	CredentialsInput struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	Identity struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
	}
)

func (ri *RegisterInput) Validate() error {
	ri.FullName = core.CleanString(ri.FullName)
	ri.Email = core.CleanString(ri.Email, true /* lower */)
	return core.Validate.Struct(ri)
}

func (ci *CredentialsInput) Validate() error {
	ci.Email = core.CleanString(ci.Email, true /* lower */)
	return core.Validate.Struct(ci)
}

func NewSession(svc Service, userSvc user.Service, mailSvc core.EmailService, issuer CertificateIssuer, logger core.Logger) *Session {
	return &Session{
		svc:     svc,
		userSvc: userSvc,
		mailSvc: mailSvc,
		issuer:  issuer,
		logger:  logger,
	}
}

// Resolve determines the screen for an anonymous visitor. Whether a visitor
// on day 1 is already enrolled is only known once credentials are provided,
// so day 1 always resolves to the registration screen; Register falls back to
// a check-in when the identity turns out to be enrolled already.
func (s *Session) Resolve(ctx context.Context) (Resolution, error) {
	c, ok, err := s.svc.ActiveCourse(ctx)
	if err != nil {
		return Resolution{}, err
	}
	if !ok {
		return Resolution{State: StateNoActiveCourse}, nil
	}

	day := c.CurrentDayNumber(nowFunc())
	switch {
	case day == 0:
		return Resolution{State: StateCourseClosed, Course: &c}, nil
	case day == 1:
		return Resolution{State: StateRegistering, Course: &c, DayNumber: day}, nil
	default:
		return Resolution{State: StateDailyCheckIn, Course: &c, DayNumber: day}, nil
	}
}

// Identify returns the stored name of a returning user so the registration
// form can be pre-filled. Credentials are verified first; there is no
// unauthenticated email-existence probe.
func (s *Session) Identify(ctx context.Context, in CredentialsInput) (Identity, error) {
	usr, err := s.userSvc.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return Identity{}, err
	}

	ident := Identity{FullName: usr.Name, Email: usr.Email}
	if e, err := s.svc.EnrollmentByEmailAnyCourse(ctx, usr.Email); err == nil {
		ident.FullName = e.FullName
	} else if errors.Cause(err) != ErrEnrollmentNotFound {
		return Identity{}, errors.Wrap(err, "finding prior enrollment")
	}
	return ident, nil
}

// Register enrolls a visitor in the active course on its registration day.
// The identity is created upstream first; when the email already has an
// account, the credentials are verified instead (sign-up falls back to
// sign-in). Day 1 attendance is signed immediately, as on any other day.
func (s *Session) Register(ctx context.Context, in RegisterInput) (Progress, error) {
	c, ok, err := s.svc.ActiveCourse(ctx)
	if err != nil {
		return Progress{}, err
	}
	if !ok {
		return Progress{}, ErrCourseNotFound
	}

	day := c.CurrentDayNumber(nowFunc())
	if day == 0 {
		return Progress{}, ErrCourseClosed
	}
	if day != 1 {
		return Progress{}, ErrRegistrationClosed
	}

	usr, err := s.userSvc.SignUp(ctx, user.NewUser{
		Name:            in.FullName,
		Email:           in.Email,
		Password:        in.Password,
		PasswordConfirm: in.PasswordConfirm,
	})
	if err != nil {
		if errors.Cause(err) != user.ErrEmailExists {
			return Progress{}, errors.Wrap(err, "signing up")
		}
		// identity already exists: verify credentials instead of creating
		usr, err = s.userSvc.Authenticate(ctx, in.Email, in.Password)
		if err != nil {
			return Progress{}, err
		}
	}

	e, err := s.svc.Enroll(ctx, usr.ID, c.ID, in.FullName, in.Email)
	if err != nil {
		if errors.Cause(err) != ErrAlreadyEnrolled {
			return Progress{}, err
		}
		// double submission or a returning visitor on day 1; carry on as a check-in
		e, err = s.svc.EnrollmentByUser(ctx, usr.ID, c.ID)
		if err != nil {
			return Progress{}, err
		}
	}

	return s.sign(ctx, c, e, day)
}

// CheckIn signs today's attendance for an enrolled, authenticated visitor.
func (s *Session) CheckIn(ctx context.Context, in CredentialsInput) (Progress, error) {
	usr, err := s.userSvc.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return Progress{}, err
	}

	c, ok, err := s.svc.ActiveCourse(ctx)
	if err != nil {
		return Progress{}, err
	}
	if !ok {
		return Progress{}, ErrCourseNotFound
	}

	e, err := s.svc.EnrollmentByUser(ctx, usr.ID, c.ID)
	if err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return Progress{}, ErrNotEnrolled
		}
		return Progress{}, err
	}

	day := c.CurrentDayNumber(nowFunc())
	if day == 0 {
		return Progress{}, ErrCourseClosed
	}

	return s.sign(ctx, c, e, day)
}

// Certificate verifies credentials and completion, then renders the
// completion certificate. Emission failures never affect completion state.
func (s *Session) Certificate(ctx context.Context, in CredentialsInput) ([]byte, Enrollment, error) {
	usr, err := s.userSvc.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return nil, Enrollment{}, err
	}

	c, ok, err := s.svc.ActiveCourse(ctx)
	if err != nil {
		return nil, Enrollment{}, err
	}
	if !ok {
		return nil, Enrollment{}, ErrCourseNotFound
	}

	e, err := s.svc.EnrollmentByUser(ctx, usr.ID, c.ID)
	if err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return nil, Enrollment{}, ErrNotEnrolled
		}
		return nil, Enrollment{}, err
	}

	cert, err := s.issuer.Issue(ctx, e.ID)
	if err != nil {
		return nil, Enrollment{}, err
	}
	return cert, e, nil
}

func (s *Session) sign(ctx context.Context, c Course, e Enrollment, day int) (Progress, error) {
	wasComplete, err := s.svc.HasCompleteAttendance(ctx, e.ID)
	if err != nil {
		return Progress{}, err
	}
	if _, err := s.svc.SignAttendance(ctx, e.ID, day); err != nil {
		return Progress{}, err
	}

	atts, err := s.svc.AttendanceByEnrollment(ctx, e.ID)
	if err != nil {
		return Progress{}, err
	}
	days := distinctDays(atts)

	p := Progress{
		State:           StateDailyCheckIn,
		Course:          c,
		Enrollment:      e,
		DayNumber:       day,
		AttendanceDays:  days,
		AttendanceCount: len(days),
		IsComplete:      len(days) == DurationDays,
	}
	if p.IsComplete {
		p.State = StateCertificateReady
		if !wasComplete {
			// only on the transition; repeat sign-ins do not resend
			s.sendCompletionMail(ctx, c, e)
		}
	}
	return p, nil
}

func (s *Session) sendCompletionMail(ctx context.Context, c Course, e Enrollment) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: e.FullName, Address: e.Email}},
		Subject:      "Course completed - your certificate",
		TemplateName: "completion",
		TemplateData: struct {
			Name  string
			Title string
		}{e.FullName, c.Title},
	}

	cert, err := s.issuer.Issue(ctx, e.ID)
	if err != nil {
		// completion stands regardless; the certificate remains downloadable later
		s.logger.Error(fmt.Sprintf("issuing certificate for enrollment %d: %v", e.ID, err), err)
	} else if err := msg.AttachBytes(cert, "certificate.pdf", "application/pdf"); err != nil {
		s.logger.Error(fmt.Sprintf("attaching certificate for enrollment %d: %v", e.ID, err), err)
	}

	s.mailSvc.SendMessages(msg)
}
