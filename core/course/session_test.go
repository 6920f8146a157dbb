package course

import (
	"context"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/saifdine/daura/core"
	"github.com/saifdine/daura/core/user"
	emailsvc "github.com/saifdine/daura/services/email"
)

type fakeIssuer struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeIssuer) Issue(ctx context.Context, enrollmentID int) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func newTestSession(t *testing.T) (*Session, Service, user.Service, *fakeIssuer) {
	t.Helper()
	emailsvc.SentMessages = emailsvc.SentMessages[:0]

	svc := NewService(newFakeRepo())
	usrSvc := user.NewServiceMock(newFakeUserRepo(), emailsvc.NewConsoleServiceMock())
	issuer := &fakeIssuer{data: []byte("%PDF-1.4 test")}
	session := NewSession(svc, usrSvc, emailsvc.NewConsoleServiceMock(), issuer, nopLogger{})
	return session, svc, usrSvc, issuer
}

func registerInput(name, email string) RegisterInput {
	return RegisterInput{
		FullName:        name,
		Email:           email,
		Password:        "Secr3t!pwd",
		PasswordConfirm: "Secr3t!pwd",
	}
}

func TestSessionResolve(t *testing.T) {
	session, svc, _, _ := newTestSession(t)
	ctx := context.Background()

	res, err := session.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve() failed, %v", err)
	}
	if res.State != StateNoActiveCourse {
		t.Errorf("State = %s, want %s", res.State, StateNoActiveCourse)
	}

	if _, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"}); err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	tests := []struct {
		name    string
		today   string
		want    State
		wantDay int
	}{
		{name: "before start", today: "2026-09-01", want: StateCourseClosed},
		{name: "day 1", today: "2026-09-07", want: StateRegistering, wantDay: 1},
		{name: "day 2", today: "2026-09-08", want: StateDailyCheckIn, wantDay: 2},
		{name: "day 10", today: "2026-09-16", want: StateDailyCheckIn, wantDay: 10},
		{name: "after end", today: "2026-09-17", want: StateCourseClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setNow(t, tt.today)
			res, err := session.Resolve(ctx)
			if err != nil {
				t.Fatalf("Resolve() failed, %v", err)
			}
			if res.State != tt.want {
				t.Errorf("State = %s, want %s", res.State, tt.want)
			}
			if res.DayNumber != tt.wantDay {
				t.Errorf("DayNumber = %d, want %d", res.DayNumber, tt.wantDay)
			}
			if res.Course == nil {
				t.Error("Course = nil, want the active course")
			}
		})
	}
}

func TestSessionRegister(t *testing.T) {
	session, svc, usrSvc, _ := newTestSession(t)
	ctx := context.Background()

	t.Run("no active course", func(t *testing.T) {
		if _, err := session.Register(ctx, registerInput("Awa Keita", "awa@daura.test")); errors.Cause(err) != ErrCourseNotFound {
			t.Errorf("Register() error = %v, want %v", err, ErrCourseNotFound)
		}
	})

	if _, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"}); err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	t.Run("outside course window", func(t *testing.T) {
		setNow(t, "2026-09-01")
		if _, err := session.Register(ctx, registerInput("Awa Keita", "awa@daura.test")); errors.Cause(err) != ErrCourseClosed {
			t.Errorf("Register() error = %v, want %v", err, ErrCourseClosed)
		}
	})

	t.Run("past day 1", func(t *testing.T) {
		setNow(t, "2026-09-08")
		if _, err := session.Register(ctx, registerInput("Awa Keita", "awa@daura.test")); errors.Cause(err) != ErrRegistrationClosed {
			t.Errorf("Register() error = %v, want %v", err, ErrRegistrationClosed)
		}
	})

	t.Run("day 1 creates account, enrollment and attendance", func(t *testing.T) {
		setNow(t, "2026-09-07")
		p, err := session.Register(ctx, registerInput("Awa Keita", "awa@daura.test"))
		if err != nil {
			t.Fatalf("Register() failed, %v", err)
		}
		if p.State != StateDailyCheckIn {
			t.Errorf("State = %s, want %s", p.State, StateDailyCheckIn)
		}
		if p.DayNumber != 1 || !reflect.DeepEqual(p.AttendanceDays, []int{1}) {
			t.Errorf("progress = %+v, want day 1 signed", p)
		}

		usr, err := usrSvc.GetByEmail(ctx, "awa@daura.test")
		if err != nil {
			t.Fatalf("GetByEmail() failed, %v", err)
		}
		if !usr.IsStudent() {
			t.Errorf("roles = %v, want a student account", usr.Roles)
		}
	})

	t.Run("double submission carries on as a check-in", func(t *testing.T) {
		setNow(t, "2026-09-07")
		p, err := session.Register(ctx, registerInput("Awa Keita", "awa@daura.test"))
		if err != nil {
			t.Fatalf("Register() failed, %v", err)
		}
		if !reflect.DeepEqual(p.AttendanceDays, []int{1}) || p.AttendanceCount != 1 {
			t.Errorf("progress = %+v, want a single day 1 record", p)
		}
	})

	t.Run("existing email with wrong password", func(t *testing.T) {
		setNow(t, "2026-09-07")
		in := registerInput("Awa Keita", "awa@daura.test")
		in.Password, in.PasswordConfirm = "wrong-pass", "wrong-pass"
		if _, err := session.Register(ctx, in); errors.Cause(err) != user.ErrInvalidCredentials {
			t.Errorf("Register() error = %v, want %v", err, user.ErrInvalidCredentials)
		}
	})
}

func TestSessionIdentify(t *testing.T) {
	session, svc, usrSvc, _ := newTestSession(t)
	ctx := context.Background()

	if _, err := usrSvc.SignUp(ctx, user.NewUser{
		Name:            "A. Keita",
		Email:           "awa@daura.test",
		Password:        "Secr3t!pwd",
		PasswordConfirm: "Secr3t!pwd",
	}); err != nil {
		t.Fatalf("SignUp() failed, %v", err)
	}

	t.Run("wrong credentials", func(t *testing.T) {
		_, err := session.Identify(ctx, CredentialsInput{Email: "awa@daura.test", Password: "nope"})
		if errors.Cause(err) != user.ErrInvalidCredentials {
			t.Errorf("Identify() error = %v, want %v", err, user.ErrInvalidCredentials)
		}
	})

	t.Run("stored name", func(t *testing.T) {
		ident, err := session.Identify(ctx, CredentialsInput{Email: "Awa@Daura.Test", Password: "Secr3t!pwd"})
		if err != nil {
			t.Fatalf("Identify() failed, %v", err)
		}
		if ident.FullName != "A. Keita" || ident.Email != "awa@daura.test" {
			t.Errorf("Identify() = %+v", ident)
		}
	})

	t.Run("prior enrollment name wins", func(t *testing.T) {
		c, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"})
		if err != nil {
			t.Fatalf("Create() failed, %v", err)
		}
		usr, _ := usrSvc.GetByEmail(ctx, "awa@daura.test")
		if _, err := svc.Enroll(ctx, usr.ID, c.ID, "Awa Binta Keita", usr.Email); err != nil {
			t.Fatalf("Enroll() failed, %v", err)
		}

		ident, err := session.Identify(ctx, CredentialsInput{Email: "awa@daura.test", Password: "Secr3t!pwd"})
		if err != nil {
			t.Fatalf("Identify() failed, %v", err)
		}
		if ident.FullName != "Awa Binta Keita" {
			t.Errorf("FullName = %s, want the enrollment name", ident.FullName)
		}
	})
}

func TestSessionCheckIn(t *testing.T) {
	session, svc, usrSvc, _ := newTestSession(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"}); err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	creds := CredentialsInput{Email: "awa@daura.test", Password: "Secr3t!pwd"}

	setNow(t, "2026-09-07")
	if _, err := session.Register(ctx, registerInput("Awa Keita", creds.Email)); err != nil {
		t.Fatalf("Register() failed, %v", err)
	}

	t.Run("next day", func(t *testing.T) {
		setNow(t, "2026-09-08")
		p, err := session.CheckIn(ctx, creds)
		if err != nil {
			t.Fatalf("CheckIn() failed, %v", err)
		}
		if p.DayNumber != 2 || !reflect.DeepEqual(p.AttendanceDays, []int{1, 2}) {
			t.Errorf("progress = %+v, want days [1 2]", p)
		}
		if p.IsComplete {
			t.Error("IsComplete = true, want false after 2 days")
		}
	})

	t.Run("missed days are simply absent", func(t *testing.T) {
		setNow(t, "2026-09-11") // skipped days 3 and 4
		p, err := session.CheckIn(ctx, creds)
		if err != nil {
			t.Fatalf("CheckIn() failed, %v", err)
		}
		if !reflect.DeepEqual(p.AttendanceDays, []int{1, 2, 5}) {
			t.Errorf("AttendanceDays = %v, want [1 2 5]", p.AttendanceDays)
		}
	})

	t.Run("not enrolled", func(t *testing.T) {
		setNow(t, "2026-09-08")
		if _, err := usrSvc.SignUp(ctx, user.NewUser{
			Name:            "Moussa Diop",
			Email:           "moussa@daura.test",
			Password:        "Secr3t!pwd",
			PasswordConfirm: "Secr3t!pwd",
		}); err != nil {
			t.Fatalf("SignUp() failed, %v", err)
		}
		_, err := session.CheckIn(ctx, CredentialsInput{Email: "moussa@daura.test", Password: "Secr3t!pwd"})
		if errors.Cause(err) != ErrNotEnrolled {
			t.Errorf("CheckIn() error = %v, want %v", err, ErrNotEnrolled)
		}
	})

	t.Run("outside course window", func(t *testing.T) {
		setNow(t, "2026-09-20")
		if _, err := session.CheckIn(ctx, creds); errors.Cause(err) != ErrCourseClosed {
			t.Errorf("CheckIn() error = %v, want %v", err, ErrCourseClosed)
		}
	})
}

func TestSessionCompletion(t *testing.T) {
	session, svc, _, issuer := newTestSession(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	creds := CredentialsInput{Email: "awa@daura.test", Password: "Secr3t!pwd"}

	setNow(t, "2026-09-07")
	if _, err := session.Register(ctx, registerInput("Awa Keita", creds.Email)); err != nil {
		t.Fatalf("Register() failed, %v", err)
	}

	var last Progress
	for day := 2; day <= DurationDays; day++ {
		setNow(t, c.StartDate.AddDate(0, 0, day-1).Format(core.DateFormat))
		last, err = session.CheckIn(ctx, creds)
		if err != nil {
			t.Fatalf("CheckIn() day %d failed, %v", day, err)
		}
		if day < DurationDays && last.IsComplete {
			t.Fatalf("IsComplete = true after day %d", day)
		}
	}

	if !last.IsComplete {
		t.Error("IsComplete = false after all 10 days")
	}
	if last.State != StateCertificateReady {
		t.Errorf("State = %s, want %s", last.State, StateCertificateReady)
	}
	if issuer.calls == 0 {
		t.Error("certificate was never rendered for the completion email")
	}

	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("len(SentMessages) = %d, want the completion email", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if msg.TemplateName != "completion" {
		t.Errorf("TemplateName = %s, want completion", msg.TemplateName)
	}
	if !msg.HasAttachments() {
		t.Error("completion email has no certificate attached")
	}

	// a repeat check-in on day 10 stays complete and resends nothing new
	setNow(t, "2026-09-16")
	again, err := session.CheckIn(ctx, creds)
	if err != nil {
		t.Fatalf("CheckIn() repeat failed, %v", err)
	}
	if !again.IsComplete || again.State != StateCertificateReady {
		t.Errorf("repeat progress = %+v, want certificate_ready", again)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Errorf("len(SentMessages) = %d, completion email was resent", len(emailsvc.SentMessages))
	}
}

func TestSessionCertificate(t *testing.T) {
	session, svc, _, issuer := newTestSession(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"}); err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	creds := CredentialsInput{Email: "awa@daura.test", Password: "Secr3t!pwd"}

	setNow(t, "2026-09-07")
	if _, err := session.Register(ctx, registerInput("Awa Keita", creds.Email)); err != nil {
		t.Fatalf("Register() failed, %v", err)
	}

	t.Run("issuer failure propagates", func(t *testing.T) {
		issuer.err = errors.New("not complete")
		defer func() { issuer.err = nil }()
		if _, _, err := session.Certificate(ctx, creds); errors.Cause(err) != issuer.err {
			t.Errorf("Certificate() error = %v, want %v", err, issuer.err)
		}
	})

	t.Run("wrong credentials", func(t *testing.T) {
		_, _, err := session.Certificate(ctx, CredentialsInput{Email: creds.Email, Password: "nope"})
		if errors.Cause(err) != user.ErrInvalidCredentials {
			t.Errorf("Certificate() error = %v, want %v", err, user.ErrInvalidCredentials)
		}
	})

	t.Run("rendered certificate", func(t *testing.T) {
		cert, e, err := session.Certificate(ctx, creds)
		if err != nil {
			t.Fatalf("Certificate() failed, %v", err)
		}
		if string(cert) != string(issuer.data) {
			t.Error("Certificate() returned unexpected bytes")
		}
		if e.Email != creds.Email {
			t.Errorf("enrollment email = %s, want %s", e.Email, creds.Email)
		}
	})
}
