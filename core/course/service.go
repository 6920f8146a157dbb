package course

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/saifdine/daura/core"
)

var (
	// errors
	ErrCourseNotFound     = errors.New("course not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAttendanceNotFound = errors.New("attendance not found")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this course")
	ErrInvalidDayNumber   = errors.New("day number out of course range")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourseByID(ctx context.Context, id int) (Course, error)
		LatestActiveCourse(ctx context.Context) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)

		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id int) (Enrollment, error)
		GetEnrollmentByUser(ctx context.Context, userID string, courseID int) (Enrollment, error)
		GetEnrollmentByEmail(ctx context.Context, email string, courseID int) (Enrollment, error)
		GetEnrollmentByEmailAnyCourse(ctx context.Context, email string) (Enrollment, error)
		QueryEnrollmentsByCourse(ctx context.Context, courseID int) ([]Enrollment, error)

		GetAttendance(ctx context.Context, enrollmentID, dayNumber int) (DailyAttendance, error)
		CreateAttendance(ctx context.Context, a DailyAttendance) (DailyAttendance, error)
		QueryAttendanceByEnrollment(ctx context.Context, enrollmentID int) ([]DailyAttendance, error)
		QueryAttendanceByEnrollments(ctx context.Context, enrollmentIDs []int) ([]DailyAttendance, error)
	}

	// Service is the course lifecycle engine: course records, enrollments,
	// daily attendance and the derived values computed from them.
	Service interface {
		Create(ctx context.Context, nc NewCourse) (Course, error)
		ActiveCourse(ctx context.Context) (Course, bool, error)
		GetByID(ctx context.Context, id int) (Course, error)
		QueryAll(ctx context.Context) ([]Course, error)
		Update(ctx context.Context, id int, uc UpdateCourse) (Course, error)
		Deactivate(ctx context.Context, id int) error
		SetTemplateURL(ctx context.Context, id int, url string) (Course, error)
		CurrentDayNumber(ctx context.Context, courseID int) (int, error)
		IsRegistrationDay(ctx context.Context, courseID int) (bool, error)

		Enroll(ctx context.Context, userID string, courseID int, fullName, email string) (Enrollment, error)
		EnrollmentByID(ctx context.Context, id int) (Enrollment, error)
		EnrollmentByUser(ctx context.Context, userID string, courseID int) (Enrollment, error)
		EnrollmentByEmail(ctx context.Context, email string, courseID int) (Enrollment, error)
		EnrollmentByEmailAnyCourse(ctx context.Context, email string) (Enrollment, error)

		SignAttendance(ctx context.Context, enrollmentID, dayNumber int) (DailyAttendance, error)
		AttendanceByEnrollment(ctx context.Context, enrollmentID int) ([]DailyAttendance, error)
		HasCompleteAttendance(ctx context.Context, enrollmentID int) (bool, error)
		EnrollmentsWithAttendance(ctx context.Context, courseID int) ([]EnrollmentWithAttendance, error)
		Stats(ctx context.Context, courseID int) (Stats, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

// Create persists a new active course; the end date is derived so the window
// spans exactly DurationDays calendar days, day 1 to day 10.
func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	start, err := time.ParseInLocation(core.DateFormat, nc.StartDate, time.UTC)
	if err != nil {
		return Course{}, core.NewValidationError(err, core.FieldError{Field: "start_date", Error: "invalid date"})
	}

	now := nowFunc().UTC()
	c := Course{
		Title:     nc.Title,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, DurationDays-1),
		Active:    true,
		CreatedBy: nc.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c, err = svc.repo.CreateCourse(ctx, c)
	return c, errors.Wrap(err, "creating course")
}

// ActiveCourse returns the most recently created active course.
// The second return value is false when no course is active.
func (svc *service) ActiveCourse(ctx context.Context) (Course, bool, error) {
	c, err := svc.repo.LatestActiveCourse(ctx)
	if err != nil {
		if errors.Cause(err) == ErrCourseNotFound {
			return Course{}, false, nil
		}
		return Course{}, false, errors.Wrap(err, "finding active course")
	}
	return c, true, nil
}

func (svc *service) GetByID(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

// Update applies partial-update semantics; when StartDate changes, EndDate is
// recomputed with the same +9-day rule.
func (svc *service) Update(ctx context.Context, id int, uc UpdateCourse) (Course, error) {
	c, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if uc.Title != "" {
		c.Title = uc.Title
	}
	if uc.StartDate != "" {
		start, err := time.ParseInLocation(core.DateFormat, uc.StartDate, time.UTC)
		if err != nil {
			return Course{}, core.NewValidationError(err, core.FieldError{Field: "start_date", Error: "invalid date"})
		}
		c.StartDate = start
		c.EndDate = start.AddDate(0, 0, DurationDays-1)
	}
	c.UpdatedAt = nowFunc().UTC()
	c, err = svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "updating course")
}

// Deactivate soft-disables a course. Deactivating an already-inactive course
// is not an error.
func (svc *service) Deactivate(ctx context.Context, id int) error {
	c, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return err
	}
	if !c.Active {
		return nil
	}
	c.Active = false
	c.UpdatedAt = nowFunc().UTC()
	_, err = svc.repo.UpdateCourse(ctx, c)
	return errors.Wrap(err, "deactivating course")
}

func (svc *service) SetTemplateURL(ctx context.Context, id int, url string) (Course, error) {
	c, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	c.TemplateURL = url
	c.UpdatedAt = nowFunc().UTC()
	c, err = svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "setting template url")
}

// CurrentDayNumber returns 0 when today falls outside the course window.
func (svc *service) CurrentDayNumber(ctx context.Context, courseID int) (int, error) {
	c, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return 0, err
	}
	return c.CurrentDayNumber(nowFunc()), nil
}

func (svc *service) IsRegistrationDay(ctx context.Context, courseID int) (bool, error) {
	c, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		if errors.Cause(err) == ErrCourseNotFound {
			return false, nil
		}
		return false, err
	}
	return c.IsRegistrationDay(nowFunc()), nil
}

// Enroll binds a user identity to a course exactly once.
func (svc *service) Enroll(ctx context.Context, userID string, courseID int, fullName, email string) (Enrollment, error) {
	if _, err := svc.repo.GetEnrollmentByUser(ctx, userID, courseID); err == nil {
		return Enrollment{}, ErrAlreadyEnrolled
	} else if errors.Cause(err) != ErrEnrollmentNotFound {
		return Enrollment{}, errors.Wrap(err, "checking existing enrollment")
	}

	e := Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		FullName:  core.CleanString(fullName),
		Email:     core.CleanString(email, true /* lower */),
		CreatedAt: nowFunc().UTC(),
	}
	e, err := svc.repo.CreateEnrollment(ctx, e)
	return e, errors.Wrap(err, "creating enrollment")
}

func (svc *service) EnrollmentByID(ctx context.Context, id int) (Enrollment, error) {
	return svc.repo.GetEnrollmentByID(ctx, id)
}

func (svc *service) EnrollmentByUser(ctx context.Context, userID string, courseID int) (Enrollment, error) {
	return svc.repo.GetEnrollmentByUser(ctx, userID, courseID)
}

func (svc *service) EnrollmentByEmail(ctx context.Context, email string, courseID int) (Enrollment, error) {
	return svc.repo.GetEnrollmentByEmail(ctx, core.CleanString(email, true /* lower */), courseID)
}

func (svc *service) EnrollmentByEmailAnyCourse(ctx context.Context, email string) (Enrollment, error) {
	return svc.repo.GetEnrollmentByEmailAnyCourse(ctx, core.CleanString(email, true /* lower */))
}

// SignAttendance records attendance for (enrollmentID, dayNumber). Signing an
// already-signed day returns the existing record unchanged; this is success,
// not a suppressed failure.
func (svc *service) SignAttendance(ctx context.Context, enrollmentID, dayNumber int) (DailyAttendance, error) {
	if dayNumber < 1 || dayNumber > DurationDays {
		return DailyAttendance{}, ErrInvalidDayNumber
	}
	if _, err := svc.repo.GetEnrollmentByID(ctx, enrollmentID); err != nil {
		return DailyAttendance{}, err
	}

	if existing, err := svc.repo.GetAttendance(ctx, enrollmentID, dayNumber); err == nil {
		return existing, nil
	} else if errors.Cause(err) != ErrAttendanceNotFound {
		return DailyAttendance{}, errors.Wrap(err, "checking existing attendance")
	}

	a := DailyAttendance{
		EnrollmentID: enrollmentID,
		DayNumber:    dayNumber,
		SignedAt:     nowFunc().UTC(),
	}
	a, err := svc.repo.CreateAttendance(ctx, a)
	return a, errors.Wrap(err, "creating attendance")
}

func (svc *service) AttendanceByEnrollment(ctx context.Context, enrollmentID int) ([]DailyAttendance, error) {
	return svc.repo.QueryAttendanceByEnrollment(ctx, enrollmentID)
}

func (svc *service) HasCompleteAttendance(ctx context.Context, enrollmentID int) (bool, error) {
	atts, err := svc.repo.QueryAttendanceByEnrollment(ctx, enrollmentID)
	if err != nil {
		return false, err
	}
	return len(distinctDays(atts)) == DurationDays, nil
}

func (svc *service) EnrollmentsWithAttendance(ctx context.Context, courseID int) ([]EnrollmentWithAttendance, error) {
	enrollments, err := svc.repo.QueryEnrollmentsByCourse(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	ids := make([]int, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.ID)
	}
	atts, err := svc.repo.QueryAttendanceByEnrollments(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}

	byEnrollment := make(map[int][]DailyAttendance, len(enrollments))
	for _, a := range atts {
		byEnrollment[a.EnrollmentID] = append(byEnrollment[a.EnrollmentID], a)
	}

	out := make([]EnrollmentWithAttendance, 0, len(enrollments))
	for _, e := range enrollments {
		days := distinctDays(byEnrollment[e.ID])
		out = append(out, EnrollmentWithAttendance{
			Enrollment:      e,
			AttendanceDays:  days,
			AttendanceCount: len(days),
			IsComplete:      len(days) == DurationDays,
		})
	}
	return out, nil
}

// Stats is a pure read-side aggregation, recomputed on each call.
func (svc *service) Stats(ctx context.Context, courseID int) (Stats, error) {
	c, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Stats{}, err
	}
	enrollments, err := svc.EnrollmentsWithAttendance(ctx, courseID)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalEnrollments: len(enrollments),
		DailyStats:       make([]DayStat, DurationDays),
	}
	if day := c.CurrentDayNumber(nowFunc()); day > 0 {
		stats.CurrentDay = &day
	}

	var attendanceSum int
	for _, e := range enrollments {
		attendanceSum += e.AttendanceCount
		if e.IsComplete {
			stats.CompletedStudents++
		}
	}
	if len(enrollments) > 0 {
		stats.AverageAttendance = float64(attendanceSum) / float64(len(enrollments))
	}

	for d := 1; d <= DurationDays; d++ {
		stat := DayStat{Day: d}
		for _, e := range enrollments {
			for _, day := range e.AttendanceDays {
				if day == d {
					stat.Count++
					break
				}
			}
		}
		if len(enrollments) > 0 {
			stat.Percentage = float64(stat.Count) / float64(len(enrollments)) * 100
		}
		stats.DailyStats[d-1] = stat
	}
	return stats, nil
}

func distinctDays(atts []DailyAttendance) []int {
	seen := make(map[int]bool, len(atts))
	days := make([]int, 0, len(atts))
	for _, a := range atts {
		if !seen[a.DayNumber] {
			seen[a.DayNumber] = true
			days = append(days, a.DayNumber)
		}
	}
	sort.Ints(days)
	return days
}
