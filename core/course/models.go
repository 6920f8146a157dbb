package course

import (
	"time"

	"github.com/saifdine/daura/core"
)

// DurationDays is the fixed length of a course: day 1 through day 10 inclusive.
const DurationDays = 10

type Course struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	StartDate   time.Time `json:"start_date"` // calendar date, midnight UTC
	EndDate     time.Time `json:"end_date"`   // always StartDate + 9 days
	Active      bool      `json:"active"`
	TemplateURL string    `json:"template_url,omitempty"` // certificate PDF template, if uploaded
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type Enrollment struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  int       `json:"course_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type DailyAttendance struct {
	ID           int       `json:"id"`
	EnrollmentID int       `json:"enrollment_id"`
	DayNumber    int       `json:"day_number"` // 1..10
	SignedAt     time.Time `json:"signed_at"`  // UTC, server-assigned
}

// EnrollmentWithAttendance is the admin read model: an Enrollment joined with
// its distinct signed day numbers.
type EnrollmentWithAttendance struct {
	Enrollment
	AttendanceDays  []int `json:"attendance_days"`
	AttendanceCount int   `json:"attendance_count"`
	IsComplete      bool  `json:"is_complete"`
}

type DayStat struct {
	Day        int     `json:"day"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Stats struct {
	TotalEnrollments  int       `json:"total_enrollments"`
	CompletedStudents int       `json:"completed_students"`
	CurrentDay        *int      `json:"current_day"`
	AverageAttendance float64   `json:"average_attendance"`
	DailyStats        []DayStat `json:"daily_stats"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title     string `json:"title" validate:"required,min=3"`
	StartDate string `json:"start_date" validate:"required,dateonly"`
	CreatedBy string `json:"created_by"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.StartDate = core.CleanString(nc.StartDate)
	return core.Validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing
// Course. Omitted fields are unchanged; a new StartDate recomputes EndDate.
type UpdateCourse struct {
	Title     string `json:"title" validate:"omitempty,min=3"`
	StartDate string `json:"start_date" validate:"omitempty,dateonly"`
}

func (uc *UpdateCourse) Validate() error {
	uc.Title = core.CleanString(uc.Title)
	uc.StartDate = core.CleanString(uc.StartDate)
	return core.Validate.Struct(uc)
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CurrentDayNumber computes the 1-based offset of `today` within the course
// window, or 0 when today falls outside [StartDate, EndDate].
func (c Course) CurrentDayNumber(today time.Time) int {
	day, start, end := Day(today), Day(c.StartDate), Day(c.EndDate)
	if day.Before(start) || day.After(end) {
		return 0
	}
	return int(day.Sub(start).Hours()/24) + 1 // day 1..10
}

// IsRegistrationDay reports whether `today` is day 1 of the course.
func (c Course) IsRegistrationDay(today time.Time) bool {
	return Day(today).Equal(Day(c.StartDate))
}
