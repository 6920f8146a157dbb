package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/saifdine/daura/core/course"
)

type dbCourse struct {
	ID          int       `db:"id"`
	Title       string    `db:"title"`
	StartDate   time.Time `db:"start_date"`
	EndDate     time.Time `db:"end_date"`
	Active      bool      `db:"active"`
	TemplateURL string    `db:"template_url"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (dc dbCourse) toCourse() course.Course {
	return course.Course{
		ID:          dc.ID,
		Title:       dc.Title,
		StartDate:   dc.StartDate,
		EndDate:     dc.EndDate,
		Active:      dc.Active,
		TemplateURL: dc.TemplateURL,
		CreatedBy:   dc.CreatedBy,
		CreatedAt:   dc.CreatedAt,
		UpdatedAt:   dc.UpdatedAt,
	}
}

type dbEnrollment struct {
	ID        int       `db:"id"`
	UserID    string    `db:"user_id"`
	CourseID  int       `db:"course_id"`
	FullName  string    `db:"full_name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

func (de dbEnrollment) toEnrollment() course.Enrollment {
	return course.Enrollment(de)
}

type dbAttendance struct {
	ID           int       `db:"id"`
	EnrollmentID int       `db:"enrollment_id"`
	DayNumber    int       `db:"day_number"`
	SignedAt     time.Time `db:"signed_at"`
}

func (da dbAttendance) toAttendance() course.DailyAttendance {
	return course.DailyAttendance(da)
}

type courseRepository struct {
	db *sqlx.DB
}

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	query := `
		INSERT INTO course (title, start_date, end_date, active, template_url, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		c.Title, c.StartDate, c.EndDate, c.Active, c.TemplateURL, c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	var dc dbCourse
	err := repo.db.GetContext(ctx, &dc, `SELECT * FROM course WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return course.Course{}, course.ErrCourseNotFound
	}
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return dc.toCourse(), nil
}

func (repo *courseRepository) LatestActiveCourse(ctx context.Context) (course.Course, error) {
	var dc dbCourse
	err := repo.db.GetContext(ctx, &dc, `SELECT * FROM course WHERE active ORDER BY created_at DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		return course.Course{}, course.ErrCourseNotFound
	}
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting active course")
	}
	return dc.toCourse(), nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	var dbCourses []dbCourse
	if err := repo.db.SelectContext(ctx, &dbCourses, `SELECT * FROM course ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(dbCourses))
	for _, dc := range dbCourses {
		courses = append(courses, dc.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	query := `
		UPDATE course
		SET title = $2, start_date = $3, end_date = $4, active = $5, template_url = $6, updated_at = $7
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		c.ID, c.Title, c.StartDate, c.EndDate, c.Active, c.TemplateURL, c.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrCourseNotFound
	}
	return c, nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	query := `
		INSERT INTO enrollment (user_id, course_id, full_name, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		e.UserID, e.CourseID, e.FullName, e.Email, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo *courseRepository) GetEnrollmentByID(ctx context.Context, id int) (course.Enrollment, error) {
	var de dbEnrollment
	err := repo.db.GetContext(ctx, &de, `SELECT * FROM enrollment WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return de.toEnrollment(), nil
}

func (repo *courseRepository) GetEnrollmentByUser(ctx context.Context, userID string, courseID int) (course.Enrollment, error) {
	var de dbEnrollment
	err := repo.db.GetContext(ctx, &de,
		`SELECT * FROM enrollment WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err == sql.ErrNoRows {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "getting enrollment by user")
	}
	return de.toEnrollment(), nil
}

func (repo *courseRepository) GetEnrollmentByEmail(ctx context.Context, email string, courseID int) (course.Enrollment, error) {
	var de dbEnrollment
	err := repo.db.GetContext(ctx, &de,
		`SELECT * FROM enrollment WHERE email = $1 AND course_id = $2`, email, courseID)
	if err == sql.ErrNoRows {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "getting enrollment by email")
	}
	return de.toEnrollment(), nil
}

func (repo *courseRepository) GetEnrollmentByEmailAnyCourse(ctx context.Context, email string) (course.Enrollment, error) {
	var de dbEnrollment
	err := repo.db.GetContext(ctx, &de,
		`SELECT * FROM enrollment WHERE email = $1 ORDER BY created_at DESC LIMIT 1`, email)
	if err == sql.ErrNoRows {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "getting enrollment by email")
	}
	return de.toEnrollment(), nil
}

func (repo *courseRepository) QueryEnrollmentsByCourse(ctx context.Context, courseID int) ([]course.Enrollment, error) {
	var dbEnrollments []dbEnrollment
	err := repo.db.SelectContext(ctx, &dbEnrollments,
		`SELECT * FROM enrollment WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]course.Enrollment, 0, len(dbEnrollments))
	for _, de := range dbEnrollments {
		enrollments = append(enrollments, de.toEnrollment())
	}
	return enrollments, nil
}

func (repo *courseRepository) GetAttendance(ctx context.Context, enrollmentID, dayNumber int) (course.DailyAttendance, error) {
	var da dbAttendance
	err := repo.db.GetContext(ctx, &da,
		`SELECT * FROM daily_attendance WHERE enrollment_id = $1 AND day_number = $2`, enrollmentID, dayNumber)
	if err == sql.ErrNoRows {
		return course.DailyAttendance{}, course.ErrAttendanceNotFound
	}
	if err != nil {
		return course.DailyAttendance{}, errors.Wrap(err, "getting attendance")
	}
	return da.toAttendance(), nil
}

func (repo *courseRepository) CreateAttendance(ctx context.Context, a course.DailyAttendance) (course.DailyAttendance, error) {
	// ON CONFLICT keeps concurrent signs of the same day idempotent
	query := `
		INSERT INTO daily_attendance (enrollment_id, day_number, signed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (enrollment_id, day_number) DO NOTHING
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, query, a.EnrollmentID, a.DayNumber, a.SignedAt).Scan(&a.ID)
	if err == sql.ErrNoRows {
		// lost the race; return the winner
		return repo.GetAttendance(ctx, a.EnrollmentID, a.DayNumber)
	}
	if err != nil {
		return course.DailyAttendance{}, errors.Wrap(err, "inserting attendance")
	}
	return a, nil
}

func (repo *courseRepository) QueryAttendanceByEnrollment(ctx context.Context, enrollmentID int) ([]course.DailyAttendance, error) {
	var dbAtts []dbAttendance
	err := repo.db.SelectContext(ctx, &dbAtts,
		`SELECT * FROM daily_attendance WHERE enrollment_id = $1 ORDER BY day_number`, enrollmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	atts := make([]course.DailyAttendance, 0, len(dbAtts))
	for _, da := range dbAtts {
		atts = append(atts, da.toAttendance())
	}
	return atts, nil
}

func (repo *courseRepository) QueryAttendanceByEnrollments(ctx context.Context, enrollmentIDs []int) ([]course.DailyAttendance, error) {
	if len(enrollmentIDs) == 0 {
		return nil, nil
	}
	ids := make(pq.Int64Array, 0, len(enrollmentIDs))
	for _, id := range enrollmentIDs {
		ids = append(ids, int64(id))
	}

	var dbAtts []dbAttendance
	err := repo.db.SelectContext(ctx, &dbAtts,
		`SELECT * FROM daily_attendance WHERE enrollment_id = ANY($1) ORDER BY enrollment_id, day_number`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	atts := make([]course.DailyAttendance, 0, len(dbAtts))
	for _, da := range dbAtts {
		atts = append(atts, da.toAttendance())
	}
	return atts, nil
}
