package inmemdb

import (
	"context"
	"sort"

	"github.com/saifdine/daura/core/course"
)

type courseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.coursePK++
	c.ID = repo.db.coursePK
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrCourseNotFound
}

func (repo *courseRepository) LatestActiveCourse(ctx context.Context) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	latest := course.Course{}
	for _, c := range repo.db.courses {
		if c.Active && c.ID > latest.ID {
			latest = *c
		}
	}
	if latest.ID == 0 {
		return course.Course{}, course.ErrCourseNotFound
	}
	return latest, nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID > courses[j].ID })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[c.ID]; !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.enrollmentPK++
	e.ID = repo.db.enrollmentPK
	repo.db.enrollments[e.ID] = &e
	return e, nil
}

func (repo *courseRepository) GetEnrollmentByID(ctx context.Context, id int) (course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.enrollments[id]; ok {
		return *e, nil
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) GetEnrollmentByUser(ctx context.Context, userID string, courseID int) (course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return *e, nil
		}
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) GetEnrollmentByEmail(ctx context.Context, email string, courseID int) (course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.Email == email && e.CourseID == courseID {
			return *e, nil
		}
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) GetEnrollmentByEmailAnyCourse(ctx context.Context, email string) (course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	latest := course.Enrollment{}
	for _, e := range repo.db.enrollments {
		if e.Email == email && e.ID > latest.ID {
			latest = *e
		}
	}
	if latest.ID == 0 {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	return latest, nil
}

func (repo *courseRepository) QueryEnrollmentsByCourse(ctx context.Context, courseID int) ([]course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if e.CourseID == courseID {
			enrollments = append(enrollments, *e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID < enrollments[j].ID })
	return enrollments, nil
}

func (repo *courseRepository) GetAttendance(ctx context.Context, enrollmentID, dayNumber int) (course.DailyAttendance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, a := range repo.db.attendances {
		if a.EnrollmentID == enrollmentID && a.DayNumber == dayNumber {
			return *a, nil
		}
	}
	return course.DailyAttendance{}, course.ErrAttendanceNotFound
}

func (repo *courseRepository) CreateAttendance(ctx context.Context, a course.DailyAttendance) (course.DailyAttendance, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// mirror the unique (enrollment_id, day_number) constraint
	for _, existing := range repo.db.attendances {
		if existing.EnrollmentID == a.EnrollmentID && existing.DayNumber == a.DayNumber {
			return *existing, nil
		}
	}

	repo.db.attendancePK++
	a.ID = repo.db.attendancePK
	repo.db.attendances[a.ID] = &a
	return a, nil
}

func (repo *courseRepository) QueryAttendanceByEnrollment(ctx context.Context, enrollmentID int) ([]course.DailyAttendance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	atts := make([]course.DailyAttendance, 0)
	for _, a := range repo.db.attendances {
		if a.EnrollmentID == enrollmentID {
			atts = append(atts, *a)
		}
	}
	sort.Slice(atts, func(i, j int) bool { return atts[i].DayNumber < atts[j].DayNumber })
	return atts, nil
}

func (repo *courseRepository) QueryAttendanceByEnrollments(ctx context.Context, enrollmentIDs []int) ([]course.DailyAttendance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := make(map[int]bool, len(enrollmentIDs))
	for _, id := range enrollmentIDs {
		wanted[id] = true
	}

	atts := make([]course.DailyAttendance, 0)
	for _, a := range repo.db.attendances {
		if wanted[a.EnrollmentID] {
			atts = append(atts, *a)
		}
	}
	sort.Slice(atts, func(i, j int) bool {
		if atts[i].EnrollmentID != atts[j].EnrollmentID {
			return atts[i].EnrollmentID < atts[j].EnrollmentID
		}
		return atts[i].DayNumber < atts[j].DayNumber
	})
	return atts, nil
}
