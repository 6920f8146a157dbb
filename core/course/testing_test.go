package course

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/saifdine/daura/core/user"
)

// map-backed repositories so service and session behavior can be exercised
// without the storage packages (which import this one).

type fakeRepo struct {
	coursePK     int
	enrollmentPK int
	attendancePK int
	courses      map[int]Course
	enrollments  map[int]Enrollment
	attendances  map[int]DailyAttendance
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		courses:     make(map[int]Course),
		enrollments: make(map[int]Enrollment),
		attendances: make(map[int]DailyAttendance),
	}
}

func (repo *fakeRepo) CreateCourse(ctx context.Context, c Course) (Course, error) {
	repo.coursePK++
	c.ID = repo.coursePK
	repo.courses[c.ID] = c
	return c, nil
}

func (repo *fakeRepo) GetCourseByID(ctx context.Context, id int) (Course, error) {
	if c, ok := repo.courses[id]; ok {
		return c, nil
	}
	return Course{}, ErrCourseNotFound
}

func (repo *fakeRepo) LatestActiveCourse(ctx context.Context) (Course, error) {
	var latest Course
	for _, c := range repo.courses {
		if c.Active && c.ID > latest.ID {
			latest = c
		}
	}
	if latest.ID == 0 {
		return Course{}, ErrCourseNotFound
	}
	return latest, nil
}

func (repo *fakeRepo) QueryAllCourses(ctx context.Context) ([]Course, error) {
	courses := make([]Course, 0, len(repo.courses))
	for _, c := range repo.courses {
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (repo *fakeRepo) UpdateCourse(ctx context.Context, c Course) (Course, error) {
	if _, ok := repo.courses[c.ID]; !ok {
		return Course{}, ErrCourseNotFound
	}
	repo.courses[c.ID] = c
	return c, nil
}

func (repo *fakeRepo) CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error) {
	repo.enrollmentPK++
	e.ID = repo.enrollmentPK
	repo.enrollments[e.ID] = e
	return e, nil
}

func (repo *fakeRepo) GetEnrollmentByID(ctx context.Context, id int) (Enrollment, error) {
	if e, ok := repo.enrollments[id]; ok {
		return e, nil
	}
	return Enrollment{}, ErrEnrollmentNotFound
}

func (repo *fakeRepo) GetEnrollmentByUser(ctx context.Context, userID string, courseID int) (Enrollment, error) {
	for _, e := range repo.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return e, nil
		}
	}
	return Enrollment{}, ErrEnrollmentNotFound
}

func (repo *fakeRepo) GetEnrollmentByEmail(ctx context.Context, email string, courseID int) (Enrollment, error) {
	for _, e := range repo.enrollments {
		if e.Email == email && e.CourseID == courseID {
			return e, nil
		}
	}
	return Enrollment{}, ErrEnrollmentNotFound
}

func (repo *fakeRepo) GetEnrollmentByEmailAnyCourse(ctx context.Context, email string) (Enrollment, error) {
	var latest Enrollment
	for _, e := range repo.enrollments {
		if e.Email == email && e.ID > latest.ID {
			latest = e
		}
	}
	if latest.ID == 0 {
		return Enrollment{}, ErrEnrollmentNotFound
	}
	return latest, nil
}

func (repo *fakeRepo) QueryEnrollmentsByCourse(ctx context.Context, courseID int) ([]Enrollment, error) {
	enrollments := make([]Enrollment, 0)
	for _, e := range repo.enrollments {
		if e.CourseID == courseID {
			enrollments = append(enrollments, e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID < enrollments[j].ID })
	return enrollments, nil
}

func (repo *fakeRepo) GetAttendance(ctx context.Context, enrollmentID, dayNumber int) (DailyAttendance, error) {
	for _, a := range repo.attendances {
		if a.EnrollmentID == enrollmentID && a.DayNumber == dayNumber {
			return a, nil
		}
	}
	return DailyAttendance{}, ErrAttendanceNotFound
}

func (repo *fakeRepo) CreateAttendance(ctx context.Context, a DailyAttendance) (DailyAttendance, error) {
	// mirror the unique constraint: the first write wins
	if existing, err := repo.GetAttendance(ctx, a.EnrollmentID, a.DayNumber); err == nil {
		return existing, nil
	}
	repo.attendancePK++
	a.ID = repo.attendancePK
	repo.attendances[a.ID] = a
	return a, nil
}

func (repo *fakeRepo) QueryAttendanceByEnrollment(ctx context.Context, enrollmentID int) ([]DailyAttendance, error) {
	return repo.QueryAttendanceByEnrollments(ctx, []int{enrollmentID})
}

func (repo *fakeRepo) QueryAttendanceByEnrollments(ctx context.Context, enrollmentIDs []int) ([]DailyAttendance, error) {
	atts := make([]DailyAttendance, 0)
	for _, a := range repo.attendances {
		for _, id := range enrollmentIDs {
			if a.EnrollmentID == id {
				atts = append(atts, a)
				break
			}
		}
	}
	sort.Slice(atts, func(i, j int) bool { return atts[i].ID < atts[j].ID })
	return atts, nil
}

type fakeUserRepo struct {
	pk    int
	users map[string]user.User
}

var _ user.Repository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]user.User)}
}

func (repo *fakeUserRepo) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	for _, usr := range repo.users {
		if usr.Email != email {
			continue
		}
		excluded := false
		for _, ex := range excludedUsers {
			if ex.ID == usr.ID {
				excluded = true
				break
			}
		}
		if !excluded {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *fakeUserRepo) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.pk++
	usr.ID = fmt.Sprintf("usr-%d", repo.pk)
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *fakeUserRepo) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	users := make([]user.User, 0, len(repo.users))
	for _, usr := range repo.users {
		users = append(users, usr)
	}
	return users, nil
}

func (repo *fakeUserRepo) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if usr, ok := repo.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	for _, usr := range repo.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *fakeUserRepo) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	existing, ok := repo.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Name != "" {
		existing.Name = usr.Name
	}
	if usr.Email != "" {
		existing.Email = usr.Email
	}
	if usr.Roles != nil {
		existing.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		existing.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		existing.IsActive = isActive
	}
	existing.UpdatedAt = usr.UpdatedAt
	repo.users[usr.ID] = existing
	return existing, nil
}

func (repo *fakeUserRepo) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	usr, ok := repo.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.LastLogin = t
	repo.users[id] = usr
	return nil
}

// setNow pins the package clock to midday UTC on the given date and restores
// it when the test finishes.
func setNow(t *testing.T, date string) {
	t.Helper()
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		t.Fatalf("setNow() failed: %v", err)
	}
	nowFunc = func() time.Time { return day.Add(12 * time.Hour) }
	t.Cleanup(func() { nowFunc = time.Now })
}
