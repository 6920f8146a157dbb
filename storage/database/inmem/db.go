// Package inmemdb provides map-backed repositories used by tests and the
// local dev loop; they honor the same contracts as the sqlx repositories.
package inmemdb

import (
	"sync"

	"github.com/saifdine/daura/core/course"
	"github.com/saifdine/daura/core/user"
)

type DB struct {
	mutex sync.RWMutex

	users        map[string]*user.User
	courses      map[int]*course.Course
	enrollments  map[int]*course.Enrollment
	attendances  map[int]*course.DailyAttendance
	coursePK     int
	enrollmentPK int
	attendancePK int
}

func NewDB() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		courses:     make(map[int]*course.Course),
		enrollments: make(map[int]*course.Enrollment),
		attendances: make(map[int]*course.DailyAttendance),
	}
}
