package course

import (
	"context"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/saifdine/daura/core"
)

func TestServiceCreate(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	t.Run("end date is derived", func(t *testing.T) {
		c, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"})
		if err != nil {
			t.Fatalf("Create() failed, %v", err)
		}
		if !c.StartDate.Equal(date("2026-09-07")) {
			t.Errorf("StartDate = %v, want 2026-09-07", c.StartDate)
		}
		if !c.EndDate.Equal(date("2026-09-16")) {
			t.Errorf("EndDate = %v, want 2026-09-16", c.EndDate)
		}
		if !c.Active {
			t.Error("new course should be active")
		}
	})

	t.Run("bad start date", func(t *testing.T) {
		_, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "07/09/2026"})
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("Create() error = %v, want a validation error", err)
		}
	})
}

func TestServiceActiveCourse(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	if _, ok, err := svc.ActiveCourse(ctx); err != nil || ok {
		t.Fatalf("ActiveCourse() = %v, %v; want no active course", ok, err)
	}

	first, err := svc.Create(ctx, NewCourse{Title: "First", StartDate: "2026-01-05"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	second, err := svc.Create(ctx, NewCourse{Title: "Second", StartDate: "2026-09-07"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	c, ok, err := svc.ActiveCourse(ctx)
	if err != nil || !ok {
		t.Fatalf("ActiveCourse() = %v, %v; want an active course", ok, err)
	}
	if c.ID != second.ID {
		t.Errorf("ActiveCourse() ID = %d, want the most recent (%d)", c.ID, second.ID)
	}

	if err := svc.Deactivate(ctx, second.ID); err != nil {
		t.Fatalf("Deactivate() failed, %v", err)
	}
	c, ok, err = svc.ActiveCourse(ctx)
	if err != nil || !ok {
		t.Fatalf("ActiveCourse() = %v, %v; want an active course", ok, err)
	}
	if c.ID != first.ID {
		t.Errorf("ActiveCourse() ID = %d, want %d after deactivation", c.ID, first.ID)
	}
}

func TestServiceUpdate(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	t.Run("title only keeps the window", func(t *testing.T) {
		updated, err := svc.Update(ctx, c.ID, UpdateCourse{Title: "Tajweed Foundations"})
		if err != nil {
			t.Fatalf("Update() failed, %v", err)
		}
		if updated.Title != "Tajweed Foundations" {
			t.Errorf("Title = %s, want Tajweed Foundations", updated.Title)
		}
		if !updated.StartDate.Equal(c.StartDate) || !updated.EndDate.Equal(c.EndDate) {
			t.Errorf("window changed: %v - %v", updated.StartDate, updated.EndDate)
		}
	})

	t.Run("new start date recomputes end date", func(t *testing.T) {
		updated, err := svc.Update(ctx, c.ID, UpdateCourse{StartDate: "2026-10-01"})
		if err != nil {
			t.Fatalf("Update() failed, %v", err)
		}
		if !updated.EndDate.Equal(date("2026-10-10")) {
			t.Errorf("EndDate = %v, want 2026-10-10", updated.EndDate)
		}
	})

	t.Run("unknown course", func(t *testing.T) {
		if _, err := svc.Update(ctx, 404, UpdateCourse{Title: "Nope"}); errors.Cause(err) != ErrCourseNotFound {
			t.Errorf("Update() error = %v, want %v", err, ErrCourseNotFound)
		}
	})
}

func TestServiceDeactivate(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	if err := svc.Deactivate(ctx, c.ID); err != nil {
		t.Fatalf("Deactivate() failed, %v", err)
	}
	// repeating is not an error
	if err := svc.Deactivate(ctx, c.ID); err != nil {
		t.Errorf("Deactivate() twice failed, %v", err)
	}
	if _, ok, _ := svc.ActiveCourse(ctx); ok {
		t.Error("course still active after Deactivate()")
	}
}

func TestServiceDayQueries(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	setNow(t, "2026-09-07")
	if day, err := svc.CurrentDayNumber(ctx, c.ID); err != nil || day != 1 {
		t.Errorf("CurrentDayNumber() = %d, %v; want 1", day, err)
	}
	if ok, err := svc.IsRegistrationDay(ctx, c.ID); err != nil || !ok {
		t.Errorf("IsRegistrationDay() = %v, %v; want true", ok, err)
	}

	setNow(t, "2026-09-12")
	if day, err := svc.CurrentDayNumber(ctx, c.ID); err != nil || day != 6 {
		t.Errorf("CurrentDayNumber() = %d, %v; want 6", day, err)
	}
	if ok, err := svc.IsRegistrationDay(ctx, c.ID); err != nil || ok {
		t.Errorf("IsRegistrationDay() = %v, %v; want false", ok, err)
	}

	setNow(t, "2026-09-20")
	if day, err := svc.CurrentDayNumber(ctx, c.ID); err != nil || day != 0 {
		t.Errorf("CurrentDayNumber() = %d, %v; want 0 outside the window", day, err)
	}

	// unknown course is simply not a registration day
	if ok, err := svc.IsRegistrationDay(ctx, 404); err != nil || ok {
		t.Errorf("IsRegistrationDay(404) = %v, %v; want false, nil", ok, err)
	}
}

func TestServiceEnroll(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	e, err := svc.Enroll(ctx, "usr-1", c.ID, "  Awa Keita ", " AWA@Daura.Test ")
	if err != nil {
		t.Fatalf("Enroll() failed, %v", err)
	}
	if e.FullName != "Awa Keita" {
		t.Errorf("FullName = %q, want trimmed", e.FullName)
	}
	if e.Email != "awa@daura.test" {
		t.Errorf("Email = %q, want lowercased", e.Email)
	}

	if _, err := svc.Enroll(ctx, "usr-1", c.ID, "Awa Keita", "awa@daura.test"); errors.Cause(err) != ErrAlreadyEnrolled {
		t.Errorf("Enroll() twice error = %v, want %v", err, ErrAlreadyEnrolled)
	}

	got, err := svc.EnrollmentByEmail(ctx, "Awa@Daura.Test", c.ID)
	if err != nil || got.ID != e.ID {
		t.Errorf("EnrollmentByEmail() = %+v, %v; want enrollment %d", got, err, e.ID)
	}
}

func TestServiceSignAttendance(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	e, err := svc.Enroll(ctx, "usr-1", c.ID, "Awa Keita", "awa@daura.test")
	if err != nil {
		t.Fatalf("Enroll() failed, %v", err)
	}

	tests := []struct {
		name    string
		day     int
		wantErr error
	}{
		{name: "day 0", day: 0, wantErr: ErrInvalidDayNumber},
		{name: "day 11", day: 11, wantErr: ErrInvalidDayNumber},
		{name: "negative day", day: -3, wantErr: ErrInvalidDayNumber},
		{name: "day 1", day: 1},
		{name: "day 10", day: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignAttendance(ctx, e.ID, tt.day)
			if errors.Cause(err) != tt.wantErr {
				t.Errorf("SignAttendance() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("unknown enrollment", func(t *testing.T) {
		if _, err := svc.SignAttendance(ctx, 404, 1); errors.Cause(err) != ErrEnrollmentNotFound {
			t.Errorf("SignAttendance() error = %v, want %v", err, ErrEnrollmentNotFound)
		}
	})

	t.Run("idempotent per day", func(t *testing.T) {
		first, err := svc.SignAttendance(ctx, e.ID, 3)
		if err != nil {
			t.Fatalf("SignAttendance() failed, %v", err)
		}
		again, err := svc.SignAttendance(ctx, e.ID, 3)
		if err != nil {
			t.Fatalf("SignAttendance() again failed, %v", err)
		}
		if again.ID != first.ID || !again.SignedAt.Equal(first.SignedAt) {
			t.Errorf("SignAttendance() twice = %+v, want the original record %+v", again, first)
		}

		atts, err := svc.AttendanceByEnrollment(ctx, e.ID)
		if err != nil {
			t.Fatalf("AttendanceByEnrollment() failed, %v", err)
		}
		if got := distinctDays(atts); !reflect.DeepEqual(got, []int{1, 3, 10}) {
			t.Errorf("distinct days = %v, want [1 3 10]", got)
		}
	})
}

func TestServiceHasCompleteAttendance(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	e, err := svc.Enroll(ctx, "usr-1", c.ID, "Awa Keita", "awa@daura.test")
	if err != nil {
		t.Fatalf("Enroll() failed, %v", err)
	}

	for day := 1; day <= DurationDays; day++ {
		if complete, err := svc.HasCompleteAttendance(ctx, e.ID); err != nil || complete {
			t.Fatalf("HasCompleteAttendance() before day %d = %v, %v; want false", day, complete, err)
		}
		if _, err := svc.SignAttendance(ctx, e.ID, day); err != nil {
			t.Fatalf("SignAttendance(%d) failed, %v", day, err)
		}
	}
	if complete, err := svc.HasCompleteAttendance(ctx, e.ID); err != nil || !complete {
		t.Errorf("HasCompleteAttendance() after 10 days = %v, %v; want true", complete, err)
	}
}

func TestServiceStats(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, NewCourse{Title: "Tajweed Basics", StartDate: "2026-09-07"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	complete, err := svc.Enroll(ctx, "usr-1", c.ID, "Awa Keita", "awa@daura.test")
	if err != nil {
		t.Fatalf("Enroll() failed, %v", err)
	}
	partial, err := svc.Enroll(ctx, "usr-2", c.ID, "Moussa Diop", "moussa@daura.test")
	if err != nil {
		t.Fatalf("Enroll() failed, %v", err)
	}
	for day := 1; day <= DurationDays; day++ {
		if _, err := svc.SignAttendance(ctx, complete.ID, day); err != nil {
			t.Fatalf("SignAttendance(%d) failed, %v", day, err)
		}
	}
	for _, day := range []int{1, 2, 3, 4} {
		if _, err := svc.SignAttendance(ctx, partial.ID, day); err != nil {
			t.Fatalf("SignAttendance(%d) failed, %v", day, err)
		}
	}

	setNow(t, "2026-09-11") // day 5
	stats, err := svc.Stats(ctx, c.ID)
	if err != nil {
		t.Fatalf("Stats() failed, %v", err)
	}

	if stats.TotalEnrollments != 2 {
		t.Errorf("TotalEnrollments = %d, want 2", stats.TotalEnrollments)
	}
	if stats.CompletedStudents != 1 {
		t.Errorf("CompletedStudents = %d, want 1", stats.CompletedStudents)
	}
	if stats.AverageAttendance != 7 {
		t.Errorf("AverageAttendance = %v, want 7", stats.AverageAttendance)
	}
	if stats.CurrentDay == nil || *stats.CurrentDay != 5 {
		t.Errorf("CurrentDay = %v, want 5", stats.CurrentDay)
	}
	if len(stats.DailyStats) != DurationDays {
		t.Fatalf("len(DailyStats) = %d, want %d", len(stats.DailyStats), DurationDays)
	}
	if got := stats.DailyStats[0]; got.Count != 2 || got.Percentage != 100 {
		t.Errorf("DailyStats[0] = %+v, want both enrollments on day 1", got)
	}
	if got := stats.DailyStats[5]; got.Count != 1 || got.Percentage != 50 {
		t.Errorf("DailyStats[5] = %+v, want only the complete enrollment on day 6", got)
	}

	enrollments, err := svc.EnrollmentsWithAttendance(ctx, c.ID)
	if err != nil {
		t.Fatalf("EnrollmentsWithAttendance() failed, %v", err)
	}
	if len(enrollments) != 2 {
		t.Fatalf("len(enrollments) = %d, want 2", len(enrollments))
	}
	if !enrollments[0].IsComplete || enrollments[0].AttendanceCount != 10 {
		t.Errorf("enrollments[0] = %+v, want complete", enrollments[0])
	}
	if enrollments[1].IsComplete || !reflect.DeepEqual(enrollments[1].AttendanceDays, []int{1, 2, 3, 4}) {
		t.Errorf("enrollments[1] = %+v, want days [1 2 3 4]", enrollments[1])
	}
}
