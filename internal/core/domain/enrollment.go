package domain

import "time"

type EnrollmentStatus string

const (
	EnrollmentNotStarted EnrollmentStatus = "not_started"
	EnrollmentInProgress EnrollmentStatus = "in_progress"
	EnrollmentCompleted  EnrollmentStatus = "completed"
	EnrollmentExpired    EnrollmentStatus = "expired"
)

// Enrollment joins a User and a Course within a Company.
type Enrollment struct {
	ID                  string           `json:"id"`
	UserID              string           `json:"user_id" validate:"required"`
	CourseID            string           `json:"course_id" validate:"required"`
	CompanyID           string           `json:"company_id" validate:"required"`
	Status              EnrollmentStatus `json:"status" validate:"oneof=not_started in_progress completed expired"`
	Progress            int              `json:"progress"`
	EnrolledAt          time.Time        `json:"enrolled_at"`
	StartedAt           *time.Time       `json:"started_at"`
	CompletedAt         *time.Time       `json:"completed_at"`
	ExpiresAt           *time.Time       `json:"expires_at"`
	CertificateID       *string          `json:"certificate_id"`
	CertificateIssuedAt *time.Time       `json:"certificate_issued_at"`
}

type EnrollmentUpdate struct {
	Status      *EnrollmentStatus `json:"status,omitempty" validate:"omitnil,oneof=not_started in_progress completed expired"`
	Progress    *int              `json:"progress,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

// ProgressUpdate computes the columns written for a progress change.
//
// An explicit status wins, except that progress 100 always completes the
// enrollment and stamps completion. Progress above zero without a status moves
// the enrollment to in_progress. Progress zero without a status leaves the
// status alone. startedAt is stamped the first time the result is in_progress.
// Out-of-range progress is written as given.
func ProgressUpdate(current Enrollment, progress int, status *EnrollmentStatus, now time.Time) EnrollmentUpdate {
	upd := EnrollmentUpdate{Progress: &progress}

	next := status
	if next == nil && progress > 0 {
		s := EnrollmentInProgress
		next = &s
	}
	if progress == 100 {
		s := EnrollmentCompleted
		next = &s
		upd.CompletedAt = &now
	}
	upd.Status = next

	if next != nil && *next == EnrollmentInProgress && current.StartedAt == nil {
		upd.StartedAt = &now
	}
	return upd
}
