package enrollments

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment is one user's access to one course. Personal purchases create it
// directly; team seats become enrollments when a member accepts an invitation.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_enrollments_user_course,priority:1" json:"user_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_enrollments_user_course,priority:2;index" json:"course_id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`

	ProgressPercent int        `gorm:"not null;default:0" json:"progress_percent"`
	EnrolledAt      time.Time  `gorm:"not null" json:"enrolled_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}
