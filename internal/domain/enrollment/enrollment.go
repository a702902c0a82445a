package enrollment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScopeType string

const (
	ScopeCourse  ScopeType = "course"
	ScopeDiploma ScopeType = "diploma"
)

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusActive         Status = "active"
)

// Enrollment rows are never deleted. A course enrollment created by diploma
// fan-out points at the diploma enrollment through ParentEnrollmentID.
type Enrollment struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_scope,priority:1" json:"student_id"`
	ScopeType          ScopeType  `gorm:"column:scope_type;type:varchar(16);not null;uniqueIndex:idx_enrollment_scope,priority:2" json:"scope_type"`
	ScopeID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_scope,priority:3;index" json:"scope_id"`
	Status             Status     `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	ParentEnrollmentID *uuid.UUID `gorm:"type:uuid;index" json:"parent_enrollment_id,omitempty"`
	EnrolledAt         time.Time  `gorm:"column:enrolled_at;not null" json:"enrolled_at"`
	ActivatedAt        *time.Time `gorm:"column:activated_at" json:"activated_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollment" }

func (e *Enrollment) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *Enrollment) IsActive() bool { return e != nil && e.Status == StatusActive }
