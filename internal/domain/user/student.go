package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Student is owned by the identity service; this subsystem only reads it
// (display name on certificates, email for the ready notice).
type Student struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	FirstName string    `gorm:"column:first_name;not null" json:"first_name"`
	LastName  string    `gorm:"column:last_name;not null" json:"last_name"`

	// eligibility metadata, never mutated here
	Qualification string          `gorm:"column:qualification" json:"qualification,omitempty"`
	Sector        string          `gorm:"column:sector" json:"sector,omitempty"`
	BirthDate     *datatypes.Date `gorm:"column:birth_date" json:"birth_date,omitempty"`
	Profile       datatypes.JSON  `gorm:"column:profile" json:"profile,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Student) TableName() string { return "student" }

func (s *Student) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *Student) DisplayName() string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
}
