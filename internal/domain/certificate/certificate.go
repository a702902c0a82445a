package certificate

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusNotGenerated Status = "not_generated"
	StatusProcessing   Status = "processing"
	StatusGenerated    Status = "generated"
	StatusFailed       Status = "failed"
)

func (s Status) Terminal() bool { return s == StatusGenerated || s == StatusFailed }

// CertificateRecord is unique per (student, diploma). A record in processing
// with LockedAt == nil is an enqueued job; workers claim it by stamping
// LockedAt and keep HeartbeatAt fresh while rendering.
type CertificateRecord struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_student_diploma,priority:1" json:"student_id"`
	DiplomaID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_student_diploma,priority:2;index" json:"diploma_id"`
	Status      Status     `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	JobID       *uuid.UUID `gorm:"type:uuid;column:job_id;index" json:"job_id,omitempty"`
	Attempts    int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Forced      bool       `gorm:"column:forced;not null;default:false" json:"forced"`
	FileRef     string     `gorm:"column:file_ref" json:"file_ref,omitempty"`
	ErrorReason string     `gorm:"column:error_reason" json:"error_reason,omitempty"`
	RequestedAt *time.Time `gorm:"column:requested_at" json:"requested_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	LockedAt    *time.Time `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CertificateRecord) TableName() string { return "certificate_record" }

func (r *CertificateRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusNotGenerated
	}
	return nil
}

// RequestableFrom lists the states a generation request may move to processing.
func RequestableFrom(force bool) []Status {
	from := []Status{StatusNotGenerated, StatusFailed}
	if force {
		from = append(from, StatusGenerated)
	}
	return from
}

func CanTransition(from, to Status, force bool) bool {
	switch to {
	case StatusProcessing:
		for _, s := range RequestableFrom(force) {
			if s == from {
				return true
			}
		}
		return false
	case StatusGenerated, StatusFailed:
		return from == StatusProcessing
	default:
		return false
	}
}

// JobHandle is what callers get back from a generation request.
type JobHandle struct {
	RecordID    uuid.UUID  `json:"record_id"`
	JobID       *uuid.UUID `json:"job_id,omitempty"`
	Status      Status     `json:"status"`
	FileRef     string     `json:"file_ref,omitempty"`
	RequestedAt *time.Time `json:"requested_at,omitempty"`
}

func (r *CertificateRecord) Handle() JobHandle {
	return JobHandle{
		RecordID:    r.ID,
		JobID:       r.JobID,
		Status:      r.Status,
		FileRef:     r.FileRef,
		RequestedAt: r.RequestedAt,
	}
}

// StatusView is the polled status shape.
type StatusView struct {
	Status      Status     `json:"status"`
	FileRef     string     `json:"file_ref,omitempty"`
	ErrorReason string     `json:"error_reason,omitempty"`
	JobID       *uuid.UUID `json:"job_id,omitempty"`
	RequestedAt *time.Time `json:"requested_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (r *CertificateRecord) View() StatusView {
	if r == nil {
		return StatusView{Status: StatusNotGenerated}
	}
	return StatusView{
		Status:      r.Status,
		FileRef:     r.FileRef,
		ErrorReason: r.ErrorReason,
		JobID:       r.JobID,
		RequestedAt: r.RequestedAt,
		CompletedAt: r.CompletedAt,
	}
}

// ArtifactKey is stable per job so a re-executed job overwrites its own output.
func ArtifactKey(diplomaID, studentID, jobID uuid.UUID) string {
	return "certificates/" + diplomaID.String() + "/" + studentID.String() + "/" + jobID.String() + ".png"
}
