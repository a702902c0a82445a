package certificate

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursepass-backend/internal/domain"
	domaincert "github.com/yungbote/coursepass-backend/internal/domain/certificate"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

// CertificateRepo owns the certificate record state machine. Every
// transition is a guarded UPDATE whose RowsAffected says whether this caller
// won; none of them read-then-write.
type CertificateRepo interface {
	Get(dbc dbctx.Context, studentID, diplomaID uuid.UUID) (*types.CertificateRecord, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CertificateRecord, error)
	// Ensure returns the record for (student, diploma), creating it in
	// not_generated when absent.
	Ensure(dbc dbctx.Context, studentID, diplomaID uuid.UUID) (*types.CertificateRecord, error)
	// StartJob moves the record to processing with jobID when its status is
	// one of from.
	StartJob(dbc dbctx.Context, id uuid.UUID, from []types.CertificateStatus, jobID uuid.UUID, force bool, now time.Time) (bool, error)
	// ClaimNext locks one enqueued (or abandoned) processing record for a worker.
	ClaimNext(dbc dbctx.Context, staleAfter time.Duration, now time.Time) (*types.CertificateRecord, error)
	Heartbeat(dbc dbctx.Context, id, jobID uuid.UUID, now time.Time) error
	Complete(dbc dbctx.Context, id, jobID uuid.UUID, fileRef string, now time.Time) (bool, error)
	Fail(dbc dbctx.Context, id, jobID uuid.UUID, reason string, now time.Time) (bool, error)
	ListStuck(dbc dbctx.Context, requestedBefore time.Time, limit int) ([]*types.CertificateRecord, error)
}

type certificateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateRepo {
	return &certificateRepo{db: db, log: baseLog.With("repo", "CertificateRepo")}
}

func (r *certificateRepo) Get(dbc dbctx.Context, studentID, diplomaID uuid.UUID) (*types.CertificateRecord, error) {
	if studentID == uuid.Nil || diplomaID == uuid.Nil {
		return nil, nil
	}
	var rec types.CertificateRecord
	err := dbc.DB(r.db).
		Where("student_id = ? AND diploma_id = ?", studentID, diplomaID).
		Limit(1).
		Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *certificateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CertificateRecord, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rec types.CertificateRecord
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&rec).Error; err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *certificateRepo) Ensure(dbc dbctx.Context, studentID, diplomaID uuid.UUID) (*types.CertificateRecord, error) {
	if studentID == uuid.Nil || diplomaID == uuid.Nil {
		return nil, errors.New("certificate requires student_id and diploma_id")
	}
	rec := &types.CertificateRecord{
		StudentID: studentID,
		DiplomaID: diplomaID,
		Status:    types.CertificateNotGenerated,
	}
	err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "diploma_id"}},
			DoNothing: true,
		}).
		Create(rec).Error
	if err != nil {
		return nil, err
	}
	stored, err := r.Get(dbc, studentID, diplomaID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.New("certificate record missing after ensure")
	}
	return stored, nil
}

func (r *certificateRepo) StartJob(dbc dbctx.Context, id uuid.UUID, from []types.CertificateStatus, jobID uuid.UUID, force bool, now time.Time) (bool, error) {
	if id == uuid.Nil || jobID == uuid.Nil || len(from) == 0 {
		return false, errors.New("start job requires id, job id and source states")
	}
	res := dbc.DB(r.db).
		Model(&types.CertificateRecord{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":       types.CertificateProcessing,
			"job_id":       jobID,
			"forced":       force,
			"file_ref":     "",
			"error_reason": "",
			"requested_at": now,
			"completed_at": nil,
			"locked_at":    nil,
			"heartbeat_at": nil,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *certificateRepo) ClaimNext(dbc dbctx.Context, staleAfter time.Duration, now time.Time) (*types.CertificateRecord, error) {
	staleCutoff := now.Add(-staleAfter)
	var claimed *types.CertificateRecord
	err := dbc.DB(r.db).Transaction(func(txx *gorm.DB) error {
		var rec types.CertificateRecord
		qErr := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        status = ?
        AND job_id IS NOT NULL
        AND (
          locked_at IS NULL
          OR heartbeat_at IS NULL
          OR heartbeat_at < ?
        )
      `, types.CertificateProcessing, staleCutoff).
			Order("requested_at ASC").
			First(&rec).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}

		res := txx.Model(&types.CertificateRecord{}).
			Where("id = ? AND job_id = ? AND status = ?", rec.ID, *rec.JobID, types.CertificateProcessing).
			Where("locked_at IS NULL OR heartbeat_at IS NULL OR heartbeat_at < ?", staleCutoff).
			Updates(map[string]interface{}{
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		rec.Attempts++
		rec.LockedAt = &now
		rec.HeartbeatAt = &now
		claimed = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *certificateRepo) Heartbeat(dbc dbctx.Context, id, jobID uuid.UUID, now time.Time) error {
	if id == uuid.Nil || jobID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.CertificateRecord{}).
		Where("id = ? AND job_id = ? AND status = ?", id, jobID, types.CertificateProcessing).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *certificateRepo) Complete(dbc dbctx.Context, id, jobID uuid.UUID, fileRef string, now time.Time) (bool, error) {
	return r.finish(dbc, id, jobID, domaincert.StatusGenerated, map[string]interface{}{
		"file_ref":     fileRef,
		"error_reason": "",
	}, now)
}

func (r *certificateRepo) Fail(dbc dbctx.Context, id, jobID uuid.UUID, reason string, now time.Time) (bool, error) {
	return r.finish(dbc, id, jobID, domaincert.StatusFailed, map[string]interface{}{
		"error_reason": reason,
	}, now)
}

func (r *certificateRepo) finish(dbc dbctx.Context, id, jobID uuid.UUID, to types.CertificateStatus, extra map[string]interface{}, now time.Time) (bool, error) {
	if id == uuid.Nil || jobID == uuid.Nil {
		return false, errors.New("finish requires id and job id")
	}
	if !domaincert.CanTransition(domaincert.StatusProcessing, to, false) {
		return false, errors.New("invalid terminal state " + string(to))
	}
	updates := map[string]interface{}{
		"status":       to,
		"completed_at": now,
		"locked_at":    nil,
		"heartbeat_at": nil,
		"updated_at":   now,
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := dbc.DB(r.db).
		Model(&types.CertificateRecord{}).
		Where("id = ? AND job_id = ? AND status = ?", id, jobID, types.CertificateProcessing).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *certificateRepo) ListStuck(dbc dbctx.Context, requestedBefore time.Time, limit int) ([]*types.CertificateRecord, error) {
	out := []*types.CertificateRecord{}
	if limit <= 0 {
		limit = 100
	}
	err := dbc.DB(r.db).
		Where("status = ? AND requested_at < ?", types.CertificateProcessing, requestedBefore).
		Order("requested_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
