package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursepass-backend/internal/clients/redis"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

// CertificateNotifier fans out certificate lifecycle events. Delivery is
// best effort; the record in the database stays the source of truth.
type CertificateNotifier interface {
	JobEnqueued(ctx context.Context, rec *types.CertificateRecord)
	StatusChanged(ctx context.Context, rec *types.CertificateRecord)
}

type busCertificateNotifier struct {
	log *logger.Logger
	bus redis.StatusBus
}

func NewCertificateNotifier(log *logger.Logger, bus redis.StatusBus) CertificateNotifier {
	if bus == nil {
		return nopCertificateNotifier{}
	}
	return &busCertificateNotifier{log: log.With("service", "CertificateNotifier"), bus: bus}
}

func (n *busCertificateNotifier) JobEnqueued(ctx context.Context, rec *types.CertificateRecord) {
	n.publish(ctx, redis.KindJobEnqueued, rec)
}

func (n *busCertificateNotifier) StatusChanged(ctx context.Context, rec *types.CertificateRecord) {
	n.publish(ctx, redis.KindCertificateStatus, rec)
}

func (n *busCertificateNotifier) publish(ctx context.Context, kind string, rec *types.CertificateRecord) {
	if rec == nil {
		return
	}
	if err := n.bus.Publish(ctx, StatusMessageFor(kind, rec)); err != nil {
		n.log.Warn("certificate notify failed", "kind", kind, "record_id", rec.ID, "error", err)
	}
}

func StatusMessageFor(kind string, rec *types.CertificateRecord) redis.StatusMessage {
	msg := redis.StatusMessage{
		Kind:        kind,
		RecordID:    rec.ID.String(),
		StudentID:   rec.StudentID.String(),
		DiplomaID:   rec.DiplomaID.String(),
		Status:      string(rec.Status),
		FileRef:     rec.FileRef,
		ErrorReason: rec.ErrorReason,
		At:          time.Now().UTC(),
	}
	if rec.JobID != nil && *rec.JobID != uuid.Nil {
		msg.JobID = rec.JobID.String()
	}
	return msg
}

type nopCertificateNotifier struct{}

func (nopCertificateNotifier) JobEnqueued(context.Context, *types.CertificateRecord)   {}
func (nopCertificateNotifier) StatusChanged(context.Context, *types.CertificateRecord) {}
