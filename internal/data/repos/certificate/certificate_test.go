package certificate

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursepass-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	domaincert "github.com/yungbote/coursepass-backend/internal/domain/certificate"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
)

func newRepo(t *testing.T) (CertificateRepo, dbctx.Context) {
	t.Helper()
	db := testutil.DB(t)
	return NewCertificateRepo(db, testutil.Logger(t)), dbctx.Context{Ctx: context.Background()}
}

func TestEnsureIsIdempotent(t *testing.T) {
	repo, dbc := newRepo(t)
	student, diploma := uuid.New(), uuid.New()

	first, err := repo.Ensure(dbc, student, diploma)
	require.NoError(t, err)
	require.Equal(t, types.CertificateNotGenerated, first.Status)

	second, err := repo.Ensure(dbc, student, diploma)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestStartJobOnlyFromRequestableStates(t *testing.T) {
	repo, dbc := newRepo(t)
	rec, err := repo.Ensure(dbc, uuid.New(), uuid.New())
	require.NoError(t, err)
	now := time.Now().UTC()

	job1 := uuid.New()
	ok, err := repo.StartJob(dbc, rec.ID, domaincert.RequestableFrom(false), job1, false, now)
	require.NoError(t, err)
	require.True(t, ok)

	// second requester loses the CAS
	ok, err = repo.StartJob(dbc, rec.ID, domaincert.RequestableFrom(false), uuid.New(), false, now)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := repo.GetByID(dbc, rec.ID)
	require.NoError(t, err)
	require.Equal(t, types.CertificateProcessing, got.Status)
	require.Equal(t, job1, *got.JobID)
	require.Nil(t, got.LockedAt)
}

func TestClaimCompleteLifecycle(t *testing.T) {
	repo, dbc := newRepo(t)
	rec, err := repo.Ensure(dbc, uuid.New(), uuid.New())
	require.NoError(t, err)
	now := time.Now().UTC()
	job := uuid.New()
	ok, err := repo.StartJob(dbc, rec.ID, domaincert.RequestableFrom(false), job, false, now)
	require.NoError(t, err)
	require.True(t, ok)

	claimed, err := repo.ClaimNext(dbc, time.Minute, now.Add(time.Second))
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, rec.ID, claimed.ID)
	require.Equal(t, 1, claimed.Attempts)

	// locked and heartbeating: nobody else can claim it
	again, err := repo.ClaimNext(dbc, time.Minute, now.Add(2*time.Second))
	require.NoError(t, err)
	require.Nil(t, again)

	// a stale job id cannot complete the record
	ok, err = repo.Complete(dbc, rec.ID, uuid.New(), "gs://x", now)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.Complete(dbc, rec.ID, job, "gs://bucket/cert.png", now.Add(3*time.Second))
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.GetByID(dbc, rec.ID)
	require.NoError(t, err)
	require.Equal(t, types.CertificateGenerated, got.Status)
	require.Equal(t, "gs://bucket/cert.png", got.FileRef)
	require.NotNil(t, got.CompletedAt)
	require.Nil(t, got.LockedAt)

	// completing twice is a no-op
	ok, err = repo.Complete(dbc, rec.ID, job, "gs://other", now)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClaimReclaimsStaleHeartbeat(t *testing.T) {
	repo, dbc := newRepo(t)
	rec, err := repo.Ensure(dbc, uuid.New(), uuid.New())
	require.NoError(t, err)
	start := time.Now().UTC().Add(-time.Hour)
	_, err = repo.StartJob(dbc, rec.ID, domaincert.RequestableFrom(false), uuid.New(), false, start)
	require.NoError(t, err)

	claimed, err := repo.ClaimNext(dbc, time.Minute, start)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	reclaimed, err := repo.ClaimNext(dbc, time.Minute, start.Add(10*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, reclaimed)
	require.Equal(t, 2, reclaimed.Attempts)
}

func TestFailAndRetryFromFailed(t *testing.T) {
	repo, dbc := newRepo(t)
	rec, err := repo.Ensure(dbc, uuid.New(), uuid.New())
	require.NoError(t, err)
	now := time.Now().UTC()
	job := uuid.New()
	_, err = repo.StartJob(dbc, rec.ID, domaincert.RequestableFrom(false), job, false, now)
	require.NoError(t, err)

	ok, err := repo.Fail(dbc, rec.ID, job, "render: font missing", now)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.GetByID(dbc, rec.ID)
	require.NoError(t, err)
	require.Equal(t, types.CertificateFailed, got.Status)
	require.Equal(t, "render: font missing", got.ErrorReason)

	ok, err = repo.StartJob(dbc, rec.ID, domaincert.RequestableFrom(false), uuid.New(), false, now)
	require.NoError(t, err)
	require.True(t, ok)
	got, err = repo.GetByID(dbc, rec.ID)
	require.NoError(t, err)
	require.Empty(t, got.ErrorReason)
}

func TestForceRegeneration(t *testing.T) {
	repo, dbc := newRepo(t)
	rec, err := repo.Ensure(dbc, uuid.New(), uuid.New())
	require.NoError(t, err)
	now := time.Now().UTC()
	job := uuid.New()
	_, err = repo.StartJob(dbc, rec.ID, domaincert.RequestableFrom(false), job, false, now)
	require.NoError(t, err)
	_, err = repo.Complete(dbc, rec.ID, job, "gs://a", now)
	require.NoError(t, err)

	ok, err := repo.StartJob(dbc, rec.ID, domaincert.RequestableFrom(false), uuid.New(), false, now)
	require.NoError(t, err)
	require.False(t, ok, "generated is not requestable without force")

	ok, err = repo.StartJob(dbc, rec.ID, domaincert.RequestableFrom(true), uuid.New(), true, now)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestListStuck(t *testing.T) {
	repo, dbc := newRepo(t)
	old, err := repo.Ensure(dbc, uuid.New(), uuid.New())
	require.NoError(t, err)
	fresh, err := repo.Ensure(dbc, uuid.New(), uuid.New())
	require.NoError(t, err)
	now := time.Now().UTC()

	_, err = repo.StartJob(dbc, old.ID, domaincert.RequestableFrom(false), uuid.New(), false, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = repo.StartJob(dbc, fresh.ID, domaincert.RequestableFrom(false), uuid.New(), false, now)
	require.NoError(t, err)

	stuck, err := repo.ListStuck(dbc, now.Add(-15*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	require.Equal(t, old.ID, stuck[0].ID)
}
