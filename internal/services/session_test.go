package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursepass-backend/internal/data/repos/testutil"
	"github.com/yungbote/coursepass-backend/internal/platform/apierr"
	"github.com/yungbote/coursepass-backend/internal/platform/ctxutil"
)

func newSessions(t *testing.T) SessionService {
	t.Helper()
	s, err := NewSessionService(testutil.Logger(t), SessionConfig{Secret: "test-secret", Issuer: "identity"})
	require.NoError(t, err)
	return s
}

func TestSession_RoundTrip(t *testing.T) {
	s := newSessions(t)
	id := uuid.New()
	tok, err := s.IssueToken(id, "admin", time.Minute)
	require.NoError(t, err)

	ctx, err := s.SetContextFromToken(context.Background(), tok)
	require.NoError(t, err)
	rd := ctxutil.GetRequestData(ctx)
	require.NotNil(t, rd)
	require.Equal(t, id, rd.UserID)
	require.True(t, rd.IsAdmin())
	require.NotEqual(t, uuid.Nil, rd.SessionID)
}

func TestSession_Rejects(t *testing.T) {
	s := newSessions(t)
	ctx := context.Background()

	_, err := s.SetContextFromToken(ctx, "")
	require.ErrorIs(t, err, apierr.ErrUnauthenticated)

	_, err = s.SetContextFromToken(ctx, "not-a-jwt")
	require.ErrorIs(t, err, apierr.ErrUnauthenticated)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "identity",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	raw, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = s.SetContextFromToken(ctx, raw)
	status, code := apierr.StatusOf(err)
	require.Equal(t, 401, status)
	require.Equal(t, "session_expired", code)

	other, err := NewSessionService(testutil.Logger(t), SessionConfig{Secret: "other", Issuer: "identity"})
	require.NoError(t, err)
	forged, err := other.IssueToken(uuid.New(), "", time.Minute)
	require.NoError(t, err)
	_, err = s.SetContextFromToken(ctx, forged)
	require.ErrorIs(t, err, apierr.ErrUnauthenticated)

	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	raw, err = wrongIssuer.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = s.SetContextFromToken(ctx, raw)
	require.ErrorIs(t, err, apierr.ErrUnauthenticated)
}
