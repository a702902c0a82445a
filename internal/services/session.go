package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/coursepass-backend/internal/platform/apierr"
	"github.com/yungbote/coursepass-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

// SessionClaims is the token contract shared with the identity service.
type SessionClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type SessionService interface {
	// SetContextFromToken verifies a bearer token and attaches the caller's
	// RequestData to ctx.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueToken(studentID uuid.UUID, role string, ttl time.Duration) (string, error)
}

type SessionConfig struct {
	Secret string
	Issuer string
	Leeway time.Duration
}

type sessionService struct {
	log    *logger.Logger
	secret []byte
	issuer string
	leeway time.Duration
}

func NewSessionService(log *logger.Logger, cfg SessionConfig) (SessionService, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("session secret required")
	}
	return &sessionService{
		log:    log.With("service", "SessionService"),
		secret: []byte(cfg.Secret),
		issuer: strings.TrimSpace(cfg.Issuer),
		leeway: cfg.Leeway,
	}, nil
}

func (s *sessionService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, apierr.Unauthenticated("missing_token", "missing bearer token")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ctx, apierr.Unauthenticated("session_expired", "session expired")
		}
		return ctx, apierr.Unauthenticated("invalid_session", "invalid session token")
	}
	if !parsed.Valid {
		return ctx, apierr.Unauthenticated("invalid_session", "invalid session token")
	}
	studentID, err := uuid.Parse(claims.Subject)
	if err != nil || studentID == uuid.Nil {
		return ctx, apierr.Unauthenticated("invalid_session", "invalid subject in session token")
	}
	// jti is optional; non-uuid ids are dropped rather than rejected
	sessionID, _ := uuid.Parse(claims.ID)
	rd := &ctxutil.RequestData{
		UserID:    studentID,
		SessionID: sessionID,
		Role:      claims.Role,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (s *sessionService) IssueToken(studentID uuid.UUID, role string, ttl time.Duration) (string, error) {
	if studentID == uuid.Nil {
		return "", fmt.Errorf("student id required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := SessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   studentID.String(),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
