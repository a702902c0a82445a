package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

const (
	KindJobEnqueued       = "job_enqueued"
	KindCertificateStatus = "certificate_status"
)

// StatusMessage travels on the certificate channel. Workers react to
// job_enqueued; anything else is informational for subscribers.
type StatusMessage struct {
	Kind        string    `json:"kind"`
	RecordID    string    `json:"record_id"`
	StudentID   string    `json:"student_id"`
	DiplomaID   string    `json:"diploma_id"`
	JobID       string    `json:"job_id,omitempty"`
	Status      string    `json:"status"`
	FileRef     string    `json:"file_ref,omitempty"`
	ErrorReason string    `json:"error_reason,omitempty"`
	At          time.Time `json:"at"`
}

type StatusBus interface {
	Publish(ctx context.Context, msg StatusMessage) error
	StartForwarder(ctx context.Context, onMsg func(m StatusMessage)) error
	Client() goredis.UniversalClient
	Close() error
}

type StatusBusConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type statusBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewStatusBus(log *logger.Logger, cfg StatusBusConfig) (StatusBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = "coursepass.certificates"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &statusBus{
		log:     log.With("service", "RedisStatusBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *statusBus) Publish(ctx context.Context, msg StatusMessage) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis status bus not initialized")
	}
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *statusBus) StartForwarder(ctx context.Context, onMsg func(m StatusMessage)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis status bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				msg, err := DecodeStatusMessage(m.Payload)
				if err != nil {
					b.log.Warn("bad redis status payload", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()
	return nil
}

func (b *statusBus) Client() goredis.UniversalClient {
	if b == nil {
		return nil
	}
	return b.rdb
}

func (b *statusBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func DecodeStatusMessage(payload string) (StatusMessage, error) {
	var msg StatusMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return StatusMessage{}, err
	}
	if msg.Kind == "" {
		return StatusMessage{}, fmt.Errorf("status message missing kind")
	}
	return msg, nil
}
