package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

func TestDecodeStatusMessage(t *testing.T) {
	msg, err := DecodeStatusMessage(`{"kind":"job_enqueued","record_id":"r1","status":"processing"}`)
	require.NoError(t, err)
	require.Equal(t, KindJobEnqueued, msg.Kind)
	require.Equal(t, "r1", msg.RecordID)

	_, err = DecodeStatusMessage(`{"status":"processing"}`)
	require.Error(t, err)
	_, err = DecodeStatusMessage(`not json`)
	require.Error(t, err)
}

func TestNewStatusBusRequiresAddr(t *testing.T) {
	_, err := NewStatusBus(logger.Nop(), StatusBusConfig{})
	require.Error(t, err)
}

func TestStatusBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	bus, err := NewStatusBus(logger.Nop(), StatusBusConfig{Addr: addr, Channel: "coursepass.test." + time.Now().Format("150405.000")})
	require.NoError(t, err)
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got := make(chan StatusMessage, 1)
	require.NoError(t, bus.StartForwarder(ctx, func(m StatusMessage) { got <- m }))
	require.NoError(t, bus.Publish(ctx, StatusMessage{Kind: KindCertificateStatus, Status: "generated"}))

	select {
	case m := <-got:
		require.Equal(t, "generated", m.Status)
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}
