package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRequestDataRoundTrip(t *testing.T) {
	ctx := context.Background()
	require.Nil(t, GetRequestData(ctx))

	rd := &RequestData{UserID: uuid.New(), Role: "student"}
	ctx = WithRequestData(ctx, rd)
	require.Same(t, rd, GetRequestData(ctx))
	require.False(t, rd.IsAdmin())
	require.True(t, (&RequestData{Role: "service"}).IsAdmin())
}

func TestTraceLogFields(t *testing.T) {
	require.Nil(t, LogFields(context.Background()))
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t1", RequestID: "r1"})
	require.Equal(t, []interface{}{"trace_id", "t1", "request_id", "r1"}, LogFields(ctx))
	require.NotNil(t, Default(nil))
}
