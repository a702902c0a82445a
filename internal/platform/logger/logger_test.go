package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"student_id", "7d0c1d6a-0000-4000-8000-000000000001",
		"diploma_id", "diploma-1",
		"email", "a@b.c",
		"dangling",
	})
	require.Len(t, out, 7)
	require.True(t, strings.HasPrefix(out[1].(string), "hash:"), "student_id should be hashed, got %v", out[1])
	require.Equal(t, "diploma-1", out[3])
	require.Equal(t, "[REDACTED]", out[5])
	require.Equal(t, "dangling", out[6])
}

func TestSanitizeValue_JWTLookalike(t *testing.T) {
	jwt := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.signature"
	require.Equal(t, "[REDACTED]", sanitizeValue("note", jwt))
	require.Equal(t, "plain", sanitizeValue("note", "plain"))
}

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"development", "production", "test"} {
		l, err := New(mode)
		require.NoError(t, err, mode)
		l.With("component", "test").Debug("hello", "k", "v")
	}
	Nop().Info("discarded")
}
