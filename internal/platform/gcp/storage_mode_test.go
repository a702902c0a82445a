package gcp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveObjectStorageConfigFromEnv(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443/")
	t.Setenv("CERTIFICATE_GCS_BUCKET_NAME", "certs")
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")
	t.Setenv("CERTIFICATE_KEY_PREFIX", "/issued/")

	cfg, err := ResolveObjectStorageConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, ObjectStorageModeGCSEmulator, cfg.Mode)
	require.Equal(t, "http://fake-gcs:4443", cfg.EmulatorHost)
	require.Equal(t, "issued", cfg.KeyPrefix)
}

func TestResolveObjectStorageConfigFromEnv_Invalid(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "s3")
	t.Setenv("CERTIFICATE_GCS_BUCKET_NAME", "certs")
	_, err := ResolveObjectStorageConfigFromEnv()
	var cfgErr *ObjectStorageConfigError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, "OBJECT_STORAGE_MODE", cfgErr.Field)

	err = ValidateObjectStorageConfig(ObjectStorageConfig{Mode: ObjectStorageModeGCS})
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "CERTIFICATE_GCS_BUCKET_NAME", cfgErr.Field)

	err = ValidateObjectStorageConfig(ObjectStorageConfig{Mode: ObjectStorageModeGCSEmulator, Bucket: "b", EmulatorHost: "fake-gcs"})
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "STORAGE_EMULATOR_HOST", cfgErr.Field)
}

func TestObjectURL(t *testing.T) {
	require.Equal(t, "gs://certs/a/b.png", ObjectURL(ObjectStorageConfig{Mode: ObjectStorageModeGCS, Bucket: "certs"}, "/a/b.png"))
	require.Equal(t, "https://cdn.example.com/certs/a/b.png",
		ObjectURL(ObjectStorageConfig{Mode: ObjectStorageModeGCS, Bucket: "certs", PublicBaseURL: "https://cdn.example.com"}, "a/b.png"))
	require.Equal(t, "http://fake-gcs:4443/storage/v1/b/certs/o/a%2Fb.png?alt=media",
		ObjectURL(ObjectStorageConfig{Mode: ObjectStorageModeGCSEmulator, Bucket: "certs", EmulatorHost: "http://fake-gcs:4443"}, "a/b.png"))
}
