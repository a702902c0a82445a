package gcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

const uploadTimeout = 2 * time.Minute

// CertificateBucket stores rendered certificate artifacts in a single GCS bucket.
type CertificateBucket struct {
	log    *logger.Logger
	client *storage.Client
	cfg    ObjectStorageConfig
}

func NewCertificateBucketFromEnv(log *logger.Logger) (*CertificateBucket, error) {
	cfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewCertificateBucket(log, cfg)
}

func NewCertificateBucket(log *logger.Logger, cfg ObjectStorageConfig) (*CertificateBucket, error) {
	if err := ValidateObjectStorageConfig(cfg); err != nil {
		return nil, err
	}
	client, err := newStorageClientForMode(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	serviceLog := log.With("service", "CertificateBucket")
	serviceLog.Info("Object storage initialized",
		"mode", cfg.Mode,
		"bucket", cfg.Bucket,
		"emulator_host", cfg.EmulatorHost,
		"public_base_url", cfg.PublicBaseURL,
	)
	return &CertificateBucket{log: serviceLog, client: client, cfg: cfg}, nil
}

func newStorageClientForMode(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		// the storage client only honours the emulator through the env var
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{Field: "OBJECT_STORAGE_MODE", Value: string(cfg.Mode)}
	}
}

// Put writes the object and returns its durable reference. Writing the same key
// twice replaces the object, which keeps re-delivered render jobs idempotent.
func (b *CertificateBucket) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	key = b.objectKey(key)
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := b.client.Bucket(b.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "private, max-age=0"
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write certificate object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close certificate object: %w", err)
	}
	return b.PublicURL(key), nil
}

func (b *CertificateBucket) PublicURL(key string) string {
	return ObjectURL(b.cfg, key)
}

func (b *CertificateBucket) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}

func (b *CertificateBucket) objectKey(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if b.cfg.KeyPrefix == "" || strings.HasPrefix(key, b.cfg.KeyPrefix+"/") {
		return key
	}
	return b.cfg.KeyPrefix + "/" + key
}

// ObjectURL resolves the URI handed back to clients as file_ref.
func ObjectURL(cfg ObjectStorageConfig, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	switch {
	case cfg.PublicBaseURL != "":
		return fmt.Sprintf("%s/%s/%s", cfg.PublicBaseURL, cfg.Bucket, key)
	case cfg.IsEmulatorMode():
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", cfg.EmulatorHost, cfg.Bucket, strings.ReplaceAll(key, "/", "%2F"))
	default:
		return fmt.Sprintf("gs://%s/%s", cfg.Bucket, key)
	}
}
