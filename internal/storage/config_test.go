package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMinIOConfig(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MINIO_BUCKET", "")
	t.Setenv("MINIO_URL_EXPIRY", "15m")

	cfg := LoadMinIOConfig()
	require.Equal(t, "localhost:9000", cfg.Endpoint)
	require.True(t, cfg.UseSSL)
	require.Equal(t, "prioridades-relatorios", cfg.Bucket)
	require.Equal(t, 15*time.Minute, cfg.URLExpiry)
}

func TestLoadGCSConfigDefaults(t *testing.T) {
	t.Setenv("GCS_BUCKET", "reports")
	t.Setenv("GCS_URL_EXPIRY", "garbage")
	cfg := LoadGCSConfig()
	require.Equal(t, "reports", cfg.Bucket)
	require.Equal(t, time.Hour, cfg.URLExpiry)
}

func TestConstructorsRejectEmptyConfig(t *testing.T) {
	_, err := NewMinIOStorage(t.Context(), &MinIOConfig{})
	require.Error(t, err)
	_, err = NewGCSStorage(t.Context(), nil)
	require.Error(t, err)
}

func TestAttachmentUsesBaseName(t *testing.T) {
	require.Equal(t, `attachment; filename="RPT-abc.pdf"`, attachment("reports/p1/RPT-abc.pdf"))
}
