package storage

import (
	"os"
	"time"
)

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	URLExpiry time.Duration
}

// GCSConfig holds Google Cloud Storage configuration. Credentials come from
// the environment (GOOGLE_APPLICATION_CREDENTIALS or workload identity).
type GCSConfig struct {
	Bucket          string
	ServiceAccount  string
	CredentialsFile string
	URLExpiry       time.Duration
}

// LoadMinIOConfig loads MinIO config from environment
func LoadMinIOConfig() *MinIOConfig {
	useSSL := false
	if os.Getenv("MINIO_USE_SSL") == "true" {
		useSSL = true
	}
	return &MinIOConfig{
		Endpoint:  os.Getenv("MINIO_ENDPOINT"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		UseSSL:    useSSL,
		Bucket:    getEnv("MINIO_BUCKET", "prioridades-relatorios"),
		URLExpiry: getDuration("MINIO_URL_EXPIRY", time.Hour),
	}
}

// LoadGCSConfig loads GCS config from environment
func LoadGCSConfig() *GCSConfig {
	return &GCSConfig{
		Bucket:          os.Getenv("GCS_BUCKET"),
		ServiceAccount:  os.Getenv("GCS_SERVICE_ACCOUNT"),
		CredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		URLExpiry:       getDuration("GCS_URL_EXPIRY", time.Hour),
	}
}

func getEnv(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}

func getDuration(k string, d time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil || v <= 0 {
		return d
	}
	return v
}
