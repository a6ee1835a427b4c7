package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MEDIA_STORAGE_BACKEND", "")
	t.Setenv("DB_POSTGRESQL_WRITE_DSN", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "media-api", cfg.ServiceName)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxMediaBytes)
	assert.Equal(t, "video/", cfg.AcceptedPrefix)
	assert.Equal(t, "video", cfg.UploadField)
	assert.Equal(t, "./uploads", cfg.LocalStoragePath)
	assert.Equal(t, 15*time.Second, cfg.DBProbeInterval)
	assert.True(t, cfg.IsLocalStorage())
	assert.False(t, cfg.HasDatabase())
	assert.Equal(t, ":3000", cfg.Addr())
}

func TestLoadNormalizesValues(t *testing.T) {
	t.Setenv("MEDIA_STORAGE_BACKEND", "local")
	t.Setenv("MEDIA_MAX_BYTES", "-5")
	t.Setenv("MEDIA_ACCEPTED_PREFIX", "  Video/ ")
	t.Setenv("DB_POSTGRESQL_WRITE_DSN", " postgres://media@localhost/media ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(defaultMaxMediaBytes), cfg.MaxMediaBytes)
	assert.Equal(t, "video/", cfg.AcceptedPrefix)
	assert.Equal(t, "postgres://media@localhost/media", cfg.DBPostgresqlWriteDSN)
	assert.True(t, cfg.HasDatabase())
}

func TestLoadBackendValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name:    "s3 without bucket",
			env:     map[string]string{"MEDIA_STORAGE_BACKEND": "s3"},
			wantErr: true,
		},
		{
			name:    "s3 with bucket",
			env:     map[string]string{"MEDIA_STORAGE_BACKEND": "S3", "MEDIA_S3_BUCKET": "media"},
			wantErr: false,
		},
		{
			name:    "minio without endpoint",
			env:     map[string]string{"MEDIA_STORAGE_BACKEND": "minio", "MEDIA_MINIO_BUCKET": "media"},
			wantErr: true,
		},
		{
			name: "minio complete",
			env: map[string]string{
				"MEDIA_STORAGE_BACKEND": "minio",
				"MEDIA_MINIO_ENDPOINT":  "localhost:9000",
				"MEDIA_MINIO_BUCKET":    "media",
			},
			wantErr: false,
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"MEDIA_STORAGE_BACKEND": "gcs"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
