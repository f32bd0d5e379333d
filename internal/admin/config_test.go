package admin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *Config
		wantErr string
	}{
		{
			name:    "deployment only",
			content: "deployment: dev\n",
			want:    &Config{Deployment: DeploymentDev},
		},
		{
			name:    "with s3",
			content: "deployment: prod\ns3:\n  bucket: b\n  region: r\n  endpoint: http://minio:9000\n",
			want:    &Config{Deployment: DeploymentProd, S3: &S3Settings{Bucket: "b", Region: "r", Endpoint: "http://minio:9000"}},
		},
		{
			name:    "with database",
			content: "deployment: dev\ndatabase: wl_family\n",
			want:    &Config{Deployment: DeploymentDev, Database: "wl_family"},
		},
		{
			name:    "unsafe database",
			content: "deployment: dev\ndatabase: \"x; drop\"\n",
			wantErr: "Invalid database name",
		},
		{
			name:    "missing deployment",
			content: "s3:\n  bucket: b\n",
			wantErr: `"deployment" not found in`,
		},
		{
			name:    "unknown deployment",
			content: "deployment: qa\n",
			wantErr: "Expected dev or prod for deployment in",
		},
		{
			name:    "not yaml",
			content: "deployment: [dev\n",
			wantErr: "Could not parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			got, err := LoadConfig(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestConfig_Save(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := &Config{Deployment: DeploymentProd, S3: &S3Settings{Bucket: "b", Region: "eu-central-1"}}

	require.NoError(t, cfg.Save(path))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestConfig_DatabaseName(t *testing.T) {
	assert.Equal(t, "weight_log", (&Config{}).DatabaseName())
	assert.Equal(t, "wl_family", (&Config{Database: "wl_family"}).DatabaseName())
}
