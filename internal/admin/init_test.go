package admin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weightlog/weightlog/internal/server/keys"
)

const packageJSON = `{
  "name": "weight-log",
  "version": "0.1.0",
  "homepage": "http://localhost/",
  "private": true
}
`

func stubEntropy(t *testing.T, value string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entropy_avail")
	require.NoError(t, os.WriteFile(path, []byte(value), 0o600))
	orig := EntropyAvailPath
	t.Cleanup(func() { EntropyAvailPath = orig })
	EntropyAvailPath = path
}

func newCheckout(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "frontend"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "frontend", "package.json"), []byte(packageJSON), 0o644))
	return root
}

func TestInit(t *testing.T) {
	stubEntropy(t, "3500\n")
	root := newCheckout(t)
	a, _ := newTestAdmin(t, root, &fakeRunner{handle: emptyListings}, "")

	err := a.Init(context.Background(), InitOptions{
		Homepage:     "https://weight.example.com/",
		Env:          DeploymentProd,
		HTTPHostPort: 8080,
	})
	require.NoError(t, err)

	configDir := filepath.Join(root, "config")
	fi, err := os.Stat(configDir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), fi.Mode().Perm())

	cfg, err := LoadConfig(filepath.Join(configDir, "config.yml"))
	require.NoError(t, err)
	assert.Equal(t, DeploymentProd, cfg.Deployment)
	assert.Equal(t, DeploymentProd, a.deployment)

	k, err := keys.Load(filepath.Join(configDir, "keys"))
	require.NoError(t, err)
	assert.Len(t, k.DBPassword, passwordLength)
	assert.Len(t, k.PostgresPassword, passwordLength)
	assert.NotEqual(t, k.DBPassword, k.PostgresPassword)
	assert.Len(t, k.TokenKey, keys.TokenKeyLength)

	env, err := os.ReadFile(filepath.Join(root, "frontend", ".env"))
	require.NoError(t, err)
	assert.Equal(t, "REACT_APP_WL_HOMEPAGE=\"https://weight.example.com/\"\n", string(env))

	pkg, err := os.ReadFile(filepath.Join(root, "frontend", "package.json"))
	require.NoError(t, err)
	assert.Equal(t, `{
  "name": "weight-log",
  "version": "0.1.0",
  "homepage": "https://weight.example.com/",
  "private": true
}
`, string(pkg))

	compose, err := os.ReadFile(filepath.Join(configDir, "docker-compose.prod.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(compose), "8080:80")
	assert.Contains(t, string(compose), "wl-backend-prod")

	base, err := os.ReadFile(filepath.Join(configDir, "docker-compose.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(base), "DB_NAME: weight_log")

	network, err := os.ReadFile(filepath.Join(configDir, "docker-network.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(network), "wl-network")
	assert.Contains(t, string(network), "external: false")
}

func TestInit_ExternalNetwork(t *testing.T) {
	stubEntropy(t, "256")
	root := newCheckout(t)
	a, _ := newTestAdmin(t, root, &fakeRunner{handle: emptyListings}, "")

	err := a.Init(context.Background(), InitOptions{Homepage: "http://localhost:3000/", Env: DeploymentDev, Network: "proxy-net"})
	require.NoError(t, err)

	network, err := os.ReadFile(filepath.Join(root, "config", "docker-network.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(network), "proxy-net")
	assert.Contains(t, string(network), "external: true")

	compose, err := os.ReadFile(filepath.Join(root, "config", "docker-compose.dev.yml"))
	require.NoError(t, err)
	assert.NotContains(t, string(compose), "ports:")
}

func TestInit_Database(t *testing.T) {
	stubEntropy(t, "4096")
	root := newCheckout(t)
	a, _ := newTestAdmin(t, root, &fakeRunner{handle: emptyListings}, "")

	err := a.Init(context.Background(), InitOptions{Homepage: "http://localhost/", Env: DeploymentDev, Database: "wl_family"})
	require.NoError(t, err)

	base, err := os.ReadFile(filepath.Join(root, "config", "docker-compose.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(base), "DB_NAME: wl_family")

	cfg, err := LoadConfig(filepath.Join(root, "config", "config.yml"))
	require.NoError(t, err)
	assert.Equal(t, "wl_family", cfg.DatabaseName())
}

func TestInit_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		entropy string
		setup   func(t *testing.T, root string)
		opts    InitOptions
		wantErr string
	}{
		{
			name:    "bad homepage",
			entropy: "4096",
			opts:    InitOptions{Homepage: "not a url", Env: DeploymentDev},
			wantErr: "--homepage needs to be a URL",
		},
		{
			name:    "bad env",
			entropy: "4096",
			opts:    InitOptions{Homepage: "http://localhost/", Env: "test"},
			wantErr: "--env must be dev or prod",
		},
		{
			name:    "bad database",
			entropy: "4096",
			opts:    InitOptions{Homepage: "http://localhost/", Env: DeploymentDev, Database: "Weight-Log"},
			wantErr: "--database must be a lowercase PostgreSQL identifier",
		},
		{
			name:    "existing deployment",
			entropy: "4096",
			setup: func(t *testing.T, root string) {
				require.NoError(t, os.Mkdir(filepath.Join(root, "config"), 0o700))
			},
			opts:    InitOptions{Homepage: "http://localhost/", Env: DeploymentDev},
			wantErr: "An existing deployment was found. To remove it run:\nwladmin docker rm",
		},
		{
			name:    "low entropy",
			entropy: "127",
			opts:    InitOptions{Homepage: "http://localhost/", Env: DeploymentDev},
			wantErr: "Not enough entropy to create passwords and keys",
		},
		{
			name:    "unreadable entropy",
			entropy: "plenty",
			opts:    InitOptions{Homepage: "http://localhost/", Env: DeploymentDev},
			wantErr: "Could not determine entropy available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubEntropy(t, tt.entropy)
			root := newCheckout(t)
			if tt.setup != nil {
				tt.setup(t, root)
			}
			a, _ := newTestAdmin(t, root, &fakeRunner{handle: emptyListings}, "")

			err := a.Init(context.Background(), tt.opts)
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), tt.wantErr), err.Error())
			if tt.setup == nil {
				assert.NoDirExists(t, filepath.Join(root, "config"))
			}
		})
	}
}

func TestSetJSONKey(t *testing.T) {
	got, err := setJSONKey([]byte(`{"b": [1, 2], "a": {"x": 1}}`), "homepage", "https://h/")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": [\n    1,\n    2\n  ],\n  \"a\": {\n    \"x\": 1\n  },\n  \"homepage\": \"https://h/\"\n}", string(got))

	_, err = setJSONKey([]byte(`[1]`), "homepage", "x")
	assert.Error(t, err)
}
