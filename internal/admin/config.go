package admin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	serverconfig "github.com/weightlog/weightlog/internal/server/config"
)

const (
	ConfigDirName  = "config"
	KeysDirName    = "keys"
	ConfigFileName = "config.yml"

	DeploymentDev  = "dev"
	DeploymentProd = "prod"
)

// Config is the content of config/config.yml. Database is the backend's
// DB_NAME; empty means the backend default.
type Config struct {
	Deployment string      `yaml:"deployment"`
	Database   string      `yaml:"database,omitempty"`
	S3         *S3Settings `yaml:"s3,omitempty"`
}

var databaseNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

func validDatabaseName(name string) bool {
	return databaseNamePattern.MatchString(name)
}

// DatabaseName returns the application database the deployment uses.
func (c *Config) DatabaseName() string {
	if c.Database == "" {
		return serverconfig.DefaultDatabaseName
	}
	return c.Database
}

// S3Settings locate the bucket backups are uploaded to. Credentials are
// optional; without them the default AWS credential chain applies.
type S3Settings struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
}

// LoadConfig reads path. A missing file yields an empty Config, meaning
// there is no deployment yet.
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, newError(fmt.Sprintf("Could not open %s.\n%v", path, err))
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, newError(fmt.Sprintf("Could not parse %s.\n%v", path, err))
	}
	if cfg.Deployment == "" {
		return nil, newError(fmt.Sprintf(`"deployment" not found in %s`, path))
	}
	if !validDeployment(cfg.Deployment) {
		return nil, newError(fmt.Sprintf("Expected dev or prod for deployment in %s but found %s", path, cfg.Deployment))
	}
	if cfg.Database != "" && !validDatabaseName(cfg.Database) {
		return nil, newError(fmt.Sprintf("Invalid database name %q in %s", cfg.Database, path))
	}
	return cfg, nil
}

// Save writes cfg to path with mode 0600.
func (c *Config) Save(path string) error {
	content, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o600)
}

func validDeployment(d string) bool {
	return d == DeploymentDev || d == DeploymentProd
}
