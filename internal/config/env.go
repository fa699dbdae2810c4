package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvS3AccessKey = "BOARDAID_S3_ACCESS_KEY"
	EnvS3SecretKey = "BOARDAID_S3_SECRET_KEY"
	EnvProxy       = "BOARDAID_PROXY"
)

// LoadEnvFile loads variables from a .env file without overriding the
// process environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv copies secrets and overrides from the environment into c.
func (c *Config) ApplyEnv() {
	setString(&c.S3.AccessKey, os.Getenv(EnvS3AccessKey))
	setString(&c.S3.SecretKey, os.Getenv(EnvS3SecretKey))
	setString(&c.ProxyAddress, os.Getenv(EnvProxy))
}
