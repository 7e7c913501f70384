package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/FriedrichWeinmann/sendping/internal/export"
	"github.com/FriedrichWeinmann/sendping/internal/logging"
)

const (
	envConfigPath   = "SENDPING_CONFIG"
	envInfluxURL    = "SENDPING_INFLUX_URL"
	envInfluxToken  = "SENDPING_INFLUX_TOKEN"
	envInfluxOrg    = "SENDPING_INFLUX_ORG"
	envInfluxBucket = "SENDPING_INFLUX_BUCKET"
	defaultEnvFile  = ".env"
)

// Config holds defaults read from the YAML file. Flags override every field.
type Config struct {
	Count          int                 `yaml:"count"`
	TimeoutMs      int                 `yaml:"timeout_ms"`
	WaitMs         *int                `yaml:"wait_ms"`
	Sound          string              `yaml:"sound"`
	SoundThreshold *int                `yaml:"sound_threshold"`
	Format         string              `yaml:"format"`
	Verbosity      string              `yaml:"verbosity"`
	Parallel       int                 `yaml:"parallel"`
	Privileged     *bool               `yaml:"privileged"`
	Size           int                 `yaml:"size"`
	Influx         export.InfluxConfig `yaml:"influx"`
}

func Load(ctx context.Context, path string) (Config, error) {
	var cfg Config
	if err := ctx.Err(); err != nil {
		return cfg, err
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	return cfg, nil
}

// LoadDefault reads path, or the SENDPING_CONFIG / user config location when
// path is empty. Only an explicitly named file has to exist.
func LoadDefault(ctx context.Context, path string) (Config, error) {
	if path != "" {
		return Load(ctx, path)
	}

	path = os.Getenv(envConfigPath)
	explicit := path != ""
	if !explicit {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Config{}, nil
		}
		path = filepath.Join(dir, "sendping", "config.yaml")
	}

	cfg, err := Load(ctx, path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

// LoadEnvironment loads envFile, or ./.env when envFile is empty, into the
// process environment. Variables that are already set are kept.
func LoadEnvironment(envFile string) error {
	logger := logging.GetLogger()

	explicit := envFile != ""
	if !explicit {
		envFile = defaultEnvFile
	}
	if _, err := os.Stat(envFile); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("env file %q: %w", envFile, err)
	}

	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("load env file %q: %w", envFile, err)
	}
	logger.WithField("file", envFile).Debug("Loaded environment variables")
	return nil
}

// ApplyEnv overrides the InfluxDB settings with SENDPING_INFLUX_* variables.
func (c *Config) ApplyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&c.Influx.URL, envInfluxURL)
	override(&c.Influx.Token, envInfluxToken)
	override(&c.Influx.Org, envInfluxOrg)
	override(&c.Influx.Bucket, envInfluxBucket)
}
