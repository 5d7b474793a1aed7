package main

import (
	"time"

	"github.com/tinytelemetry/inferd/internal/model"
)

const (
	defaultBindHost              = "127.0.0.1"
	defaultAPIPort               = 8000
	defaultModelPath             = model.DefaultModelPath
	defaultLogFilePath           = model.DefaultLogFilePath
	defaultLogDestination        = string(model.DefaultLogDestination)
	defaultRuntimeLogMaxSizeMB   = 10
	defaultRuntimeLogMaxBackups  = 3
	defaultArchiveInterval       = model.DefaultArchiveInterval
	defaultArchiveKeepLast       = model.DefaultArchiveKeepLast
	defaultShutdownForceDeadline = 10 * time.Second
)

// appConfig is the process-wide configuration. It is read once at startup and
// never mutated afterwards; components receive the values they need explicitly.
type appConfig struct {
	ModelPath            string        `mapstructure:"model-path" yaml:"model-path"`
	ORTLibraryPath       string        `mapstructure:"ort-library-path" yaml:"ort-library-path"`
	LogFilePath          string        `mapstructure:"log-file-path" yaml:"log-file-path"`
	LogDestination       string        `mapstructure:"log-destination" yaml:"log-destination"`
	APIPort              int           `mapstructure:"api-port" yaml:"api-port"`
	APIAddr              string        `mapstructure:"api-addr" yaml:"api-addr"`
	RuntimeLogPath       string        `mapstructure:"runtime-log-path" yaml:"runtime-log-path"`
	RuntimeLogMaxSizeMB  int           `mapstructure:"runtime-log-max-size-mb" yaml:"runtime-log-max-size-mb"`
	RuntimeLogMaxBackups int           `mapstructure:"runtime-log-max-backups" yaml:"runtime-log-max-backups"`
	ArchiveEnabled       bool          `mapstructure:"archive-enabled" yaml:"archive-enabled"`
	ArchiveInterval      time.Duration `mapstructure:"archive-interval" yaml:"archive-interval"`
	ArchiveLocalDir      string        `mapstructure:"archive-local-dir" yaml:"archive-local-dir"`
	ArchiveKeepLast      int           `mapstructure:"archive-keep-last" yaml:"archive-keep-last"`
	ArchiveBucketURL     string        `mapstructure:"archive-bucket-url" yaml:"archive-bucket-url"`
	ArchiveS3Endpoint    string        `mapstructure:"archive-s3-endpoint" yaml:"archive-s3-endpoint"`
	ArchiveS3Region      string        `mapstructure:"archive-s3-region" yaml:"archive-s3-region"`
	ArchiveS3AccessKey   string        `mapstructure:"archive-s3-access-key" yaml:"archive-s3-access-key"`
	ArchiveS3SecretKey   string        `mapstructure:"archive-s3-secret-key" yaml:"archive-s3-secret-key"`
	ArchiveS3Token       string        `mapstructure:"archive-s3-session-token" yaml:"archive-s3-session-token"`
	ArchiveS3UseSSL      bool          `mapstructure:"archive-s3-use-ssl" yaml:"archive-s3-use-ssl"`
	ConfigPath           string        `mapstructure:"-" yaml:"-"` // not from config file
}

// Destination returns the parsed log destination selector.
func (c appConfig) Destination() model.Destination {
	return model.ParseDestination(c.LogDestination)
}

// redacted returns a copy safe to print.
func (c appConfig) redacted() appConfig {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.ArchiveS3AccessKey = mask(c.ArchiveS3AccessKey)
	c.ArchiveS3SecretKey = mask(c.ArchiveS3SecretKey)
	c.ArchiveS3Token = mask(c.ArchiveS3Token)
	return c
}
