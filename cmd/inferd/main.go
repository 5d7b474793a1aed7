package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var showVersion bool
	var printConfig bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/inferd/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.BoolVar(&printConfig, "print-config", false, "print the effective configuration and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("inferd - Salary Predictor Inference Server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if printConfig {
		if err := writeConfig(os.Stdout, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("INFERD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("model-path", defaultModelPath)
	v.SetDefault("ort-library-path", "")
	v.SetDefault("log-file-path", defaultLogFilePath)
	v.SetDefault("log-destination", defaultLogDestination)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("api-addr", "")
	v.SetDefault("runtime-log-path", filepath.Join(home, ".local", "state", "inferd", "inferd.log"))
	v.SetDefault("runtime-log-max-size-mb", defaultRuntimeLogMaxSizeMB)
	v.SetDefault("runtime-log-max-backups", defaultRuntimeLogMaxBackups)
	v.SetDefault("archive-enabled", false)
	v.SetDefault("archive-interval", defaultArchiveInterval)
	v.SetDefault("archive-local-dir", "")
	v.SetDefault("archive-keep-last", defaultArchiveKeepLast)
	v.SetDefault("archive-bucket-url", "")
	v.SetDefault("archive-s3-endpoint", "")
	v.SetDefault("archive-s3-region", "")
	v.SetDefault("archive-s3-access-key", "")
	v.SetDefault("archive-s3-secret-key", "")
	v.SetDefault("archive-s3-session-token", "")
	v.SetDefault("archive-s3-use-ssl", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "inferd", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return cfg, errors.New("model-path must not be empty")
	}
	cfg.LogDestination = cfg.Destination().String()
	if cfg.Destination().IsLocal() && strings.TrimSpace(cfg.LogFilePath) == "" {
		return cfg, errors.New("log-file-path must not be empty for the local log destination")
	}

	cfg.ModelPath = expandHome(cfg.ModelPath, home)
	cfg.ORTLibraryPath = expandHome(cfg.ORTLibraryPath, home)
	cfg.LogFilePath = expandHome(cfg.LogFilePath, home)
	cfg.RuntimeLogPath = expandHome(cfg.RuntimeLogPath, home)
	cfg.ArchiveLocalDir = expandHome(cfg.ArchiveLocalDir, home)

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

// Expand ~ in configured paths.
func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func writeConfig(w io.Writer, cfg appConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.redacted()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
