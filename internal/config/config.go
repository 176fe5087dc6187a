// Package config loads the dispatcher/client configuration: custom upload
// hosts, timeouts, default origin, and proxy settings, from an INI file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// UploadHostConfig is one entry of the custom upload host list a caller can
// prepend ahead of the server-supplied hosts.
type UploadHostConfig struct {
	Hostname              string `ini:"hostname"`
	MaxContentLengthBytes int64  `ini:"max_content_length_bytes"`
}

// Config is the configuration contract for the media transport core.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\wa-media-core\config
//   - Unix: ~/.config/wa-media-core/config
//
// INI format:
//
//	[transport]
//	default_origin = https://web.whatsapp.com
//	upload_timeout_seconds = 120
//	max_retries = 10
//	retry_initial_delay_ms = 200
//	retry_max_delay_seconds = 15
//
//	[proxy]
//	mode = system
//
//	[upload_hosts.0]
//	hostname = mmg-fallback.whatsapp.net
//	max_content_length_bytes = 104857600
type Config struct {
	DefaultOrigin string `ini:"default_origin"`

	UploadTimeout     time.Duration
	MaxRetries        int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration

	// ProxyMode is one of "", "no-proxy", "system". Authenticated proxy
	// modes are not supported.
	ProxyMode string

	CustomUploadHosts []UploadHostConfig
}

// Validation errors.
var (
	ErrMissingDefaultOrigin = errors.New("default_origin is required")
)

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() (string, error) {
	var dir string
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		dir = filepath.Join(userProfile, ".config", "wa-media-core")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config", "wa-media-core")
	}
	return filepath.Join(dir, "config"), nil
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		DefaultOrigin:     "https://web.whatsapp.com",
		UploadTimeout:     2 * time.Minute,
		MaxRetries:        10,
		RetryInitialDelay: 200 * time.Millisecond,
		RetryMaxDelay:     15 * time.Second,
		ProxyMode:         "system",
	}
}

// Load reads configuration from an INI file. If the file doesn't exist,
// returns defaults and no error; an existing-but-invalid file is an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	transport := iniFile.Section("transport")
	cfg.DefaultOrigin = transport.Key("default_origin").MustString(cfg.DefaultOrigin)
	cfg.UploadTimeout = time.Duration(transport.Key("upload_timeout_seconds").MustInt(120)) * time.Second
	cfg.MaxRetries = transport.Key("max_retries").MustInt(cfg.MaxRetries)
	cfg.RetryInitialDelay = time.Duration(transport.Key("retry_initial_delay_ms").MustInt(200)) * time.Millisecond
	cfg.RetryMaxDelay = time.Duration(transport.Key("retry_max_delay_seconds").MustInt(15)) * time.Second

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)

	for _, sec := range iniFile.ChildSections("upload_hosts") {
		host := sec.Key("hostname").String()
		if host == "" {
			continue
		}
		maxLen, _ := strconv.ParseInt(sec.Key("max_content_length_bytes").String(), 10, 64)
		cfg.CustomUploadHosts = append(cfg.CustomUploadHosts, UploadHostConfig{
			Hostname:              host,
			MaxContentLengthBytes: maxLen,
		})
	}

	return cfg, nil
}

// Validate checks the configuration is usable.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.DefaultOrigin) == "" {
		return ErrMissingDefaultOrigin
	}
	return nil
}
