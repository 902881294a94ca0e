package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/studiowebux/formpost/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	// FilePermissions is the default permission mode for regular files (read/write for owner, read for others)
	FilePermissions = 0644
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755

	// LocalConfigFile overrides the global config when present in the working directory
	LocalConfigFile = ".formpost.yaml"

	// EnvConfig points at an explicit config file
	EnvConfig = "FORMPOST_CONFIG"
	// EnvURL overrides the base URL
	EnvURL = "FORMPOST_URL"
)

// DefaultJSON is the payload the form starts with
const DefaultJSON = `{
  "message": "Hello Django",
  "project": "CI/CD demo"
}`

var (
	// ConfigDir is the global configuration directory (~/.formpost)
	ConfigDir string

	// ConfigFile is the global settings file
	ConfigFile string

	// LogFile receives TUI logs
	LogFile string

	// MediaDir is where the receiver stores uploaded files
	MediaDir string

	// DatabasePath is the SQLite database used by the receiver
	DatabasePath string
)

// Settings is the content of config.yaml
type Settings struct {
	BaseURL     string          `yaml:"baseURL"`
	Endpoint    string          `yaml:"endpoint"`
	Timeout     time.Duration   `yaml:"timeout"`
	DefaultJSON string          `yaml:"defaultJSON"`
	Highlight   bool            `yaml:"highlight"`
	Guard       bool            `yaml:"guardResubmit"`
	LogFile     string          `yaml:"logFile,omitempty"`
	TLS         types.TLSConfig `yaml:"tls,omitempty"`
	Serve       ServeSettings   `yaml:"serve"`
}

// ServeSettings configures the reference receiver
type ServeSettings struct {
	Addr         string `yaml:"addr"`
	MediaDir     string `yaml:"mediaDir,omitempty"`
	DatabasePath string `yaml:"databasePath,omitempty"`
	MaxUploadMB  int64  `yaml:"maxUploadMB"`
}

// Defaults returns the built-in settings
func Defaults() Settings {
	return Settings{
		BaseURL:     "http://localhost:8000",
		Endpoint:    "/api/upload/",
		Timeout:     30 * time.Second,
		DefaultJSON: DefaultJSON,
		Highlight:   true,
		Guard:       true,
		LogFile:     LogFile,
		Serve: ServeSettings{
			Addr:         "localhost:8000",
			MediaDir:     MediaDir,
			DatabasePath: DatabasePath,
			MaxUploadMB:  32,
		},
	}
}

// Initialize sets up the configuration directory and files
// It creates ~/.formpost/ if it doesn't exist
func Initialize() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	return InitializeAt(filepath.Join(homeDir, ".formpost"))
}

// InitializeAt sets up the configuration under dir
func InitializeAt(dir string) error {
	ConfigDir = dir
	ConfigFile = filepath.Join(ConfigDir, "config.yaml")
	LogFile = filepath.Join(ConfigDir, "formpost.log")
	MediaDir = filepath.Join(ConfigDir, "media")
	DatabasePath = filepath.Join(ConfigDir, "formpost.db")

	if err := os.MkdirAll(ConfigDir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", ConfigDir, err)
	}

	// Create default config file if it doesn't exist
	if _, err := os.Stat(ConfigFile); os.IsNotExist(err) {
		data, err := yaml.Marshal(Defaults())
		if err != nil {
			return fmt.Errorf("failed to encode default config: %w", err)
		}
		if err := os.WriteFile(ConfigFile, data, FilePermissions); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	return nil
}

// GetConfigFilePath returns the settings file to use: $FORMPOST_CONFIG,
// then a local .formpost.yaml, then the global file
func GetConfigFilePath() string {
	if path := os.Getenv(EnvConfig); path != "" {
		return path
	}
	if _, err := os.Stat(LocalConfigFile); err == nil {
		return LocalConfigFile
	}
	return ConfigFile
}

// Load reads settings from path over the defaults. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	settings := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return settings, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &settings); err != nil {
				return settings, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if envURL := os.Getenv(EnvURL); envURL != "" {
		settings.BaseURL = envURL
	}

	if settings.Endpoint == "" {
		settings.Endpoint = "/api/upload/"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.LogFile == "" {
		settings.LogFile = LogFile
	}
	if settings.Serve.MediaDir == "" {
		settings.Serve.MediaDir = MediaDir
	}
	if settings.Serve.DatabasePath == "" {
		settings.Serve.DatabasePath = DatabasePath
	}
	if settings.Serve.MaxUploadMB <= 0 {
		settings.Serve.MaxUploadMB = 32
	}

	return settings, nil
}

// UploadURL joins the base URL and the endpoint path
func (s Settings) UploadURL() (string, error) {
	return ResolveEndpoint(s.BaseURL, s.Endpoint)
}

// ResolveEndpoint joins base and path. A full URL in path wins over base.
func ResolveEndpoint(base, path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}

	if base == "" {
		return "", fmt.Errorf("no base URL configured (set baseURL, --url or %s)", EnvURL)
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q: scheme and host are required", base)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	return u.String(), nil
}
