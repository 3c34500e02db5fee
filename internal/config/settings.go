package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	appName     = "xpdeck"
	configFile  = "config.yaml"
	profileFile = "profile.yaml"

	// DefaultXPlanePort is the port of the X-Plane web API.
	DefaultXPlanePort = 8086
	// DefaultRateHz is the dataref update rate requested per subscription.
	DefaultRateHz = 30
	// DefaultSimulatorPort is where `xpdeck sim` listens.
	DefaultSimulatorPort = 8790
)

// Environment variables overriding the settings file.
const (
	EnvProfile    = "XPDECK_PROFILE"
	EnvXPlaneHost = "XPDECK_XPLANE_HOST"
	EnvXPlanePort = "XPDECK_XPLANE_PORT"
	EnvDevice     = "XPDECK_DEVICE"
	EnvLogLevel   = "XPDECK_LOG_LEVEL"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// Settings represents the entire settings file.
type Settings struct {
	Version   int                `yaml:"version"`
	Profile   string             `yaml:"profile,omitempty"`
	LogLevel  string             `yaml:"log_level,omitempty"`
	XPlane    *XPlaneSettings    `yaml:"xplane,omitempty"`
	Device    *DeviceSettings    `yaml:"device,omitempty"`
	Simulator *SimulatorSettings `yaml:"simulator,omitempty"`
}

// XPlaneSettings locates the simulator's web API.
type XPlaneSettings struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	RateHz int    `yaml:"rate_hz"`
}

// DeviceSettings controls how the panel is found.
type DeviceSettings struct {
	Address         string `yaml:"address,omitempty"` // host:port, skips discovery
	RetrySeconds    int    `yaml:"retry_seconds"`     // delay between discovery and subscription attempts
	DiscoverTimeout int    `yaml:"discover_timeout"`  // mDNS browse window in seconds
	Brightness      int    `yaml:"brightness"`        // backlight 1..10
}

// SimulatorSettings configures `xpdeck sim`.
type SimulatorSettings struct {
	Port      int    `yaml:"port"`
	Name      string `yaml:"name"`
	Advertise bool   `yaml:"advertise"`
}

// NewSettings returns settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		XPlane: &XPlaneSettings{
			Host:   "localhost",
			Port:   DefaultXPlanePort,
			RateHz: DefaultRateHz,
		},
		Device: &DeviceSettings{
			RetrySeconds:    5,
			DiscoverTimeout: 3,
			Brightness:      10,
		},
		Simulator: &SimulatorSettings{
			Port:      DefaultSimulatorPort,
			Name:      "xpdeck-sim",
			Advertise: true,
		},
	}
}

// RetryDelay returns the delay between device discovery and telemetry
// subscription attempts.
func (s *Settings) RetryDelay() time.Duration {
	return time.Duration(s.Device.RetrySeconds) * time.Second
}

// GetConfigDir returns the OS-appropriate configuration directory for the application.
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the settings file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the settings file from the config directory and applies
// .env and environment overrides.
func Load() (*Settings, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFrom(configPath)
}

// LoadFrom reads settings from a specific path. A missing file yields
// defaults.
func LoadFrom(configPath string) (*Settings, error) {
	settings := NewSettings()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if settings.Version != 1 {
			return nil, fmt.Errorf("unsupported config version: %d (expected 1)", settings.Version)
		}
	}

	settings.fillDefaults()

	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := settings.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	return settings, nil
}

// fillDefaults restores sections a partial file left empty.
func (s *Settings) fillDefaults() {
	defaults := NewSettings()
	if s.XPlane == nil {
		s.XPlane = defaults.XPlane
	}
	if s.XPlane.Host == "" {
		s.XPlane.Host = defaults.XPlane.Host
	}
	if s.XPlane.Port == 0 {
		s.XPlane.Port = defaults.XPlane.Port
	}
	if s.XPlane.RateHz <= 0 {
		s.XPlane.RateHz = defaults.XPlane.RateHz
	}
	if s.Device == nil {
		s.Device = defaults.Device
	}
	if s.Device.RetrySeconds <= 0 {
		s.Device.RetrySeconds = defaults.Device.RetrySeconds
	}
	if s.Device.DiscoverTimeout <= 0 {
		s.Device.DiscoverTimeout = defaults.Device.DiscoverTimeout
	}
	if s.Device.Brightness <= 0 {
		s.Device.Brightness = defaults.Device.Brightness
	}
	if s.Simulator == nil {
		s.Simulator = defaults.Simulator
	}
	if s.Simulator.Port == 0 {
		s.Simulator.Port = defaults.Simulator.Port
	}
	if s.Simulator.Name == "" {
		s.Simulator.Name = defaults.Simulator.Name
	}
}

// ApplyEnv overrides settings from environment variables looked up with
// getenv.
func (s *Settings) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvProfile); v != "" {
		s.Profile = v
	}
	if v := getenv(EnvXPlaneHost); v != "" {
		s.XPlane.Host = v
	}
	if v := getenv(EnvXPlanePort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvXPlanePort, v, err)
		}
		s.XPlane.Port = port
	}
	if v := getenv(EnvDevice); v != "" {
		s.Device.Address = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		s.LogLevel = v
	}
	return nil
}

// ResolveProfilePath picks the profile file: explicit argument, then the
// settings entry, then profile.yaml in the config dir, then ./profile.yaml.
func (s *Settings) ResolveProfilePath(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if s.Profile != "" {
		return s.Profile, nil
	}
	configDir, err := GetConfigDir()
	if err == nil {
		candidate := filepath.Join(configDir, profileFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if _, err := os.Stat(profileFile); err == nil {
		return profileFile, nil
	}
	return "", fmt.Errorf("no profile given and none found in %s or the working directory", configDir)
}

// Save writes the settings to the config directory.
// Performs an atomic write to prevent corruption on crash.
func (s *Settings) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return s.SaveTo(configPath)
}

// SaveTo writes the settings to a specific path.
func (s *Settings) SaveTo(configPath string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# xpdeck settings\n# Location: " + configPath + "\n\n")
	data = append(header, data...)

	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
