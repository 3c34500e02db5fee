package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "xpdeck") {
		t.Errorf("GetConfigDir() = %v, should contain 'xpdeck'", configDir)
	}

	if runtime.GOOS == "linux" && os.Getenv("XDG_CONFIG_HOME") == "" {
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honoured on linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if want := filepath.Join(dir, "xpdeck"); got != want {
		t.Errorf("GetConfigDir() = %v, want %v", got, want)
	}
}

func TestLoadFrom_MissingFileGivesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	settings, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if settings.XPlane.Port != DefaultXPlanePort {
		t.Errorf("XPlane.Port = %d, want %d", settings.XPlane.Port, DefaultXPlanePort)
	}
	if settings.Device.Brightness != 10 {
		t.Errorf("Device.Brightness = %d, want 10", settings.Device.Brightness)
	}
	if settings.Device.RetrySeconds != 5 {
		t.Errorf("Device.RetrySeconds = %d, want 5", settings.Device.RetrySeconds)
	}
	if settings.RetryDelay().Seconds() != 5 {
		t.Errorf("RetryDelay() = %v, want 5s", settings.RetryDelay())
	}
}

func TestLoadFrom_PartialFile(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "version: 1\nxplane:\n  host: sim.local\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if settings.XPlane.Host != "sim.local" {
		t.Errorf("XPlane.Host = %q, want sim.local", settings.XPlane.Host)
	}
	if settings.XPlane.Port != DefaultXPlanePort {
		t.Errorf("XPlane.Port = %d, want default", settings.XPlane.Port)
	}
	if settings.Simulator == nil || settings.Simulator.Port != DefaultSimulatorPort {
		t.Errorf("Simulator defaults not filled: %+v", settings.Simulator)
	}
}

func TestLoadFrom_BadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 7\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() should reject unknown version")
	}
}

func TestLoadFrom_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	// t.Setenv registers cleanup so godotenv's os.Setenv does not leak.
	t.Setenv(EnvXPlaneHost, "")
	os.Unsetenv(EnvXPlaneHost)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvXPlaneHost+"=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadFrom(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if settings.XPlane.Host != "from-dotenv" {
		t.Errorf("XPlane.Host = %q, want from-dotenv", settings.XPlane.Host)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvProfile:    "/tmp/p.yaml",
		EnvXPlaneHost: "10.0.0.2",
		EnvXPlanePort: "9000",
		EnvDevice:     "100.127.1.1:80",
		EnvLogLevel:   "debug",
	}
	settings := NewSettings()
	if err := settings.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if settings.Profile != "/tmp/p.yaml" {
		t.Errorf("Profile = %q", settings.Profile)
	}
	if settings.XPlane.Host != "10.0.0.2" || settings.XPlane.Port != 9000 {
		t.Errorf("XPlane = %+v", settings.XPlane)
	}
	if settings.Device.Address != "100.127.1.1:80" {
		t.Errorf("Device.Address = %q", settings.Device.Address)
	}
	if settings.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", settings.LogLevel)
	}
}

func TestApplyEnv_BadPort(t *testing.T) {
	settings := NewSettings()
	err := settings.ApplyEnv(func(k string) string {
		if k == EnvXPlanePort {
			return "eighty"
		}
		return ""
	})
	if err == nil {
		t.Error("ApplyEnv() should reject a non-numeric port")
	}
}

func TestResolveProfilePath(t *testing.T) {
	settings := NewSettings()
	got, err := settings.ResolveProfilePath("cli.yaml")
	if err != nil || got != "cli.yaml" {
		t.Errorf("explicit arg: got %q, %v", got, err)
	}

	settings.Profile = "settings.yaml"
	got, err = settings.ResolveProfilePath("")
	if err != nil || got != "settings.yaml" {
		t.Errorf("settings entry: got %q, %v", got, err)
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	settings := NewSettings()
	settings.XPlane.Host = "cockpit"
	settings.Simulator.Advertise = false
	if err := settings.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.XPlane.Host != "cockpit" {
		t.Errorf("XPlane.Host = %q, want cockpit", loaded.XPlane.Host)
	}
	if loaded.Simulator.Advertise {
		t.Error("Simulator.Advertise should round-trip false")
	}
}
