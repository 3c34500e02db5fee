// Package config provides application settings for xpdeck.
//
// Settings live in a YAML file that follows OS-specific conventions:
//   - Linux: $XDG_CONFIG_HOME/xpdeck/config.yaml or $HOME/.config/xpdeck/config.yaml
//   - macOS: $HOME/.config/xpdeck/config.yaml
//   - Windows: %LOCALAPPDATA%\xpdeck\config.yaml
//
// A missing file yields defaults. Values are then overridden by a .env file
// in the working directory (if present), by XPDECK_* environment variables,
// and finally by command-line flags in cmd/xpdeck.
//
// # Usage Example
//
//	settings, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := xplane.NewClient(settings.XPlane.Host, settings.XPlane.Port)
//
// The page profile itself is not part of the settings; see package profile.
package config
