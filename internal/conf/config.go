// config.go: This file contains the configuration for the EEW relay. It
// defines the settings struct and functions to load the settings.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings contains process-wide settings.
type MainSettings struct {
	Name string      // client identifier used for MQTT client IDs
	Log  LogSettings // logging configuration
}

// LogSettings contains logging configuration.
type LogSettings struct {
	Level string // minimum log level: debug, info, warn, error
	Path  string // directory for per-service log files, empty for stdout only
}

// IngressSettings contains settings for the inbound seismic alert feed.
type IngressSettings struct {
	Username  string // feed username
	Password  string // feed password
	InfoURL   string // endpoint returning the current broker host and port
	Keepalive int    // MQTT keepalive in seconds
}

// EgressSettings contains settings for outbound notification publishing.
type EgressSettings struct {
	Broker   string // egress broker URL (tcp://host:port or ssl://host:port)
	Username string
	Password string
}

// RegionSettings selects the fixed target location for intensity evaluation.
type RegionSettings struct {
	City     string // named region, resolved against the static lookup table
	District string // sub-region within the city
}

// AudioSettings contains settings for countdown audio generation.
type AudioSettings struct {
	SourcePath string // directory holding the named source clips
	TargetPath string // output path for the rendered countdown file
	FfmpegPath string // path to ffmpeg binary
}

// DelaySettings contains lead-time offsets subtracted before the countdown.
type DelaySettings struct {
	Countdown int // seconds consumed before the spoken countdown starts
	Playback  int // seconds of playback latency at the output device
}

// TelemetrySettings contains settings for the Prometheus metrics endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to enable the Prometheus compatible endpoint
	Listen  string // IP address and port to listen on
}

// Settings is the root configuration structure.
type Settings struct {
	Main      MainSettings
	Ingress   IngressSettings
	Egress    EgressSettings
	Region    RegionSettings
	Audio     AudioSettings
	Delay     DelaySettings
	Telemetry TelemetrySettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into the singleton Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the
// configuration file, creating one from the embedded defaults if missing.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("EEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
		return createDefaultConfig(configPaths[0])
	}

	return nil
}

// createDefaultConfig writes the embedded default config file and re-reads it.
func createDefaultConfig(configPath string) error {
	configFilePath := filepath.Join(configPath, "config.yaml")
	defaultConfig, err := configFiles.ReadFile("config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	if err := os.MkdirAll(configPath, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	if err := os.WriteFile(configFilePath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	log.Printf("Created default config file at: %v", configFilePath)
	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the ordered list of directories searched for
// config.yaml: the working directory first, then ~/.config/eew-go.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return []string{"."}, nil
	}
	return []string{".", filepath.Join(homeDir, ".config", "eew-go")}, nil
}

// Setting returns the current settings instance, loading it if needed.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("error loading settings: %v", err)
			}
		}
	})
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
