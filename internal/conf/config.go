// config.go: settings struct and functions to load and save PlantID-Go configuration.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// Version is the application version, set from the build with
// -ldflags "-X github.com/verdanthq/plantid-go/internal/conf.Version=...".
var Version = "dev"

// Log rotation types
const (
	RotationDaily  = "daily"
	RotationWeekly = "weekly"
	RotationSize   = "size"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool   // true to enable this log
	Path     string // path to log file
	Rotation string // rotation type, daily, weekly or size
	MaxSize  int64  // max size in bytes for size rotation
}

// MainSettings contains the main application settings
type MainSettings struct {
	Name string    // node name, used to identify the source of identifications
	Log  LogConfig // main log configuration
}

// AISettings contains the multimodal identification endpoint settings.
// The API key is never written back to disk; it is sourced from the
// PLANTID_API_KEY environment variable or the config file at load time.
type AISettings struct {
	Endpoint    string        // chat completion endpoint URL
	Model       string        // model name sent in the request
	APIKey      string        `yaml:"-"` // bearer credential, env sourced
	CustomerID  string        // customer id header value, optional
	Timeout     time.Duration // request timeout
	MaxTokens   int           // max_tokens for the completion
	Temperature float64       // sampling temperature
	CacheTTL    time.Duration // identification cache TTL, 0 disables caching
}

// CameraSettings contains video capture settings
type CameraSettings struct {
	Source       string  // V4L2 device path or stream URL
	Width        int     // preferred capture width
	Height       int     // preferred capture height
	FfmpegPath   string  // path to ffmpeg binary
	JpegQuality  float64 // capture encode quality 0..1
	MaxWidth     int     // optimizeImage maximum width in pixels
	OptimQuality float64 // optimizeImage encode quality 0..1
}

// HistorySettings contains identification history settings
type HistorySettings struct {
	Path     string // path to the SQLite database file
	Capacity int    // maximum number of retained entries
}

// WebServerSettings contains HTTP server settings
type WebServerSettings struct {
	Enabled bool   // true to enable the web server
	Port    string // port to listen on
}

// MQTTSettings contains optional identification event publishing settings
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT publishing
	Broker   string // MQTT broker URL
	Topic    string // topic to publish identifications to
	Username string // MQTT username
	Password string // MQTT password
}

// Settings is the top level configuration struct
type Settings struct {
	Debug bool // true to enable debug logging

	Main      MainSettings
	AI        AISettings
	Camera    CameraSettings
	History   HistorySettings
	WebServer WebServerSettings
	MQTT      MQTTSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings struct.
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

	// Environment always wins for the credential so it never needs to
	// live in a file readable by the web server user.
	if key := os.Getenv("PLANTID_API_KEY"); key != "" {
		settings.AI.APIKey = key
	} else {
		settings.AI.APIKey = viper.GetString("ai.apikey")
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
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

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	return string(data)
}

// GetDefaultConfigPaths returns the platform config search paths, most
// specific first: the working directory, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("error resolving user config directory: %w", err)
	}
	return []string{
		".",
		filepath.Join(configDir, "plantid-go"),
	}, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write to a temporary file first for an atomic replace
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary config file: %w", err)
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return fmt.Errorf("error writing temporary config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error closing temporary config file: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}
