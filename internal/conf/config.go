// config.go: settings struct for BLink and the functions that load it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/blinkbus/blink-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// EnvPrefix is the prefix of environment overrides, e.g. BLINK_SCANNER_THRESHOLD.
const EnvPrefix = "BLINK"

// ROISettings is the recognition region in normalized image coordinates,
// origin bottom-left.
type ROISettings struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ScannerSettings controls the continuous and capture pipelines.
type ScannerSettings struct {
	Throttle            time.Duration // minimum interval between continuous recognitions
	Threshold           int           // confidence needed before a plate is stable
	CandidatesPerRegion int           // alternative readings requested per text region
	ROI                 ROISettings   // continuous-mode region of interest
	SeedPartial         bool          // lenient plates without identifier feed continuous confidence
	AllowPartialCapture bool          // lenient plates may be returned by capture mode
	CaptureTimeout      time.Duration // 0 disables the capture deadline
	Denylist            []string      // noise words removed before plate matching
	SightingInterval    time.Duration // repeated detections of a plate within this window are recorded once
}

// OCRSettings configures the tesseract recognizer.
type OCRSettings struct {
	Language       string
	Quality        string // only "accurate" is supported
	Whitelist      string
	TessdataPrefix string
	PageSegMode    int
	PoolSize       int     // concurrent recognizer clients
	Upscale        float64 // preprocessing scale factor for small plates
}

// CameraSettings selects the capture device.
type CameraSettings struct {
	Device int
	Width  int
	Height int
	FPS    float64
}

// MySQLSettings holds connection settings for the optional MySQL backend.
type MySQLSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// CatalogSettings configures the bus catalog store.
type CatalogSettings struct {
	Driver    string // sqlite or mysql
	Path      string // sqlite database file
	MySQL     MySQLSettings
	SeedFile  string // optional YAML seed overriding the embedded data
	AutoSeed  bool   // seed an empty catalog on startup
	CacheTTL  time.Duration
	SlowQuery time.Duration
}

// GeocodeSettings configures reverse geocoding.
type GeocodeSettings struct {
	Enabled   bool
	Endpoint  string
	UserAgent string
	RateLimit float64 // requests per second
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// MQTTSettings configures detection publishing.
type MQTTSettings struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	Retain   bool
	QoS      int
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Enabled          bool
	Port             string
	CaptureRateLimit float64 // capture uploads per second
	MaxUploadMB      int
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled bool
	DSN     string
}

// Settings is the root configuration.
type Settings struct {
	Debug     bool
	Logging   logger.LoggingConfig
	Scanner   ScannerSettings
	OCR       OCRSettings
	Camera    CameraSettings
	Catalog   CatalogSettings
	Geocode   GeocodeSettings
	MQTT      MQTTSettings
	WebServer WebServerSettings
	Sentry    SentrySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the config file and environment overrides, then validates.
// An empty configFile searches the default config paths and writes the embedded
// default config.yaml when none exists.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

func initViper(configFile string) error {
	setDefaultConfig()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the embedded config.yaml into dir and reads it back.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	logger.Global().Module("conf").Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the directories searched for config.yaml. When one of
// them already holds a config file only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting home directory: %w", err)
	}

	configPaths := []string{
		filepath.Join(homeDir, ".config", "blink"),
		"/etc/blink",
	}
	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}
	return configPaths, nil
}
