package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Camera CameraConfig
	Vision VisionConfig
	UI     UIConfig
}

// CameraConfig holds capture device settings.
type CameraConfig struct {
	Device string // explicit device, empty picks the platform default
	Facing string // "environment" or "user"
}

// VisionConfig holds classification service settings.
type VisionConfig struct {
	Model     string
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"api_key"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	ShowConfidence bool `mapstructure:"show_confidence"`
}

// Load reads configuration from file and env. Env var overrides use
// prefix FLAGSPOT_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("camera.device", "")
	v.SetDefault("camera.facing", "environment")
	v.SetDefault("vision.model", "gemini-2.0-flash")
	v.SetDefault("vision.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("vision.api_key", "")
	v.SetDefault("ui.show_confidence", true)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("FLAGSPOT_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "flagspot"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("FLAGSPOT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config
// directory if needed. Used by the settings affordance for
// non-sensitive preferences; the API key itself belongs in the secret
// store.
func Save(cfg Config) error {
	path := os.Getenv("FLAGSPOT_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "flagspot", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("camera.device", cfg.Camera.Device)
	v.Set("camera.facing", cfg.Camera.Facing)
	v.Set("vision.model", cfg.Vision.Model)
	v.Set("vision.api_key_env", cfg.Vision.APIKeyEnv)
	v.Set("vision.api_key", cfg.Vision.APIKey)
	v.Set("ui.show_confidence", cfg.UI.ShowConfidence)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
