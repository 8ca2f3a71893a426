package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/placement-assistant/internal/export"
	"github.com/spigell/placement-assistant/internal/ranking"
)

type Config struct {
	Dataset     string          `mapstructure:"dataset"`
	Sheet       string          `mapstructure:"sheet"`
	Preferences string          `mapstructure:"preferences"`
	Output      OutputConfig    `mapstructure:"output"`
	Ranking     RankingConfig   `mapstructure:"ranking"`
	Filters     FiltersConfig   `mapstructure:"filters"`
	Geocoding   GeocodingConfig `mapstructure:"geocoding"`
	AI          AIConfig        `mapstructure:"ai"`
}

type OutputConfig struct {
	Dir        string `mapstructure:"dir"`
	AllFile    string `mapstructure:"all-file"`
	TopFile    string `mapstructure:"top-file"`
	Transcript string `mapstructure:"transcript"`
}

type RankingConfig struct {
	Policy string `mapstructure:"policy"`
	TopN   int    `mapstructure:"top-n"`
}

type FiltersConfig struct {
	Disable []string `mapstructure:"disable"`
}

type GeocodingConfig struct {
	Enabled         bool           `mapstructure:"enabled"`
	UserAgent       string         `mapstructure:"user-agent"`
	Email           string         `mapstructure:"email"`
	NominatimURL    string         `mapstructure:"nominatim-url"`
	PostalURL       string         `mapstructure:"postal-url"`
	Country         string         `mapstructure:"country"`
	Qualifier       string         `mapstructure:"qualifier"`
	MinInterval     time.Duration  `mapstructure:"min-interval"`
	Timeout         time.Duration  `mapstructure:"timeout"`
	DefaultLocation LocationConfig `mapstructure:"default-location"`
}

type LocationConfig struct {
	Lat float64 `mapstructure:"lat"`
	Lon float64 `mapstructure:"lon"`
}

type AIConfig struct {
	Provider string       `mapstructure:"provider"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey             string   `mapstructure:"api-key"`
	APIKeyFile         string   `mapstructure:"api-key-file"`
	Model              string   `mapstructure:"model"`
	TranscriptionModel string   `mapstructure:"transcription-model"`
	Temperature        *float64 `mapstructure:"temperature"`
	BaseURL            string   `mapstructure:"base-url"`
	MaxLogLength       int      `mapstructure:"max-log-length"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

// minGeocodeInterval is the spacing the public geocoders ask callers to keep.
const minGeocodeInterval = time.Second

func setDefaults(v *viper.Viper) {
	v.SetDefault("preferences", "preferences.json")
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.all-file", export.DefaultAllFile)
	v.SetDefault("output.top-file", export.DefaultTopFile)
	v.SetDefault("ranking.policy", string(ranking.PriorityFirst))
	v.SetDefault("ranking.top-n", ranking.DefaultTopN)
	v.SetDefault("filters.disable", []string{})
	v.SetDefault("geocoding.enabled", true)
	v.SetDefault("geocoding.user-agent", app)
	v.SetDefault("geocoding.country", "us")
	v.SetDefault("geocoding.qualifier", "USA")
	v.SetDefault("geocoding.min-interval", minGeocodeInterval)
	v.SetDefault("geocoding.timeout", 10*time.Second)
	v.SetDefault("geocoding.default-location.lat", ranking.DefaultClientLocation.Lat)
	v.SetDefault("geocoding.default-location.lon", ranking.DefaultClientLocation.Lon)
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.transcription-model", "whisper-1")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.max-retries", 3)
}

func getConfig() (*Config, error) {
	return loadConfig(viper.GetViper())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if config == nil {
		return nil, errors.New("config is required")
	}

	if config.Geocoding.MinInterval < minGeocodeInterval {
		config.Geocoding.MinInterval = minGeocodeInterval
	}
	if config.Ranking.TopN <= 0 {
		config.Ranking.TopN = ranking.DefaultTopN
	}
	if _, err := ranking.ParsePolicy(config.Ranking.Policy); err != nil {
		return nil, err
	}

	return config, nil
}
