package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/docopt/docopt-go"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/bringyour/classfeed/feed"
)


const ConfigDirName = "classfeed"


// Settings are read in order, later sources winning:
// defaults, the yaml config file, the environment (after `.env`), then command line options.
type Config struct {
	ApiUrl string `yaml:"api_url"`
	ApiKey string `yaml:"api_key"`
	// where the signed in credential is kept
	CredentialsPath string `yaml:"credentials_path"`
	// 0 is unlimited
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	PageSize          int     `yaml:"page_size"`
}

func DefaultConfig() *Config {
	return &Config{
		ApiUrl:          feed.DefaultApiUrl,
		CredentialsPath: filepath.Join(defaultConfigDir(), "credentials.yml"),
		PageSize:        feed.DefaultRevealPagerSettings().InitialSize,
	}
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, ConfigDirName)
	}
	return filepath.Join(".", "."+ConfigDirName)
}

func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yml")
}

// a missing file is not an error
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv(os.Getenv)
	return config, nil
}

// the `EXPO_PUBLIC_` names are what the mobile client reads
func (self *Config) applyEnv(getenv func(string) string) {
	for _, key := range []string{"EXPO_PUBLIC_API_BASE_URL", "CLASSFEED_API_BASE_URL"} {
		if v := getenv(key); v != "" {
			self.ApiUrl = v
		}
	}
	for _, key := range []string{"EXPO_PUBLIC_API_KEY", "CLASSFEED_API_KEY"} {
		if v := getenv(key); v != "" {
			self.ApiKey = v
		}
	}
	if v := getenv("CLASSFEED_CREDENTIALS"); v != "" {
		self.CredentialsPath = v
	}
	if v := getenv("CLASSFEED_REQUESTS_PER_SECOND"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			self.RequestsPerSecond = rps
		}
	}
}

func (self *Config) applyOpts(opts docopt.Opts) {
	if apiUrl, err := opts.String("--api_url"); err == nil && apiUrl != "" {
		self.ApiUrl = apiUrl
	}
	if apiKey, err := opts.String("--api_key"); err == nil && apiKey != "" {
		self.ApiKey = apiKey
	}
}

func (self *Config) ApiSettings() *feed.ApiSettings {
	settings := feed.DefaultApiSettings()
	settings.ApiUrl = self.ApiUrl
	settings.ApiKey = self.ApiKey
	if 0 < self.RequestsPerSecond {
		settings.RequestRate = rate.Limit(self.RequestsPerSecond)
	}
	return settings
}

func (self *Config) FeedSettings() *feed.FeedSettings {
	settings := feed.DefaultFeedSettings()
	if 0 < self.PageSize {
		settings.RevealPagerSettings.InitialSize = self.PageSize
		settings.RevealPagerSettings.Increment = self.PageSize
	}
	return settings
}
