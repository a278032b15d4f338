package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/docopt/docopt-go"
	"github.com/go-playground/assert/v2"
	"golang.org/x/time/rate"

	"github.com/bringyour/classfeed/feed"
)


func TestLoadConfigMissingFile(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Equal(t, err, nil)
	assert.Equal(t, config.PageSize, 10)
	assert.Equal(t, config.ApiSettings().RequestRate, rate.Inf)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := []byte("api_url: https://example.com/api\npage_size: 5\nrequests_per_second: 2\n")
	assert.Equal(t, os.WriteFile(path, data, 0600), nil)

	config, err := LoadConfig(path)
	assert.Equal(t, err, nil)
	assert.Equal(t, config.PageSize, 5)
	assert.Equal(t, config.FeedSettings().RevealPagerSettings.InitialSize, 5)
	assert.Equal(t, config.ApiSettings().RequestRate, rate.Limit(2))

	_, err = LoadConfig(writeFile(t, "config.yml", "api_url: [unterminated"))
	assert.NotEqual(t, err, nil)
}

func TestConfigPrecedence(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, config.ApiUrl, feed.DefaultApiUrl)

	env := map[string]string{
		"EXPO_PUBLIC_API_BASE_URL": "https://expo.example.com",
		"CLASSFEED_API_BASE_URL":   "https://classfeed.example.com",
		"EXPO_PUBLIC_API_KEY":      "expo-key",
	}
	config.applyEnv(func(key string) string {
		return env[key]
	})
	assert.Equal(t, config.ApiUrl, "https://classfeed.example.com")
	assert.Equal(t, config.ApiKey, "expo-key")

	config.applyOpts(docopt.Opts{
		"--api_url": "https://flag.example.com",
		"--api_key": nil,
	})
	assert.Equal(t, config.ApiUrl, "https://flag.example.com")
	assert.Equal(t, config.ApiKey, "expo-key")
}

func TestCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.yml")

	credentials, err := LoadCredentials(path)
	assert.Equal(t, err, nil)
	assert.Equal(t, credentials == nil, true)

	err = SaveCredentials(path, &Credentials{Jwt: "abc", Email: "a@x.com"})
	assert.Equal(t, err, nil)

	credentials, err = LoadCredentials(path)
	assert.Equal(t, err, nil)
	assert.Equal(t, credentials.Jwt, "abc")
	assert.Equal(t, credentials.Email, "a@x.com")

	assert.Equal(t, RemoveCredentials(path), nil)
	assert.Equal(t, RemoveCredentials(path), nil)
	credentials, err = LoadCredentials(path)
	assert.Equal(t, err, nil)
	assert.Equal(t, credentials == nil, true)
}

func writeFile(t *testing.T, name string, content string) string {
	path := filepath.Join(t.TempDir(), name)
	assert.Equal(t, os.WriteFile(path, []byte(content), 0600), nil)
	return path
}
