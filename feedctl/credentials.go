package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)


// the signed in session, kept between invocations
type Credentials struct {
	Jwt   string `yaml:"jwt"`
	Email string `yaml:"email,omitempty"`
}

// returns nil when nobody is signed in
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	credentials := &Credentials{}
	if err := yaml.Unmarshal(data, credentials); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if credentials.Jwt == "" {
		return nil, nil
	}
	return credentials, nil
}

func SaveCredentials(path string, credentials *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	data, err := yaml.Marshal(credentials)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

func RemoveCredentials(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
