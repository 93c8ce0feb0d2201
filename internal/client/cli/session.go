package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	sessionDirName  = "contactkeeper"
	sessionFileName = "session.yaml"
)

type session struct {
	Token string `yaml:"token"`
}

// FileTokenStore keeps the session token in a yaml file readable only by its owner.
type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// DefaultSessionPath returns the session file location inside the user's config dir.
func DefaultSessionPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("in internal/client/cli/session.go/DefaultSessionPath(): error while `os.UserConfigDir()` calling: %w", err)
	}

	return filepath.Join(configDir, sessionDirName, sessionFileName), nil
}

// LoadToken returns an empty token when no session has been saved yet.
func (s *FileTokenStore) LoadToken() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("in internal/client/cli/session.go/LoadToken(): error while `os.ReadFile()` calling: %w", err)
	}

	var saved session
	if err := yaml.Unmarshal(data, &saved); err != nil {
		return "", fmt.Errorf("in internal/client/cli/session.go/LoadToken(): error while `yaml.Unmarshal()` calling: %w", err)
	}

	return saved.Token, nil
}

func (s *FileTokenStore) SaveToken(token string) error {
	data, err := yaml.Marshal(session{Token: token})
	if err != nil {
		return fmt.Errorf("in internal/client/cli/session.go/SaveToken(): error while `yaml.Marshal()` calling: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("in internal/client/cli/session.go/SaveToken(): error while `os.MkdirAll()` calling: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("in internal/client/cli/session.go/SaveToken(): error while `os.WriteFile()` calling: %w", err)
	}

	return nil
}

func (s *FileTokenStore) ClearToken() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("in internal/client/cli/session.go/ClearToken(): error while `os.Remove()` calling: %w", err)
	}

	return nil
}
