package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const (
	fileKeyAPIKey            = "api_key"
	fileKeyCustomInstruction = "custom_instruction"
	appDirName               = "video-summarizer"
	defaultFileName          = "settings.json"

	settingsFileMode os.FileMode = 0o600
)

// FileStore keeps settings in a local file. The format follows the file
// extension (json, yaml, toml).
type FileStore struct {
	path string
	mu   sync.Mutex
}

// DefaultFilePath is settings.json under the user's config directory.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, defaultFileName), nil
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		p, err := DefaultFilePath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if filepath.Ext(path) == "" {
		return nil, fmt.Errorf("settings file %q needs an extension", path)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.read()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		APIKey:            v.GetString(fileKeyAPIKey),
		CustomInstruction: v.GetString(fileKeyCustomInstruction),
	}, nil
}

func (s *FileStore) Save(ctx context.Context, patch Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.read()
	if err != nil {
		return err
	}
	if patch.APIKey != nil {
		v.Set(fileKeyAPIKey, *patch.APIKey)
	}
	if patch.CustomInstruction != nil {
		v.Set(fileKeyCustomInstruction, *patch.CustomInstruction)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	// WriteConfigAs keeps the mode of a file that already exists.
	if err := os.Chmod(s.path, settingsFileMode); err != nil {
		return fmt.Errorf("restrict settings file: %w", err)
	}
	return nil
}

func (s *FileStore) read() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigPermissions(settingsFileMode)

	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("stat settings file: %w", err)
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	return v, nil
}
