package conf

import (
	"os"
	"path/filepath"

	"github.com/miviz/miviz/internal/errors"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in order: the working directory and $HOME/.config/miviz.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "miviz"),
	}, nil
}

// DefaultConfigFile is where `miviz config --write` saves when no --config
// path is given.
func DefaultConfigFile() (string, error) {
	paths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}
	return filepath.Join(paths[len(paths)-1], "config.yaml"), nil
}
