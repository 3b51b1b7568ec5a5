package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeDirName is the per-user directory holding minrow state.
const HomeDirName = ".minrow"

// GetHomeDir returns the minrow home directory under the user's home,
// creating it if it doesn't exist.
func GetHomeDir() (string, error) {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get user home directory: %w", err)
	}
	return getHomeDirIn(userHome)
}

func getHomeDirIn(base string) (string, error) {
	home := filepath.Join(base, HomeDirName)
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create minrow home directory: %w", err)
	}
	return home, nil
}

// GetHistoryDBPath returns the default path of the run history database:
// ~/.minrow/history.db
func GetHistoryDBPath() (string, error) {
	home, err := GetHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}
