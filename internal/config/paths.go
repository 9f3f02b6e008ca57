package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the per-user locations used by the agent
type Paths struct {
	DataDir   string
	LogsDir   string
	LogFile   string
	StoreFile string
}

// GetPaths resolves paths under the user configuration directory
// (~/Library/Application Support/Lingobar on macOS).
func GetPaths() (*Paths, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}

	dataDir := filepath.Join(base, AppName)
	logsDir := filepath.Join(dataDir, "logs")

	return &Paths{
		DataDir:   dataDir,
		LogsDir:   logsDir,
		LogFile:   filepath.Join(logsDir, "agent.log"),
		StoreFile: filepath.Join(dataDir, "secrets.enc"),
	}, nil
}

// EnsureDirectories creates the data and log directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
