package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// PathResolver finds data directories relative to the running binary.
type PathResolver struct {
	executableDir string
	configDir     string
}

// NewPathResolver creates a path resolver for the running executable.
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}
	pr := &PathResolver{
		executableDir: filepath.Dir(execPath),
		configDir:     getConfigDir(homeDir),
	}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", pr.executableDir, pr.configDir)
	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "typeahead")
		}
		return filepath.Join(homeDir, ".config", "typeahead")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "typeahead")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "typeahead")
	default:
		return filepath.Join(homeDir, ".config", "typeahead")
	}
}

// GetDataDir resolves the directory holding files that match pattern.
// It tries, in order:
// 1. the user path itself
// 2. the user path relative to the executable directory
// 3. "data" next to the executable, its parent and the config dir
// When none holds a match the user path is returned unchanged for error reporting.
func (pr *PathResolver) GetDataDir(userSpecifiedPath, pattern string) string {
	for _, path := range pr.DataDirCandidates(userSpecifiedPath) {
		if IsValidDataDir(path, pattern) {
			log.Debugf("Found valid data directory: %s", path)
			return path
		}
		log.Debugf("Data directory candidate not valid: %s", path)
	}
	return userSpecifiedPath
}

// DataDirCandidates lists the directories GetDataDir tries.
func (pr *PathResolver) DataDirCandidates(userSpecifiedPath string) []string {
	candidates := []string{userSpecifiedPath}
	if !filepath.IsAbs(userSpecifiedPath) {
		candidates = append(candidates, filepath.Join(pr.executableDir, userSpecifiedPath))
	}
	return append(candidates,
		filepath.Join(pr.executableDir, "data"),
		filepath.Join(filepath.Dir(pr.executableDir), "data"),
		filepath.Join(pr.configDir, "data"),
	)
}

// IsValidDataDir reports whether path is a directory with at least one file matching
// pattern.
func IsValidDataDir(path, pattern string) bool {
	if stat, err := os.Stat(path); err != nil || !stat.IsDir() {
		return false
	}
	matches, err := filepath.Glob(filepath.Join(path, pattern))
	return err == nil && len(matches) > 0
}
