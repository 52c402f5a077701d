package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".maestro"

// Paths holds resolved filesystem paths for Maestro data.
type Paths struct {
	Base   string // ~/.maestro
	Config string // ~/.maestro/config.yaml
	Data   string // ~/.maestro/data (sqlite lives here)
	Logs   string // ~/.maestro/logs
}

// ResolvePaths computes the standard paths from the home directory.
// MAESTRO_HOME overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("MAESTRO_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Data:   filepath.Join(base, "data"),
		Logs:   filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates the standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
