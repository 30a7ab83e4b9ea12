package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const runDirTimeFormat = "2006-01-02_15-04-05"

// CreateRunDir makes <base>/<UTC timestamp>_<runName>. It fails if the
// directory already exists so two runs never share outputs.
func CreateRunDir(baseDir, runName string, now time.Time) (string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create base dir %s: %w", baseDir, err)
	}
	dir := filepath.Join(baseDir, now.UTC().Format(runDirTimeFormat)+"_"+runName)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run dir: %w", err)
	}
	return dir, nil
}
