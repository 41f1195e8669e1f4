package platform

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandAvailable reports whether name resolves to an executable, either as
// a path or through PATH.
func CommandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// ValidatePathWithinDir joins relativePath onto baseDir and checks that the
// result does not escape baseDir. Report file names embed a user name taken
// from the command line, so "../x" style names must be refused.
//
// Returns the absolute joined path, or an error on traversal.
func ValidatePathWithinDir(baseDir, relativePath string) (string, error) {
	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	absTargetPath, err := filepath.Abs(filepath.Join(absBaseDir, relativePath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve target path: %w", err)
	}

	// Trailing separator keeps /data/out from matching /data/output.
	baseDirWithSep := absBaseDir + string(filepath.Separator)
	if !strings.HasPrefix(absTargetPath+string(filepath.Separator), baseDirWithSep) && absTargetPath != absBaseDir {
		return "", fmt.Errorf("path traversal detected: %q escapes base directory %q", relativePath, baseDir)
	}

	return absTargetPath, nil
}
