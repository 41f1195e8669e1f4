package platform

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// IsLinux returns true if running on Linux
func IsLinux() bool {
	return runtime.GOOS == "linux"
}

// IsDarwin returns true if running on macOS
func IsDarwin() bool {
	return runtime.GOOS == "darwin"
}

// IsRoot reports whether the process runs as root, or elevated on Windows.
func IsRoot() bool {
	return isPrivileged()
}

// CurrentUser returns the login name of the invoking user. Under sudo this is
// the original user, not root.
func CurrentUser() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		return sudoUser
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// ConfigDir returns the directory holding config.yaml, the history database
// and debug logs. Root gets a system-wide path, everyone else a dot directory
// in their home.
func ConfigDir() string {
	if !IsRoot() {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, ".cpueff")
		}
	}

	if IsLinux() {
		return "/etc/cpueff"
	}
	if IsDarwin() {
		return "/usr/local/etc/cpueff"
	}
	return `C:\ProgramData\cpueff`
}
