package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestOS(t *testing.T) {
	if IsLinux() != (runtime.GOOS == "linux") {
		t.Error("IsLinux disagrees with runtime.GOOS")
	}
	if IsDarwin() != (runtime.GOOS == "darwin") {
		t.Error("IsDarwin disagrees with runtime.GOOS")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Fatal("ConfigDir() returned empty string")
	}

	if !IsRoot() {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skipf("no home dir: %v", err)
		}
		if want := filepath.Join(home, ".cpueff"); dir != want {
			t.Errorf("ConfigDir() as non-root = %s, want %s", dir, want)
		}
		return
	}

	switch runtime.GOOS {
	case "linux":
		if dir != "/etc/cpueff" {
			t.Errorf("ConfigDir() on Linux as root = %s, want /etc/cpueff", dir)
		}
	case "darwin":
		if dir != "/usr/local/etc/cpueff" {
			t.Errorf("ConfigDir() on macOS as root = %s, want /usr/local/etc/cpueff", dir)
		}
	}
}

func TestCurrentUserPrefersSudoUser(t *testing.T) {
	t.Setenv("SUDO_USER", "alice")
	if got := CurrentUser(); got != "alice" {
		t.Errorf("CurrentUser() = %q, want alice", got)
	}
}
