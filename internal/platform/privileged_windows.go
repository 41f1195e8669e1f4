//go:build windows

package platform

import "golang.org/x/sys/windows"

// isPrivileged reports whether the process runs with an elevated token.
func isPrivileged() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
