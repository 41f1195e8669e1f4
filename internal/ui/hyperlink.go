package ui

import (
	"fmt"
	"io"
	"path/filepath"
)

// Hyperlink creates a clickable hyperlink using OSC 8 escape sequences.
// The returned string displays `text` but clicking opens `url`.
func Hyperlink(url, text string) string {
	return fmt.Sprintf("\x1b]8;;%s\x07%s\x1b]8;;\x07", url, text)
}

// FileLink shows path as a file:// hyperlink when w is a terminal and as
// plain text otherwise.
func FileLink(w io.Writer, path string) string {
	if !IsTerminal(w) {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return Hyperlink("file://"+filepath.ToSlash(abs), path)
}
