package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/aceteam-ai/cpueff/internal/efficiency"
	"github.com/aceteam-ai/cpueff/internal/platform"
)

// ErrBadUser is returned for user names that cannot be embedded in a file name.
var ErrBadUser = errors.New("invalid user name")

// userPattern matches POSIX-portable login names.
var userPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// ValidateUser rejects names that would produce unsafe or hidden file names.
func ValidateUser(user string) error {
	if !userPattern.MatchString(user) || user == "." || user == ".." {
		return fmt.Errorf("%w: %q", ErrBadUser, user)
	}
	return nil
}

// FileName returns the report file name of one view for user.
func FileName(k Kind, user string) string {
	switch k {
	case KindLow:
		return "eff_low_" + user + ".txt"
	case KindSteps:
		return "eff_steps_" + user + ".txt"
	default:
		return "eff_" + user + ".txt"
	}
}

// FileNames maps every view to its file name for user.
func FileNames(user string) (map[Kind]string, error) {
	if err := ValidateUser(user); err != nil {
		return nil, err
	}
	names := make(map[Kind]string, len(Kinds))
	for _, k := range Kinds {
		names[k] = FileName(k, user)
	}
	return names, nil
}

// WriteAll renders every view and writes the three report files into dir,
// replacing earlier files for the same user. All tables are staged as temp
// files before any is renamed into place, so a failure leaves
// earlier reports untouched. It returns the written paths in Kinds order.
func WriteAll(dir, user string, v Views) ([]string, error) {
	names, err := FileNames(user)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	type staged struct {
		tmp, dest string
	}
	var pending []staged
	cleanup := func() {
		for _, s := range pending {
			os.Remove(s.tmp)
		}
	}

	for _, k := range Kinds {
		dest, err := platform.ValidatePathWithinDir(dir, names[k])
		if err != nil {
			cleanup()
			return nil, err
		}
		tmp, err := stage(dir, v.Get(k))
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to write %s: %w", names[k], err)
		}
		pending = append(pending, staged{tmp: tmp, dest: dest})
	}

	paths := make([]string, 0, len(pending))
	for i, s := range pending {
		if err := os.Rename(s.tmp, s.dest); err != nil {
			for _, rest := range pending[i:] {
				os.Remove(rest.tmp)
			}
			return paths, fmt.Errorf("failed to replace %s: %w", filepath.Base(s.dest), err)
		}
		paths = append(paths, s.dest)
	}
	return paths, nil
}

// stage writes the table of records to a temp file in dir.
func stage(dir string, records []efficiency.Record) (string, error) {
	f, err := os.CreateTemp(dir, ".cpueff-*.tmp")
	if err != nil {
		return "", err
	}
	if err := WriteTable(f, records); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if err := os.Chmod(f.Name(), 0644); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
